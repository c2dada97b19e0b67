package store

import (
	"maps"
	"slices"
)

// State is an immutable snapshot of the application state, one value per
// registered slice. A State is never modified after it is published; updates
// produce a new State that shares unchanged sub-states with its parent.
type State struct {
	keys   []string
	values map[string]any
}

// Get returns the sub-state stored under key, or nil.
func (s *State) Get(key string) any {
	if s == nil {
		return nil
	}
	return s.values[key]
}

// Keys lists slice keys in registration order.
func (s *State) Keys() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.keys)
}

// Map returns a shallow copy of the snapshot.
func (s *State) Map() map[string]any {
	if s == nil {
		return nil
	}
	return maps.Clone(s.values)
}

// ToSerializable exposes the snapshot to inspectors as a plain map.
func (s *State) ToSerializable() any {
	return s.Map()
}

// Select returns the sub-state under key as T. The zero value is returned when
// the key is absent or holds another type.
func Select[T any](s *State, key string) T {
	v, _ := s.Get(key).(T)
	return v
}
