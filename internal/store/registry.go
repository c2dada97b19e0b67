package store

import (
	"fmt"
	"reflect"
	"strings"
)

// Reducer is the untyped form of a slice update function.
type Reducer func(state any, action Action) any

// Slice binds a state key to its initial value and update function.
type Slice struct {
	Key     string
	Initial any
	Reduce  Reducer
}

// Define adapts a typed update function into a Slice.
func Define[T any](key string, initial T, reduce func(T, Action) T) Slice {
	s := Slice{Key: key, Initial: initial}
	if reduce == nil {
		return s
	}
	s.Reduce = func(state any, action Action) any {
		cur, ok := state.(T)
		if !ok && state != nil {
			panic(fmt.Errorf("slice %q holds %T, want %T", key, state, *new(T)))
		}
		return reduce(cur, action)
	}
	return s
}

// Registry combines slices into a single update function.
type Registry struct {
	keys   []string
	slices map[string]Slice
}

func NewRegistry(slices ...Slice) (*Registry, error) {
	if len(slices) == 0 {
		return nil, ErrNoSlices
	}
	r := &Registry{slices: make(map[string]Slice, len(slices))}
	for _, s := range slices {
		key := strings.TrimSpace(s.Key)
		if key == "" {
			return nil, fmt.Errorf("store: slice with empty key")
		}
		if _, dup := r.slices[key]; dup {
			return nil, &DuplicateSliceError{Key: key}
		}
		if s.Reduce == nil {
			return nil, fmt.Errorf("store: slice %q has no update function", key)
		}
		s.Key = key
		r.slices[key] = s
		r.keys = append(r.keys, key)
	}
	return r, nil
}

// Require fails when any of keys is not registered.
func (r *Registry) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if _, ok := r.slices[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return &MissingSliceError{Keys: missing}
	}
	return nil
}

func (r *Registry) Keys() []string {
	return append([]string(nil), r.keys...)
}

// InitialState builds the snapshot made of every slice's initial value.
func (r *Registry) InitialState() *State {
	values := make(map[string]any, len(r.keys))
	for _, k := range r.keys {
		values[k] = r.slices[k].Initial
	}
	return &State{keys: r.keys, values: values}
}

// Reduce applies every slice update function to its own sub-state. The input
// snapshot is returned as is when no slice changed.
func (r *Registry) Reduce(st *State, action Action) (next *State, err error) {
	if st == nil {
		st = r.InitialState()
	}
	var changed map[string]any
	for _, k := range r.keys {
		prev := st.values[k]
		out, err := r.reduceSlice(k, prev, action)
		if err != nil {
			return st, err
		}
		if sameValue(prev, out) {
			continue
		}
		if changed == nil {
			changed = make(map[string]any)
		}
		changed[k] = out
	}
	if changed == nil {
		return st, nil
	}
	values := make(map[string]any, len(st.values))
	for k, v := range st.values {
		values[k] = v
	}
	for k, v := range changed {
		values[k] = v
	}
	return &State{keys: r.keys, values: values}, nil
}

func (r *Registry) reduceSlice(key string, prev any, action Action) (out any, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &ReducerError{Key: key, Action: action.Type(), Value: v}
		}
	}()
	return r.slices[key].Reduce(prev, action), nil
}

// sameValue reports whether an update function handed back its input. Reference
// kinds compare by identity, everything else by value.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if va.Comparable() && vb.Comparable() {
		return va.Equal(vb)
	}
	return reflect.DeepEqual(a, b)
}
