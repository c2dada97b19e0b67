// Package store holds the application state container: a registry of
// independently owned slices combined into one update function, an explicit
// pipeline of stages every action passes through, and the Store that owns the
// current snapshot and its subscribers.
package store

// Action describes an intended state change or effect trigger. Actions are the
// only input to state transitions.
type Action interface {
	Type() string
}

// Act is a minimal action carrying an optional payload. Slices usually define
// their own struct actions; Act is handy for glue code and tests.
type Act struct {
	Kind    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func (a Act) Type() string { return a.Kind }

// Deferred is the dedicated variant for function-shaped actions. It never
// reaches the update function: DeferredStage runs it with the store API and
// swallows it.
type Deferred struct {
	Name string
	Run  func(api API) error
}

func (d Deferred) Type() string { return "@@deferred/" + d.Name }

// Defer builds a Deferred action.
func Defer(name string, run func(api API) error) Deferred {
	return Deferred{Name: name, Run: run}
}
