package store

import (
	"errors"
	"fmt"
)

var (
	ErrNoSlices  = errors.New("store: registry has no slices")
	ErrNilAction = errors.New("store: nil action")
	ErrClosed    = errors.New("store: closed")
)

// DuplicateSliceError reports a key registered twice.
type DuplicateSliceError struct {
	Key string
}

func (e *DuplicateSliceError) Error() string {
	return fmt.Sprintf("store: slice %q registered twice", e.Key)
}

// MissingSliceError reports required keys absent from a registry.
type MissingSliceError struct {
	Keys []string
}

func (e *MissingSliceError) Error() string {
	return fmt.Sprintf("store: missing required slices %v", e.Keys)
}

// ReducerError is returned from Dispatch when a slice update function panics.
// The snapshot is left at the last committed state.
type ReducerError struct {
	Key    string
	Action string
	Value  any
}

func (e *ReducerError) Error() string {
	return fmt.Sprintf("store: update function for %q failed on %q: %v", e.Key, e.Action, e.Value)
}

func (e *ReducerError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// StagePanicError wraps a panic raised by a pipeline stage.
type StagePanicError struct {
	Action string
	Value  any
}

func (e *StagePanicError) Error() string {
	return fmt.Sprintf("store: panic while dispatching %q: %v", e.Action, e.Value)
}

// ListenerPanicError is reported when a subscriber panics. The state it was
// notified of is already committed.
type ListenerPanicError struct {
	Action string
	Value  any
}

func (e *ListenerPanicError) Error() string {
	return fmt.Sprintf("store: listener panicked after %q: %v", e.Action, e.Value)
}

// DroppedActionError is reported for a queued action that never ran.
type DroppedActionError struct {
	Action string
	Err    error
}

func (e *DroppedActionError) Error() string {
	return fmt.Sprintf("store: queued %q dropped: %v", e.Action, e.Err)
}

func (e *DroppedActionError) Unwrap() error { return e.Err }
