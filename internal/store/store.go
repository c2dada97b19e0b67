package store

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Listener is called after every committed state change with the new snapshot.
type Listener func(*State)

// Options configures a Store.
type Options struct {
	// Stages run in order in front of the combined update function.
	Stages []Stage
	// Enhancers rewrite the pipeline before it is built, in order.
	Enhancers []Enhancer
	// Preloaded replaces the registry's initial snapshot.
	Preloaded *State
	Logger    *slog.Logger
	// OnError receives failures that have no synchronous caller: queued
	// dispatches and errors reported by stages.
	OnError func(error)
}

// Store owns the current snapshot, the built pipeline and the subscribers.
// Dispatches never interleave: a dispatch issued while another is running is
// queued and processed once the running one has completed.
type Store struct {
	registry *Registry
	head     Next
	stages   []Stage
	logger   *slog.Logger
	onError  func(error)

	state atomic.Pointer[State]

	mu      sync.Mutex
	busy    bool
	closed  bool
	queue   []Action
	started []Stage

	lmu       sync.Mutex
	listeners []*subscription
	nextID    uint64
}

type subscription struct {
	id uint64
	fn Listener
}

// New creates a store. Construction errors (including failing Starter stages)
// are returned here and never deferred to the first dispatch.
func New(reg *Registry, opts Options) (*Store, error) {
	if reg == nil {
		return nil, ErrNoSlices
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{registry: reg, logger: logger, onError: opts.OnError}

	initial := reg.InitialState()
	if opts.Preloaded != nil {
		var missing []string
		for _, k := range reg.keys {
			v, ok := opts.Preloaded.values[k]
			if !ok {
				missing = append(missing, k)
				continue
			}
			initial.values[k] = v
		}
		if len(missing) > 0 {
			return nil, &MissingSliceError{Keys: missing}
		}
	}
	s.state.Store(initial)

	p := NewPipeline(opts.Stages...)
	for _, enhance := range opts.Enhancers {
		if enhance == nil {
			continue
		}
		if p = enhance(p); p == nil {
			return nil, errors.New("store: enhancer returned nil pipeline")
		}
	}
	s.stages = p.Stages()
	s.head = p.Build(s, &terminal{s: s})

	for _, st := range s.stages {
		starter, ok := st.(Starter)
		if !ok {
			continue
		}
		if err := starter.Start(s); err != nil {
			_ = s.Close()
			return nil, err
		}
		s.mu.Lock()
		s.started = append(s.started, st)
		s.mu.Unlock()
	}
	return s, nil
}

// GetState returns the current snapshot.
func (s *Store) GetState() *State {
	return s.state.Load()
}

// Dispatch sends a through the pipeline and the combined update function and
// returns the action as transformed by the stages. If another dispatch is in
// progress the action is queued, a is returned unchanged and any later failure
// goes to the error handler.
func (s *Store) Dispatch(a Action) (Action, error) {
	if a == nil {
		return nil, ErrNilAction
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return a, ErrClosed
	}
	if s.busy {
		s.queue = append(s.queue, a)
		s.mu.Unlock()
		return a, nil
	}
	s.busy = true
	s.mu.Unlock()

	out, err := s.run(a)
	s.drain()
	return out, err
}

func (s *Store) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.closed {
			dropped := s.queue
			s.queue = nil
			s.busy = false
			s.mu.Unlock()
			for _, a := range dropped {
				s.Report(&DroppedActionError{Action: a.Type(), Err: ErrClosed})
			}
			return
		}
		a := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		if _, err := s.run(a); err != nil {
			s.Report(err)
		}
	}
}

func (s *Store) run(a Action) (out Action, err error) {
	defer func() {
		if v := recover(); v != nil {
			out, err = a, &StagePanicError{Action: a.Type(), Value: v}
		}
	}()
	return s.head.Dispatch(a)
}

// Subscribe registers l and returns a function removing it. Removing a
// listener during a notification pass does not change that pass.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	if l == nil {
		return func() {}
	}
	s.lmu.Lock()
	s.nextID++
	sub := &subscription{id: s.nextID, fn: l}
	next := make([]*subscription, 0, len(s.listeners)+1)
	next = append(next, s.listeners...)
	s.listeners = append(next, sub)
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			defer s.lmu.Unlock()
			next := make([]*subscription, 0, len(s.listeners))
			for _, cur := range s.listeners {
				if cur.id != sub.id {
					next = append(next, cur)
				}
			}
			s.listeners = next
		})
	}
}

// notify runs one pass over the listeners. A panicking listener is reported
// and the pass continues.
func (s *Store) notify(st *State, a Action) {
	s.lmu.Lock()
	pass := s.listeners
	s.lmu.Unlock()
	for _, sub := range pass {
		s.call(sub.fn, st, a)
	}
}

func (s *Store) call(fn Listener, st *State, a Action) {
	defer func() {
		if v := recover(); v != nil {
			s.Report(&ListenerPanicError{Action: a.Type(), Value: v})
		}
	}()
	fn(st)
}

// Report hands an asynchronous failure to the error handler.
func (s *Store) Report(err error) {
	if err == nil {
		return
	}
	if s.onError != nil {
		s.onError(err)
		return
	}
	s.logger.Error("store: asynchronous dispatch failure", "error", err)
}

// Close stops the stages in reverse order. Dispatch fails with ErrClosed
// afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	started := s.started
	s.started = nil
	s.mu.Unlock()

	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		if stopper, ok := started[i].(Stopper); ok {
			if err := stopper.Stop(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// terminal is the end of the pipeline: it runs the combined update function,
// commits and notifies.
type terminal struct {
	s *Store
}

func (t *terminal) Dispatch(a Action) (Action, error) {
	prev := t.s.state.Load()
	next, err := t.s.registry.Reduce(prev, a)
	if err != nil {
		return a, err
	}
	if next == prev {
		return a, nil
	}
	t.s.state.Store(next)
	t.s.notify(next, a)
	return a, nil
}
