// Package effect runs long-lived effect programs next to the store. Programs
// are goroutines grouped under one errgroup; each owns a bounded mailbox
// receiving the actions that reached the update function, and may dispatch
// further actions at any time.
package effect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jask/adminstate/internal/store"
)

var (
	ErrStopped        = errors.New("effect: stopped")
	ErrAlreadyStarted = errors.New("effect: already started")
)

// Program is a long-running, cancellable effect routine.
type Program interface {
	Run(ctx context.Context, rt Runtime) error
}

// Func adapts a function into a Program.
type Func func(ctx context.Context, rt Runtime) error

func (f Func) Run(ctx context.Context, rt Runtime) error { return f(ctx, rt) }

// Runtime is a program's handle on the store.
type Runtime interface {
	// Take waits for the next action whose type is one of types (any action
	// when types is empty). Earlier non-matching actions are dropped.
	Take(ctx context.Context, types ...string) (store.Action, error)
	TakeFunc(ctx context.Context, match func(store.Action) bool) (store.Action, error)
	// Put dispatches a on the store.
	Put(a store.Action) error
	Select() *store.State
	// Fork starts p as a child task. Its failure does not affect the parent.
	Fork(name string, p Program) *Task
	Logger() *slog.Logger
}

// ProgramError reports an unhandled failure inside a task.
type ProgramError struct {
	Task  string
	Err   error
	Panic any
}

func (e *ProgramError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("effect: task %q panicked: %v", e.Task, e.Panic)
	}
	return fmt.Sprintf("effect: task %q failed: %v", e.Task, e.Err)
}

func (e *ProgramError) Unwrap() error { return e.Err }

// Task is a handle on a running program.
type Task struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func (t *Task) Name() string { return t.name }

// Cancel asks the task to stop.
func (t *Task) Cancel() { t.cancel() }

// Done is closed once the task returned.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err is the task failure; valid after Done is closed.
func (t *Task) Err() error {
	<-t.done
	return t.err
}

type Option func(*Middleware)

func WithLogger(l *slog.Logger) Option {
	return func(m *Middleware) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithErrorHandler routes program failures to fn in addition to the log.
func WithErrorHandler(fn func(error)) Option {
	return func(m *Middleware) { m.onError = fn }
}

// Middleware is the effect-program stage. The root program is started exactly
// once in Start and runs until Stop.
type Middleware struct {
	root    Program
	logger  *slog.Logger
	onError func(error)

	mu      sync.Mutex
	api     store.API
	cancel  context.CancelFunc
	ctx     context.Context
	group   errgroup.Group
	boxes   map[*mailbox]string
	started bool
	stopped bool
}

func New(root Program, opts ...Option) *Middleware {
	m := &Middleware{
		root:   root,
		logger: slog.Default(),
		boxes:  make(map[*mailbox]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Middleware) Name() string { return "effect" }

func (m *Middleware) Start(api store.API) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.api = api
	m.ctx, m.cancel = context.WithCancel(context.Background())
	ctx := m.ctx
	m.mu.Unlock()

	if m.root != nil {
		m.spawnTree(ctx, "root", m.root)
	}
	return nil
}

// Handle forwards a and then hands it to every running task.
func (m *Middleware) Handle(api store.API, a store.Action, next store.Next) (store.Action, error) {
	out, err := next.Dispatch(a)
	if err != nil {
		return out, err
	}
	m.broadcast(a)
	return out, nil
}

// Stop cancels every task, waits for them and returns the first failure.
func (m *Middleware) Stop() error {
	m.mu.Lock()
	if !m.started || m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	cancel := m.cancel
	boxes := m.boxes
	m.boxes = map[*mailbox]string{}
	m.mu.Unlock()

	cancel()
	for box := range boxes {
		box.close()
	}
	return m.group.Wait()
}

// Run starts p as an additional top-level task.
func (m *Middleware) Run(name string, p Program) (*Task, error) {
	m.mu.Lock()
	started, ctx := m.started, m.ctx
	m.mu.Unlock()
	if !started {
		return nil, errors.New("effect: not started")
	}
	return m.spawnTree(ctx, name, p), nil
}

func (m *Middleware) broadcast(a store.Action) {
	m.mu.Lock()
	boxes := make(map[*mailbox]string, len(m.boxes))
	maps.Copy(boxes, m.boxes)
	m.mu.Unlock()
	for box, name := range boxes {
		if box.push(a) {
			m.logger.Debug("effect task is not taking actions; mailbox idle", "task", name, "backlog", maxBacklog)
		}
	}
}

// spawnTree starts the members of an All directly, recursively, and returns
// the task of the last one started.
func (m *Middleware) spawnTree(ctx context.Context, name string, p Program) *Task {
	inner := p
	if n, ok := p.(named); ok {
		inner = n.Program
	}
	members, ok := inner.(all)
	if !ok {
		return m.spawn(ctx, name, p)
	}
	var last *Task
	for i, c := range members {
		if c != nil {
			last = m.spawnTree(ctx, programName(c, i), c)
		}
	}
	if last == nil {
		last = &Task{name: name, cancel: func() {}, done: make(chan struct{})}
		close(last.done)
	}
	return last
}

func (m *Middleware) spawn(parent context.Context, name string, p Program) *Task {
	ctx, cancel := context.WithCancel(parent)
	t := &Task{name: name, cancel: cancel, done: make(chan struct{})}
	box := newMailbox()

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		cancel()
		t.err = ErrStopped
		close(t.done)
		return t
	}
	m.boxes[box] = name
	rt := &runtime{m: m, box: box, ctx: ctx}
	// Go is called under the lock so Stop cannot start waiting in between.
	m.group.Go(func() error {
		defer close(t.done)
		defer cancel()
		defer m.release(box)
		err := m.runProgram(ctx, name, p, rt)
		t.err = err
		if err != nil {
			m.report(err)
		}
		return err
	})
	m.mu.Unlock()
	return t
}

func (m *Middleware) runProgram(ctx context.Context, name string, p Program, rt Runtime) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &ProgramError{Task: name, Panic: v}
		}
	}()
	err = p.Run(ctx, rt)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, ErrStopped)) {
		return nil
	}
	return &ProgramError{Task: name, Err: err}
}

func (m *Middleware) release(box *mailbox) {
	m.mu.Lock()
	delete(m.boxes, box)
	m.mu.Unlock()
	box.close()
}

func (m *Middleware) report(err error) {
	m.logger.Error("effect program failed", "error", err)
	if m.onError != nil {
		m.onError(err)
	}
}

type runtime struct {
	m   *Middleware
	box *mailbox
	ctx context.Context
}

func (r *runtime) Take(ctx context.Context, types ...string) (store.Action, error) {
	if len(types) == 0 {
		return r.box.take(ctx, nil)
	}
	return r.box.take(ctx, func(a store.Action) bool {
		for _, t := range types {
			if a.Type() == t {
				return true
			}
		}
		return false
	})
}

func (r *runtime) TakeFunc(ctx context.Context, match func(store.Action) bool) (store.Action, error) {
	return r.box.take(ctx, match)
}

func (r *runtime) Put(a store.Action) error {
	_, err := r.m.api.Dispatch(a)
	return err
}

func (r *runtime) Select() *store.State {
	return r.m.api.GetState()
}

func (r *runtime) Fork(name string, p Program) *Task {
	return r.m.spawn(r.ctx, name, p)
}

func (r *runtime) Logger() *slog.Logger {
	return r.m.logger
}
