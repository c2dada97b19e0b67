package navigation

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/jask/adminstate/internal/store"
)

// Store is the part of the store the bridge needs.
type Store interface {
	Dispatch(store.Action) (store.Action, error)
	GetState() *store.State
	Subscribe(store.Listener) (unsubscribe func())
}

// Bridge keeps the routing slice and a History consistent in both directions.
//
// A history change is dispatched as LocationChanged unless it is the echo of a
// push the bridge itself made. A routing change in the store is pushed to the
// history unless it matches the location the history last reported. Bridge
// is also the synchronized history handle: its listeners see locations once
// the store holds them.
type Bridge struct {
	history History
	store   Store
	logger  *slog.Logger

	mu      sync.Mutex
	current Location  // last location known to be in both places
	seen    *Location // routing pointer last handled from the store
	pushing bool
	closed  bool

	unlisten    func()
	unsubscribe func()

	lmu       sync.Mutex
	listeners map[int]func(Location)
	nextID    int
}

type BridgeOption func(*Bridge)

func WithLogger(l *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// Sync pairs h with s. If the store holds no location yet, or one the history
// does not, the history's current location is dispatched first.
func Sync(h History, s Store, opts ...BridgeOption) (*Bridge, error) {
	if h == nil || s == nil {
		return nil, errors.New("navigation: sync needs a history and a store")
	}
	b := &Bridge{
		history:   h,
		store:     s,
		logger:    slog.Default(),
		listeners: map[int]func(Location){},
	}
	for _, opt := range opts {
		opt(b)
	}

	b.current = h.Current()
	if loc := Current(s.GetState()); loc == nil || !loc.Same(b.current) {
		if _, err := s.Dispatch(LocationChanged{Location: b.current}); err != nil {
			return nil, err
		}
	}
	b.seen = Current(s.GetState())

	b.unsubscribe = s.Subscribe(b.onStore)
	b.unlisten = h.Listen(b.onHistory)
	return b, nil
}

func (b *Bridge) onHistory(loc Location) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if b.pushing {
		// our own push coming back
		b.current = loc
		b.mu.Unlock()
		return
	}
	if loc.Same(b.current) {
		b.mu.Unlock()
		return
	}
	b.current = loc
	b.mu.Unlock()

	if _, err := b.store.Dispatch(LocationChanged{Location: loc}); err != nil {
		b.logger.Error("navigation: dispatch location change", "path", loc.Path(), "error", err)
	}
}

func (b *Bridge) onStore(st *store.State) {
	loc := Current(st)

	b.mu.Lock()
	if b.closed || loc == nil || loc == b.seen {
		b.mu.Unlock()
		return
	}
	b.seen = loc
	if loc.Same(b.current) {
		b.mu.Unlock()
		b.emit(*loc)
		return
	}
	// the store moved on its own, e.g. a replayed snapshot
	b.pushing = true
	b.mu.Unlock()

	b.history.Push(Location{Pathname: loc.Pathname, Search: loc.Search, Hash: loc.Hash})

	b.mu.Lock()
	b.pushing = false
	b.mu.Unlock()
	b.emit(*loc)
}

// Push forwards to the underlying history.
func (b *Bridge) Push(loc Location) { b.history.Push(loc) }

// Replace forwards to the underlying history.
func (b *Bridge) Replace(loc Location) { b.history.Replace(loc) }

// Go forwards to the underlying history when it can navigate.
func (b *Bridge) Go(delta int) {
	if nav, ok := b.history.(Navigator); ok {
		nav.Go(delta)
	}
}

// Current is the location held by the store.
func (b *Bridge) Current() Location {
	if loc := Current(b.store.GetState()); loc != nil {
		return *loc
	}
	return b.history.Current()
}

// Listen registers fn for every routing change committed to the store.
func (b *Bridge) Listen(fn func(Location)) func() {
	b.lmu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.lmu.Unlock()
	return func() {
		b.lmu.Lock()
		delete(b.listeners, id)
		b.lmu.Unlock()
	}
}

func (b *Bridge) emit(loc Location) {
	b.lmu.Lock()
	fns := make([]func(Location), 0, len(b.listeners))
	for i := 0; i < b.nextID; i++ {
		if fn, ok := b.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	b.lmu.Unlock()
	for _, fn := range fns {
		fn(loc)
	}
}

// Close detaches the bridge from both sides.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	b.unlisten()
	b.unsubscribe()
}
