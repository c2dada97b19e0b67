package navigation

import (
	"sync"

	"github.com/google/uuid"
)

// History is the external, authoritative navigation history.
type History interface {
	Push(loc Location)
	Replace(loc Location)
	// Listen registers fn for every location change and returns a function
	// removing it.
	Listen(fn func(Location)) (unlisten func())
	Current() Location
}

// Navigator is implemented by histories able to move through their entries.
type Navigator interface {
	Go(delta int)
}

// MemoryHistory is an in-process history: a stack of entries and a cursor.
// Listeners are called synchronously from Push, Replace and Go.
type MemoryHistory struct {
	mu        sync.Mutex
	entries   []Location
	index     int
	listeners map[int]func(Location)
	nextID    int
}

func NewMemoryHistory(initial string) *MemoryHistory {
	if initial == "" {
		initial = "/"
	}
	loc := ParseLocation(initial)
	loc.Key = newKey()
	loc.Action = ActionPop
	return &MemoryHistory{
		entries:   []Location{loc},
		listeners: map[int]func(Location){},
	}
}

func newKey() string {
	return uuid.NewString()[:8]
}

func (h *MemoryHistory) Push(loc Location) {
	loc.Key = newKey()
	loc.Action = ActionPush
	h.mu.Lock()
	h.entries = append(h.entries[:h.index+1], loc)
	h.index = len(h.entries) - 1
	h.mu.Unlock()
	h.emit(loc)
}

func (h *MemoryHistory) Replace(loc Location) {
	loc.Key = newKey()
	loc.Action = ActionReplace
	h.mu.Lock()
	h.entries[h.index] = loc
	h.mu.Unlock()
	h.emit(loc)
}

// Go moves the cursor by delta entries, clamped to the stack. Moving nowhere
// emits nothing.
func (h *MemoryHistory) Go(delta int) {
	h.mu.Lock()
	target := min(max(h.index+delta, 0), len(h.entries)-1)
	if target == h.index {
		h.mu.Unlock()
		return
	}
	h.index = target
	loc := h.entries[target]
	loc.Action = ActionPop
	h.entries[target] = loc
	h.mu.Unlock()
	h.emit(loc)
}

func (h *MemoryHistory) Back()    { h.Go(-1) }
func (h *MemoryHistory) Forward() { h.Go(1) }

func (h *MemoryHistory) Current() Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Len is the number of entries in the stack.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func (h *MemoryHistory) Listen(fn func(Location)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

func (h *MemoryHistory) emit(loc Location) {
	h.mu.Lock()
	fns := make([]func(Location), 0, len(h.listeners))
	// registration order
	for i := 0; i < h.nextID; i++ {
		if fn, ok := h.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(loc)
	}
}
