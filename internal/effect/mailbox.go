package effect

import (
	"context"
	"sync"

	"github.com/jask/adminstate/internal/store"
)

// maxBacklog bounds the actions a mailbox holds while no take is pending.
const maxBacklog = 256

// mailbox is a bounded FIFO of actions owned by one task. Pushing never
// blocks. A task that has not taken yet and lets maxBacklog actions pile up is
// treated as a non-taker: its mailbox is emptied and stays idle until the task
// calls take. Once a task has taken, overflow drops the oldest action.
type mailbox struct {
	mu     sync.Mutex
	items  []store.Action
	signal chan struct{}
	limit  int
	taken  bool
	idle   bool
	closed bool
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1), limit: maxBacklog}
}

// push queues a and reports whether the mailbox went idle because of it.
func (m *mailbox) push(a store.Action) (wentIdle bool) {
	m.mu.Lock()
	if m.closed || m.idle {
		m.mu.Unlock()
		return false
	}
	if len(m.items) >= m.limit {
		if !m.taken {
			clear(m.items)
			m.items = nil
			m.idle = true
			m.mu.Unlock()
			return true
		}
		m.items[0] = nil
		m.items = m.items[1:]
	}
	m.items = append(m.items, a)
	m.mu.Unlock()
	select {
	case m.signal <- struct{}{}:
	default:
	}
	return false
}

// pending is the number of buffered actions.
func (m *mailbox) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.items = nil
	m.mu.Unlock()
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// take removes and returns the first action accepted by match. Actions queued
// ahead of it are discarded.
func (m *mailbox) take(ctx context.Context, match func(store.Action) bool) (store.Action, error) {
	m.mu.Lock()
	m.taken = true
	m.idle = false
	m.mu.Unlock()
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, ErrStopped
		}
		for i, a := range m.items {
			if match == nil || match(a) {
				clear(m.items[:i+1])
				m.items = m.items[i+1:]
				m.mu.Unlock()
				return a, nil
			}
		}
		clear(m.items)
		m.items = m.items[:0]
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-m.signal:
		}
	}
}
