// Package devtools taps the dispatch stream for external inspection. The tap
// is a passive stage: it never changes what is dispatched, in which order, or
// what a dispatch returns.
package devtools

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jask/adminstate/internal/store"
)

// Record is one dispatched action and the snapshot it produced, both already
// serialized.
type Record struct {
	ID     uuid.UUID `json:"id"`
	Seq    uint64    `json:"seq"`
	Type   string    `json:"type"`
	Action any       `json:"action"`
	State  any       `json:"state"`
	At     time.Time `json:"at"`

	// Raw is the action as dispatched, kept for in-process replay.
	Raw store.Action `json:"-"`
}

// Inspector receives the initial snapshot once and then one Record per
// dispatch that reached the update function.
type Inspector interface {
	Init(state any) error
	Send(rec Record) error
}

type Option func(*tap)

func WithLogger(l *slog.Logger) Option {
	return func(t *tap) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *tap) { t.now = now }
}

// Enhancer returns the identity enhancer when insp is nil. Otherwise the
// returned enhancer appends a tap stage feeding insp.
func Enhancer(insp Inspector, opts ...Option) store.Enhancer {
	if insp == nil {
		return store.Identity
	}
	return func(p *store.Pipeline) *store.Pipeline {
		t := &tap{insp: insp, logger: slog.Default(), now: time.Now}
		for _, opt := range opts {
			opt(t)
		}
		return p.Use(t)
	}
}

type tap struct {
	insp   Inspector
	logger *slog.Logger
	now    func() time.Time
	seq    atomic.Uint64
}

func (t *tap) Name() string { return "devtools" }

func (t *tap) Start(api store.API) error {
	if err := t.insp.Init(Serialize(api.GetState())); err != nil {
		t.logger.Warn("devtools: inspector init failed", "error", err)
	}
	return nil
}

func (t *tap) Handle(api store.API, a store.Action, next store.Next) (store.Action, error) {
	out, err := next.Dispatch(a)
	if err != nil {
		return out, err
	}
	rec := Record{
		ID:     uuid.New(),
		Seq:    t.seq.Add(1),
		Type:   a.Type(),
		Action: Serialize(a),
		State:  Serialize(api.GetState()),
		At:     t.now(),
		Raw:    a,
	}
	if serr := t.insp.Send(rec); serr != nil {
		t.logger.Warn("devtools: inspector send failed", "action", rec.Type, "error", serr)
	}
	return out, nil
}

// Tee fans records out to several inspectors. Nil members are skipped; the
// first failure is returned after every member was called.
func Tee(insps ...Inspector) Inspector {
	var out tee
	for _, i := range insps {
		if i != nil {
			out = append(out, i)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

type tee []Inspector

func (t tee) Init(state any) error {
	var first error
	for _, i := range t {
		if err := i.Init(state); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t tee) Send(rec Record) error {
	var first error
	for _, i := range t {
		if err := i.Send(rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
