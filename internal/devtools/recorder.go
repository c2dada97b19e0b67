package devtools

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jask/adminstate/internal/store"
)

// Recorder keeps the most recent records in memory.
type Recorder struct {
	mu      sync.Mutex
	maxAge  int
	initial any
	records []Record
}

// NewRecorder keeps at most maxAge records; zero or less keeps everything.
func NewRecorder(maxAge int) *Recorder {
	return &Recorder{maxAge: maxAge}
}

func (r *Recorder) Init(state any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initial = state
	r.records = nil
	return nil
}

func (r *Recorder) Send(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	if r.maxAge > 0 && len(r.records) > r.maxAge {
		drop := len(r.records) - r.maxAge
		r.records = append(r.records[:0:0], r.records[drop:]...)
	}
	return nil
}

// Initial is the serialized snapshot passed to Init.
func (r *Recorder) Initial() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initial
}

func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Dispatcher is what Replay drives.
type Dispatcher interface {
	Dispatch(store.Action) (store.Action, error)
}

// Replay dispatches the recorded actions, in order, on d. Replaying into a
// store built from the same registry reproduces the recorded snapshots as
// long as no record was dropped.
func (r *Recorder) Replay(d Dispatcher) error {
	var errs []error
	for _, rec := range r.Records() {
		if rec.Raw == nil {
			return fmt.Errorf("devtools: record %d has no action to replay", rec.Seq)
		}
		if _, err := d.Dispatch(rec.Raw); err != nil {
			errs = append(errs, fmt.Errorf("devtools: replay %s: %w", rec.Type, err))
		}
	}
	return errors.Join(errs...)
}
