// Package adminui composes the admin UI store: the nine slices, the pipeline
// (metrics, deferred actions, effect programs, navigation), the devtools
// enhancer and the navigation bridge.
package adminui

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jask/adminstate/internal/devtools"
	"github.com/jask/adminstate/internal/effect"
	"github.com/jask/adminstate/internal/navigation"
	"github.com/jask/adminstate/internal/store"
	"github.com/jask/adminstate/internal/telemetry"
)

// Deps are the collaborators of the store. Every field is optional.
type Deps struct {
	// History defaults to an in-memory history starting at InitialPath.
	History     navigation.History
	InitialPath string
	Routes      *navigation.Routes

	// Program is the root effect program.
	Program effect.Program
	// Inspector receives devtools records; nil disables the tap.
	Inspector devtools.Inspector
	Metrics   *telemetry.Metrics

	Preloaded *store.State
	Logger    *slog.Logger
	OnError   func(error)
	Now       func() time.Time
}

// Handle owns a composed store.
type Handle struct {
	Store   *store.Store
	History *navigation.Bridge
	Effects *effect.Middleware
	metrics *telemetry.Metrics
}

// CreateStore composes and starts a store. The pipeline order is metrics,
// deferred actions, effect programs, navigation, then the devtools tap.
func CreateStore(d Deps) (*Handle, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	history := d.History
	if history == nil {
		history = navigation.NewMemoryHistory(d.InitialPath)
	}
	onError := func(err error) {
		if d.Metrics != nil {
			d.Metrics.ObserveError(err)
		}
		if d.OnError != nil {
			d.OnError(err)
			return
		}
		logger.Error("adminui: asynchronous failure", "error", err)
	}

	reg, err := NewRegistry(now())
	if err != nil {
		return nil, fmt.Errorf("adminui: registry: %w", err)
	}

	effects := effect.New(d.Program, effect.WithLogger(logger), effect.WithErrorHandler(onError))
	var stages []store.Stage
	if d.Metrics != nil {
		stages = append(stages, d.Metrics)
	}
	stages = append(stages,
		store.DeferredStage{},
		effects,
		navigation.NewStage(history, d.Routes),
	)

	s, err := store.New(reg, store.Options{
		Stages:    stages,
		Enhancers: []store.Enhancer{devtools.Enhancer(d.Inspector, devtools.WithLogger(logger))},
		Preloaded: d.Preloaded,
		Logger:    logger,
		OnError:   onError,
	})
	if err != nil {
		return nil, fmt.Errorf("adminui: store: %w", err)
	}

	bridge, err := navigation.Sync(history, s, navigation.WithLogger(logger))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("adminui: navigation: %w", err), s.Close())
	}
	return &Handle{Store: s, History: bridge, Effects: effects, metrics: d.Metrics}, nil
}

func (h *Handle) Dispatch(a store.Action) (store.Action, error) { return h.Store.Dispatch(a) }

func (h *Handle) GetState() *store.State { return h.Store.GetState() }

// State is the current snapshot as the typed aggregate.
func (h *Handle) State() State { return Snapshot(h.Store.GetState()) }

// Subscribe registers l on the store.
func (h *Handle) Subscribe(l store.Listener) func() {
	unsubscribe := h.Store.Subscribe(l)
	if h.metrics == nil {
		return unsubscribe
	}
	h.metrics.TrackListener(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			h.metrics.TrackListener(-1)
		})
	}
}

// Navigate pushes path through the store.
func (h *Handle) Navigate(path string) error {
	_, err := h.Store.Dispatch(navigation.Push(path))
	return err
}

// Close detaches the history and stops the effect programs.
func (h *Handle) Close() error {
	h.History.Close()
	return h.Store.Close()
}
