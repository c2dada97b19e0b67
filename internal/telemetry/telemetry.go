// Package telemetry exports dispatch metrics through prometheus.
package telemetry

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jask/adminstate/internal/effect"
	"github.com/jask/adminstate/internal/store"
)

// Metrics is a pipeline stage counting and timing every dispatch. Place it
// first so the timing covers the whole pipeline.
type Metrics struct {
	dispatched  *prometheus.CounterVec
	failed      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	programErrs prometheus.Counter
	listeners   prometheus.Gauge
}

// NewMetrics registers the collectors on reg. Each store gets its own
// registry, so two stores never share counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		dispatched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adminui",
			Subsystem: "store",
			Name:      "actions_total",
			Help:      "Actions dispatched, by type.",
		}, []string{"type"}),
		failed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "adminui",
			Subsystem: "store",
			Name:      "action_errors_total",
			Help:      "Dispatches that returned an error, by type and cause.",
		}, []string{"type", "cause"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "adminui",
			Subsystem: "store",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent in the pipeline per dispatch.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"type"}),
		programErrs: f.NewCounter(prometheus.CounterOpts{
			Namespace: "adminui",
			Subsystem: "effect",
			Name:      "program_errors_total",
			Help:      "Effect program failures and panics.",
		}),
		listeners: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "adminui",
			Subsystem: "store",
			Name:      "listeners",
			Help:      "Subscribed listeners.",
		}),
	}
}

func (m *Metrics) Name() string { return "metrics" }

func (m *Metrics) Handle(api store.API, a store.Action, next store.Next) (store.Action, error) {
	start := time.Now()
	out, err := next.Dispatch(a)
	t := a.Type()
	m.dispatched.WithLabelValues(t).Inc()
	m.duration.WithLabelValues(t).Observe(time.Since(start).Seconds())
	if err != nil {
		m.failed.WithLabelValues(t, cause(err)).Inc()
	}
	return out, err
}

// ObserveError counts an asynchronous failure reported outside a dispatch.
func (m *Metrics) ObserveError(err error) {
	var perr *effect.ProgramError
	if errors.As(err, &perr) {
		m.programErrs.Inc()
		return
	}
	m.failed.WithLabelValues("async", cause(err)).Inc()
}

// TrackListener adjusts the listener gauge by delta.
func (m *Metrics) TrackListener(delta int) {
	m.listeners.Add(float64(delta))
}

func cause(err error) string {
	var (
		rerr *store.ReducerError
		perr *store.StagePanicError
		lerr *store.ListenerPanicError
	)
	switch {
	case errors.As(err, &rerr):
		return "reducer"
	case errors.As(err, &perr):
		return "panic"
	case errors.As(err, &lerr):
		return "listener"
	case errors.Is(err, store.ErrClosed):
		return "closed"
	}
	return "stage"
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
