package telemetry

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/jask/adminstate/internal/effect"
	"github.com/jask/adminstate/internal/store"
)

func newStore(t *testing.T, m *Metrics) *store.Store {
	t.Helper()
	reg, err := store.NewRegistry(store.Define("n", 0, func(n int, a store.Action) int {
		switch a.Type() {
		case "INC":
			return n + 1
		case "BAD":
			panic("bad")
		}
		return n
	}))
	require.NoError(t, err)
	s, err := store.New(reg, store.Options{Stages: []store.Stage{m}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMetricsCountDispatches(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := newStore(t, m)

	for i := 0; i < 3; i++ {
		_, err := s.Dispatch(store.Act{Kind: "INC"})
		require.NoError(t, err)
	}
	_, err := s.Dispatch(store.Act{Kind: "BAD"})
	require.Error(t, err)

	require.Equal(t, 3.0, testutil.ToFloat64(m.dispatched.WithLabelValues("INC")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failed.WithLabelValues("BAD", "reducer")))

	m.ObserveError(&effect.ProgramError{Task: "x", Err: errors.New("down")})
	require.Equal(t, 1.0, testutil.ToFloat64(m.programErrs))
}

func TestStoresDoNotShareMetrics(t *testing.T) {
	a, b := NewMetrics(prometheus.NewRegistry()), NewMetrics(prometheus.NewRegistry())
	sa := newStore(t, a)
	_ = newStore(t, b)
	_, err := sa.Dispatch(store.Act{Kind: "INC"})
	require.NoError(t, err)
	require.Equal(t, 0.0, testutil.ToFloat64(b.dispatched.WithLabelValues("INC")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := newStore(t, m)
	_, err := s.Dispatch(store.Act{Kind: "INC"})
	require.NoError(t, err)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `adminui_store_actions_total{type="INC"} 1`)
}
