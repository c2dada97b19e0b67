package adminui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/jask/adminstate/internal/devtools"
	"github.com/jask/adminstate/internal/effect"
	"github.com/jask/adminstate/internal/navigation"
	"github.com/jask/adminstate/internal/reducers"
	"github.com/jask/adminstate/internal/store"
	"github.com/jask/adminstate/internal/telemetry"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var fixed = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func create(t *testing.T, d Deps) *Handle {
	t.Helper()
	if d.Now == nil {
		d.Now = func() time.Time { return fixed }
	}
	h, err := CreateStore(d)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestCreateStoreRegistersEverySlice(t *testing.T) {
	h := create(t, Deps{InitialPath: "/overview"})

	require.ElementsMatch(t, Keys, h.GetState().Keys())
	st := h.State()
	require.Equal(t, "/overview", st.Routing.Location.Pathname)
	require.Equal(t, reducers.LoggedOut, st.Login.Status)
	require.Equal(t, fixed, st.TimeWindow.Window.End)
	require.Empty(t, st.CachedData)
}

func TestNavigationThroughTheStore(t *testing.T) {
	hist := navigation.NewMemoryHistory("/")
	h := create(t, Deps{History: hist, Routes: navigation.NewRoutes("/", "/nodes", "/nodes/:id")})

	var paths []string
	unlisten := h.History.Listen(func(loc navigation.Location) { paths = append(paths, loc.Pathname) })
	defer unlisten()

	require.NoError(t, h.Navigate("/nodes/4"))
	require.Equal(t, "/nodes/4", hist.Current().Pathname)
	require.Equal(t, "/nodes/4", h.State().Routing.Location.Pathname)

	var unknown *navigation.UnknownRouteError
	require.ErrorAs(t, h.Navigate("/jbos"), &unknown)

	hist.Back()
	require.Equal(t, "/", h.State().Routing.Location.Pathname)
	require.Equal(t, []string{"/nodes/4", "/"}, paths)
}

func TestDeferredActionsRunWithTheStoreAPI(t *testing.T) {
	h := create(t, Deps{})

	_, err := h.Dispatch(store.Defer("hoverFirstPoint", func(api store.API) error {
		if Snapshot(api.GetState()).Hover.Active {
			return nil
		}
		_, err := api.Dispatch(reducers.HoverOn{Chart: "cpu", X: 1, Y: 2})
		return err
	}))
	require.NoError(t, err)
	require.Equal(t, reducers.HoverState{Chart: "cpu", X: 1, Y: 2, Active: true}, h.State().Hover)

	boom := errors.New("boom")
	_, err = h.Dispatch(store.Defer("fail", func(store.API) error { return boom }))
	require.ErrorIs(t, err, boom)
}

func TestEffectProgramsAndInspector(t *testing.T) {
	rec := devtools.NewRecorder(0)
	program := effect.TakeEvery(func(ctx context.Context, rt effect.Runtime, a store.Action) error {
		id := a.(reducers.RefreshQuery).ID
		return rt.Put(reducers.ReceiveData{Key: id, Data: "fresh", At: fixed})
	}, reducers.RefreshQuery{}.Type())

	h := create(t, Deps{Program: program, Inspector: rec})
	_, err := h.Dispatch(reducers.RefreshQuery{ID: "nodes"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.State().CachedData["nodes"].Valid }, waitFor, tick)

	_, err = h.Dispatch(reducers.LoginSucceeded{User: "root", Session: "secret-token"})
	require.NoError(t, err)

	records := rec.Records()
	require.NotEmpty(t, records)
	last := records[len(records)-1]
	require.Equal(t, reducers.LoginSucceeded{}.Type(), last.Type)
	state := last.State.(map[string]any)
	require.Equal(t, "<redacted>", state[reducers.LoginKey].(map[string]any)["session"])
	require.Equal(t, "<redacted>", last.Action.(map[string]any)["session"])
	require.Equal(t, "secret-token", h.State().Login.Session)
}

func TestAsyncFailuresReachTheErrorHandler(t *testing.T) {
	var mu sync.Mutex
	var got []error
	program := effect.Func(func(ctx context.Context, rt effect.Runtime) error {
		if _, err := rt.Take(ctx, "CRASH"); err != nil {
			return err
		}
		return errors.New("crashed")
	})
	reg := prometheus.NewRegistry()
	h := create(t, Deps{
		Program: program,
		Metrics: telemetry.NewMetrics(reg),
		OnError: func(err error) {
			mu.Lock()
			got = append(got, err)
			mu.Unlock()
		},
	})

	_, err := h.Dispatch(store.Act{Kind: "CRASH"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, waitFor, tick)

	var perr *effect.ProgramError
	require.ErrorAs(t, got[0], &perr)

	// the store keeps working
	_, err = h.Dispatch(reducers.HoverOn{Chart: "mem"})
	require.NoError(t, err)
	require.True(t, h.State().Hover.Active)
}

func TestHandlesAreIsolated(t *testing.T) {
	a := create(t, Deps{})
	b := create(t, Deps{})

	_, err := a.Dispatch(reducers.SetLocalSetting{Key: "theme", Value: "dark"})
	require.NoError(t, err)
	require.Equal(t, "dark", a.State().LocalSettings["theme"])
	require.Empty(t, b.State().LocalSettings)

	require.NoError(t, a.Navigate("/a"))
	require.Equal(t, "/", b.State().Routing.Location.Pathname)
}

func TestRecordedSessionReplays(t *testing.T) {
	rec := devtools.NewRecorder(0)
	src := create(t, Deps{Inspector: rec})
	for _, a := range []store.Action{
		reducers.AutoRefresh{ID: "health"},
		reducers.RequestData{Key: "health", At: fixed},
		reducers.ReceiveData{Key: "health", Data: 1, At: fixed},
		reducers.HoverOn{Chart: "cpu", X: 3},
		reducers.SetUIData{Key: "layout", Value: "grid"},
	} {
		_, err := src.Dispatch(a)
		require.NoError(t, err)
	}

	dst := create(t, Deps{})
	require.NoError(t, rec.Replay(dst))

	want, got := src.State(), dst.State()
	require.Equal(t, want.CachedData, got.CachedData)
	require.Equal(t, want.QueryManager, got.QueryManager)
	require.Equal(t, want.Hover, got.Hover)
	require.Equal(t, want.UIData, got.UIData)
}

func TestListenerGaugeTracksSubscriptions(t *testing.T) {
	h := create(t, Deps{Metrics: telemetry.NewMetrics(prometheus.NewRegistry())})
	var calls int
	unsub := h.Subscribe(func(*store.State) { calls++ })
	_, err := h.Dispatch(reducers.HoverOn{Chart: "x"})
	require.NoError(t, err)
	unsub()
	unsub()
	_, err = h.Dispatch(reducers.HoverOff{})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}
