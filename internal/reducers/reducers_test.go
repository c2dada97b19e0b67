package reducers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/adminstate/internal/store"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type unknown struct{}

func (unknown) Type() string { return "UNKNOWN" }

func TestUnknownActionsKeepSubStates(t *testing.T) {
	reg, err := store.NewRegistry(
		CachedDataSlice(), HoverSlice(), LocalSettingsSlice(), MetricsSlice(),
		QueryManagerSlice(), TimeWindowSlice(t0), UIDataSlice(), LoginSlice(),
	)
	require.NoError(t, err)
	st := reg.InitialState()
	next, err := reg.Reduce(st, unknown{})
	require.NoError(t, err)
	require.Same(t, st, next)
}

func TestCachedDataLifecycle(t *testing.T) {
	st := CachedData{}
	st = ReduceCachedData(st, RequestData{Key: "nodes", At: t0})
	require.True(t, st["nodes"].InFlight)

	again := ReduceCachedData(st, RequestData{Key: "nodes", At: t0.Add(time.Second)})
	require.Equal(t, t0, again["nodes"].RequestedAt)

	before := st
	st = ReduceCachedData(st, ReceiveData{Key: "nodes", Data: []string{"n1"}, At: t0})
	require.False(t, before["nodes"].Valid, "previous snapshot must not change")
	require.True(t, st["nodes"].Valid)
	require.Equal(t, []string{"n1"}, st["nodes"].Data)

	st = ReduceCachedData(st, FailData{Key: "jobs", Err: "timeout", At: t0})
	require.Equal(t, "timeout", st["jobs"].Err)

	st = ReduceCachedData(st, InvalidateAllData{})
	require.False(t, st["nodes"].Valid)
	require.Equal(t, []string{"n1"}, st["nodes"].Data)

	same := ReduceCachedData(st, InvalidateData{Key: "nodes"})
	require.Equal(t, st, same)
}

func TestHover(t *testing.T) {
	st := ReduceHover(HoverState{}, HoverOn{Chart: "cpu", X: 1, Y: 2})
	require.True(t, st.Active)
	require.Equal(t, st, ReduceHover(st, HoverOff{Chart: "mem"}))
	require.Equal(t, HoverState{}, ReduceHover(st, HoverOff{}))
}

func TestLocalSettings(t *testing.T) {
	st := ReduceLocalSettings(LocalSettings{}, SetLocalSetting{Key: "theme", Value: "dark"})
	require.Equal(t, "dark", LocalSetting(st, "theme", "light"))
	require.Equal(t, 5, LocalSetting(st, "rows", 5))

	same := ReduceLocalSettings(st, SetLocalSetting{Key: "theme", Value: "dark"})
	require.Equal(t, st, same)

	st = ReduceLocalSettings(st, LocalSettingsLoaded{Values: map[string]any{"rows": 10}})
	require.Equal(t, LocalSettings{"rows": 10}, st)
}

func TestMetricsKeepsLastGoodData(t *testing.T) {
	st := ReduceMetrics(MetricsState{}, RequestMetrics{ID: "cpu", Request: "q1"})
	st = ReduceMetrics(st, ReceiveMetrics{ID: "cpu", Request: "q1", Data: 42})
	st = ReduceMetrics(st, RequestMetrics{ID: "cpu", Request: "q2"})
	st = ReduceMetrics(st, FailMetrics{ID: "cpu", Err: "down"})

	q := st.Queries["cpu"]
	require.Equal(t, 42, q.Data)
	require.Equal(t, "q2", q.NextRequest)
	require.Equal(t, "down", q.Err)
	require.False(t, q.InFlight)
}

func TestQueryManagerCounts(t *testing.T) {
	st := QueryManagerState{}
	st = ReduceQueryManager(st, AutoRefresh{ID: "health"})
	st = ReduceQueryManager(st, AutoRefresh{ID: "health"})
	st = ReduceQueryManager(st, StopAutoRefresh{ID: "health"})
	require.Equal(t, 1, st["health"].AutoRefreshCount)

	st = ReduceQueryManager(st, QueryBegin{ID: "health", At: t0})
	require.True(t, st["health"].IsRunning)
	st = ReduceQueryManager(st, QueryFailed{ID: "health", Err: "503", At: t0})
	require.Equal(t, "503", st["health"].LastError)
	st = ReduceQueryManager(st, QueryComplete{ID: "health", At: t0})
	require.Empty(t, st["health"].LastError)

	st = ReduceQueryManager(st, StopAutoRefresh{ID: "health"})
	require.Equal(t, st, ReduceQueryManager(st, StopAutoRefresh{ID: "health"}))
}

func TestTimeWindow(t *testing.T) {
	st := DefaultTimeWindow(t0)
	require.Equal(t, 10*time.Minute, st.Window.End.Sub(st.Window.Start))

	hour, ok := LookupScale("1h")
	require.True(t, ok)
	st = ReduceTimeWindow(st, SetTimeScale{Scale: hour})
	require.True(t, st.ScaleChanged)

	st = ReduceTimeWindow(st, SetTimeWindow{Window: TimeWindow{Start: t0.Add(-time.Hour), End: t0}})
	require.False(t, st.ScaleChanged)

	st = ReduceTimeWindow(st, SetTimeRange{Start: t0.Add(-2 * time.Hour), End: t0.Add(-time.Hour)})
	require.True(t, st.UseTimeRange)
	require.Equal(t, st, ReduceTimeWindow(st, SetTimeWindow{Window: TimeWindow{End: t0}}))
	st = ReduceTimeWindow(st, SetTimeScale{Scale: hour})
	require.False(t, st.UseTimeRange)

	_, ok = LookupScale("1y")
	require.False(t, ok)
}

func TestUIDataStatuses(t *testing.T) {
	st := ReduceUIData(UIDataState{}, LoadUIData{Keys: []string{"layout", "version"}})
	require.Equal(t, UIDataLoading, st["layout"].Status)

	st = ReduceUIData(st, UIDataLoaded{Keys: []string{"layout", "version"}, Values: map[string]any{"layout": "grid"}})
	v, ok := UIDataValue(st, "layout")
	require.True(t, ok)
	require.Equal(t, "grid", v)
	_, ok = UIDataValue(st, "version")
	require.False(t, ok)
	require.Equal(t, UIDataValid, st["version"].Status)

	st = ReduceUIData(st, SaveUIData{Values: map[string]any{"layout": "list"}})
	require.Equal(t, UIDataSaving, st["layout"].Status)
	st = ReduceUIData(st, UIDataFailed{Keys: []string{"layout"}, Err: "disk full"})
	require.Equal(t, UIDataError, st["layout"].Status)
	require.Equal(t, "list", st["layout"].Data)

	same := ReduceUIData(st, SetUIData{Key: "layout", Value: "list"})
	require.Equal(t, st, same)
}

func TestLoginRedactsSecrets(t *testing.T) {
	st := ReduceLogin(LoginState{Status: LoggedOut}, LoginRequest{User: "root", Password: "hunter2"})
	require.Equal(t, LoginPending, st.Status)

	st = ReduceLogin(st, LoginSucceeded{User: "root", Session: "tok", ExpiresAt: t0.Add(time.Hour)})
	require.True(t, st.Authenticated(t0))
	require.False(t, st.Authenticated(t0.Add(2*time.Hour)))

	raw := st.ToSerializable().(map[string]any)
	require.Equal(t, redacted, raw["session"])
	require.Equal(t, redacted, LoginRequest{Password: "x"}.ToSerializable().(map[string]any)["password"])

	st = ReduceLogin(st, Logout{})
	require.Equal(t, LoginState{Status: LoggedOut}, st)
	require.Equal(t, st, ReduceLogin(st, Logout{}))
}
