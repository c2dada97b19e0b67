package adminui

import (
	"time"

	"github.com/jask/adminstate/internal/navigation"
	"github.com/jask/adminstate/internal/reducers"
	"github.com/jask/adminstate/internal/store"
)

// State is the shape of the admin UI application state: one field per
// registered slice.
type State struct {
	CachedData    reducers.CachedData        `json:"cachedData"`
	Hover         reducers.HoverState        `json:"hover"`
	LocalSettings reducers.LocalSettings     `json:"localSettings"`
	Metrics       reducers.MetricsState      `json:"metrics"`
	QueryManager  reducers.QueryManagerState `json:"queryManager"`
	Routing       navigation.State           `json:"routing"`
	TimeWindow    reducers.TimeWindowState   `json:"timewindow"`
	UIData        reducers.UIDataState       `json:"uiData"`
	Login         reducers.LoginState        `json:"login"`
}

// Keys are the state keys fixed at composition.
var Keys = []string{
	reducers.CachedDataKey,
	reducers.HoverKey,
	reducers.LocalSettingsKey,
	reducers.MetricsKey,
	reducers.QueryManagerKey,
	navigation.Key,
	reducers.TimeWindowKey,
	reducers.UIDataKey,
	reducers.LoginKey,
}

// Snapshot converts a store snapshot into the typed aggregate.
func Snapshot(st *store.State) State {
	return State{
		CachedData:    store.Select[reducers.CachedData](st, reducers.CachedDataKey),
		Hover:         store.Select[reducers.HoverState](st, reducers.HoverKey),
		LocalSettings: store.Select[reducers.LocalSettings](st, reducers.LocalSettingsKey),
		Metrics:       store.Select[reducers.MetricsState](st, reducers.MetricsKey),
		QueryManager:  store.Select[reducers.QueryManagerState](st, reducers.QueryManagerKey),
		Routing:       store.Select[navigation.State](st, navigation.Key),
		TimeWindow:    store.Select[reducers.TimeWindowState](st, reducers.TimeWindowKey),
		UIData:        store.Select[reducers.UIDataState](st, reducers.UIDataKey),
		Login:         store.Select[reducers.LoginState](st, reducers.LoginKey),
	}
}

// Slices returns the admin UI slices; now seeds the initial time window.
func Slices(now time.Time) []store.Slice {
	return []store.Slice{
		reducers.CachedDataSlice(),
		reducers.HoverSlice(),
		reducers.LocalSettingsSlice(),
		reducers.MetricsSlice(),
		reducers.QueryManagerSlice(),
		navigation.Slice(),
		reducers.TimeWindowSlice(now),
		reducers.UIDataSlice(),
		reducers.LoginSlice(),
	}
}

// NewRegistry builds the registry and checks every key is present.
func NewRegistry(now time.Time) (*store.Registry, error) {
	reg, err := store.NewRegistry(Slices(now)...)
	if err != nil {
		return nil, err
	}
	if err := reg.Require(Keys...); err != nil {
		return nil, err
	}
	return reg, nil
}
