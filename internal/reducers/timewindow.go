package reducers

import (
	"time"

	"github.com/jask/adminstate/internal/store"
)

const TimeWindowKey = "timewindow"

// TimeWindow is a [Start, End) interval of time shown by charts.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TimeScale is a named window length with its sample period.
type TimeScale struct {
	Name   string        `json:"name"`
	Window time.Duration `json:"windowSize"`
	Sample time.Duration `json:"sampleSize"`
}

// TimeScales are the predefined scales, shortest first.
var TimeScales = []TimeScale{
	{Name: "10m", Window: 10 * time.Minute, Sample: 10 * time.Second},
	{Name: "1h", Window: time.Hour, Sample: 30 * time.Second},
	{Name: "6h", Window: 6 * time.Hour, Sample: time.Minute},
	{Name: "12h", Window: 12 * time.Hour, Sample: 2 * time.Minute},
	{Name: "1d", Window: 24 * time.Hour, Sample: 5 * time.Minute},
	{Name: "1w", Window: 7 * 24 * time.Hour, Sample: 30 * time.Minute},
}

// LookupScale finds a predefined scale by name.
func LookupScale(name string) (TimeScale, bool) {
	for _, s := range TimeScales {
		if s.Name == name {
			return s, true
		}
	}
	return TimeScale{}, false
}

type TimeWindowState struct {
	Window       TimeWindow `json:"currentWindow"`
	Scale        TimeScale  `json:"scale"`
	ScaleChanged bool       `json:"scaleChanged"`
	// UseTimeRange pins the window; the ticker leaves it alone.
	UseTimeRange bool `json:"useTimeRange"`
}

// SetTimeWindow moves the window, typically from the ticker.
type SetTimeWindow struct {
	Window TimeWindow `json:"window"`
}

// SetTimeScale switches to a sliding window of the given scale.
type SetTimeScale struct {
	Scale TimeScale `json:"scale"`
}

// SetTimeRange pins the window to a fixed interval.
type SetTimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (SetTimeWindow) Type() string { return "timewindow/SET_WINDOW" }
func (SetTimeScale) Type() string  { return "timewindow/SET_SCALE" }
func (SetTimeRange) Type() string  { return "timewindow/SET_RANGE" }

func ReduceTimeWindow(st TimeWindowState, a store.Action) TimeWindowState {
	switch a := a.(type) {
	case SetTimeWindow:
		if st.UseTimeRange || (st.Window == a.Window && !st.ScaleChanged) {
			return st
		}
		st.Window = a.Window
		st.ScaleChanged = false
		return st
	case SetTimeScale:
		if st.Scale == a.Scale && !st.UseTimeRange {
			return st
		}
		st.Scale = a.Scale
		st.ScaleChanged = true
		st.UseTimeRange = false
		return st
	case SetTimeRange:
		st.Window = TimeWindow{Start: a.Start, End: a.End}
		st.UseTimeRange = true
		st.ScaleChanged = false
		return st
	}
	return st
}

// DefaultTimeWindow is the initial sub-state: the 10m scale ending at now.
func DefaultTimeWindow(now time.Time) TimeWindowState {
	scale := TimeScales[0]
	return TimeWindowState{
		Window: TimeWindow{Start: now.Add(-scale.Window), End: now},
		Scale:  scale,
	}
}

func TimeWindowSlice(now time.Time) store.Slice {
	return store.Define(TimeWindowKey, DefaultTimeWindow(now), ReduceTimeWindow)
}
