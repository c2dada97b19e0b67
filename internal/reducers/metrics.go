package reducers

import (
	"maps"

	"github.com/jask/adminstate/internal/store"
)

const MetricsKey = "metrics"

// MetricsQuery is the state of one chart's metrics request.
type MetricsQuery struct {
	Request     any    `json:"request,omitempty"`
	NextRequest any    `json:"nextRequest,omitempty"`
	Data        any    `json:"data,omitempty"`
	Err         string `json:"error,omitempty"`
	InFlight    bool   `json:"inFlight"`
}

type MetricsState struct {
	Queries map[string]MetricsQuery `json:"queries"`
}

type RequestMetrics struct {
	ID      string `json:"id"`
	Request any    `json:"request"`
}

type ReceiveMetrics struct {
	ID      string `json:"id"`
	Request any    `json:"request"`
	Data    any    `json:"data"`
}

type FailMetrics struct {
	ID  string `json:"id"`
	Err string `json:"error"`
}

func (RequestMetrics) Type() string { return "metrics/REQUEST" }
func (ReceiveMetrics) Type() string { return "metrics/RECEIVE" }
func (FailMetrics) Type() string    { return "metrics/ERROR" }

func ReduceMetrics(st MetricsState, a store.Action) MetricsState {
	switch a := a.(type) {
	case RequestMetrics:
		q := st.Queries[a.ID]
		q.NextRequest = a.Request
		q.InFlight = true
		return st.with(a.ID, q)
	case ReceiveMetrics:
		q := st.Queries[a.ID]
		q.Request, q.Data, q.Err = a.Request, a.Data, ""
		q.InFlight = false
		return st.with(a.ID, q)
	case FailMetrics:
		q := st.Queries[a.ID]
		q.Err = a.Err
		q.InFlight = false
		return st.with(a.ID, q)
	}
	return st
}

func (st MetricsState) with(id string, q MetricsQuery) MetricsState {
	out := make(map[string]MetricsQuery, len(st.Queries)+1)
	maps.Copy(out, st.Queries)
	out[id] = q
	return MetricsState{Queries: out}
}

func MetricsSlice() store.Slice {
	return store.Define(MetricsKey, MetricsState{Queries: map[string]MetricsQuery{}}, ReduceMetrics)
}
