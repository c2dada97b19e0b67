package reducers

import (
	"maps"
	"time"

	"github.com/jask/adminstate/internal/store"
)

const QueryManagerKey = "queryManager"

// ManagedQuery is the bookkeeping of one periodically refreshed query.
type ManagedQuery struct {
	AutoRefreshCount int       `json:"autoRefreshCount"`
	IsRunning        bool      `json:"isRunning"`
	LastError        string    `json:"lastError,omitempty"`
	QueriedAt        time.Time `json:"queriedAt,omitempty"`
	CompletedAt      time.Time `json:"completedAt,omitempty"`
}

// QueryManagerState maps query ids to their bookkeeping.
type QueryManagerState map[string]ManagedQuery

// AutoRefresh registers one more component interested in the query.
type AutoRefresh struct {
	ID string `json:"id"`
}

// StopAutoRefresh releases one AutoRefresh; the query stops at zero.
type StopAutoRefresh struct {
	ID string `json:"id"`
}

// RefreshQuery runs the query once now.
type RefreshQuery struct {
	ID string `json:"id"`
}

type QueryBegin struct {
	ID string    `json:"id"`
	At time.Time `json:"at"`
}

type QueryComplete struct {
	ID string    `json:"id"`
	At time.Time `json:"at"`
}

type QueryFailed struct {
	ID  string    `json:"id"`
	Err string    `json:"error"`
	At  time.Time `json:"at"`
}

func (AutoRefresh) Type() string     { return "queryManager/AUTO_REFRESH" }
func (StopAutoRefresh) Type() string { return "queryManager/STOP_AUTO_REFRESH" }
func (RefreshQuery) Type() string    { return "queryManager/REFRESH" }
func (QueryBegin) Type() string      { return "queryManager/BEGIN" }
func (QueryComplete) Type() string   { return "queryManager/COMPLETE" }
func (QueryFailed) Type() string     { return "queryManager/ERROR" }

func ReduceQueryManager(st QueryManagerState, a store.Action) QueryManagerState {
	switch a := a.(type) {
	case AutoRefresh:
		q := st[a.ID]
		q.AutoRefreshCount++
		return withQuery(st, a.ID, q)
	case StopAutoRefresh:
		q, ok := st[a.ID]
		if !ok || q.AutoRefreshCount == 0 {
			return st
		}
		q.AutoRefreshCount--
		return withQuery(st, a.ID, q)
	case QueryBegin:
		q := st[a.ID]
		q.IsRunning = true
		q.QueriedAt = a.At
		return withQuery(st, a.ID, q)
	case QueryComplete:
		q := st[a.ID]
		q.IsRunning, q.LastError = false, ""
		q.CompletedAt = a.At
		return withQuery(st, a.ID, q)
	case QueryFailed:
		q := st[a.ID]
		q.IsRunning, q.LastError = false, a.Err
		q.CompletedAt = a.At
		return withQuery(st, a.ID, q)
	}
	return st
}

func withQuery(st QueryManagerState, id string, q ManagedQuery) QueryManagerState {
	out := make(QueryManagerState, len(st)+1)
	maps.Copy(out, st)
	out[id] = q
	return out
}

func QueryManagerSlice() store.Slice {
	return store.Define(QueryManagerKey, QueryManagerState{}, ReduceQueryManager)
}
