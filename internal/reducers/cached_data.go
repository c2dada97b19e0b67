// Package reducers holds the update functions of the admin UI slices other
// than routing. Each slice owns one state key and only ever sees its own
// sub-state; every update function returns its input unchanged for actions it
// does not handle.
package reducers

import (
	"maps"
	"time"

	"github.com/jask/adminstate/internal/store"
)

const CachedDataKey = "cachedData"

// CachedEntry is one cached request result.
type CachedEntry struct {
	Data        any       `json:"data,omitempty"`
	Err         string    `json:"lastError,omitempty"`
	InFlight    bool      `json:"inFlight"`
	Valid       bool      `json:"valid"`
	RequestedAt time.Time `json:"requestedAt,omitempty"`
	UpdatedAt   time.Time `json:"setAt,omitempty"`
}

// CachedData maps a request key to its cached result. Never modified in place.
type CachedData map[string]CachedEntry

type RequestData struct {
	Key string    `json:"key"`
	At  time.Time `json:"at"`
}

type ReceiveData struct {
	Key  string    `json:"key"`
	Data any       `json:"data"`
	At   time.Time `json:"at"`
}

type FailData struct {
	Key string    `json:"key"`
	Err string    `json:"error"`
	At  time.Time `json:"at"`
}

// AbortData clears an in-flight request that will not complete.
type AbortData struct {
	Key string `json:"key"`
}

type InvalidateData struct {
	Key string `json:"key"`
}

type InvalidateAllData struct{}

func (RequestData) Type() string       { return "cachedData/REQUEST" }
func (ReceiveData) Type() string       { return "cachedData/RECEIVE" }
func (FailData) Type() string          { return "cachedData/ERROR" }
func (AbortData) Type() string         { return "cachedData/ABORT" }
func (InvalidateData) Type() string    { return "cachedData/INVALIDATE" }
func (InvalidateAllData) Type() string { return "cachedData/INVALIDATE_ALL" }

func ReduceCachedData(st CachedData, a store.Action) CachedData {
	switch a := a.(type) {
	case RequestData:
		e := st[a.Key]
		if e.InFlight {
			return st
		}
		e.InFlight = true
		e.RequestedAt = a.At
		return withEntry(st, a.Key, e)
	case ReceiveData:
		e := st[a.Key]
		e.Data, e.Err = a.Data, ""
		e.InFlight, e.Valid = false, true
		e.UpdatedAt = a.At
		return withEntry(st, a.Key, e)
	case FailData:
		e := st[a.Key]
		e.Err = a.Err
		e.InFlight, e.Valid = false, false
		e.UpdatedAt = a.At
		return withEntry(st, a.Key, e)
	case AbortData:
		e, ok := st[a.Key]
		if !ok || !e.InFlight {
			return st
		}
		e.InFlight = false
		return withEntry(st, a.Key, e)
	case InvalidateData:
		e, ok := st[a.Key]
		if !ok || !e.Valid {
			return st
		}
		e.Valid = false
		return withEntry(st, a.Key, e)
	case InvalidateAllData:
		var out CachedData
		for k, e := range st {
			if !e.Valid {
				continue
			}
			if out == nil {
				out = maps.Clone(st)
			}
			e.Valid = false
			out[k] = e
		}
		if out == nil {
			return st
		}
		return out
	}
	return st
}

func withEntry(st CachedData, key string, e CachedEntry) CachedData {
	out := make(CachedData, len(st)+1)
	maps.Copy(out, st)
	out[key] = e
	return out
}

func CachedDataSlice() store.Slice {
	return store.Define(CachedDataKey, CachedData{}, ReduceCachedData)
}
