package navigation

import (
	"github.com/jask/adminstate/internal/store"
)

// Key is the state key of the routing slice.
const Key = "routing"

const (
	TypeLocationChange = "@@router/LOCATION_CHANGE"
	TypeCallHistory    = "@@router/CALL_HISTORY_METHOD"
)

// State is the routing slice: the location the store renders.
type State struct {
	Location *Location `json:"locationBeforeTransitions"`
}

// LocationChanged records a history change in the store.
type LocationChanged struct {
	Location Location `json:"payload"`
}

func (LocationChanged) Type() string { return TypeLocationChange }

// Method names a history operation requested through the store.
type Method string

const (
	MethodPush    Method = "push"
	MethodReplace Method = "replace"
	MethodGo      Method = "go"
)

// HistoryCall asks the navigation stage to drive the history. It never reaches
// the update function.
type HistoryCall struct {
	Method   Method   `json:"method"`
	Location Location `json:"location,omitempty"`
	Delta    int      `json:"delta,omitempty"`
}

func (HistoryCall) Type() string { return TypeCallHistory }

func Push(path string) HistoryCall {
	return HistoryCall{Method: MethodPush, Location: ParseLocation(path)}
}

func Replace(path string) HistoryCall {
	return HistoryCall{Method: MethodReplace, Location: ParseLocation(path)}
}

func Go(delta int) HistoryCall { return HistoryCall{Method: MethodGo, Delta: delta} }
func Back() HistoryCall        { return Go(-1) }
func Forward() HistoryCall     { return Go(1) }

// Reduce is the routing update function.
func Reduce(st State, a store.Action) State {
	lc, ok := a.(LocationChanged)
	if !ok {
		return st
	}
	if st.Location != nil && *st.Location == lc.Location {
		return st
	}
	loc := lc.Location
	return State{Location: &loc}
}

// Slice registers the routing slice under Key.
func Slice() store.Slice {
	return store.Define(Key, State{}, Reduce)
}

// Current returns the routing location held by st, nil before the first sync.
func Current(st *store.State) *Location {
	return store.Select[State](st, Key).Location
}
