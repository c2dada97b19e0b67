package navigation

import (
	"fmt"

	"github.com/jask/adminstate/internal/store"
)

// Stage is the navigation pipeline stage. It applies HistoryCall actions to
// the history and swallows them; every other action passes through. The
// resulting history change comes back into the store through the Bridge as a
// LocationChanged action, queued behind the current dispatch.
type Stage struct {
	History History
	// Routes, when set, rejects pushes and replaces to unknown paths.
	Routes *Routes
}

func NewStage(h History, routes *Routes) *Stage {
	return &Stage{History: h, Routes: routes}
}

func (s *Stage) Name() string { return "navigation" }

func (s *Stage) Handle(api store.API, a store.Action, next store.Next) (store.Action, error) {
	call, ok := a.(HistoryCall)
	if !ok {
		return next.Dispatch(a)
	}
	if s.History == nil {
		return a, fmt.Errorf("navigation: no history for %s", call.Method)
	}
	switch call.Method {
	case MethodPush, MethodReplace:
		if err := s.Routes.Check(call.Location); err != nil {
			return a, err
		}
		if call.Method == MethodPush {
			s.History.Push(call.Location)
		} else {
			s.History.Replace(call.Location)
		}
	case MethodGo:
		nav, ok := s.History.(Navigator)
		if !ok {
			return a, fmt.Errorf("navigation: history %T cannot go", s.History)
		}
		nav.Go(call.Delta)
	default:
		return a, fmt.Errorf("navigation: unknown history method %q", call.Method)
	}
	return a, nil
}
