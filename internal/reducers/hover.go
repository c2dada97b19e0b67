package reducers

import "github.com/jask/adminstate/internal/store"

const HoverKey = "hover"

// HoverState is the chart point under the pointer.
type HoverState struct {
	Chart  string  `json:"chart,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Active bool    `json:"active"`
}

type HoverOn struct {
	Chart string  `json:"chart"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// HoverOff clears the hover of Chart; an empty Chart clears any.
type HoverOff struct {
	Chart string `json:"chart,omitempty"`
}

func (HoverOn) Type() string  { return "hover/ON" }
func (HoverOff) Type() string { return "hover/OFF" }

func ReduceHover(st HoverState, a store.Action) HoverState {
	switch a := a.(type) {
	case HoverOn:
		return HoverState{Chart: a.Chart, X: a.X, Y: a.Y, Active: true}
	case HoverOff:
		if !st.Active || (a.Chart != "" && a.Chart != st.Chart) {
			return st
		}
		return HoverState{}
	}
	return st
}

func HoverSlice() store.Slice {
	return store.Define(HoverKey, HoverState{}, ReduceHover)
}
