package reducers

import (
	"maps"
	"reflect"

	"github.com/jask/adminstate/internal/store"
)

const UIDataKey = "uiData"

type UIDataStatus string

const (
	UIDataLoading UIDataStatus = "loading"
	UIDataValid   UIDataStatus = "valid"
	UIDataSaving  UIDataStatus = "saving"
	UIDataError   UIDataStatus = "error"
)

// UIDataEntry is one persisted UI value and its sync status.
type UIDataEntry struct {
	Status UIDataStatus `json:"state"`
	Data   any          `json:"data,omitempty"`
	Err    string       `json:"error,omitempty"`
}

// UIDataState maps keys to persisted values. Never modified in place.
type UIDataState map[string]UIDataEntry

// LoadUIData asks for keys to be read from storage.
type LoadUIData struct {
	Keys []string `json:"keys"`
}

// UIDataLoaded carries values read from storage. Requested keys absent from
// Values were never saved.
type UIDataLoaded struct {
	Keys   []string       `json:"keys"`
	Values map[string]any `json:"values"`
}

// SaveUIData asks for values to be written to storage.
type SaveUIData struct {
	Values map[string]any `json:"values"`
}

type UIDataSaved struct {
	Keys []string `json:"keys"`
}

type UIDataFailed struct {
	Keys []string `json:"keys"`
	Err  string   `json:"error"`
}

// SetUIData changes a value locally without persisting it.
type SetUIData struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func (LoadUIData) Type() string   { return "uiData/LOAD" }
func (UIDataLoaded) Type() string { return "uiData/LOADED" }
func (SaveUIData) Type() string   { return "uiData/SAVE" }
func (UIDataSaved) Type() string  { return "uiData/SAVED" }
func (UIDataFailed) Type() string { return "uiData/ERROR" }
func (SetUIData) Type() string    { return "uiData/SET" }

func ReduceUIData(st UIDataState, a store.Action) UIDataState {
	switch a := a.(type) {
	case LoadUIData:
		return st.update(a.Keys, func(e UIDataEntry) UIDataEntry {
			e.Status = UIDataLoading
			return e
		})
	case UIDataLoaded:
		return st.update(a.Keys, func(e UIDataEntry) UIDataEntry {
			return UIDataEntry{Status: UIDataValid, Data: e.Data}
		}).set(a.Values, UIDataValid)
	case SaveUIData:
		return st.set(a.Values, UIDataSaving)
	case UIDataSaved:
		return st.update(a.Keys, func(e UIDataEntry) UIDataEntry {
			e.Status, e.Err = UIDataValid, ""
			return e
		})
	case UIDataFailed:
		return st.update(a.Keys, func(e UIDataEntry) UIDataEntry {
			e.Status, e.Err = UIDataError, a.Err
			return e
		})
	case SetUIData:
		if e, ok := st[a.Key]; ok && reflect.DeepEqual(e.Data, a.Value) {
			return st
		}
		return st.set(map[string]any{a.Key: a.Value}, UIDataValid)
	}
	return st
}

func (st UIDataState) update(keys []string, fn func(UIDataEntry) UIDataEntry) UIDataState {
	if len(keys) == 0 {
		return st
	}
	out := make(UIDataState, len(st)+len(keys))
	maps.Copy(out, st)
	for _, k := range keys {
		out[k] = fn(out[k])
	}
	return out
}

func (st UIDataState) set(values map[string]any, status UIDataStatus) UIDataState {
	if len(values) == 0 {
		return st
	}
	out := make(UIDataState, len(st)+len(values))
	maps.Copy(out, st)
	for k, v := range values {
		out[k] = UIDataEntry{Status: status, Data: v}
	}
	return out
}

// UIDataValue returns the data under key when it is loaded.
func UIDataValue(st UIDataState, key string) (any, bool) {
	e, ok := st[key]
	if !ok || e.Status == UIDataLoading || e.Status == UIDataError {
		return nil, false
	}
	return e.Data, e.Data != nil
}

func UIDataSlice() store.Slice {
	return store.Define(UIDataKey, UIDataState{}, ReduceUIData)
}
