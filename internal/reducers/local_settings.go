package reducers

import (
	"maps"
	"reflect"

	"github.com/jask/adminstate/internal/store"
)

const LocalSettingsKey = "localSettings"

// LocalSettings are per-machine UI preferences.
type LocalSettings map[string]any

type SetLocalSetting struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// LocalSettingsLoaded replaces every setting, e.g. after reading the file.
type LocalSettingsLoaded struct {
	Values map[string]any `json:"values"`
}

func (SetLocalSetting) Type() string     { return "localSettings/SET" }
func (LocalSettingsLoaded) Type() string { return "localSettings/LOADED" }

func ReduceLocalSettings(st LocalSettings, a store.Action) LocalSettings {
	switch a := a.(type) {
	case SetLocalSetting:
		if cur, ok := st[a.Key]; ok && reflect.DeepEqual(cur, a.Value) {
			return st
		}
		out := maps.Clone(st)
		if out == nil {
			out = LocalSettings{}
		}
		out[a.Key] = a.Value
		return out
	case LocalSettingsLoaded:
		if reflect.DeepEqual(map[string]any(st), a.Values) {
			return st
		}
		return LocalSettings(maps.Clone(a.Values))
	}
	return st
}

// LocalSetting returns the setting under key as T, or def.
func LocalSetting[T any](st LocalSettings, key string, def T) T {
	if v, ok := st[key].(T); ok {
		return v
	}
	return def
}

func LocalSettingsSlice() store.Slice {
	return store.Define(LocalSettingsKey, LocalSettings{}, ReduceLocalSettings)
}
