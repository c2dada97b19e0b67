package sagas

import (
	"context"
	"encoding/json"
	"maps"
	"slices"

	"github.com/jask/adminstate/internal/database/repository"
	"github.com/jask/adminstate/internal/effect"
	"github.com/jask/adminstate/internal/reducers"
	"github.com/jask/adminstate/internal/store"
)

// UIData loads and saves uiData values through the sqlite repository. Values
// are stored as JSON.
func UIData(d Deps) effect.Program {
	load := effect.TakeEvery(func(ctx context.Context, rt effect.Runtime, a store.Action) error {
		keys := a.(reducers.LoadUIData).Keys
		rows, err := d.UIData.GetMany(ctx, keys)
		if err != nil {
			return rt.Put(reducers.UIDataFailed{Keys: keys, Err: err.Error()})
		}
		values := make(map[string]any, len(rows))
		for _, row := range rows {
			var v any
			if err := json.Unmarshal(row.Value, &v); err != nil {
				return rt.Put(reducers.UIDataFailed{Keys: keys, Err: err.Error()})
			}
			values[row.Key] = v
		}
		return rt.Put(reducers.UIDataLoaded{Keys: keys, Values: values})
	}, reducers.LoadUIData{}.Type())

	save := effect.TakeEvery(func(ctx context.Context, rt effect.Runtime, a store.Action) error {
		values := a.(reducers.SaveUIData).Values
		keys := slices.Sorted(maps.Keys(values))
		for _, k := range keys {
			raw, err := json.Marshal(values[k])
			if err == nil {
				err = d.UIData.Upsert(ctx, repository.UIData{Key: k, Value: raw, UpdatedAt: d.now().UTC()})
			}
			if err != nil {
				rt.Logger().Warn("sagas: save ui data", "key", k, "error", err)
				return rt.Put(reducers.UIDataFailed{Keys: keys, Err: err.Error()})
			}
		}
		return rt.Put(reducers.UIDataSaved{Keys: keys})
	}, reducers.SaveUIData{}.Type())

	return effect.All(effect.Named("uiData/load", load), effect.Named("uiData/save", save))
}
