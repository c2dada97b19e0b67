package sagas

import (
	"context"
	"os"
	"path/filepath"
	"reflect"

	"github.com/fsnotify/fsnotify"

	"github.com/jask/adminstate/internal/effect"
	"github.com/jask/adminstate/internal/reducers"
	"github.com/jask/adminstate/internal/store"
)

// LocalSettings loads the settings file at start, writes it on every
// SetLocalSetting and, when WatchSettings is set, reloads it when another
// process changes it.
func LocalSettings(d Deps) effect.Program {
	reload := func(rt effect.Runtime) error {
		values, err := d.Settings.Load()
		if err != nil {
			rt.Logger().Warn("sagas: load settings", "path", d.Settings.Path, "error", err)
			return nil
		}
		if values == nil {
			return nil
		}
		current := store.Select[reducers.LocalSettings](rt.Select(), reducers.LocalSettingsKey)
		if reflect.DeepEqual(map[string]any(current), values) {
			return nil
		}
		return rt.Put(reducers.LocalSettingsLoaded{Values: values})
	}

	persist := effect.TakeEvery(func(ctx context.Context, rt effect.Runtime, a store.Action) error {
		current := store.Select[reducers.LocalSettings](rt.Select(), reducers.LocalSettingsKey)
		if err := d.Settings.Save(current); err != nil {
			rt.Logger().Warn("sagas: save settings", "path", d.Settings.Path, "error", err)
		}
		return nil
	}, reducers.SetLocalSetting{}.Type())

	watch := effect.Func(func(ctx context.Context, rt effect.Runtime) error {
		if err := reload(rt); err != nil {
			return err
		}
		if !d.WatchSettings {
			return nil
		}
		return watchSettings(ctx, rt, d.Settings.Path, reload)
	})
	return effect.All(effect.Named("localSettings/persist", persist), effect.Named("localSettings/watch", watch))
}

func watchSettings(ctx context.Context, rt effect.Runtime, path string, reload func(effect.Runtime) error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// the file is replaced by rename, so watch its directory
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	name := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if err := reload(rt); err != nil {
				return err
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			rt.Logger().Warn("sagas: settings watcher", "error", err)
		}
	}
}
