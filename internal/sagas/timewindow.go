package sagas

import (
	"context"
	"time"

	"github.com/jask/adminstate/internal/effect"
	"github.com/jask/adminstate/internal/reducers"
	"github.com/jask/adminstate/internal/store"
)

// TimeWindowTicker keeps a sliding time window ending at now, unless a fixed
// range is set. A scale change moves the window at once.
func TimeWindowTicker(d Deps) effect.Program {
	return effect.Func(func(ctx context.Context, rt effect.Runtime) error {
		for {
			st := store.Select[reducers.TimeWindowState](rt.Select(), reducers.TimeWindowKey)
			if !st.UseTimeRange && st.Scale.Window > 0 {
				now := d.now()
				if err := rt.Put(reducers.SetTimeWindow{Window: reducers.TimeWindow{Start: now.Add(-st.Scale.Window), End: now}}); err != nil {
					return err
				}
			}

			tick := d.TickInterval
			if tick == 0 {
				tick = st.Scale.Sample
			}
			if tick <= 0 {
				tick = 10 * time.Second
			}
			wctx, cancel := context.WithTimeout(ctx, tick)
			_, err := rt.Take(wctx, reducers.SetTimeScale{}.Type())
			cancel()
			if ctx.Err() != nil {
				return nil
			}
			if err != nil && wctx.Err() == nil {
				return nil
			}
		}
	})
}
