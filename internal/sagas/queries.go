package sagas

import (
	"context"
	"time"

	"github.com/jask/adminstate/internal/effect"
	"github.com/jask/adminstate/internal/reducers"
	"github.com/jask/adminstate/internal/store"
)

const (
	defaultRefreshInterval = 10 * time.Second
	defaultRetryDelay      = 2 * time.Second
)

// QueryManager runs each managed query while at least one AutoRefresh holds
// it, every RefreshInterval, retrying after RetryDelay on failure.
// RefreshQuery runs the query at once and restarts its schedule.
func QueryManager(d Deps) effect.Program {
	interval := d.RefreshInterval
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	retry := d.RetryDelay
	if retry <= 0 {
		retry = defaultRetryDelay
	}
	byID := make(map[string]Query, len(d.Queries))
	for _, q := range d.Queries {
		byID[q.ID] = q
	}

	return effect.Func(func(ctx context.Context, rt effect.Runtime) error {
		running := map[string]*effect.Task{}
		stop := func(id string) {
			if t := running[id]; t != nil {
				t.Cancel()
				delete(running, id)
			}
		}
		for {
			a, err := rt.Take(ctx,
				reducers.AutoRefresh{}.Type(),
				reducers.StopAutoRefresh{}.Type(),
				reducers.RefreshQuery{}.Type(),
			)
			if err != nil {
				return nil
			}
			switch a := a.(type) {
			case reducers.AutoRefresh:
				q, ok := byID[a.ID]
				if !ok {
					rt.Logger().Warn("sagas: auto refresh of unknown query", "query", a.ID)
					continue
				}
				if t := running[a.ID]; t == nil || isDone(t) {
					running[a.ID] = rt.Fork("query/"+a.ID, refreshLoop(d, q, interval, retry))
				}
			case reducers.StopAutoRefresh:
				if refreshCount(rt.Select(), a.ID) == 0 {
					stop(a.ID)
				}
			case reducers.RefreshQuery:
				q, ok := byID[a.ID]
				if !ok {
					continue
				}
				stop(a.ID)
				if refreshCount(rt.Select(), a.ID) > 0 {
					running[a.ID] = rt.Fork("query/"+a.ID, refreshLoop(d, q, interval, retry))
				} else {
					rt.Fork("query/"+a.ID+"/once", effect.Func(func(ctx context.Context, rt effect.Runtime) error {
						_, err := runQuery(ctx, rt, d, q)
						return err
					}))
				}
			}
		}
	})
}

func refreshLoop(d Deps, q Query, interval, retry time.Duration) effect.Program {
	return effect.Func(func(ctx context.Context, rt effect.Runtime) error {
		for {
			ok, err := runQuery(ctx, rt, d, q)
			if err != nil || ctx.Err() != nil {
				return err
			}
			wait := interval
			if !ok {
				wait = retry
			}
			if err := effect.Delay(ctx, wait); err != nil {
				return nil
			}
			if refreshCount(rt.Select(), q.ID) == 0 {
				return nil
			}
		}
	})
}

// runQuery fetches q once. The bool is false when the fetch failed; the error
// is only set when dispatching failed.
func runQuery(ctx context.Context, rt effect.Runtime, d Deps, q Query) (bool, error) {
	if err := putAll(rt,
		reducers.QueryBegin{ID: q.ID, At: d.now()},
		reducers.RequestData{Key: q.ID, At: d.now()},
	); err != nil {
		return false, err
	}
	data, err := q.Fetch(ctx)
	if ctx.Err() != nil {
		// stopped mid-flight: keep the last data
		return false, putAll(rt,
			reducers.AbortData{Key: q.ID},
			reducers.QueryComplete{ID: q.ID, At: d.now()},
		)
	}
	if err != nil {
		rt.Logger().Warn("sagas: query failed", "query", q.ID, "error", err)
		return false, putAll(rt,
			reducers.FailData{Key: q.ID, Err: err.Error(), At: d.now()},
			reducers.QueryFailed{ID: q.ID, Err: err.Error(), At: d.now()},
		)
	}
	return true, putAll(rt,
		reducers.ReceiveData{Key: q.ID, Data: data, At: d.now()},
		reducers.QueryComplete{ID: q.ID, At: d.now()},
	)
}

func refreshCount(st *store.State, id string) int {
	return store.Select[reducers.QueryManagerState](st, reducers.QueryManagerKey)[id].AutoRefreshCount
}

func isDone(t *effect.Task) bool {
	select {
	case <-t.Done():
		return true
	default:
		return false
	}
}

func putAll(rt effect.Runtime, actions ...store.Action) error {
	for _, a := range actions {
		if err := rt.Put(a); err != nil {
			return err
		}
	}
	return nil
}
