package sagas

import (
	"context"

	"github.com/jask/adminstate/internal/effect"
	"github.com/jask/adminstate/internal/reducers"
	"github.com/jask/adminstate/internal/store"
)

// MetricsRequests answers RequestMetrics with ReceiveMetrics or FailMetrics.
func MetricsRequests(d Deps) effect.Program {
	return effect.TakeEvery(func(ctx context.Context, rt effect.Runtime, a store.Action) error {
		req := a.(reducers.RequestMetrics)
		data, err := d.Metrics(ctx, req.Request)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return rt.Put(reducers.FailMetrics{ID: req.ID, Err: err.Error()})
		}
		return rt.Put(reducers.ReceiveMetrics{ID: req.ID, Request: req.Request, Data: data})
	}, reducers.RequestMetrics{}.Type())
}
