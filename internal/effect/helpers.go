package effect

import (
	"context"
	"fmt"
	"time"

	"github.com/jask/adminstate/internal/store"
)

// Handler reacts to one action.
type Handler func(ctx context.Context, rt Runtime, a store.Action) error

// All runs every program concurrently and returns once they have all
// returned. A failing program is reported on its own and does not stop its
// siblings. When All is the root program (or is started through
// Middleware.Run) its members are started directly, so none of them misses an
// action dispatched right after the store was created.
func All(programs ...Program) Program {
	return all(programs)
}

type all []Program

func (ps all) Run(ctx context.Context, rt Runtime) error {
	tasks := make([]*Task, 0, len(ps))
	for i, p := range ps {
		if p == nil {
			continue
		}
		tasks = append(tasks, rt.Fork(programName(p, i), p))
	}
	for _, t := range tasks {
		select {
		case <-t.Done():
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

// Named labels a program for logs and errors.
func Named(name string, p Program) Program {
	return named{name: name, Program: p}
}

type named struct {
	name string
	Program
}

func programName(p Program, i int) string {
	if n, ok := p.(named); ok {
		return n.name
	}
	return fmt.Sprintf("program-%d", i)
}

// TakeEvery forks h for every action of the given types.
func TakeEvery(h Handler, types ...string) Program {
	return Func(func(ctx context.Context, rt Runtime) error {
		for {
			a, err := rt.Take(ctx, types...)
			if err != nil {
				return stopped(ctx, err)
			}
			rt.Fork(a.Type(), bind(h, a))
		}
	})
}

// TakeLatest forks h for every action of the given types, cancelling the
// previous handler still running.
func TakeLatest(h Handler, types ...string) Program {
	return Func(func(ctx context.Context, rt Runtime) error {
		var last *Task
		for {
			a, err := rt.Take(ctx, types...)
			if err != nil {
				return stopped(ctx, err)
			}
			if last != nil {
				last.Cancel()
			}
			last = rt.Fork(a.Type(), bind(h, a))
		}
	})
}

// Delay sleeps for d or until ctx is done.
func Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func bind(h Handler, a store.Action) Program {
	return Func(func(ctx context.Context, rt Runtime) error {
		return h(ctx, rt, a)
	})
}

func stopped(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}
