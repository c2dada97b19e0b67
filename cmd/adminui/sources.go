package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jask/adminstate/internal/database/repository"
	"github.com/jask/adminstate/internal/sagas"
)

var started = time.Now()

// localQueries describe this process: the node it runs on and the recorded
// store sessions.
func localQueries(db *sql.DB) []sagas.Query {
	journal := repository.NewJournalRepo(db)
	return []sagas.Query{
		{ID: "nodes", Fetch: func(ctx context.Context) (any, error) {
			host, err := os.Hostname()
			if err != nil {
				host = "localhost"
			}
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			return []map[string]any{{
				"id":         1,
				"address":    host,
				"os":         runtime.GOOS + "/" + runtime.GOARCH,
				"cpus":       runtime.NumCPU(),
				"goroutines": runtime.NumGoroutine(),
				"heapBytes":  ms.HeapAlloc,
				"uptime":     time.Since(started).Round(time.Second).String(),
			}}, nil
		}},
		{ID: "jobs", Fetch: func(ctx context.Context) (any, error) {
			sessions, err := journal.Sessions(ctx, 20)
			if err != nil {
				return nil, err
			}
			out := make([]map[string]any, 0, len(sessions))
			for _, s := range sessions {
				out = append(out, map[string]any{
					"id":      s.ID,
					"started": s.StartedAt,
					"records": s.Records,
				})
			}
			return out, nil
		}},
	}
}

// runtimeMetrics answers every metrics request with the current runtime
// counters.
func runtimeMetrics(ctx context.Context, request any) (any, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return map[string]any{
		"at":         time.Now().UTC(),
		"goroutines": runtime.NumGoroutine(),
		"heapBytes":  ms.HeapAlloc,
		"gcCycles":   ms.NumGC,
	}, nil
}

// localAuth accepts any user with a non-empty password and issues random
// tokens.
type localAuth struct {
	ttl time.Duration
}

func (l localAuth) Login(ctx context.Context, user, password string) (string, time.Time, error) {
	if strings.TrimSpace(user) == "" || password == "" {
		return "", time.Time{}, errors.New("user and password are required")
	}
	return uuid.NewString(), time.Now().Add(l.ttl), nil
}

func (localAuth) Logout(ctx context.Context, token string) error { return nil }
