// Package sagas holds the admin UI effect programs. Root combines them into
// the single program handed to the effect stage.
package sagas

import (
	"context"
	"time"

	"github.com/jask/adminstate/internal/database/repository"
	"github.com/jask/adminstate/internal/effect"
	"github.com/jask/adminstate/internal/prefs"
	"github.com/jask/adminstate/internal/secrets"
)

// Query is a managed query: Fetch loads the data cached under ID.
type Query struct {
	ID    string
	Fetch func(ctx context.Context) (any, error)
}

// MetricsSource answers metrics requests.
type MetricsSource func(ctx context.Context, request any) (any, error)

// Authenticator checks credentials and revokes sessions.
type Authenticator interface {
	Login(ctx context.Context, user, password string) (token string, expires time.Time, err error)
	Logout(ctx context.Context, token string) error
}

// Deps selects the programs Root runs: a program whose dependency is nil is
// left out.
type Deps struct {
	Queries         []Query
	RefreshInterval time.Duration
	RetryDelay      time.Duration

	Metrics MetricsSource

	UIData *repository.UIDataRepo

	Settings      *prefs.File
	WatchSettings bool

	Auth     Authenticator
	Sessions *secrets.SessionStore

	// TickInterval slides the time window; zero uses the scale's sample
	// size and a negative value disables the ticker.
	TickInterval time.Duration

	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Root returns every configured program under one effect.All.
func Root(d Deps) effect.Program {
	programs := []effect.Program{}
	if len(d.Queries) > 0 {
		programs = append(programs, effect.Named("queryManager", QueryManager(d)))
	}
	if d.Metrics != nil {
		programs = append(programs, effect.Named("metrics", MetricsRequests(d)))
	}
	if d.UIData != nil {
		programs = append(programs, effect.Named("uiData", UIData(d)))
	}
	if d.Settings != nil {
		programs = append(programs, effect.Named("localSettings", LocalSettings(d)))
	}
	if d.Auth != nil {
		programs = append(programs, effect.Named("login", Login(d)))
	}
	if d.TickInterval >= 0 {
		programs = append(programs, effect.Named("timewindow", TimeWindowTicker(d)))
	}
	return effect.All(programs...)
}
