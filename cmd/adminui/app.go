package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jask/adminstate/internal/adminui"
	"github.com/jask/adminstate/internal/config"
	"github.com/jask/adminstate/internal/database"
	"github.com/jask/adminstate/internal/database/repository"
	"github.com/jask/adminstate/internal/devtools"
	"github.com/jask/adminstate/internal/navigation"
	"github.com/jask/adminstate/internal/prefs"
	"github.com/jask/adminstate/internal/reducers"
	"github.com/jask/adminstate/internal/sagas"
	"github.com/jask/adminstate/internal/secrets"
	"github.com/jask/adminstate/internal/telemetry"
)

// app is a running store with everything it was wired to.
type app struct {
	handle   *adminui.Handle
	db       *sql.DB
	registry *prometheus.Registry
	recorder *devtools.Recorder
	server   *devtools.Server
	journal  *devtools.Journal
	logger   *slog.Logger
}

func openApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	db, err := database.OpenMigrated(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	a := &app{db: db, registry: prometheus.NewRegistry(), logger: logger}
	metrics := telemetry.NewMetrics(a.registry)

	var inspectors []devtools.Inspector
	if cfg.Devtools.Enabled {
		a.recorder = devtools.NewRecorder(cfg.Devtools.MaxAge)
		inspectors = append(inspectors, a.recorder)
		if cfg.Devtools.Addr != "" {
			a.server = devtools.NewServer(cfg.Devtools.MaxAge, logger)
			inspectors = append(inspectors, a.server)
		}
		if cfg.Devtools.Journal {
			a.journal = devtools.NewJournal(db, cfg.Devtools.MaxAge)
			inspectors = append(inspectors, a.journal)
		}
	}

	settings := cfg.Settings.Path
	if settings == "" {
		if settings, err = prefs.DefaultPath(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("settings path: %w", err)
		}
	}

	program := sagas.Root(sagas.Deps{
		Queries:         localQueries(db),
		RefreshInterval: cfg.Queries.RefreshInterval,
		RetryDelay:      cfg.Queries.RetryDelay,
		Metrics:         runtimeMetrics,
		UIData:          repository.NewUIDataRepo(db),
		Settings:        &prefs.File{Path: settings},
		WatchSettings:   cfg.Settings.Watch,
		Auth:            localAuth{ttl: 12 * time.Hour},
		Sessions:        &secrets.SessionStore{Dir: cfg.Session.Dir},
	})

	h, err := adminui.CreateStore(adminui.Deps{
		InitialPath: cfg.Navigation.InitialPath,
		Routes:      navigation.NewRoutes(cfg.Navigation.Routes...),
		Program:     program,
		Inspector:   devtools.Tee(inspectors...),
		Metrics:     metrics,
		Logger:      logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.handle = h

	if scale, ok := reducers.LookupScale(cfg.TimeWindow.Scale); ok {
		if _, err := h.Dispatch(reducers.SetTimeScale{Scale: scale}); err != nil {
			logger.Warn("time scale", "scale", cfg.TimeWindow.Scale, "error", err)
		}
	} else if cfg.TimeWindow.Scale != "" {
		logger.Warn("unknown time scale", "scale", cfg.TimeWindow.Scale)
	}
	if a.journal != nil {
		logger.Info("journal session", "id", a.journal.Session())
	}
	return a, nil
}

// mux serves the devtools stream on /devtools and metrics on /metrics.
func (a *app) mux() *http.ServeMux {
	mux := http.NewServeMux()
	if a.server != nil {
		mux.Handle("/devtools", a.server)
	}
	mux.Handle("/metrics", telemetry.Handler(a.registry))
	return mux
}

// listen serves h on addr until ctx is done.
func (a *app) listen(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	a.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *app) Close() error {
	var errs []error
	errs = append(errs, a.handle.Close())
	if a.server != nil {
		errs = append(errs, a.server.Close())
	}
	errs = append(errs, a.db.Close())
	return errors.Join(errs...)
}
