package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jask/adminstate/internal/config"
	"github.com/jask/adminstate/internal/database"
	"github.com/jask/adminstate/internal/database/repository"
	"github.com/jask/adminstate/internal/logging"
	"github.com/jask/adminstate/internal/tui"
)

var (
	configPath string
	serveAddr  string
	limit      int

	cfg       config.Config
	logger    *slog.Logger
	logCloser io.Closer

	rootCmd = &cobra.Command{
		Use:           "adminui",
		Short:         "Admin UI state store with a terminal front end",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				if err := os.Setenv("ADMINUI_CONFIG", configPath); err != nil {
					return err
				}
			}
			var err error
			if cfg, err = config.Load(); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
		RunE: runTUI,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Start the terminal UI (default)",
		RunE:  runTUI,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the store headless and expose the devtools stream and metrics",
		RunE:  runServe,
	}

	journalCmd = &cobra.Command{
		Use:   "journal",
		Short: "List recorded devtools sessions",
		RunE:  listSessions,
	}

	journalShowCmd = &cobra.Command{
		Use:   "show [session]",
		Short: "Print the records of one session",
		Args:  cobra.ExactArgs(1),
		RunE:  showSession,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $HOME/.config/adminui/config.toml)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default devtools.addr, then :7070)")
	journalCmd.Flags().IntVarP(&limit, "limit", "n", 20, "sessions to list")

	journalCmd.AddCommand(journalShowCmd)
	rootCmd.AddCommand(runCmd, serveCmd, journalCmd)
}

// setupLogger writes to w unless the config names a file.
func setupLogger(w io.Writer) error {
	var err error
	logger, logCloser, err = logging.New(cfg.Log, w)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	slog.SetDefault(logger)
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	// the terminal belongs to the UI; only a log file gets output
	if cfg.Log.File != "" {
		if err := setupLogger(nil); err != nil {
			return err
		}
	} else {
		logger = logging.Discard()
	}

	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if a.server != nil {
		go func() {
			if err := a.listen(ctx, cfg.Devtools.Addr, a.mux()); err != nil {
				logger.Error("devtools server", "error", err)
			}
		}()
	}
	if cfg.Metrics.Addr != "" && (a.server == nil || cfg.Metrics.Addr != cfg.Devtools.Addr) {
		go func() {
			if err := a.listen(ctx, cfg.Metrics.Addr, a.mux()); err != nil {
				logger.Error("metrics server", "error", err)
			}
		}()
	}

	m := tui.New(a.handle, tui.Options{Recorder: a.recorder})
	defer m.Close()
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := setupLogger(os.Stderr); err != nil {
		return err
	}
	addr := serveAddr
	if addr == "" {
		addr = cfg.Devtools.Addr
	}
	if addr == "" {
		addr = ":7070"
	}
	if cfg.Devtools.Addr == "" {
		// serving without a stream is pointless
		cfg.Devtools.Enabled = true
		cfg.Devtools.Addr = addr
	}

	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.listen(ctx, addr, a.mux())
}

func openJournal() (*repository.JournalRepo, func() error, error) {
	db, err := database.OpenMigrated(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	return repository.NewJournalRepo(db), db.Close, nil
}

func listSessions(cmd *cobra.Command, args []string) error {
	repo, closeDB, err := openJournal()
	if err != nil {
		return err
	}
	defer closeDB()

	sessions, err := repo.Sessions(cmd.Context(), limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSTARTED\tRECORDS")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%d\n", s.ID, s.StartedAt.Local().Format("2006-01-02 15:04:05"), s.Records)
	}
	return w.Flush()
}

func showSession(cmd *cobra.Command, args []string) error {
	repo, closeDB, err := openJournal()
	if err != nil {
		return err
	}
	defer closeDB()

	records, err := repo.Records(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no records for session %s", args[0])
	}
	out := cmd.OutOrStdout()
	for _, r := range records {
		fmt.Fprintf(out, "%6d  %s  %s\n", r.Seq, r.RecordedAt.Local().Format("15:04:05.000"), r.ActionType)
		fmt.Fprintf(out, "        %s\n", r.Action)
	}
	return nil
}
