package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/leapstack-labs/leapview/internal/cli/config"
	"github.com/leapstack-labs/leapview/internal/engine"
	"github.com/leapstack-labs/leapview/internal/notifier"
	"github.com/leapstack-labs/leapview/internal/pipeline"
	"github.com/leapstack-labs/leapview/internal/render"
	"github.com/leapstack-labs/leapview/internal/session"
	"github.com/leapstack-labs/leapview/internal/state"
	"github.com/leapstack-labs/leapview/internal/viewconfig"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Format   render.Format
	Engine   *engine.Engine
	Store    *state.SQLiteStore
	Notifier *notifier.Notifier
	Session  *session.Session
	Pipeline *pipeline.Pipeline
}

// NewCommandContext creates a CommandContext with the engine, state store,
// session and apply pipeline of the configured view.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	ctx := cmd.Context()
	cfg, err := getConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := config.GetLogger(ctx)

	format, err := resolveFormat(cfg.OutputFormat, cmd.OutOrStdout())
	if err != nil {
		return nil, nil, err
	}

	store, err := state.OpenStore(cfg.StatePath, logger)
	if err != nil {
		return nil, nil, err
	}

	view, version, err := loadView(ctx, cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	eng, err := createEngine(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	n := notifier.New()
	sess := session.New(session.Options{
		Name:           cfg.SessionName(),
		Config:         view,
		Version:        version,
		Renderer:       render.New(eng, cmd.OutOrStdout(), format, logger),
		Prober:         eng,
		Persister:      newViewPersister(cfg.ViewFile, store),
		Notifier:       n,
		StrictVersions: cfg.Pipeline.StrictVersions,
		Logger:         logger,
	})
	pipe := pipeline.New(sess, pipeline.Options{
		Session:          sess.Name(),
		CancelSuperseded: cfg.Pipeline.CancelSuperseded,
		Recorder:         store,
		Logger:           logger,
	})

	cleanup := func() {
		pipe.Close()
		_ = eng.Close()
		_ = store.Close()
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Format:   format,
		Engine:   eng,
		Store:    store,
		Notifier: n,
		Session:  sess,
		Pipeline: pipe,
	}, cleanup, nil
}

// NewStoreContext creates a CommandContext with only the state store.
// Useful for commands that don't need database access.
func NewStoreContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := config.GetLogger(cmd.Context())

	format, err := resolveFormat(cfg.OutputFormat, cmd.OutOrStdout())
	if err != nil {
		return nil, nil, err
	}

	store, err := state.OpenStore(cfg.StatePath, logger)
	if err != nil {
		return nil, nil, err
	}

	return &CommandContext{
		Cfg:    cfg,
		Logger: logger,
		Format: format,
		Store:  store,
	}, func() { _ = store.Close() }, nil
}

// Helper functions shared across commands

// getConfig returns the current configuration, loading it from the
// environment when no command loaded it yet.
func getConfig() (*config.Config, error) {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", nil)
}

// resolveFormat maps the configured output format to a render format.
// "auto" renders tables on a terminal and markdown otherwise.
func resolveFormat(output string, w io.Writer) (render.Format, error) {
	if output == "" || output == config.DefaultOutput {
		if isTerminal(w) {
			return render.FormatTable, nil
		}
		return render.FormatMarkdown, nil
	}
	return render.ParseFormat(output)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	return engine.New(engine.Config{
		AdapterConfig: cfg.Target.AdapterConfig(),
		Source: engine.Source{
			CSV:   cfg.Source.CSV,
			Table: cfg.Source.Table,
		},
		Logger: logger,
	})
}

// loadView reads the view file. When it does not exist yet the latest
// snapshot of the session is used, and failing that a view of the whole
// source table. The returned version continues the session's snapshot
// history; zero means there is none.
func loadView(ctx context.Context, cfg *config.Config, store state.Store, logger *slog.Logger) (viewconfig.ViewConfig, uint64, error) {
	snap, err := store.LatestSnapshot(ctx, cfg.SessionName())
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		return viewconfig.ViewConfig{}, 0, err
	}

	var version uint64
	if snap != nil {
		version = snap.Version
	}

	view, err := viewconfig.LoadFile(cfg.ViewFile)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && snap != nil:
		logger.Info("view file not found, restoring latest snapshot",
			"view_file", cfg.ViewFile, "version", snap.Version)
		view = snap.Config
	case errors.Is(err, os.ErrNotExist):
		logger.Debug("view file not found, starting from source", "view_file", cfg.ViewFile)
	default:
		return viewconfig.ViewConfig{}, 0, err
	}

	view = applyViewDefaults(cfg, view)
	if err := view.Validate(); err != nil {
		return viewconfig.ViewConfig{}, 0, fmt.Errorf("invalid view %s: %w\nHint: set table in the view file or configure source.csv", cfg.ViewFile, err)
	}
	return view, version, nil
}

// applyViewDefaults fills the table and limit of a view from the CLI
// configuration.
func applyViewDefaults(cfg *config.Config, view viewconfig.ViewConfig) viewconfig.ViewConfig {
	if view.Table == "" && (cfg.Source.CSV != "" || cfg.Source.Table != "") {
		view.Table = engine.Source{CSV: cfg.Source.CSV, Table: cfg.Source.Table}.TableName()
	}
	if view.Limit == 0 && cfg.Render.Limit > 0 {
		view.Limit = cfg.Render.Limit
	}
	return view
}

// newViewPersister writes every applied view back to the view file and
// snapshots it in the state store.
func newViewPersister(path string, store state.Store) session.Persister {
	return session.PersistFunc(func(ctx context.Context, name string, version uint64, cfg viewconfig.ViewConfig) error {
		if err := viewconfig.SaveFile(path, cfg); err != nil {
			return err
		}
		return store.SaveSnapshot(ctx, name, version, cfg)
	})
}
