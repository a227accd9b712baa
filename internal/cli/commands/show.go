package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leapview/internal/notifier"
	"github.com/leapstack-labs/leapview/internal/viewconfig"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// watchDebounce coalesces bursts of file events into one reload.
const watchDebounce = 100 * time.Millisecond

// ShowOptions holds options for the show command.
type ShowOptions struct {
	Watch bool
}

// NewShowCommand creates the show command.
func NewShowCommand() *cobra.Command {
	opts := &ShowOptions{}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Render the view",
		Long: `Render the configured view with its computed expression columns.

With --watch the view is rendered again every time the view file changes,
and a status line is printed for each render.`,
		Example: `  # Render the view
  leapview show

  # Render as CSV
  leapview show -o csv

  # Re-render whenever view.yaml changes
  leapview show --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShow(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-render when the view file changes")

	return cmd
}

func runShow(cmd *cobra.Command, opts *ShowOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if !opts.Watch {
		return cmdCtx.Session.Render(cmd.Context())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := cmdCtx.Notifier.Subscribe()
	defer cmdCtx.Notifier.Unsubscribe(events)

	sess := cmdCtx.Session
	cfg := cmdCtx.Cfg
	reload := func(ctx context.Context) error {
		view, err := viewconfig.LoadFile(cfg.ViewFile)
		if err != nil {
			return err
		}
		changed, err := sess.Reload(ctx, applyViewDefaults(cfg, view))
		if err != nil {
			return err
		}
		if !changed {
			cmdCtx.Logger.Debug("view file unchanged", "view_file", cfg.ViewFile)
		}
		return nil
	}

	if err := sess.Render(ctx); err != nil {
		cmdCtx.Logger.Error("initial render failed", "error", err)
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return watchViewFile(egctx, cfg.ViewFile, watchDebounce, reload, cmdCtx.Logger)
	})
	eg.Go(func() error {
		printRenderEvents(egctx, cmd.ErrOrStderr(), events)
		return nil
	})

	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl+C to stop)\n", cfg.ViewFile)
	return eg.Wait()
}

// watchViewFile calls reload after the file at path is written, created or
// replaced, until ctx is done. The parent directory is watched so editors
// that replace the file on save are noticed.
func watchViewFile(ctx context.Context, path string, debounce time.Duration, reload func(context.Context) error, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	// Debounce timer
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, func() {
				logger.Debug("view file changed, reloading", "file", event.Name)
				if err := reload(ctx); err != nil {
					logger.Error("reload failed", "view_file", path, "error", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

// printRenderEvents writes a status line per render event until ctx is done.
func printRenderEvents(ctx context.Context, w io.Writer, events <-chan notifier.Event) {
	st := newStyles()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			stamp := ev.At.Format("15:04:05")
			if ev.Err != nil {
				st.status(w, st.Error, "%s render failed (version %d): %v", stamp, ev.Version, ev.Err)
				continue
			}
			st.status(w, st.Muted, "%s rendered version %d (%d rows)", stamp, ev.Version, ev.Rows)
		}
	}
}
