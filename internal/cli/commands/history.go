package commands

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/leapview/internal/engine"
	"github.com/leapstack-labs/leapview/internal/render"
	"github.com/leapstack-labs/leapview/internal/state"
	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Failed bool
	Limit  int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the apply history of the session",
		Long: `Show the expression changes applied to the session, most recent first,
with their status and the session versions they were built from and
produced.`,
		Example: `  # Last 20 applies
  leapview history

  # Only failures
  leapview history --failed`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "Only show failed applies")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of entries (0 for all)")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	if opts.Limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}

	cmdCtx, cleanup, err := NewStoreContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	filter := state.TaskFilter{
		Session: cmdCtx.Cfg.SessionName(),
		Limit:   opts.Limit,
	}
	if opts.Failed {
		filter.Status = state.TaskStatusFailed
	}

	tasks, err := cmdCtx.Store.ListTasks(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	return render.Write(cmd.OutOrStdout(), historyResult(tasks), cmdCtx.Format)
}

// historyResult lays apply tasks out as a result table.
func historyResult(tasks []state.ApplyTask) *engine.Result {
	res := &engine.Result{
		Columns: []string{"id", "kind", "locator", "status", "base_version", "applied_version", "started_at", "duration", "error"},
		Rows:    make([][]any, 0, len(tasks)),
	}
	for _, t := range tasks {
		var applied, duration, errText any
		if t.AppliedVersion > 0 {
			applied = t.AppliedVersion
		}
		if t.CompletedAt != nil {
			duration = t.Duration().Round(time.Millisecond).String()
		}
		if t.Error != "" {
			errText = t.Error
		}
		res.Rows = append(res.Rows, []any{
			shortID(t.ID),
			t.Kind,
			t.Locator,
			string(t.Status),
			t.BaseVersion,
			applied,
			t.StartedAt.Local().Format(time.DateTime),
			duration,
			errText,
		})
	}
	return res
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
