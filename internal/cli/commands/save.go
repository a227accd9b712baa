package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/leapview/internal/controller"
	"github.com/leapstack-labs/leapview/internal/expression"
	"github.com/leapstack-labs/leapview/internal/locator"
	"github.com/leapstack-labs/leapview/internal/pipeline"
	"github.com/spf13/cobra"
)

// SaveOptions holds options for the save command.
type SaveOptions struct {
	Alias string
	As    string
}

// NewSaveCommand creates the save command.
func NewSaveCommand() *cobra.Command {
	opts := &SaveOptions{}

	cmd := &cobra.Command{
		Use:   "save [EXPRESSION]",
		Short: "Add or replace an expression column",
		Long: `Add a computed expression column to the view, or replace an existing one.

Without --alias the expression is added as a new column; saving the same
text twice keeps a single column. With --alias the expression stored
under that alias is replaced in place.

The alias of an expression is taken from a leading "// name" comment line
(use --as to add one), otherwise it is the expression text itself.

The view is re-rendered once the change is applied.`,
		Example: `  # Add a named column
  leapview save --as fare_per_mile "fare / NULLIF(distance, 0)"

  # Replace it
  leapview save --alias fare_per_mile "round(fare / NULLIF(distance, 0), 2)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Alias, "alias", "", "Replace the expression with this alias")
	cmd.Flags().StringVar(&opts.As, "as", "", "Name the expression column")

	return cmd
}

func runSave(cmd *cobra.Command, text string, opts *SaveOptions) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("expression is empty")
	}
	if opts.As != "" {
		text = expression.Named(opts.As, expression.Body(text))
	}

	var loc locator.ColumnLocator = locator.NewExpression{}
	if opts.Alias != "" {
		existing, err := locator.Existing(opts.Alias)
		if err != nil {
			return err
		}
		loc = existing
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctrl, err := controller.New(controller.Config{
		Locator:    loc,
		Session:    cmdCtx.Session,
		Dispatcher: cmdCtx.Pipeline,
		Logger:     cmdCtx.Logger,
	})
	if err != nil {
		return err
	}
	if err := ctrl.OnSave(text); err != nil {
		return err
	}

	return waitApplied(cmd.Context(), cmd.ErrOrStderr(), ctrl.LastTask())
}

// waitApplied waits for the apply task dispatched by a controller and
// reports its outcome.
func waitApplied(ctx context.Context, w io.Writer, task *pipeline.Task) error {
	if task == nil {
		return nil
	}
	st := newStyles()
	if err := task.Wait(ctx); err != nil {
		st.status(w, st.Error, "%s failed: %v", task.Kind(), err)
		return fmt.Errorf("%s %s: %w", task.Kind(), task.Locator(), err)
	}
	st.status(w, st.OK, "%s applied (version %d)", task.Kind(), task.AppliedVersion())
	if warn := task.Warning(); warn != nil {
		st.status(w, st.Warn, "warning: %v", warn)
	}
	return nil
}
