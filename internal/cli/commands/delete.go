package commands

import (
	"github.com/leapstack-labs/leapview/internal/controller"
	"github.com/leapstack-labs/leapview/internal/locator"
	"github.com/spf13/cobra"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	var alias string

	cmd := &cobra.Command{
		Use:     "delete --alias ALIAS",
		Aliases: []string{"rm"},
		Short:   "Remove an expression column",
		Long: `Remove the expression column with the given alias from the view.

The view is re-rendered once the change is applied.`,
		Example: `  leapview delete --alias fare_per_mile`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDelete(cmd, alias)
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "", "Alias of the expression to remove")
	_ = cmd.MarkFlagRequired("alias")

	return cmd
}

func runDelete(cmd *cobra.Command, alias string) error {
	loc, err := locator.Existing(alias)
	if err != nil {
		return err
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
	if err := ctrl.OnDelete(); err != nil {
		return err
	}

	return waitApplied(cmd.Context(), cmd.ErrOrStderr(), ctrl.LastTask())
}
