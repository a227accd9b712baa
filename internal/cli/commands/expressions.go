package commands

import (
	"github.com/leapstack-labs/leapview/internal/engine"
	"github.com/leapstack-labs/leapview/internal/render"
	"github.com/leapstack-labs/leapview/internal/session"
	"github.com/spf13/cobra"
)

// NewExpressionsCommand creates the expressions command.
func NewExpressionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expressions",
		Aliases: []string{"exprs"},
		Short:   "List the expression columns of the view",
		Long: `List the computed expression columns of the view with their alias,
expression body and the result type reported by the database.

An empty type means the expression does not currently evaluate against
the view table.`,
		Example: `  # List expressions
  leapview expressions

  # As JSON for scripting
  leapview expressions -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExpressions(cmd)
		},
	}

	return cmd
}

func runExpressions(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cmdCtx.Session.RefreshTypes(cmd.Context())
	return render.Write(cmd.OutOrStdout(), expressionsResult(cmdCtx.Session.Expressions()), cmdCtx.Format)
}

// expressionsResult lays expression metadata out as a result table.
func expressionsResult(exprs []session.Expression) *engine.Result {
	res := &engine.Result{
		Columns: []string{"alias", "expression", "type"},
		Types:   []string{"VARCHAR", "VARCHAR", "VARCHAR"},
		Rows:    make([][]any, 0, len(exprs)),
	}
	for _, e := range exprs {
		var typ any
		if e.Type != "" {
			typ = e.Type
		}
		res.Rows = append(res.Rows, []any{e.Alias, e.Body, typ})
	}
	return res
}
