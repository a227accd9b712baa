package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapview/internal/controller"
	"github.com/leapstack-labs/leapview/internal/expression"
	"github.com/leapstack-labs/leapview/internal/locator"
	"github.com/spf13/cobra"
)

// EditOptions holds options for the edit command.
type EditOptions struct {
	Alias string
}

// NewEditCommand creates the edit command.
func NewEditCommand() *cobra.Command {
	opts := &EditOptions{}

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit an expression column interactively",
		Long: `Open an interactive expression editor.

Type the expression over one or more lines, check it against the database
with .validate and apply it with .save. With --alias the editor opens on the
existing expression, shown for reference; type the replacement and .save
it, or .delete the expression. The column keeps its name unless the new
text starts with its own "// name" line.

Start the text with a "// name" line to name a new column.`,
		Example: `  # New expression
  leapview edit

  # Edit an existing expression
  leapview edit --alias fare_per_mile`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEdit(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Alias, "alias", "", "Alias of the expression to edit")

	return cmd
}

func runEdit(cmd *cobra.Command, opts *EditOptions) error {
	ctx := cmd.Context()

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

	view := cmdCtx.Session.GetViewConfig()
	panel, err := newEditPanel(editPanelConfig{
		Locator:  loc,
		Session:  cmdCtx.Session,
		Pipeline: cmdCtx.Pipeline,
		Prober:   cmdCtx.Engine,
		Table:    view.Table,
		Out:      cmd.OutOrStdout(),
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return err
	}
	if alias, ok := panel.ctrl.Alias(); ok {
		text, found := cmdCtx.Session.GetExpressionByAlias(alias)
		if !found {
			return fmt.Errorf("no expression with alias %q", alias)
		}
		panel.setCurrent(text)
	}

	completions := []readline.PrefixCompleterInterface{}
	for _, c := range editDotCommands {
		completions = append(completions, readline.PcItem(c))
	}
	if cols, err := cmdCtx.Engine.Columns(ctx, view.Table); err == nil {
		for _, c := range cols {
			completions = append(completions, readline.PcItem(c.Name))
		}
	} else {
		cmdCtx.Logger.Debug("column completion unavailable", "table", view.Table, "error", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          panel.prompt(),
		HistoryFile:     filepath.Join(filepath.Dir(cmdCtx.Cfg.StatePath), "edit_history"),
		AutoComplete:    readline.NewPrefixCompleter(completions...),
		InterruptPrompt: "^C",
		EOFPrompt:       ".cancel",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize editor: %w", err)
	}
	defer func() { _ = rl.Close() }()

	panel.printHeader()

	for !panel.done() {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			panel.clear()
			continue
		}
		if errors.Is(err, io.EOF) {
			panel.cancel()
			break
		}
		if err != nil {
			return err
		}
		if err := panel.handleLine(ctx, line); err != nil {
			return err
		}
		rl.SetPrompt(panel.prompt())
	}

	return panel.err
}

// editDotCommands are the commands understood by the edit panel.
var editDotCommands = []string{".validate", ".save", ".delete", ".cancel", ".show", ".clear", ".help"}

// ExpressionProber checks an expression against the view table and returns
// its result type. *engine.Engine implements it.
type ExpressionProber interface {
	ProbeExpression(ctx context.Context, table, text string) (string, error)
}

type editPanelConfig struct {
	Locator  locator.ColumnLocator
	Session  controller.Session
	Pipeline controller.Dispatcher
	Prober   ExpressionProber
	Table    string
	Out      io.Writer
	Logger   *slog.Logger
}

// editPanel hosts an edit controller behind a line editor. Plain lines
// are expression text; dot commands drive the controller.
type editPanel struct {
	ctrl   *controller.Controller
	prober ExpressionProber
	table  string
	out    io.Writer
	st     *styles
	logger *slog.Logger

	lines []string
	// current is the saved text of the edited expression, if any.
	current string
	closed  bool
	// err is the outcome of the apply started by the panel, if any.
	err error
}

func newEditPanel(cfg editPanelConfig) (*editPanel, error) {
	p := &editPanel{
		prober: cfg.Prober,
		table:  cfg.Table,
		out:    cfg.Out,
		st:     newStyles(),
		logger: cfg.Logger,
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}

	ctrl, err := controller.New(controller.Config{
		Locator:    cfg.Locator,
		OnClose:    func() { p.closed = true },
		Session:    cfg.Session,
		Dispatcher: cfg.Pipeline,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	if !ctrl.ShowEditor() {
		return nil, fmt.Errorf("no expression column selected")
	}
	p.ctrl = ctrl
	return p, nil
}

func (p *editPanel) setCurrent(text string) {
	p.current = text
}

// text returns the typed expression. Unnamed text typed for an existing
// expression keeps that expression's alias.
func (p *editPanel) text() string {
	text := strings.TrimSpace(strings.Join(p.lines, "\n"))
	if text == "" {
		return ""
	}
	if alias, ok := p.ctrl.Alias(); ok && expression.Body(text) == text {
		return expression.Named(alias, text)
	}
	return text
}

func (p *editPanel) done() bool {
	return p.closed || p.ctrl.State() == controller.StateClosed
}

func (p *editPanel) prompt() string {
	if len(p.lines) > 0 {
		return "  ...> "
	}
	if alias, ok := p.ctrl.Alias(); ok {
		return alias + "> "
	}
	return "new> "
}

func (p *editPanel) printHeader() {
	if alias, ok := p.ctrl.Alias(); ok {
		p.st.status(p.out, p.st.Title, "Editing expression %s", alias)
		p.printCurrent()
		p.st.status(p.out, p.st.Muted, "Type the replacement expression; it keeps the name %s unless it starts with a // line", alias)
	} else {
		p.st.status(p.out, p.st.Title, "New expression on %s", p.table)
	}
	p.st.status(p.out, p.st.Muted, "Type .help for commands, .save to apply, .cancel to leave")
}

func (p *editPanel) printCurrent() {
	if p.current == "" {
		return
	}
	p.st.status(p.out, p.st.Muted, "current:")
	for _, l := range strings.Split(p.current, "\n") {
		_, _ = fmt.Fprintln(p.out, "  "+l)
	}
}

func (p *editPanel) printText() {
	if len(p.lines) == 0 {
		p.st.status(p.out, p.st.Muted, "(empty)")
		p.printCurrent()
		return
	}
	for _, l := range p.lines {
		_, _ = fmt.Fprintln(p.out, "  "+l)
	}
}

func (p *editPanel) clear() {
	p.lines = nil
	p.ctrl.OnValidate(false)
}

func (p *editPanel) cancel() {
	p.ctrl.Close()
	p.st.status(p.out, p.st.Muted, "closed without changes")
}

// handleLine processes one line of input. The returned error is only set
// for failures of the panel itself; expression problems are reported on
// the output.
func (p *editPanel) handleLine(ctx context.Context, line string) error {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, ".") {
		if trimmed == "" && len(p.lines) == 0 {
			return nil
		}
		p.lines = append(p.lines, line)
		// The text changed since the last check.
		p.ctrl.OnValidate(false)
		return nil
	}

	switch strings.ToLower(strings.Fields(trimmed)[0]) {
	case ".validate":
		p.validate(ctx)
	case ".save":
		p.save(ctx)
	case ".delete":
		p.remove(ctx)
	case ".cancel", ".quit", ".exit":
		p.cancel()
	case ".show":
		p.printText()
		if p.ctrl.IsValid() {
			p.st.status(p.out, p.st.OK, "validated")
		} else {
			p.st.status(p.out, p.st.Warn, "not validated")
		}
	case ".clear":
		p.clear()
	case ".help":
		printEditHelp(p.out)
	default:
		p.st.status(p.out, p.st.Error, "unknown command: %s (type .help for commands)", trimmed)
	}
	return nil
}

func (p *editPanel) validate(ctx context.Context) {
	text := p.text()
	if text == "" {
		p.ctrl.OnValidate(false)
		p.st.status(p.out, p.st.Warn, "nothing to validate")
		return
	}
	typ, err := p.prober.ProbeExpression(ctx, p.table, text)
	p.ctrl.OnValidate(err == nil)
	if err != nil {
		p.st.status(p.out, p.st.Error, "invalid: %v", err)
		return
	}
	p.st.status(p.out, p.st.OK, "valid (%s)", typ)
}

func (p *editPanel) save(ctx context.Context) {
	text := p.text()
	if text == "" {
		p.st.status(p.out, p.st.Warn, "nothing to save")
		return
	}
	if !p.ctrl.CanSave() {
		p.st.status(p.out, p.st.Warn, "saving an expression that was not validated")
	}
	if err := p.ctrl.OnSave(text); err != nil {
		p.err = err
		p.st.status(p.out, p.st.Error, "save failed: %v", err)
		return
	}
	p.err = waitApplied(ctx, p.out, p.ctrl.LastTask())
}

func (p *editPanel) remove(ctx context.Context) {
	if err := p.ctrl.OnDelete(); err != nil {
		p.err = err
		p.st.status(p.out, p.st.Error, "delete failed: %v", err)
		return
	}
	if p.ctrl.LastTask() == nil {
		p.st.status(p.out, p.st.Muted, "discarded")
		return
	}
	p.err = waitApplied(ctx, p.out, p.ctrl.LastTask())
}

func printEditHelp(w io.Writer) {
	help := `
Commands:
  .validate   Check the expression against the view table
  .save       Apply the typed expression and close the editor
  .delete     Remove the edited expression and close the editor
  .cancel     Close the editor without changes
  .show       Print the typed expression
  .clear      Start over with an empty expression
  .help       Show this help message

Tips:
  - Start with a "// name" line to name the column
  - When editing, type the whole replacement; the saved text is only shown
  - Use arrow keys to navigate history
  - Tab completion works for commands and column names
`
	_, _ = fmt.Fprintln(w, help)
}
