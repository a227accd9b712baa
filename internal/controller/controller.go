// Package controller implements the expression-column edit controller.
//
// A Controller sits between an expression editor and a shared session. The
// column locator it is created with decides whether the editor is shown and
// whether a save creates or replaces an expression. Save and delete build
// their update, hand it to the apply pipeline and close the panel right
// away; the apply finishes in the background.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/leapview/internal/expression"
	"github.com/leapstack-labs/leapview/internal/locator"
	"github.com/leapstack-labs/leapview/internal/pipeline"
	"github.com/leapstack-labs/leapview/internal/viewconfig"
)

var (
	// ErrInvalidState is returned when an operation is invoked in a state
	// that should not allow it, such as a save with no column selected.
	ErrInvalidState = errors.New("invalid editor state")

	// ErrMissingExpression is returned when the alias of an existing
	// expression has no entry in the session metadata.
	ErrMissingExpression = errors.New("expression metadata missing")
)

// Session is the part of the shared session the controller reads from.
type Session interface {
	// Version returns the current session version.
	Version() uint64
	// GetViewConfig returns the current view configuration.
	GetViewConfig() viewconfig.ViewConfig
	// GetExpressionByAlias looks up the expression text of alias.
	GetExpressionByAlias(alias string) (string, bool)
	// CreateReplaceExpressionUpdate builds an update replacing the
	// expression of alias with text.
	CreateReplaceExpressionUpdate(ctx context.Context, alias, text string) (viewconfig.Update, error)
}

// Dispatcher starts apply tasks without waiting for them.
// *pipeline.Pipeline implements it.
type Dispatcher interface {
	Dispatch(kind pipeline.Kind, locator string, build pipeline.BuildFunc) *pipeline.Task
	DispatchUpdate(kind pipeline.Kind, locator string, u viewconfig.Update) *pipeline.Task
}

// Config configures a Controller.
type Config struct {
	// Locator is the column being edited. Nil means NoExpression.
	Locator locator.ColumnLocator
	// OnClose is called once per save or delete (optional).
	OnClose func()
	// Session is the shared session (required).
	Session Session
	// Dispatcher runs apply tasks (required).
	Dispatcher Dispatcher
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Controller handles the editor callbacks of one edit session.
type Controller struct {
	loc        locator.ColumnLocator
	onClose    func()
	session    Session
	dispatcher Dispatcher
	logger     *slog.Logger

	mu       sync.Mutex
	valid    bool
	state    State
	lastTask *pipeline.Task
}

// New creates a controller for the given column.
func New(cfg Config) (*Controller, error) {
	if cfg.Session == nil {
		return nil, fmt.Errorf("controller requires a session")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("controller requires a dispatcher")
	}

	loc := cfg.Locator
	if loc == nil {
		loc = locator.NoExpression{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	onClose := cfg.OnClose
	if onClose == nil {
		onClose = func() {}
	}

	c := &Controller{
		loc:        loc,
		onClose:    onClose,
		session:    cfg.Session,
		dispatcher: cfg.Dispatcher,
		logger:     logger.With("locator", loc.String()),
		state:      StateIdle,
	}
	if locator.ShowsEditor(loc) {
		c.state = StateEditing
	}
	return c, nil
}

// Locator returns the column the controller edits.
func (c *Controller) Locator() locator.ColumnLocator {
	return c.loc
}

// ShowEditor reports whether the expression editor should be displayed.
func (c *Controller) ShowEditor() bool {
	return locator.ShowsEditor(c.loc)
}

// Alias returns the alias the editor is pre-filled with.
func (c *Controller) Alias() (string, bool) {
	return locator.Alias(c.loc)
}

// OnValidate records the validity last reported by the editor.
func (c *Controller) OnValidate(isValid bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = isValid
}

// IsValid returns the validity last reported by the editor, false until the
// first report.
func (c *Controller) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid
}

// CanSave reports whether the save action should be enabled. OnSave itself
// does not consult it.
func (c *Controller) CanSave() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid && c.state == StateEditing
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastTask returns the handle of the most recently dispatched apply task,
// or nil when nothing was dispatched.
func (c *Controller) LastTask() *pipeline.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTask
}

// Close marks the panel closed from outside. OnClose is not called.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateClosed
}

// OnSave saves text as the expression of the selected column. The update
// is dispatched and the panel closed before the apply completes.
//
// With no column selected nothing is dispatched and ErrInvalidState is
// returned; the panel is closed all the same.
func (c *Controller) OnSave(text string) error {
	c.begin(StateSaving, "save")
	defer c.finish()

	var task *pipeline.Task
	switch loc := c.loc.(type) {
	case locator.NewExpression:
		// version before list: an apply in between marks the update stale
		version := c.session.Version()
		list := expression.Upsert(c.session.GetViewConfig().Expressions, text)
		task = c.dispatcher.DispatchUpdate(pipeline.KindSave, loc.String(),
			viewconfig.ExpressionsUpdate(list, version))

	case locator.ExistingExpression:
		alias := loc.Alias
		task = c.dispatcher.Dispatch(pipeline.KindReplace, loc.String(),
			func(ctx context.Context) (viewconfig.Update, error) {
				return c.session.CreateReplaceExpressionUpdate(ctx, alias, text)
			})

	case locator.NoExpression:
		c.logger.Error("save invoked with no expression column selected")
		return fmt.Errorf("%w: save with no expression column selected", ErrInvalidState)

	default:
		c.logger.Error("save invoked with unhandled locator", "type", fmt.Sprintf("%T", loc))
		return fmt.Errorf("%w: unhandled locator %T", ErrInvalidState, loc)
	}

	c.track(task)
	return nil
}

// OnDelete deletes the selected existing expression. The update is
// dispatched and the panel closed before the apply completes.
//
// An alias without session metadata is a broken invariant: it is logged,
// nothing is dispatched and an error wrapping ErrMissingExpression is
// returned. For any other locator OnDelete only closes the panel.
func (c *Controller) OnDelete() error {
	c.begin(StateDeleting, "delete")
	defer c.finish()

	switch loc := c.loc.(type) {
	case locator.ExistingExpression:
		text, ok := c.session.GetExpressionByAlias(loc.Alias)
		if !ok {
			c.logger.Error("delete invoked for alias without metadata", "alias", loc.Alias)
			return fmt.Errorf("%w: alias %q", ErrMissingExpression, loc.Alias)
		}
		version := c.session.Version()
		list := expression.Remove(c.session.GetViewConfig().Expressions, text)
		c.track(c.dispatcher.DispatchUpdate(pipeline.KindDelete, loc.String(),
			viewconfig.ExpressionsUpdate(list, version)))

	case locator.NewExpression, locator.NoExpression:
		c.logger.Debug("delete ignored, no saved expression selected")

	default:
		c.logger.Error("delete invoked with unhandled locator", "type", fmt.Sprintf("%T", loc))
		return fmt.Errorf("%w: unhandled locator %T", ErrInvalidState, loc)
	}
	return nil
}

func (c *Controller) begin(next State, op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		c.logger.Debug("editor callback after close", "op", op)
	}
	c.state = next
}

func (c *Controller) track(task *pipeline.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastTask = task
}

// finish closes the panel. onClose runs without the lock held so it may
// call back into the controller.
func (c *Controller) finish() {
	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()
	c.onClose()
}
