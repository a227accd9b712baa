// Package session holds the shared state of an analytic session: the live
// view configuration, its version and the expression metadata derived from
// it. Updates are serialized through a single writer and re-render the view.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/leapstack-labs/leapview/internal/expression"
	"github.com/leapstack-labs/leapview/internal/notifier"
	"github.com/leapstack-labs/leapview/internal/viewconfig"
	"golang.org/x/sync/semaphore"
)

// DefaultName is the session name used when none is configured.
const DefaultName = "default"

var (
	// ErrStaleUpdate is returned in strict mode for an update computed from
	// an older version of the session.
	ErrStaleUpdate = errors.New("stale view update")

	// ErrNotPersisted is wrapped by the error of an update that was
	// committed and rendered but could not be stored.
	ErrNotPersisted = errors.New("view update not persisted")

	// ErrUnknownAlias is returned when an alias has no expression.
	ErrUnknownAlias = errors.New("unknown expression alias")
)

// Renderer renders a view configuration and returns the rendered row count.
type Renderer interface {
	Render(ctx context.Context, cfg viewconfig.ViewConfig) (int, error)
}

// Prober reports the result type of each expression of a view, keyed by
// alias.
type Prober interface {
	ProbeTypes(ctx context.Context, cfg viewconfig.ViewConfig) (map[string]string, error)
}

// Persister stores an applied view configuration.
type Persister interface {
	Persist(ctx context.Context, session string, version uint64, cfg viewconfig.ViewConfig) error
}

// PersistFunc adapts a function to Persister.
type PersistFunc func(ctx context.Context, session string, version uint64, cfg viewconfig.ViewConfig) error

// Persist calls f.
func (f PersistFunc) Persist(ctx context.Context, session string, version uint64, cfg viewconfig.ViewConfig) error {
	return f(ctx, session, version, cfg)
}

// Options configures a Session.
type Options struct {
	// Name identifies the session in logs and history.
	Name string
	// Config is the initial view configuration.
	Config viewconfig.ViewConfig
	// Version is the initial version, typically restored from a snapshot.
	// Zero starts at 1.
	Version uint64
	// Renderer renders the view after each update (required).
	Renderer Renderer
	// Prober refreshes expression types after each update (optional).
	Prober Prober
	// Persister stores each applied configuration (optional).
	Persister Persister
	// Notifier receives a render event after each update (optional).
	Notifier *notifier.Notifier
	// StrictVersions rejects stale updates instead of applying them.
	StrictVersions bool
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Session is the shared state edited by expression controllers.
type Session struct {
	name      string
	renderer  Renderer
	prober    Prober
	persister Persister
	notifier  *notifier.Notifier
	strict    bool
	logger    *slog.Logger

	// writer admits one update at a time, in acquisition order.
	writer *semaphore.Weighted

	mu      sync.RWMutex
	cfg     viewconfig.ViewConfig
	version uint64
	types   map[string]string
}

// New creates a session at opts.Version, or 1 when unset.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	name := opts.Name
	if name == "" {
		name = DefaultName
	}
	cfg := opts.Config.Clone()
	cfg.Expressions = expression.Normalize(cfg.Expressions)
	version := opts.Version
	if version == 0 {
		version = 1
	}

	return &Session{
		name:      name,
		renderer:  opts.Renderer,
		prober:    opts.Prober,
		persister: opts.Persister,
		notifier:  opts.Notifier,
		strict:    opts.StrictVersions,
		logger:    logger.With("session", name),
		writer:    semaphore.NewWeighted(1),
		cfg:       cfg,
		version:   version,
		types:     make(map[string]string),
	}
}

// Name returns the session name.
func (s *Session) Name() string {
	return s.name
}

// Version returns the current version. It increases by one with every
// applied update.
func (s *Session) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// GetViewConfig returns a copy of the current view configuration.
func (s *Session) GetViewConfig() viewconfig.ViewConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Notifier returns the notifier render events are sent to, if any.
func (s *Session) Notifier() *notifier.Notifier {
	return s.notifier
}

// GetExpressionByAlias returns the expression text stored under alias.
func (s *Session) GetExpressionByAlias(alias string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return expression.FindByAlias(s.cfg.Expressions, alias)
}

// Expression is the metadata of one expression column.
type Expression struct {
	Alias string
	Text  string
	Body  string
	// Type is the probed result type, empty when unknown.
	Type string
}

// Expressions returns the metadata of all expressions in view order.
func (s *Session) Expressions() []Expression {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Expression, 0, len(s.cfg.Expressions))
	for _, text := range s.cfg.Expressions {
		alias := expression.Alias(text)
		out = append(out, Expression{
			Alias: alias,
			Text:  text,
			Body:  expression.Body(text),
			Type:  s.types[alias],
		})
	}
	return out
}

// ExpressionType returns the probed type of the expression under alias.
func (s *Session) ExpressionType(alias string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[alias]
	return t, ok
}

// CreateReplaceExpressionUpdate builds an update replacing the expression
// under alias with text, keeping its position in the list.
func (s *Session) CreateReplaceExpressionUpdate(ctx context.Context, alias, text string) (viewconfig.Update, error) {
	if err := ctx.Err(); err != nil {
		return viewconfig.Update{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	list, ok := expression.ReplaceByAlias(s.cfg.Expressions, alias, text)
	if !ok {
		return viewconfig.Update{}, fmt.Errorf("%w %q", ErrUnknownAlias, alias)
	}
	return viewconfig.ExpressionsUpdate(list, s.version), nil
}

// RefreshTypes re-probes the expression types of the current view.
func (s *Session) RefreshTypes(ctx context.Context) {
	if s.prober == nil {
		return
	}
	s.mu.RLock()
	cfg, version := s.cfg.Clone(), s.version
	s.mu.RUnlock()

	s.refreshTypes(ctx, cfg, version)
}

func (s *Session) refreshTypes(ctx context.Context, cfg viewconfig.ViewConfig, version uint64) {
	types, err := s.prober.ProbeTypes(ctx, cfg)
	if err != nil {
		s.logger.Warn("some expression types could not be probed", "version", version, "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version {
		return
	}
	s.types = maps.Clone(types)
	if s.types == nil {
		s.types = make(map[string]string)
	}
}
