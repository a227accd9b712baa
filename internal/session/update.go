package session

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapview/internal/notifier"
	"github.com/leapstack-labs/leapview/internal/viewconfig"
)

// UpdateAndRender merges u into the view configuration and re-renders the
// view. Only one update runs at a time; callers queue in arrival order and
// give up when ctx is done.
//
// The merged configuration is committed only when it renders. A stale
// update (BaseVersion set and behind the session) is applied on top of the
// current state and logged, or rejected with ErrStaleUpdate in strict mode.
func (s *Session) UpdateAndRender(ctx context.Context, u viewconfig.Update) error {
	_, err := s.ApplyUpdate(ctx, u)
	return err
}

// ApplyUpdate is UpdateAndRender reporting the version the update was
// committed at, or zero when nothing was committed. A committed update that could not be
// persisted returns its version together with an error wrapping
// ErrNotPersisted.
func (s *Session) ApplyUpdate(ctx context.Context, u viewconfig.Update) (uint64, error) {
	if s.renderer == nil {
		return 0, fmt.Errorf("session %s has no renderer", s.name)
	}
	if err := s.writer.Acquire(ctx, 1); err != nil {
		return 0, fmt.Errorf("waiting for session %s: %w", s.name, err)
	}
	defer s.writer.Release(1)

	s.mu.RLock()
	current, version := s.cfg.Clone(), s.version
	s.mu.RUnlock()

	if u.BaseVersion != 0 && u.BaseVersion != version {
		if s.strict {
			return 0, fmt.Errorf("%w: computed from version %d, session is at %d", ErrStaleUpdate, u.BaseVersion, version)
		}
		s.logger.Warn("applying stale view update",
			"base_version", u.BaseVersion, "version", version, "fields", u.Fields())
	}

	next := current.Apply(u)
	if err := next.Validate(); err != nil {
		return 0, fmt.Errorf("invalid view update: %w", err)
	}

	rows, err := s.renderer.Render(ctx, next)
	if err != nil {
		s.broadcast(version, 0, err)
		return 0, fmt.Errorf("failed to render view: %w", err)
	}

	s.mu.Lock()
	s.cfg = next
	s.version++
	version = s.version
	s.mu.Unlock()

	s.logger.Debug("view updated", "version", version, "fields", u.Fields(), "rows", rows)

	if s.prober != nil {
		s.refreshTypes(ctx, next, version)
	}
	s.broadcast(version, rows, nil)

	if s.persister != nil {
		if err := s.persister.Persist(ctx, s.name, version, next); err != nil {
			return version, fmt.Errorf("%w at version %d: %w", ErrNotPersisted, version, err)
		}
	}
	return version, nil
}

// Render re-renders the current view without changing it.
func (s *Session) Render(ctx context.Context) error {
	if s.renderer == nil {
		return fmt.Errorf("session %s has no renderer", s.name)
	}
	if err := s.writer.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for session %s: %w", s.name, err)
	}
	defer s.writer.Release(1)

	s.mu.RLock()
	cfg, version := s.cfg.Clone(), s.version
	s.mu.RUnlock()

	rows, err := s.renderer.Render(ctx, cfg)
	s.broadcast(version, rows, err)
	if err != nil {
		return fmt.Errorf("failed to render view: %w", err)
	}
	return nil
}

// Reload replaces the whole view configuration with cfg, typically after
// the view file changed on disk. It reports false when cfg matches the
// current view and nothing was applied.
func (s *Session) Reload(ctx context.Context, cfg viewconfig.ViewConfig) (bool, error) {
	s.mu.RLock()
	same := s.cfg.Equal(cfg)
	s.mu.RUnlock()
	if same {
		return false, nil
	}
	if err := s.UpdateAndRender(ctx, viewconfig.FullUpdate(cfg, 0)); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) broadcast(version uint64, rows int, err error) {
	if s.notifier == nil {
		return
	}
	s.notifier.Broadcast(notifier.Event{Session: s.name, Version: version, Rows: rows, Err: err})
}
