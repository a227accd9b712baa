package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/leapview/internal/viewconfig"
	"gopkg.in/yaml.v3"
)

// SaveSnapshot stores the view configuration of session at version.
// Saving the same version twice keeps the latest configuration.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, session string, version uint64, cfg viewconfig.ViewConfig) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO view_snapshots (session, version, config, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session, version) DO UPDATE SET config = excluded.config, created_at = excluded.created_at`,
		session, int64(version), string(data), formatTime(time.Now()), //nolint:gosec // see CreateTask
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the highest-version snapshot of session.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context, session string) (*ViewSnapshot, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var (
		version   int64
		config    string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT version, config, created_at FROM view_snapshots
		WHERE session = ? ORDER BY version DESC LIMIT 1`, session,
	).Scan(&version, &config, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot for session %s: %w", session, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	cfg, err := viewconfig.Parse([]byte(config))
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	created, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &ViewSnapshot{
		Session:   session,
		Version:   uint64(version), //nolint:gosec // stored from uint64
		Config:    cfg,
		CreatedAt: created,
	}, nil
}
