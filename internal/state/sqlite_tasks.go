package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateTask inserts a running task. Missing ID and start time are filled in.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *ApplyTask) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.StartedAt.IsZero() {
		task.StartedAt = time.Now().UTC()
	}
	if task.Status == "" {
		task.Status = TaskStatusRunning
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO apply_tasks (id, session, kind, locator, status, base_version, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Session, task.Kind, task.Locator, string(task.Status),
		int64(task.BaseVersion), formatTime(task.StartedAt), //nolint:gosec // versions stay far below MaxInt64
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// CompleteTask marks a task finished with the given status.
func (s *SQLiteStore) CompleteTask(ctx context.Context, id string, status TaskStatus, appliedVersion uint64, taskErr error) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if !status.Terminal() {
		return fmt.Errorf("cannot complete task %s with status %q", id, status)
	}

	var errMsg sql.NullString
	if taskErr != nil {
		errMsg = sql.NullString{String: taskErr.Error(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE apply_tasks SET status = ?, error = ?, applied_version = ?, completed_at = ?
		WHERE id = ?`,
		string(status), errMsg, int64(appliedVersion), formatTime(time.Now()), id, //nolint:gosec // see CreateTask
	)
	if err != nil {
		return fmt.Errorf("failed to complete task %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete task %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*ApplyTask, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, session, kind, locator, status, error, base_version, applied_version, started_at, completed_at
		FROM apply_tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return task, nil
}

// ListTasks returns tasks matching filter, most recent first.
func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]ApplyTask, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var (
		where []string
		args  []any
	)
	if filter.Session != "" {
		where = append(where, "session = ?")
		args = append(args, filter.Session)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT id, session, kind, locator, status, error, base_version, applied_version, started_at, completed_at
		FROM apply_tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []ApplyTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*ApplyTask, error) {
	var (
		task           ApplyTask
		status         string
		errMsg         sql.NullString
		baseVersion    int64
		appliedVersion int64
		startedAt      string
		completedAt    sql.NullString
	)
	if err := row.Scan(&task.ID, &task.Session, &task.Kind, &task.Locator, &status, &errMsg,
		&baseVersion, &appliedVersion, &startedAt, &completedAt); err != nil {
		return nil, err
	}

	task.Status = TaskStatus(status)
	task.Error = errMsg.String
	task.BaseVersion = uint64(baseVersion)       //nolint:gosec // stored from uint64
	task.AppliedVersion = uint64(appliedVersion) //nolint:gosec // stored from uint64

	started, err := parseTime(startedAt)
	if err != nil {
		return nil, err
	}
	task.StartedAt = started
	if completedAt.Valid {
		done, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		task.CompletedAt = &done
	}
	return &task, nil
}
