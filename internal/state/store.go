// Package state persists the history of apply tasks and the view snapshots
// they produced, using SQLite.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/leapstack-labs/leapview/internal/viewconfig"
)

// ErrNotFound is returned when a task or snapshot does not exist.
var ErrNotFound = errors.New("not found")

// TaskStatus is the lifecycle status of an apply task.
type TaskStatus string

// Task statuses.
const (
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed || s == TaskStatusCancelled
}

// ApplyTask is the persisted record of one apply-and-render task.
type ApplyTask struct {
	ID             string
	Session        string
	Kind           string
	Locator        string
	Status         TaskStatus
	Error          string
	BaseVersion    uint64
	AppliedVersion uint64
	StartedAt      time.Time
	CompletedAt    *time.Time
}

// Duration returns how long the task ran, or zero while it is running.
func (t ApplyTask) Duration() time.Duration {
	if t.CompletedAt == nil {
		return 0
	}
	return t.CompletedAt.Sub(t.StartedAt)
}

// TaskFilter narrows ListTasks. Zero values match everything.
type TaskFilter struct {
	Session string
	Status  TaskStatus
	Limit   int
}

// ViewSnapshot is the view configuration of a session at a version.
type ViewSnapshot struct {
	Session   string
	Version   uint64
	Config    viewconfig.ViewConfig
	CreatedAt time.Time
}

// Store records apply tasks and view snapshots.
type Store interface {
	CreateTask(ctx context.Context, task *ApplyTask) error
	CompleteTask(ctx context.Context, id string, status TaskStatus, appliedVersion uint64, taskErr error) error
	GetTask(ctx context.Context, id string) (*ApplyTask, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]ApplyTask, error)

	SaveSnapshot(ctx context.Context, session string, version uint64, cfg viewconfig.ViewConfig) error
	LatestSnapshot(ctx context.Context, session string) (*ViewSnapshot, error)

	Close() error
}
