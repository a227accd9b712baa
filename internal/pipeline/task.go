package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/leapstack-labs/leapview/internal/state"
)

// Kind is the edit operation an apply task carries out.
type Kind string

// Task kinds.
const (
	KindSave    Kind = "save"
	KindReplace Kind = "replace"
	KindDelete  Kind = "delete"
)

// Status is the lifecycle status of a task.
type Status = state.TaskStatus

// Task statuses.
const (
	StatusRunning   = state.TaskStatusRunning
	StatusSucceeded = state.TaskStatusSucceeded
	StatusFailed    = state.TaskStatusFailed
	StatusCancelled = state.TaskStatusCancelled
)

// Task is the handle of one dispatched apply-and-render unit of work.
type Task struct {
	id        string
	kind      Kind
	locator   string
	startedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu             sync.Mutex
	status         Status
	err            error
	warning        error
	baseVersion    uint64
	appliedVersion uint64
	completedAt    time.Time
}

func newTask(parent context.Context, id string, kind Kind, locator string) *Task {
	ctx, cancel := context.WithCancel(parent)
	return &Task{
		id:        id,
		kind:      kind,
		locator:   locator,
		startedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		status:    StatusRunning,
	}
}

// ID returns the task id.
func (t *Task) ID() string { return t.id }

// Kind returns the task kind.
func (t *Task) Kind() Kind { return t.kind }

// Locator returns the locator of the column the task edits.
func (t *Task) Locator() string { return t.locator }

// StartedAt returns when the task was dispatched.
func (t *Task) StartedAt() time.Time { return t.startedAt }

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel asks the task to stop. A task that already finished is unaffected.
func (t *Task) Cancel() { t.cancel() }

// Status returns the current status.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Err returns the error the task finished with; nil while running or on
// success.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Warning returns the error of a task that applied its update but failed
// afterwards, such as when storing the view failed.
func (t *Task) Warning() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.warning
}

// AppliedVersion returns the session version after a successful apply.
func (t *Task) AppliedVersion() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appliedVersion
}

// Wait blocks until the task finishes or ctx is done and returns the task
// error.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) setBaseVersion(v uint64) {
	t.mu.Lock()
	t.baseVersion = v
	t.mu.Unlock()
}

func (t *Task) finish(status Status, err, warning error, appliedVersion uint64) {
	t.settle(status, err, warning, appliedVersion)
	t.markDone()
}

// settle stores the outcome; Done stays open until markDone.
func (t *Task) settle(status Status, err, warning error, appliedVersion uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
	t.err = err
	t.warning = warning
	t.appliedVersion = appliedVersion
	t.completedAt = time.Now()
}

func (t *Task) markDone() {
	t.cancel()
	close(t.done)
}

// BaseVersion returns the session version the task's update was built from.
func (t *Task) BaseVersion() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.baseVersion
}

// CompletedAt returns when the task finished; zero while running.
func (t *Task) CompletedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completedAt
}
