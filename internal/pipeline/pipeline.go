// Package pipeline runs apply-and-render tasks in the background.
//
// Every dispatched task gets a handle kept in the pipeline's registry until
// it finishes, so callers that do not wait for it can still observe,
// cancel or drain it. Failures never reach the dispatcher: they are logged,
// recorded and published on Failures.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapview/internal/state"
	"github.com/leapstack-labs/leapview/internal/viewconfig"
)

// ErrClosed is the error of tasks dispatched after Close.
var ErrClosed = errors.New("pipeline closed")

// DefaultFailureBuffer is the capacity of the failure channel.
const DefaultFailureBuffer = 16

// Applier merges an update into a session and re-renders it.
type Applier interface {
	UpdateAndRender(ctx context.Context, u viewconfig.Update) error
}

// Committer is implemented by appliers that report the version an update
// was committed at. An update can be committed and still return an error,
// for example when storing it failed; such a task succeeds with a warning.
type Committer interface {
	ApplyUpdate(ctx context.Context, u viewconfig.Update) (uint64, error)
}

// Versioned is implemented by appliers that expose their current version.
// It is read after the apply, so with concurrent tasks a Committer reports
// the applied version more precisely.
type Versioned interface {
	Version() uint64
}

// Recorder persists the lifecycle of tasks. state.Store satisfies it.
type Recorder interface {
	CreateTask(ctx context.Context, task *state.ApplyTask) error
	CompleteTask(ctx context.Context, id string, status state.TaskStatus, appliedVersion uint64, taskErr error) error
}

// BuildFunc produces the update a task applies. It runs on the task's
// goroutine with the task's context.
type BuildFunc func(ctx context.Context) (viewconfig.Update, error)

// Failure describes a task that finished with an error.
type Failure struct {
	TaskID  string
	Kind    Kind
	Locator string
	Err     error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s task %s (%s): %v", f.Kind, f.TaskID, f.Locator, f.Err)
}

// Options configures a Pipeline.
type Options struct {
	// Session names the session tasks are recorded under.
	Session string
	// CancelSuperseded cancels in-flight tasks when a new one is dispatched.
	CancelSuperseded bool
	// Recorder stores task history (optional).
	Recorder Recorder
	// FailureBuffer is the failure channel capacity; 0 uses
	// DefaultFailureBuffer.
	FailureBuffer int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Pipeline dispatches apply tasks against one applier.
type Pipeline struct {
	applier  Applier
	opts     Options
	logger   *slog.Logger
	failures chan Failure

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	tasks  map[string]*Task
	closed bool
}

// New creates a pipeline applying updates through applier.
func New(applier Applier, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	buf := opts.FailureBuffer
	if buf <= 0 {
		buf = DefaultFailureBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		applier:  applier,
		opts:     opts,
		logger:   logger,
		failures: make(chan Failure, buf),
		ctx:      ctx,
		cancel:   cancel,
		tasks:    make(map[string]*Task),
	}
}

// Failures returns the channel failed tasks are published on. Failures are
// dropped when nobody drains it and it is full. It is closed by Close.
func (p *Pipeline) Failures() <-chan Failure {
	return p.failures
}

// DispatchUpdate starts a task applying a ready update.
func (p *Pipeline) DispatchUpdate(kind Kind, locator string, u viewconfig.Update) *Task {
	return p.Dispatch(kind, locator, func(context.Context) (viewconfig.Update, error) {
		return u, nil
	})
}

// Dispatch starts a task that builds an update and applies it, and returns
// its handle without waiting.
func (p *Pipeline) Dispatch(kind Kind, locator string, build BuildFunc) *Task {
	t := newTask(p.ctx, uuid.New().String(), kind, locator)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		t.finish(StatusCancelled, ErrClosed, nil, 0)
		p.logger.Warn("apply task dispatched after close", "task", t.id, "kind", kind)
		return t
	}
	if p.opts.CancelSuperseded {
		for _, other := range p.tasks {
			p.logger.Debug("cancelling superseded apply task", "task", other.id, "by", t.id)
			other.Cancel()
		}
	}
	p.tasks[t.id] = t
	p.mu.Unlock()

	p.logger.Debug("apply task dispatched", "task", t.id, "kind", kind, "locator", locator)
	go p.run(t, build)
	return t
}

func (p *Pipeline) run(t *Task, build BuildFunc) {
	applied, err := p.execute(t, build)

	status := StatusSucceeded
	switch {
	case err == nil:
	case applied > 0:
		// committed, the error only concerns what came after
	case t.ctx.Err() != nil && errors.Is(err, context.Canceled):
		status = StatusCancelled
	default:
		status = StatusFailed
	}

	p.complete(t, status, applied, err)

	switch {
	case status == StatusFailed:
		p.logger.Error("apply task failed",
			"task", t.id, "kind", t.kind, "locator", t.locator, "error", err)
		p.publish(Failure{TaskID: t.id, Kind: t.kind, Locator: t.locator, Err: err})
	case status == StatusCancelled:
		p.logger.Info("apply task cancelled", "task", t.id, "kind", t.kind, "locator", t.locator)
	case err != nil:
		p.logger.Warn("apply task succeeded with warning",
			"task", t.id, "kind", t.kind, "version", applied, "error", err)
	default:
		p.logger.Debug("apply task succeeded", "task", t.id, "kind", t.kind, "version", applied)
	}

	if status == StatusSucceeded {
		t.settle(status, nil, err, applied)
	} else {
		t.settle(status, err, nil, applied)
	}

	// unregister before Done closes so Wait never sees a finished task
	p.mu.Lock()
	delete(p.tasks, t.id)
	p.mu.Unlock()

	t.markDone()
}

// execute builds and applies the update, turning panics into errors. It
// returns the version the update was committed at, zero when unknown or
// not committed.
func (p *Pipeline) execute(t *Task, build BuildFunc) (applied uint64, err error) {
	recorded := false
	defer func() {
		if r := recover(); r != nil {
			applied, err = 0, fmt.Errorf("apply task panicked: %v", r)
		}
		if !recorded {
			p.record(t, 0)
		}
	}()

	u, err := build(t.ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to build view update: %w", err)
	}
	t.setBaseVersion(u.BaseVersion)
	p.record(t, u.BaseVersion)
	recorded = true

	if c, ok := p.applier.(Committer); ok {
		return c.ApplyUpdate(t.ctx, u)
	}
	if err := p.applier.UpdateAndRender(t.ctx, u); err != nil {
		return 0, err
	}
	if v, ok := p.applier.(Versioned); ok {
		return v.Version(), nil
	}
	return 0, nil
}

func (p *Pipeline) record(t *Task, baseVersion uint64) {
	if p.opts.Recorder == nil {
		return
	}
	rec := &state.ApplyTask{
		ID:          t.id,
		Session:     p.opts.Session,
		Kind:        string(t.kind),
		Locator:     t.locator,
		Status:      StatusRunning,
		BaseVersion: baseVersion,
		StartedAt:   t.startedAt,
	}
	if err := p.opts.Recorder.CreateTask(context.WithoutCancel(t.ctx), rec); err != nil {
		p.logger.Warn("failed to record apply task", "task", t.id, "error", err)
	}
}

func (p *Pipeline) complete(t *Task, status Status, applied uint64, taskErr error) {
	if p.opts.Recorder == nil {
		return
	}
	if err := p.opts.Recorder.CompleteTask(context.WithoutCancel(t.ctx), t.id, status, applied, taskErr); err != nil {
		p.logger.Warn("failed to record apply task result", "task", t.id, "error", err)
	}
}

func (p *Pipeline) publish(f Failure) {
	select {
	case p.failures <- f:
	default:
		p.logger.Warn("failure channel full, dropping failure", "task", f.TaskID)
	}
}

// InFlight returns the handles of unfinished tasks, oldest first.
func (p *Pipeline) InFlight() []*Task {
	p.mu.Lock()
	defer p.mu.Unlock()

	tasks := make([]*Task, 0, len(p.tasks))
	for _, t := range p.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].startedAt.Before(tasks[j].startedAt)
	})
	return tasks
}

// Wait blocks until no task is in flight or ctx is done. Tasks dispatched
// while waiting are waited for too.
func (p *Pipeline) Wait(ctx context.Context) error {
	for {
		tasks := p.InFlight()
		if len(tasks) == 0 {
			return nil
		}
		for _, t := range tasks {
			select {
			case <-t.Done():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Close cancels in-flight tasks, waits for them to finish and closes the
// failure channel. Tasks dispatched afterwards fail with ErrClosed.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	_ = p.Wait(context.Background())
	close(p.failures)
}
