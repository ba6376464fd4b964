// Package tasks is a generic background task runner: it launches units of
// work concurrently, tracks their lifecycle, exposes cancellation, and reaps
// old finished work. It knows nothing about what the work does.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrTaskNotFound is returned for lookups of unknown task IDs.
var ErrTaskNotFound = errors.New("task not found")

// DefaultRetention is how many terminal tasks are kept before the reaper
// starts discarding the oldest ones.
const DefaultRetention = 50

const reapInterval = 30 * time.Second

// Runner launches and tracks background tasks.
type Runner struct {
	mu        sync.RWMutex
	taskStore map[string]*task
	retention int
	log       *logrus.Entry

	baseCtx    context.Context
	cancelBase context.CancelFunc
	reaperDone chan struct{}
}

// NewRunner creates a Runner and starts its reaper. Stop must be called to
// shut it down.
func NewRunner(retention int, log *logrus.Entry) *Runner {
	if retention <= 0 {
		retention = DefaultRetention
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	r := &Runner{
		taskStore:  make(map[string]*task),
		retention:  retention,
		log:        log,
		baseCtx:    baseCtx,
		cancelBase: cancelBase,
		reaperDone: make(chan struct{}),
	}

	go r.reapLoop()
	return r
}

// Create launches fn in the background and returns the new task's ID
// immediately.
func (r *Runner) Create(name string, fn Func) string {
	ctx, cancel := context.WithCancel(r.baseCtx)

	t := &task{
		Snapshot: Snapshot{
			ID:        uuid.New().String(),
			Name:      name,
			Status:    StatusPending,
			CreatedAt: time.Now(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	r.mu.Lock()
	r.taskStore[t.ID] = t
	r.mu.Unlock()

	go r.run(ctx, t, fn)

	return t.ID
}

// Cancel signals a task's cancellation token and waits for the task to
// unwind. Cancelling a task that already finished is a no-op.
func (r *Runner) Cancel(id string) error {
	r.mu.RLock()
	t, exists := r.taskStore[id]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	t.cancel()
	<-t.done
	return nil
}

// Get returns a snapshot of one task.
func (r *Runner) Get(id string) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.taskStore[id]
	if !exists {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t.Snapshot, nil
}

// List returns snapshots of all tracked tasks, newest first.
func (r *Runner) List() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshots := make([]Snapshot, 0, len(r.taskStore))
	for _, t := range r.taskStore {
		snapshots = append(snapshots, t.Snapshot)
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
	return snapshots
}

// Stop cancels every running task and stops the reaper. It does not wait
// for task functions to unwind.
func (r *Runner) Stop() {
	r.cancelBase()
	<-r.reaperDone
}

// run executes the task function and records its outcome.
func (r *Runner) run(ctx context.Context, t *task, fn Func) {
	defer close(t.done)
	defer func() {
		if rec := recover(); rec != nil {
			r.finish(t, StatusFailed, fmt.Sprintf("panic: %v", rec))
			r.log.WithField("task_id", t.ID).Errorf("Task panic recovered: %v", rec)
		}
	}()

	now := time.Now()
	r.mu.Lock()
	t.Status = StatusRunning
	t.StartedAt = &now
	r.mu.Unlock()

	report := func(progress float64, step string) {
		r.mu.Lock()
		if t.Status == StatusRunning {
			if progress < 0 {
				progress = 0
			} else if progress > 100 {
				progress = 100
			}
			t.Progress = progress
			t.CurrentStep = step
		}
		r.mu.Unlock()
	}

	err := fn(ctx, report)

	switch {
	case ctx.Err() != nil:
		r.finish(t, StatusCancelled, "")
		r.log.WithFields(logrus.Fields{"task_id": t.ID, "name": t.Name}).Info("Task cancelled")
	case err != nil:
		r.finish(t, StatusFailed, err.Error())
		r.log.WithFields(logrus.Fields{"task_id": t.ID, "name": t.Name}).Warnf("Task failed: %v", err)
	default:
		r.finish(t, StatusCompleted, "")
		r.log.WithFields(logrus.Fields{"task_id": t.ID, "name": t.Name}).Info("Task completed")
	}
}

func (r *Runner) finish(t *task, status Status, errorMessage string) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if t.Status.Terminal() {
		return
	}
	t.Status = status
	t.CompletedAt = &now
	t.ErrorMessage = errorMessage
	if status == StatusCompleted {
		t.Progress = 100
	}
}

func (r *Runner) reapLoop() {
	defer close(r.reaperDone)

	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.baseCtx.Done():
			return
		case <-ticker.C:
			r.reap()
		}
	}
}

// reap drops terminal tasks beyond the retention bound, oldest first.
func (r *Runner) reap() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var terminal []*task
	for _, t := range r.taskStore {
		if t.Status.Terminal() {
			terminal = append(terminal, t)
		}
	}
	if len(terminal) <= r.retention {
		return
	}

	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].CompletedAt.Before(*terminal[j].CompletedAt)
	})

	excess := len(terminal) - r.retention
	for _, t := range terminal[:excess] {
		delete(r.taskStore, t.ID)
	}
	r.log.WithField("reaped", excess).Debug("Reaped old finished tasks")
}
