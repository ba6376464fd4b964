package tasks

import (
	"context"
	"time"
)

// Status is the lifecycle state of a background task. Transitions are
// monotonic: pending -> running -> one of the terminal states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// Snapshot is a point-in-time copy of a task record, safe to hand out.
type Snapshot struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Status       Status     `json:"status"`
	Progress     float64    `json:"progress"` // 0-100
	CurrentStep  string     `json:"current_step,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// ProgressFunc lets a running task report its progress and current step.
type ProgressFunc func(progress float64, step string)

// Func is a unit of work run by the Runner. It must honor ctx: returning
// after cancellation marks the task cancelled rather than failed.
type Func func(ctx context.Context, report ProgressFunc) error

// task is the runner's internal record.
type task struct {
	Snapshot

	cancel context.CancelFunc
	done   chan struct{}
}
