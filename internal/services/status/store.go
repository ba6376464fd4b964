// Package status owns the update status state machine: a single persisted
// record with global run state plus fixed-shape per-phase progress.
//
// Per phase the states are NotStarted -> InProgress(0..99%) -> Completed, or
// InProgress -> Failed. The global is_updating flag is true while any phase
// is active.
package status

import (
	"context"
	"time"

	"statsync/internal/models"
)

// Store applies state machine transitions to the persisted record.
type Store struct {
	repo Repository
	now  func() time.Time
}

// NewStore creates a Store over the given repository.
func NewStore(repo Repository) *Store {
	return &Store{
		repo: repo,
		now:  time.Now,
	}
}

// Initialize marks a phase as started: the global state enters an updating
// run and the phase sub-state is reset to zero progress.
func (s *Store) Initialize(ctx context.Context, phase models.Phase) error {
	record, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	record.IsUpdating = true
	record.CurrentPhase = string(phase)
	record.CurrentDetail = ""
	record.CancellationRequested = false
	record.LastError = ""
	record.LastErrorTime = nil

	*record.PhaseState(phase) = models.PhaseStatus{
		StartTime: &now,
	}

	return s.repo.Save(ctx, record)
}

// UpdateProgress records that processed of total work units are done.
// Percent is floored; a zero total yields zero percent.
func (s *Store) UpdateProgress(ctx context.Context, phase models.Phase, processed, total int, detail string) error {
	record, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}

	percent := 0
	if total > 0 {
		percent = processed * 100 / total
	}
	if percent > 100 {
		percent = 100
	}

	ps := record.PhaseState(phase)
	ps.PercentComplete = percent
	ps.Updated = percent == 100 && ps.LastError == ""
	record.CurrentDetail = detail

	return s.repo.Save(ctx, record)
}

// Finalize marks a phase as fully completed. The global run state is
// cleared only when no other phase is still in progress (or everything is
// complete), so a multi-phase run keeps is_updating asserted between its
// phases.
func (s *Store) Finalize(ctx context.Context, phase models.Phase) error {
	record, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	ps := record.PhaseState(phase)
	ps.Updated = true
	ps.PercentComplete = 100
	ps.LastError = ""
	ps.LastUpdate = &now

	record.LastSuccessfulUpdate = &now

	otherInProgress := false
	for _, p := range models.AllPhases {
		if p != phase && record.PhaseState(p).InProgress() {
			otherInProgress = true
			break
		}
	}
	if !otherInProgress || record.AllComplete() {
		record.IsUpdating = false
		record.CurrentPhase = ""
		record.CurrentDetail = ""
	}

	return s.repo.Save(ctx, record)
}

// RecordError marks a phase as failed and ends the run. Partial progress in
// other phases is preserved; only error state is added.
func (s *Store) RecordError(ctx context.Context, phase models.Phase, message string) error {
	record, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	ps := record.PhaseState(phase)
	ps.Updated = false
	ps.LastError = message

	record.IsUpdating = false
	record.CurrentPhase = ""
	record.CurrentDetail = ""
	record.LastError = message
	record.LastErrorTime = &now

	return s.repo.Save(ctx, record)
}

// RequestCancellation sets the cooperative cancellation flag. It always
// succeeds, even when no run is active.
func (s *Store) RequestCancellation(ctx context.Context) error {
	record, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	record.CancellationRequested = true
	return s.repo.Save(ctx, record)
}

// CancellationRequested reads the cooperative cancellation flag. The
// pipeline polls this between work units; cancellation never preempts a
// unit mid-flight.
func (s *Store) CancellationRequested(ctx context.Context) (bool, error) {
	record, err := s.repo.Load(ctx)
	if err != nil {
		return false, err
	}
	return record.CancellationRequested, nil
}

// ClearUpdating ends a run without recording success or failure. Used for
// cancellation unwind: per-phase progress stays as it was.
func (s *Store) ClearUpdating(ctx context.Context) error {
	record, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	record.IsUpdating = false
	record.CurrentPhase = ""
	record.CurrentDetail = ""
	record.CancellationRequested = false
	return s.repo.Save(ctx, record)
}

// SetNextScheduledUpdate mirrors the scheduler's next activation time into
// the status record.
func (s *Store) SetNextScheduledUpdate(ctx context.Context, t time.Time) error {
	record, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	record.NextScheduledUpdate = &t
	return s.repo.Save(ctx, record)
}

// Snapshot returns a read-only copy of the status record.
func (s *Store) Snapshot(ctx context.Context) (*models.UpdateStatus, error) {
	return s.repo.Load(ctx)
}
