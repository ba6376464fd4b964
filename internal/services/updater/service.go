// Package updater drives the ingestion pipeline: teams, then players, then
// games, fetched from the rate-limited provider and upserted into the local
// store, with progress and error state tracked in the update status record.
package updater

import (
	"context"
	"errors"
	"fmt"

	"statsync/internal/models"
	"statsync/internal/services/status"
	"statsync/internal/services/tasks"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service is the update orchestrator.
type Service struct {
	db     *gorm.DB
	client ProviderClient
	status *status.Store
	runner *tasks.Runner
	season int
	log    *logrus.Entry
}

// NewService creates the orchestrator.
func NewService(db *gorm.DB, client ProviderClient, statusStore *status.Store, runner *tasks.Runner, season int, log *logrus.Entry) *Service {
	return &Service{
		db:     db,
		client: client,
		status: statusStore,
		runner: runner,
		season: season,
		log:    log,
	}
}

// TriggerUpdate launches the requested phases (all of them when empty) in a
// background task and returns the task ID. It rejects with
// ErrUpdateInProgress while a run is active; the check is advisory only.
func (s *Service) TriggerUpdate(ctx context.Context, phases []models.Phase) (string, error) {
	ordered := orderPhases(phases)
	if len(ordered) == 0 {
		ordered = models.AllPhases
	}

	snapshot, err := s.status.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	if snapshot.IsUpdating {
		return "", ErrUpdateInProgress
	}

	taskID := s.runner.Create("stats-update", func(taskCtx context.Context, report tasks.ProgressFunc) error {
		return s.runPhases(taskCtx, ordered, report)
	})

	s.log.WithFields(logrus.Fields{"task_id": taskID, "phases": ordered}).Info("Update triggered")
	return taskID, nil
}

// RequestCancellation sets the cooperative cancellation flag. The pipeline
// polls it between work units, so the current unit always finishes first.
// Always succeeds, even when no run is active.
func (s *Service) RequestCancellation(ctx context.Context) error {
	s.log.Info("Cancellation requested")
	return s.status.RequestCancellation(ctx)
}

// Status returns a snapshot of the update status record.
func (s *Service) Status(ctx context.Context) (*models.UpdateStatus, error) {
	return s.status.Snapshot(ctx)
}

// runPhases executes the phases in order. A phase failure or a cancellation
// stops the remaining phases; there is no best-effort continuation.
func (s *Service) runPhases(ctx context.Context, phases []models.Phase, report tasks.ProgressFunc) error {
	total := len(phases)

	for i, phase := range phases {
		report(float64(i)/float64(total)*100, fmt.Sprintf("updating %s", phase))

		var err error
		switch phase {
		case models.PhaseTeams:
			err = s.updateTeams(ctx)
		case models.PhasePlayers:
			err = s.updatePlayers(ctx)
		case models.PhaseGames:
			err = s.updateGames(ctx)
		}

		if errors.Is(err, errCancelled) {
			report(float64(i)/float64(total)*100, "cancelled")
			return nil
		}
		if err != nil {
			return err
		}
	}

	report(100, "done")
	return nil
}

// checkCancelled polls both cancellation channels between work units: the
// task context and the persisted cancellation flag.
func (s *Service) checkCancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	requested, err := s.status.CancellationRequested(ctx)
	if err != nil {
		return err
	}
	if requested {
		return errCancelled
	}
	return nil
}

// abortPhase unwinds a phase after a work unit failed or cancellation was
// observed. Cancellation leaves a non-error, non-updating record with the
// partial progress preserved; everything else records a phase error.
func (s *Service) abortPhase(ctx context.Context, phase models.Phase, cause error) error {
	// Status writes must survive a cancelled task context.
	writeCtx := context.WithoutCancel(ctx)

	if errors.Is(cause, errCancelled) || errors.Is(cause, context.Canceled) || ctx.Err() != nil {
		s.log.WithField("phase", phase).Info("Phase cancelled")
		if err := s.status.ClearUpdating(writeCtx); err != nil {
			s.log.WithField("phase", phase).Warnf("Failed to clear updating state: %v", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errCancelled
	}

	s.log.WithField("phase", phase).Warnf("Phase failed: %v", cause)
	if err := s.status.RecordError(writeCtx, phase, cause.Error()); err != nil {
		s.log.WithField("phase", phase).Errorf("Failed to record phase error: %v", err)
	}
	return cause
}

// orderPhases dedupes the requested set and puts it in canonical order.
func orderPhases(phases []models.Phase) []models.Phase {
	requested := make(map[models.Phase]bool, len(phases))
	for _, p := range phases {
		requested[p] = true
	}

	var ordered []models.Phase
	for _, p := range models.AllPhases {
		if requested[p] {
			ordered = append(ordered, p)
		}
	}
	return ordered
}
