// Package scheduler triggers full pipeline runs on a cron schedule and
// publishes the next run time to the update status record.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"statsync/internal/models"
	"statsync/internal/services/status"
	"statsync/internal/services/updater"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Trigger is the slice of the orchestrator the scheduler drives.
type Trigger interface {
	TriggerUpdate(ctx context.Context, phases []models.Phase) (string, error)
}

// Service runs the configured update schedule.
type Service struct {
	cron    *cron.Cron
	trigger Trigger
	status  *status.Store
	spec    string
	entryID cron.EntryID
	log     *logrus.Entry
}

// NewService creates the scheduler. An empty schedule disables it.
func NewService(trigger Trigger, statusStore *status.Store, schedule string, log *logrus.Entry) *Service {
	return &Service{
		cron:    cron.New(cron.WithSeconds()),
		trigger: trigger,
		status:  statusStore,
		spec:    schedule,
		log:     log,
	}
}

// Start registers the schedule and starts the cron loop.
func (s *Service) Start() error {
	if s.spec == "" {
		s.log.Info("No update schedule configured, scheduler disabled")
		return nil
	}

	normalized, err := normalizeCron(s.spec)
	if err != nil {
		return fmt.Errorf("invalid update schedule %q: %w", s.spec, err)
	}

	entryID, err := s.cron.AddFunc(normalized, s.runScheduledUpdate)
	if err != nil {
		return fmt.Errorf("failed to schedule update: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.publishNextRun()
	s.log.WithField("schedule", normalized).Info("Scheduler started")
	return nil
}

// Stop stops the cron loop and waits for a running trigger callback to
// return. It does not wait for the triggered background task.
func (s *Service) Stop() {
	if s.spec == "" {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Scheduler stopped")
}

func (s *Service) runScheduledUpdate() {
	taskID, err := s.trigger.TriggerUpdate(context.Background(), nil)
	switch {
	case errors.Is(err, updater.ErrUpdateInProgress):
		s.log.Warn("Scheduled update skipped: an update is already in progress")
	case err != nil:
		s.log.Errorf("Scheduled update failed to start: %v", err)
	default:
		s.log.WithField("task_id", taskID).Info("Scheduled update started")
	}

	s.publishNextRun()
}

// publishNextRun records the schedule's next fire time on the status record
// so clients can show it.
func (s *Service) publishNextRun() {
	entry := s.cron.Entry(s.entryID)
	if entry.Next.IsZero() {
		return
	}
	if err := s.status.SetNextScheduledUpdate(context.Background(), entry.Next); err != nil {
		s.log.Warnf("Failed to record next scheduled update: %v", err)
	}
}

// normalizeCron converts 5-field cron to 6-field format by prepending seconds.
// 5-field: "minute hour day month dow" (standard cron)
// 6-field: "second minute hour day month dow" (robfig/cron with WithSeconds)
func normalizeCron(cronExpr string) (string, error) {
	cronExpr = strings.TrimSpace(cronExpr)

	fields := strings.Fields(cronExpr)
	if len(fields) == 6 {
		parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(cronExpr); err == nil {
			return cronExpr, nil
		}
	}

	if len(fields) == 5 {
		if _, err := cron.ParseStandard(cronExpr); err != nil {
			return "", fmt.Errorf("invalid 5-field cron expression: %w", err)
		}
		// Prepend seconds (0 = run at 0 seconds of the minute)
		return "0 " + cronExpr, nil
	}

	return "", fmt.Errorf("invalid cron expression: expected 5 or 6 fields, got %d", len(fields))
}
