package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReminderDispatcher runs one reminder sweep
type ReminderDispatcher interface {
	DispatchDueReminders(ctx context.Context, now time.Time) (*DispatchResult, error)
}

// CronService manages scheduled background jobs
type CronService struct {
	cron       *cron.Cron
	dispatcher ReminderDispatcher
	schedule   string
	logger     *logrus.Logger
}

// NewCronService creates a new CronService. schedule uses the six-field
// format with seconds, e.g. "0 */1 * * * *" for every minute.
func NewCronService(dispatcher ReminderDispatcher, schedule string, logger *logrus.Logger) *CronService {
	return &CronService{
		// SkipIfStillRunning keeps sweeps from overlapping
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		dispatcher: dispatcher,
		schedule:   schedule,
		logger:     logger,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	if _, err := s.cron.AddFunc(s.schedule, s.dispatchRemindersJob); err != nil {
		return fmt.Errorf("failed to schedule reminder dispatch job: %w", err)
	}
	s.logger.WithField("schedule", s.schedule).Info("✓ Scheduled: Dispatch due reminders")

	s.cron.Start()
	s.logger.Info("✓ Cron service started successfully")
	return nil
}

// Stop stops all cron jobs and waits for a running job to finish
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("✓ Cron service stopped")
}

// RunDispatchRemindersNow runs the reminder sweep immediately
func (s *CronService) RunDispatchRemindersNow() {
	s.logger.Info("[MANUAL] Running reminder dispatch now...")
	s.dispatchRemindersJob()
}

func (s *CronService) dispatchRemindersJob() {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := s.dispatcher.DispatchDueReminders(ctx, startTime)
	if err != nil {
		s.logger.WithError(err).Error("[CRON ERROR] Failed to dispatch reminders")
		return
	}

	if result.Due > 0 {
		s.logger.WithFields(logrus.Fields{
			"sent":     result.Sent,
			"skipped":  result.Skipped,
			"failed":   result.Failed,
			"duration": time.Since(startTime).String(),
		}).Info("[CRON] ✓ Dispatched due reminders")
	}
}
