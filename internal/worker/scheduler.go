package worker

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/dtcstudio/taskboard/internal/config"
	"github.com/dtcstudio/taskboard/internal/service"
)

// Scheduler runs the recurring jobs: the authoritative overdue sweep,
// deadline reminders, and the end-of-day report nudge.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler wires the cron jobs from config. Returns an error when a
// cron expression does not parse.
func NewScheduler(cfg config.SchedulerConfig, sweeps *service.SweepService, notifications *service.NotificationService, logger *zap.Logger) (*Scheduler, error) {
	c := cron.New()

	_, err := c.AddFunc(cfg.OverdueSweepSpec, func() {
		ctx := context.Background()
		marked, err := sweeps.RunOverdueSweep(ctx)
		if err != nil {
			logger.Error("overdue sweep failed", zap.Error(err))
			return
		}
		logger.Debug("overdue sweep run", zap.Int("marked", marked))
	})
	if err != nil {
		return nil, err
	}

	_, err = c.AddFunc(cfg.DeadlineReminder, func() {
		ctx := context.Background()
		sent, err := sweeps.RunDeadlineReminders(ctx)
		if err != nil {
			logger.Error("deadline reminder scan failed", zap.Error(err))
			return
		}
		logger.Debug("deadline reminder run", zap.Int("sent", sent))
	})
	if err != nil {
		return nil, err
	}

	_, err = c.AddFunc(cfg.DailyReportReminder, func() {
		ctx := context.Background()
		sent, err := notifications.SendDailyReportReminders(ctx)
		if err != nil {
			logger.Error("report reminder failed", zap.Error(err))
			return
		}
		logger.Debug("report reminder run", zap.Int("sent", sent))
	})
	if err != nil {
		return nil, err
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
