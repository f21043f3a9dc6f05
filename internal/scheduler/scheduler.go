// Package scheduler runs background jobs on cron schedules. The only job
// today is the periodic ledger sync pass.
package scheduler

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a named unit of scheduled work.
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// New creates a scheduler.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// AddJob registers a job with a cron schedule (e.g. "@every 15m").
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.logger.Debug("running job", zap.String("job", job.Name()))

		if err := job.Run(); err != nil {
			s.logger.Error("job failed", zap.String("job", job.Name()), zap.Error(err))
			return
		}
		s.logger.Debug("job completed", zap.String("job", job.Name()))
	})
	if err != nil {
		return err
	}

	s.logger.Info("job registered",
		zap.String("schedule", schedule),
		zap.String("job", job.Name()))
	return nil
}
