package scheduler_test

import (
	"testing"

	"github.com/dimesagro/finance-sync-go/internal/scheduler"

	"go.uber.org/zap"
)

type noopJob struct{ ran int }

func (j *noopJob) Run() error   { j.ran++; return nil }
func (j *noopJob) Name() string { return "noop" }

func TestAddJob_ValidSchedule(t *testing.T) {
	s := scheduler.New(zap.NewNop())

	if err := s.AddJob("@every 15m", &noopJob{}); err != nil {
		t.Fatalf("expected job registered, got %v", err)
	}
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := scheduler.New(zap.NewNop())

	if err := s.AddJob("every now and then", &noopJob{}); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestStartStop(t *testing.T) {
	s := scheduler.New(zap.NewNop())
	if err := s.AddJob("@every 1h", &noopJob{}); err != nil {
		t.Fatalf("expected job registered, got %v", err)
	}

	s.Start()
	s.Stop()
}
