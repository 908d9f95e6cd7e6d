// Package scheduler runs periodic maintenance for the job pipeline.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/user/places-extractor/internal/repository"
	"github.com/user/places-extractor/pkg/metrics"
)

const (
	staleJobBatch      = 50
	staleCheckInterval = 5 * time.Minute
	queueDepthInterval = 15 * time.Second
)

type Scheduler struct {
	jobRepo    repository.JobRepository
	queueRepo  repository.QueueRepository
	staleAfter time.Duration
	scheduler  gocron.Scheduler
}

func New(jobRepo repository.JobRepository, queueRepo repository.QueueRepository, staleAfter time.Duration) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		jobRepo:    jobRepo,
		queueRepo:  queueRepo,
		staleAfter: staleAfter,
		scheduler:  s,
	}, nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(staleCheckInterval),
		gocron.NewTask(func() {
			s.recoverStaleJobs(ctx)
		}),
	)
	if err != nil {
		return err
	}

	_, err = s.scheduler.NewJob(
		gocron.DurationJob(queueDepthInterval),
		gocron.NewTask(func() {
			s.refreshQueueDepth(ctx)
		}),
	)
	if err != nil {
		return err
	}

	s.scheduler.Start()
	slog.Info("Scheduler started", "stale_after", s.staleAfter.String())

	go s.recoverStaleJobs(ctx)
	return nil
}

func (s *Scheduler) Stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		slog.Error("Scheduler shutdown error", "error", err)
	}
}

// recoverStaleJobs fails running jobs that stopped making progress, usually
// because their worker died.
func (s *Scheduler) recoverStaleJobs(ctx context.Context) int {
	jobs, err := s.jobRepo.FindStale(ctx, s.staleAfter, staleJobBatch)
	if err != nil {
		slog.Error("Failed to find stale jobs", "error", err)
		return 0
	}

	recovered := 0
	for _, job := range jobs {
		reason := fmt.Sprintf("job stalled: running without progress since %s", job.UpdatedAt.Format(time.RFC3339))
		if err := s.jobRepo.MarkFailed(ctx, job.ID, reason); err != nil {
			slog.Warn("Failed to mark stale job as failed", "job_id", job.ID, "error", err)
			continue
		}
		recovered++
	}
	if recovered > 0 {
		slog.Info("Stale jobs marked as failed", "count", recovered)
	}
	return recovered
}

func (s *Scheduler) refreshQueueDepth(ctx context.Context) {
	size, err := s.queueRepo.Size(ctx)
	if err != nil {
		slog.Warn("Failed to read queue size", "error", err)
		return
	}
	metrics.JobsInQueue.Set(float64(size))
}
