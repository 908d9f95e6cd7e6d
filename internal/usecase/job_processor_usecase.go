package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/user/places-extractor/internal/repository"
)

// JobProcessor consumes queued jobs and runs them through the ExtractionService.
type JobProcessor interface {
	// ProcessNext runs at most one queued job and reports whether one was found.
	ProcessNext(ctx context.Context) (bool, error)
	// Run starts workers that process jobs until ctx is done.
	Run(ctx context.Context, workers int, idle time.Duration)
}

type jobProcessorUseCase struct {
	service   ExtractionService
	jobRepo   repository.JobRepository
	queueRepo repository.QueueRepository
}

// NewJobProcessor creates a new JobProcessor use case.
func NewJobProcessor(
	service ExtractionService,
	jobRepo repository.JobRepository,
	queueRepo repository.QueueRepository,
) JobProcessor {
	return &jobProcessorUseCase{service: service, jobRepo: jobRepo, queueRepo: queueRepo}
}

func (uc *jobProcessorUseCase) ProcessNext(ctx context.Context) (bool, error) {
	jobID, err := uc.queueRepo.Pop(ctx)
	if errors.Is(err, repository.ErrQueueEmpty) {
		// Queue is empty, which is a normal state.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to pop job from queue: %w", err)
	}

	job, err := uc.jobRepo.Get(ctx, jobID)
	if err != nil {
		return true, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if err := uc.jobRepo.MarkRunning(ctx, jobID); err != nil {
		return true, fmt.Errorf("failed to mark job %s running: %w", jobID, err)
	}
	slog.Info("Processing job from queue", "job_id", jobID, "query", job.Request.Query)

	res, runErr := uc.service.Extract(ctx, jobID, job.Request, false)
	// Final state is written even when ctx was cancelled mid-run.
	writeCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		slog.Error("Extraction job failed", "job_id", jobID, "error", runErr)
		if err := uc.jobRepo.MarkFailed(writeCtx, jobID, runErr.Error()); err != nil {
			return true, fmt.Errorf("failed to mark job %s failed: %w", jobID, err)
		}
		return true, nil
	}

	if err := uc.jobRepo.MarkCompleted(writeCtx, jobID, res.Stats); err != nil {
		return true, fmt.Errorf("failed to mark job %s completed: %w", jobID, err)
	}
	slog.Info("Extraction job completed", "job_id", jobID, "records", len(res.Records), "cached", res.Cached)
	return true, nil
}

func (uc *jobProcessorUseCase) Run(ctx context.Context, workers int, idle time.Duration) {
	var wg sync.WaitGroup
	for i := 0; i < max(workers, 1); i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			slog.Debug("Job worker started", "worker_id", id)
			for ctx.Err() == nil {
				found, err := uc.ProcessNext(ctx)
				if err != nil {
					slog.Error("Job processing error", "worker_id", id, "error", err)
				}
				if found {
					continue
				}
				select {
				case <-ctx.Done():
				case <-time.After(idle):
				}
			}
			slog.Debug("Job worker stopped", "worker_id", id)
		}(i)
	}
	wg.Wait()
}
