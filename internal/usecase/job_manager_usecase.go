package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/user/places-extractor/internal/entity"
	"github.com/user/places-extractor/internal/repository"
)

// JobManager defines the interface for submitting and checking asynchronous jobs.
type JobManager interface {
	Submit(ctx context.Context, req entity.ExtractionRequest) (*entity.ExtractionJob, error)
	Report(ctx context.Context, id string) (*entity.JobReport, error)
}

type jobManagerUseCase struct {
	service     ExtractionService
	jobRepo     repository.JobRepository
	queueRepo   repository.QueueRepository
	recordRepo  repository.RecordRepository
	failureRepo repository.FailureRepository
}

// NewJobManager creates a new JobManager use case.
func NewJobManager(
	service ExtractionService,
	jobRepo repository.JobRepository,
	queueRepo repository.QueueRepository,
	recordRepo repository.RecordRepository,
	failureRepo repository.FailureRepository,
) JobManager {
	return &jobManagerUseCase{
		service:     service,
		jobRepo:     jobRepo,
		queueRepo:   queueRepo,
		recordRepo:  recordRepo,
		failureRepo: failureRepo,
	}
}

func (uc *jobManagerUseCase) Submit(ctx context.Context, req entity.ExtractionRequest) (*entity.ExtractionJob, error) {
	if err := uc.service.Validate(&req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &entity.ExtractionJob{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    entity.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if err := uc.queueRepo.Push(ctx, job.ID); err != nil {
		if markErr := uc.jobRepo.MarkFailed(ctx, job.ID, "could not be queued"); markErr != nil {
			slog.Error("Failed to mark unqueued job as failed", "job_id", job.ID, "error", markErr)
		}
		return nil, fmt.Errorf("failed to queue job %s: %w", job.ID, err)
	}

	slog.Info("Extraction job queued", "job_id", job.ID, "query", req.Query)
	return job, nil
}

func (uc *jobManagerUseCase) Report(ctx context.Context, id string) (*entity.JobReport, error) {
	job, err := uc.jobRepo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	report := &entity.JobReport{Job: job}
	if job.Status != entity.JobCompleted {
		return report, nil
	}
	if report.Records, err = uc.recordRepo.FindByRun(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to load records of job %s: %w", id, err)
	}
	if report.Failures, err = uc.failureRepo.FindByRun(ctx, id); err != nil {
		slog.Warn("Failed to load failed references", "job_id", id, "error", err)
	}
	return report, nil
}
