package repository

import (
	"context"
	"time"

	"github.com/user/places-extractor/internal/entity"
)

// JobRepository manages the lifecycle of asynchronous extraction jobs.
type JobRepository interface {
	Create(ctx context.Context, job *entity.ExtractionJob) error
	// Get returns ErrNotFound for an unknown id.
	Get(ctx context.Context, id string) (*entity.ExtractionJob, error)
	MarkRunning(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, stats entity.ExtractionStats) error
	MarkFailed(ctx context.Context, id string, reason string) error
	// FindStale returns running jobs not updated since before olderThan ago.
	FindStale(ctx context.Context, olderThan time.Duration, limit int) ([]*entity.ExtractionJob, error)
}
