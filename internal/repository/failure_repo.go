package repository

import (
	"context"

	"github.com/user/places-extractor/internal/entity"
)

// FailureRepository stores the detail references a run could not turn into records.
type FailureRepository interface {
	SaveBatch(ctx context.Context, runID string, failures []entity.FailedReference) error
	FindByRun(ctx context.Context, runID string) ([]entity.FailedReference, error)
}
