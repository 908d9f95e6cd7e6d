package repository

import (
	"context"

	"github.com/user/places-extractor/internal/entity"
)

// RecordRepository stores the business records produced by one run.
type RecordRepository interface {
	// SaveBatch upserts records for runID, keeping their order.
	SaveBatch(ctx context.Context, runID string, records []entity.BusinessRecord) error
	// FindByRun returns the records of runID in discovery order.
	FindByRun(ctx context.Context, runID string) ([]entity.BusinessRecord, error)
}
