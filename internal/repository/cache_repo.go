package repository

import (
	"context"
	"time"

	"github.com/user/places-extractor/internal/entity"
)

// ResultCacheRepository keeps finished extraction results for a while so
// identical requests are not re-run.
type ResultCacheRepository interface {
	// Get returns ErrNotFound on a miss.
	Get(ctx context.Context, req entity.ExtractionRequest) (*entity.ExtractionResult, error)
	Set(ctx context.Context, res *entity.ExtractionResult, ttl time.Duration) error
	// Delete drops the entry for req, used for forced re-runs.
	Delete(ctx context.Context, req entity.ExtractionRequest) error
}
