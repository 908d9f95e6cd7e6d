package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/user/places-extractor/internal/entity"
	"github.com/user/places-extractor/internal/extractor"
	"github.com/user/places-extractor/internal/repository"
	"github.com/user/places-extractor/pkg/metrics"
)

// Extractor runs one extraction session.
type Extractor interface {
	Run(ctx context.Context, req entity.ExtractionRequest) (*entity.ExtractionResult, error)
}

// ExtractionService runs extractions synchronously: cache, extract, persist.
type ExtractionService interface {
	// Extract runs req under runID (a new ID when empty). Unless force is
	// set, a fresh cached result for an identical request is returned instead.
	Extract(ctx context.Context, runID string, req entity.ExtractionRequest, force bool) (*entity.ExtractionResult, error)
	// Validate normalizes req and reports whether it can be run.
	Validate(req *entity.ExtractionRequest) error
}

type extractionUseCase struct {
	extractor   Extractor
	recordRepo  repository.RecordRepository
	failureRepo repository.FailureRepository
	cacheRepo   repository.ResultCacheRepository
	cacheTTL    time.Duration
	maxTarget   int
}

// NewExtractionService creates a new ExtractionService use case.
func NewExtractionService(
	ex Extractor,
	recordRepo repository.RecordRepository,
	failureRepo repository.FailureRepository,
	cacheRepo repository.ResultCacheRepository,
	cacheTTL time.Duration,
	maxTarget int,
) ExtractionService {
	return &extractionUseCase{
		extractor:   ex,
		recordRepo:  recordRepo,
		failureRepo: failureRepo,
		cacheRepo:   cacheRepo,
		cacheTTL:    cacheTTL,
		maxTarget:   maxTarget,
	}
}

func (uc *extractionUseCase) Validate(req *entity.ExtractionRequest) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}
	if req.TargetCount < 1 {
		return fmt.Errorf("%w: max_results must be positive", ErrInvalidRequest)
	}
	if uc.maxTarget > 0 && req.TargetCount > uc.maxTarget {
		return fmt.Errorf("%w: max_results must not exceed %d", ErrInvalidRequest, uc.maxTarget)
	}
	return nil
}

func (uc *extractionUseCase) Extract(ctx context.Context, runID string, req entity.ExtractionRequest, force bool) (*entity.ExtractionResult, error) {
	if err := uc.Validate(&req); err != nil {
		return nil, err
	}
	if runID == "" {
		runID = uuid.NewString()
	}

	if force {
		if err := uc.cacheRepo.Delete(ctx, req); err != nil {
			slog.Warn("Failed to drop cached result for forced run", "query", req.Query, "error", err)
		}
	} else if cached := uc.lookup(ctx, req); cached != nil {
		return cached, nil
	}

	slog.Info("Starting extraction", "run_id", runID, "query", req.Query, "target", req.TargetCount)
	startTime := time.Now()
	res, err := uc.extractor.Run(ctx, req)
	metrics.ExtractionDuration.Observe(time.Since(startTime).Seconds())
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues(errorType(err)).Inc()
		return nil, fmt.Errorf("extraction %s: %w", runID, err)
	}
	res.RunID = runID
	observe(res)

	// A cancelled run still returns its partial records; store them anyway.
	writeCtx := context.WithoutCancel(ctx)
	if err := uc.recordRepo.SaveBatch(writeCtx, runID, res.Records); err != nil {
		return nil, fmt.Errorf("failed to save records for run %s: %w", runID, err)
	}
	if err := uc.failureRepo.SaveBatch(writeCtx, runID, res.Failures); err != nil {
		// Records are already stored; the run is still usable.
		slog.Warn("Failed to save failed references", "run_id", runID, "error", err)
	}

	if !res.Stats.Cancelled && uc.cacheTTL > 0 {
		if err := uc.cacheRepo.Set(writeCtx, res, uc.cacheTTL); err != nil {
			slog.Warn("Failed to cache extraction result", "run_id", runID, "error", err)
		}
	}
	return res, nil
}

func (uc *extractionUseCase) lookup(ctx context.Context, req entity.ExtractionRequest) *entity.ExtractionResult {
	cached, err := uc.cacheRepo.Get(ctx, req)
	switch {
	case err == nil:
		metrics.ResultCacheTotal.WithLabelValues("hit").Inc()
		slog.Info("Serving cached extraction result", "query", req.Query, "run_id", cached.RunID)
		cached.Cached = true
		return cached
	case errors.Is(err, repository.ErrNotFound):
		metrics.ResultCacheTotal.WithLabelValues("miss").Inc()
	default:
		metrics.ResultCacheTotal.WithLabelValues("error").Inc()
		slog.Warn("Result cache lookup failed", "query", req.Query, "error", err)
	}
	return nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, extractor.ErrSearchUnavailable):
		return "search_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "error"
}

func observe(res *entity.ExtractionResult) {
	status := "success"
	if res.Stats.Cancelled {
		status = "cancelled"
	}
	metrics.ExtractionsTotal.WithLabelValues(status).Inc()
	metrics.RecordsExtracted.Add(float64(len(res.Records)))
	metrics.DetailFailures.Add(float64(res.Stats.Failed))
	metrics.ContactsFound.Add(float64(res.Stats.ContactsFound))
	metrics.PaginationPasses.Observe(float64(res.Stats.Passes))
	for state, n := range res.Stats.Escalations {
		metrics.PaginationEscalations.WithLabelValues(state).Add(float64(n))
	}
}
