package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/places-extractor/internal/entity"
	"github.com/user/places-extractor/internal/repository"
	"github.com/user/places-extractor/pkg/utils"
)

const resultKeyPrefix = "result:"

// ResultCacheRepoImpl provides a concrete implementation for the ResultCacheRepository interface using Redis.
type ResultCacheRepoImpl struct {
	client *redis.Client
}

// NewResultCacheRepo creates a new instance of ResultCacheRepoImpl.
func NewResultCacheRepo(client *redis.Client) *ResultCacheRepoImpl {
	return &ResultCacheRepoImpl{client: client}
}

// cacheKey hashes the normalized request, so queries differing only in case
// or surrounding space share an entry.
func cacheKey(req entity.ExtractionRequest) string {
	norm := fmt.Sprintf("%s|%d|%t",
		strings.ToLower(strings.Join(strings.Fields(req.Query), " ")),
		req.TargetCount,
		req.VisitSecondarySources,
	)
	return resultKeyPrefix + utils.HashKey(norm)
}

// Get returns the cached result for req.
func (r *ResultCacheRepoImpl) Get(ctx context.Context, req entity.ExtractionRequest) (*entity.ExtractionResult, error) {
	raw, err := r.client.Get(ctx, cacheKey(req)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var res entity.ExtractionResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode cached result: %w", err)
	}
	return &res, nil
}

// Set stores res under its request with an expiry. SETEX is atomic.
func (r *ResultCacheRepoImpl) Set(ctx context.Context, res *entity.ExtractionResult, ttl time.Duration) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return r.client.SetEx(ctx, cacheKey(res.Request), raw, ttl).Err()
}

// Delete removes the entry for req, used for forced re-runs.
func (r *ResultCacheRepoImpl) Delete(ctx context.Context, req entity.ExtractionRequest) error {
	return r.client.Del(ctx, cacheKey(req)).Err()
}
