package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/user/places-extractor/internal/repository"
)

const jobQueueKey = "extractor:jobs"

// QueueRepoImpl provides a concrete implementation for the QueueRepository interface using Redis Lists.
type QueueRepoImpl struct {
	client *redis.Client
}

// NewQueueRepo creates a new instance of QueueRepoImpl.
func NewQueueRepo(client *redis.Client) *QueueRepoImpl {
	return &QueueRepoImpl{client: client}
}

// Push adds a job ID to the left side of the Redis list (acting as a queue).
func (r *QueueRepoImpl) Push(ctx context.Context, jobID string) error {
	return r.client.LPush(ctx, jobQueueKey, jobID).Err()
}

// Pop removes and returns a job ID from the right side of the list.
func (r *QueueRepoImpl) Pop(ctx context.Context) (string, error) {
	id, err := r.client.RPop(ctx, jobQueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", repository.ErrQueueEmpty
	}
	return id, err
}

// Size returns the current number of items in the queue.
func (r *QueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, jobQueueKey).Result()
}
