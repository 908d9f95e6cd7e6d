package repository

import "context"

// QueueRepository is a FIFO queue of job IDs waiting for a processor.
type QueueRepository interface {
	// Push adds a job ID to the end of the queue.
	Push(ctx context.Context, jobID string) error
	// Pop removes and returns the job ID at the front of the queue, or
	// ErrQueueEmpty.
	Pop(ctx context.Context) (string, error)
	// Size returns the current number of items in the queue.
	Size(ctx context.Context) (int64, error)
}
