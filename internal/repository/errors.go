package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row or key.
	ErrNotFound = errors.New("not found")
	// ErrQueueEmpty is returned by QueueRepository.Pop when no job is waiting.
	ErrQueueEmpty = errors.New("queue is empty")
)
