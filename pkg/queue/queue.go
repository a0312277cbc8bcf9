package queue

import (
	"context"
	"errors"
)

// ErrQueueFull is returned by Enqueue when the queue is at capacity.
var ErrQueueFull = errors.New("queue is full")

// Queue represents a bounded FIFO queue.
// Implementations must be thread-safe.
type Queue[T any] interface {
	// Enqueue adds an item without blocking. It returns ErrQueueFull when
	// the queue is at capacity.
	Enqueue(item T) error
	// Dequeue blocks until an item is available or ctx is done.
	Dequeue(ctx context.Context) (T, error)
	Size() int
	// ReadAllMessages removes and returns all pending items.
	ReadAllMessages() []T
	ClearQueue()
}
