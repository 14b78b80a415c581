// Package queue buffers document writes between callers and the writer worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mployhr/recruitdash/pkg/metrics"
)

const defaultQueueCapacity = 256

// WriteRequest is one document write waiting to be persisted. Merge writes
// set only the top-level keys present in Data.
type WriteRequest struct {
	Topic      string
	Path       string
	Data       json.RawMessage
	Merge      bool
	EnqueuedAt time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a request without blocking. It fails with ErrFull when
	// the queue is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, r WriteRequest) error

	// Dequeue returns a channel that receives requests in enqueue order.
	// The channel is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan WriteRequest

	// Len returns the number of pending requests.
	Len() int

	// Close stops accepting requests. Pending ones are still delivered.
	Close() error

	// IsClosed reports whether Close was called.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	requests chan WriteRequest
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.requests = make(chan WriteRequest, q.capacity)
	metrics.UpdateWriteQueueDepth(0)
	return q
}

// Enqueue adds a request to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r WriteRequest) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", r.Topic, err)
	}
	if r.EnqueuedAt.IsZero() {
		r.EnqueuedAt = time.Now()
	}

	select {
	case q.requests <- r:
		metrics.UpdateWriteQueueDepth(len(q.requests))
		return nil
	default:
		return fmt.Errorf("enqueue %s: %w", r.Topic, ErrFull)
	}
}

// Dequeue returns a channel that will receive requests as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan WriteRequest {
	out := make(chan WriteRequest)
	go func() {
		defer close(out)
		for r := range q.requests {
			metrics.UpdateWriteQueueDepth(len(q.requests))
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued requests.
func (q *InMemoryQueue) Len() int {
	return len(q.requests)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.requests)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
