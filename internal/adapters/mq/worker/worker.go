// Package worker persists queued document writes.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mployhr/recruitdash/internal/adapters/docstore"
	"github.com/mployhr/recruitdash/internal/adapters/mq/queue"
	"github.com/mployhr/recruitdash/pkg/logger"
	"github.com/mployhr/recruitdash/pkg/metrics"
)

// Persister stores full documents or merges keys into them.
type Persister interface {
	Put(ctx context.Context, path string, data json.RawMessage) (docstore.Document, error)
	Merge(ctx context.Context, path string, data json.RawMessage) (docstore.Document, error)
}

// Queue defines how the writer receives requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.WriteRequest
}

// Writer drains the write queue one request at a time, so writes to a topic
// reach the store in the order they were enqueued.
type Writer struct {
	queue     Queue
	store     Persister
	name      string
	onError   func(queue.WriteRequest, error)
	onWritten func(queue.WriteRequest, docstore.Document)

	done   chan struct{}
	logger logger.Logger
}

// NewWriter creates a writer with configuration options.
func NewWriter(q Queue, store Persister, opts ...Option) *Writer {
	w := &Writer{
		queue:     q,
		store:     store,
		name:      "writer",
		onError:   func(queue.WriteRequest, error) {},
		onWritten: func(queue.WriteRequest, docstore.Document) {},
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes requests until the queue is closed and drained or ctx is cancelled.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-requests:
			if !ok {
				return
			}
			if err := w.process(ctx, r); err != nil {
				w.onError(r, err)
			}
		}
	}
}

// Done is closed when Run returns.
func (w *Writer) Done() <-chan struct{} { return w.done }

// Shutdown waits for Run to finish. Close the queue first so pending writes drain.
func (w *Writer) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *Writer) process(ctx context.Context, r queue.WriteRequest) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	start := time.Now()
	write := w.store.Put
	if r.Merge {
		write = w.store.Merge
	}
	doc, err := write(ctx, r.Path, r.Data)
	latency := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordWrite(r.Topic, err == nil, latency)

	if err != nil {
		w.logger.Error(ctx, "write failed",
			logger.String("topic", r.Topic),
			logger.String("path", r.Path),
			logger.Bool("merge", r.Merge),
			logger.Error(err),
		)
		return fmt.Errorf("write %s: %w", r.Topic, err)
	}

	w.logger.Debug(ctx, "document written",
		logger.String("topic", r.Topic),
		logger.Int("version", int(doc.Version)),
		logger.Duration("queued", start.Sub(r.EnqueuedAt)),
	)
	w.onWritten(r, doc)
	return nil
}
