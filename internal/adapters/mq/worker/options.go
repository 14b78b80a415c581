package worker

import (
	"github.com/mployhr/recruitdash/internal/adapters/docstore"
	"github.com/mployhr/recruitdash/internal/adapters/mq/queue"
	"github.com/mployhr/recruitdash/pkg/logger"
)

// Option applies a configuration option to the Writer.
type Option func(*Writer)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *Writer) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithErrorHandler receives every failed write.
func WithErrorHandler(fn func(queue.WriteRequest, error)) Option {
	return func(w *Writer) {
		if fn != nil {
			w.onError = fn
		}
	}
}

// WithWrittenHandler receives every persisted document.
func WithWrittenHandler(fn func(queue.WriteRequest, docstore.Document)) Option {
	return func(w *Writer) {
		if fn != nil {
			w.onWritten = fn
		}
	}
}
