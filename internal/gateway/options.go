package gateway

import (
	"github.com/mployhr/recruitdash/internal/adapters/docstore"
	"github.com/mployhr/recruitdash/pkg/logger"
)

// Option configures a Gateway.
type Option func(*Gateway)

// WithAppID sets the application id used in document paths.
func WithAppID(id string) Option {
	return func(g *Gateway) {
		if id != "" {
			g.appID = id
		}
	}
}

// WithQueueSize bounds the number of pending writes.
func WithQueueSize(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.queueSize = n
		}
	}
}

// WithLogger sets the gateway logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithWriteObserver is called after each write is persisted, for example to
// replicate it to peers.
func WithWriteObserver(fn func(Topic, docstore.Document)) Option {
	return func(g *Gateway) {
		if fn != nil {
			g.observers = append(g.observers, fn)
		}
	}
}
