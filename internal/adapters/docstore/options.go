package docstore

import "github.com/mployhr/recruitdash/pkg/logger"

type settings struct {
	buffer int
	logger logger.Logger
}

func defaultSettings() settings {
	return settings{buffer: defaultBuffer, logger: logger.Nop()}
}

// Option configures a store.
type Option func(*settings)

// WithBuffer sets how many snapshots a slow watcher may lag behind before
// older ones are dropped.
func WithBuffer(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
