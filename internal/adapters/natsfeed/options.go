package natsfeed

import "github.com/mployhr/recruitdash/pkg/logger"

// Option configures a Replicator.
type Option func(*Replicator)

// WithLogger sets the replicator logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Replicator) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithOrigin overrides the generated instance id.
func WithOrigin(id string) Option {
	return func(r *Replicator) {
		if id != "" {
			r.origin = id
		}
	}
}

// WithSeenLimit bounds how many message ids are remembered for duplicate detection.
func WithSeenLimit(n int) Option {
	return func(r *Replicator) {
		if n > 0 {
			r.seen = newSeenSet(n)
		}
	}
}
