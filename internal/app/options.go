package service

import "github.com/mployhr/recruitdash/pkg/logger"

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRoster sets the member names used for default documents.
func WithRoster(names []string) Option {
	return func(s *Service) {
		if len(names) > 0 {
			s.roster = append([]string(nil), names...)
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithChangeBuffer sets how many change notices a slow listener may miss before dropping.
func WithChangeBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.changeBuffer = n
		}
	}
}
