package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTopic is returned for topics other than the two dashboards.
	ErrUnknownTopic = errors.New("unknown topic")
	// ErrClosed is reported for writes after Close.
	ErrClosed = errors.New("gateway closed")
)

// WriteError is delivered on Errors when a write could not be queued or persisted.
type WriteError struct {
	Topic Topic
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Topic, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
