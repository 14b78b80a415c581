package natsfeed

import "errors"

var (
	// ErrNotConnected is returned when publishing before Connect.
	ErrNotConnected = errors.New("natsfeed: not connected")
	// ErrBadEnvelope is returned for messages that cannot be applied.
	ErrBadEnvelope = errors.New("natsfeed: malformed change message")
)
