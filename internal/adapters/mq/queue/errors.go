package queue

import "errors"

// Sentinel errors returned by Enqueue.
var (
	ErrClosed = errors.New("write queue closed")
	ErrFull   = errors.New("write queue full")
)
