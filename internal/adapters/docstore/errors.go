package docstore

import "errors"

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("docstore: store closed")
	// ErrInvalidDocument is returned when a payload is not a JSON object.
	ErrInvalidDocument = errors.New("docstore: document must be a JSON object")
	// ErrEmptyPath is returned when a document path is blank.
	ErrEmptyPath = errors.New("docstore: empty document path")
)
