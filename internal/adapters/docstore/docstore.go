// Package docstore persists whole JSON documents by path and pushes every
// change to watchers. Backends: in-memory, SQLite and PostgreSQL.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

const defaultBuffer = 8

// Document is one stored JSON object.
type Document struct {
	Path      string
	Data      json.RawMessage
	Version   int64
	UpdatedAt time.Time
}

// Store is a last-write-wins document store with change feeds.
type Store interface {
	// Get returns the document at path and whether it exists.
	Get(ctx context.Context, path string) (Document, bool, error)

	// Create stores data at path only if nothing is there yet. The first
	// creator wins; later callers get created == false and no error.
	Create(ctx context.Context, path string, data json.RawMessage) (created bool, err error)

	// Put replaces the document at path.
	Put(ctx context.Context, path string, data json.RawMessage) (Document, error)

	// Merge sets the top-level keys of data on the document at path and
	// leaves its other keys alone. A missing document is created from data.
	Merge(ctx context.Context, path string, data json.RawMessage) (Document, error)

	// Watch delivers the current document (if any) followed by every later
	// version. The subscription ends when ctx is done, Close is called on
	// it, or the store fails.
	Watch(ctx context.Context, path string) (*Subscription, error)

	// Close releases the backend and ends every subscription.
	Close() error
}

// Subscription is a live feed of snapshots for one path.
type Subscription struct {
	path string
	ch   chan Document
	hub  *hub

	mu          sync.Mutex
	err         error
	lastVersion int64
	done        chan struct{}
	once        sync.Once
}

// C delivers snapshots in version order. It is closed when the subscription ends.
func (s *Subscription) C() <-chan Document { return s.ch }

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns the terminal error, or nil when the subscription was closed normally.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops delivery. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s, nil)
}

func validate(path string, data json.RawMessage) error {
	if strings.TrimSpace(path) == "" {
		return ErrEmptyPath
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return ErrInvalidDocument
	}
	return nil
}

// mergeKeys overlays the top-level keys of patch on base.
func mergeKeys(base, patch json.RawMessage) (json.RawMessage, error) {
	merged := make(map[string]json.RawMessage)
	if len(base) > 0 {
		if err := json.Unmarshal(base, &merged); err != nil {
			return nil, err
		}
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(patch, &keys); err != nil {
		return nil, err
	}
	for k, v := range keys {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func cloneBytes(b []byte) json.RawMessage {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
