package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	docs   map[string]Document
	hub    *hub
	closed bool
	now    func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := applyOptions(opts)
	return &MemoryStore{
		docs: make(map[string]Document),
		hub:  newHub(s.buffer),
		now:  time.Now,
	}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, path string) (Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Document{}, false, ErrClosed
	}
	doc, ok := m.docs[path]
	if !ok {
		return Document{}, false, nil
	}
	doc.Data = cloneBytes(doc.Data)
	return doc, true, nil
}

// Create implements Store.
func (m *MemoryStore) Create(_ context.Context, path string, data json.RawMessage) (bool, error) {
	if err := validate(path, data); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrClosed
	}
	if _, ok := m.docs[path]; ok {
		return false, nil
	}
	m.store(path, data)
	return true, nil
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, path string, data json.RawMessage) (Document, error) {
	if err := validate(path, data); err != nil {
		return Document{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Document{}, ErrClosed
	}
	return m.store(path, data), nil
}

// Merge implements Store.
func (m *MemoryStore) Merge(_ context.Context, path string, data json.RawMessage) (Document, error) {
	if err := validate(path, data); err != nil {
		return Document{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Document{}, ErrClosed
	}
	merged, err := mergeKeys(m.docs[path].Data, data)
	if err != nil {
		return Document{}, fmt.Errorf("merge %s: %w", path, err)
	}
	return m.store(path, merged), nil
}

// store must be called with m.mu held so versions publish in order.
func (m *MemoryStore) store(path string, data json.RawMessage) Document {
	doc := Document{
		Path:      path,
		Data:      cloneBytes(data),
		Version:   m.docs[path].Version + 1,
		UpdatedAt: m.now().UTC(),
	}
	m.docs[path] = doc
	m.hub.publish(doc)
	return doc
}

// Watch implements Store.
func (m *MemoryStore) Watch(ctx context.Context, path string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	var initial *Document
	if doc, ok := m.docs[path]; ok {
		initial = &doc
	}
	return m.hub.subscribe(ctx, path, initial)
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()
	m.hub.closeAll(nil)
	return nil
}
