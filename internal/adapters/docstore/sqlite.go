package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mployhr/recruitdash/pkg/logger"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const (
	sqliteSchema = `CREATE TABLE IF NOT EXISTS documents (
	path       TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	version    INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`
	defaultPollInterval = time.Second
)

// SQLiteStore keeps documents in a single SQLite file. Writes made through
// this store are pushed to watchers immediately; writes from other processes
// sharing the file are picked up by polling.
type SQLiteStore struct {
	db     *sql.DB
	hub    *hub
	logger logger.Logger

	mu     sync.Mutex
	closed bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

// OpenSQLite opens (and if needed creates) the database at path.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	set := applyOptions(opts)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		sqliteSchema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}

	s := &SQLiteStore{
		db:     db,
		hub:    newHub(set.buffer),
		logger: set.logger,
		stop:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.poll(defaultPollInterval)
	return s, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, path string) (Document, bool, error) {
	if s.isClosed() {
		return Document{}, false, ErrClosed
	}
	return s.get(ctx, path)
}

func (s *SQLiteStore) get(ctx context.Context, path string) (Document, bool, error) {
	var (
		data    string
		version int64
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, version, updated_at FROM documents WHERE path = ?`, path,
	).Scan(&data, &version, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("get %s: %w", path, err)
	}
	return Document{
		Path:      path,
		Data:      json.RawMessage(data),
		Version:   version,
		UpdatedAt: time.Unix(0, updated).UTC(),
	}, true, nil
}

// Create implements Store.
func (s *SQLiteStore) Create(ctx context.Context, path string, data json.RawMessage) (bool, error) {
	if err := validate(path, data); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (path, data, version, updated_at) VALUES (?, ?, 1, ?)
		 ON CONFLICT(path) DO NOTHING`,
		path, string(data), now.UnixNano())
	if err != nil {
		return false, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create %s: %w", path, err)
	}
	if n == 0 {
		return false, nil
	}
	s.hub.publish(Document{Path: path, Data: data, Version: 1, UpdatedAt: now})
	return true, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, path string, data json.RawMessage) (Document, error) {
	if err := validate(path, data); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Document{}, ErrClosed
	}

	now := time.Now().UTC()
	var version int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO documents (path, data, version, updated_at) VALUES (?, ?, 1, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   data = excluded.data,
		   version = documents.version + 1,
		   updated_at = excluded.updated_at
		 RETURNING version`,
		path, string(data), now.UnixNano(),
	).Scan(&version)
	if err != nil {
		return Document{}, fmt.Errorf("put %s: %w", path, err)
	}
	doc := Document{Path: path, Data: cloneBytes(data), Version: version, UpdatedAt: now}
	s.hub.publish(doc)
	return doc, nil
}

// Merge implements Store. json_patch replaces each top-level key of data
// wholesale because every value the dashboard writes is a list.
func (s *SQLiteStore) Merge(ctx context.Context, path string, data json.RawMessage) (Document, error) {
	if err := validate(path, data); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Document{}, ErrClosed
	}

	now := time.Now().UTC()
	var (
		version int64
		merged  string
	)
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO documents (path, data, version, updated_at) VALUES (?, ?, 1, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   data = json_patch(documents.data, excluded.data),
		   version = documents.version + 1,
		   updated_at = excluded.updated_at
		 RETURNING version, data`,
		path, string(data), now.UnixNano(),
	).Scan(&version, &merged)
	if err != nil {
		return Document{}, fmt.Errorf("merge %s: %w", path, err)
	}
	doc := Document{Path: path, Data: json.RawMessage(merged), Version: version, UpdatedAt: now}
	s.hub.publish(doc)
	return doc, nil
}

// Watch implements Store.
func (s *SQLiteStore) Watch(ctx context.Context, path string) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	doc, ok, err := s.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var initial *Document
	if ok {
		initial = &doc
	}
	return s.hub.subscribe(ctx, path, initial)
}

// poll republishes watched documents so changes made by other processes
// reach local watchers. The hub drops versions a watcher has already seen.
func (s *SQLiteStore) poll(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}
		for _, path := range s.hub.paths() {
			s.mu.Lock()
			doc, ok, err := s.get(context.Background(), path)
			if err == nil && ok {
				s.hub.publish(doc)
			}
			s.mu.Unlock()
			if err != nil {
				s.logger.Warn(context.Background(), "sqlite poll failed",
					logger.String("path", path), logger.Error(err))
			}
		}
	}
}

func (s *SQLiteStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
	s.hub.closeAll(nil)
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}
