package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mployhr/recruitdash/pkg/logger"
)

const notifyChannel = "document_changes"

// PostgresStore keeps documents in PostgreSQL. A trigger notifies on every
// insert or update, so watchers see writes from any instance sharing the database.
type PostgresStore struct {
	pool   *pgxpool.Pool
	hub    *hub
	logger logger.Logger

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	done   chan struct{}
}

// OpenPostgres migrates the database at url, connects and starts listening for changes.
func OpenPostgres(ctx context.Context, url string, opts ...Option) (*PostgresStore, error) {
	set := applyOptions(opts)

	if err := Migrate(url); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("acquire listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{notifyChannel}.Sanitize()); err != nil {
		conn.Release()
		pool.Close()
		return nil, fmt.Errorf("listen: %w", err)
	}

	lctx, cancel := context.WithCancel(context.Background())
	s := &PostgresStore{
		pool:   pool,
		hub:    newHub(set.buffer),
		logger: set.logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.listen(lctx, conn)
	return s, nil
}

func (s *PostgresStore) listen(ctx context.Context, conn *pgxpool.Conn) {
	defer close(s.done)
	defer conn.Release()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error(ctx, "document listener failed", logger.Error(err))
			s.hub.closeAll(fmt.Errorf("listen for changes: %w", err))
			return
		}
		doc, ok, err := s.Get(ctx, n.Payload)
		if err != nil {
			s.logger.Warn(ctx, "reload after notification failed",
				logger.String("path", n.Payload), logger.Error(err))
			continue
		}
		if ok {
			s.hub.publish(doc)
		}
	}
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, path string) (Document, bool, error) {
	if s.isClosed() {
		return Document{}, false, ErrClosed
	}
	var (
		data    string
		version int64
		updated time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT data::text, version, updated_at FROM documents WHERE path = $1`, path,
	).Scan(&data, &version, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("get %s: %w", path, err)
	}
	return Document{Path: path, Data: json.RawMessage(data), Version: version, UpdatedAt: updated.UTC()}, true, nil
}

// Create implements Store.
func (s *PostgresStore) Create(ctx context.Context, path string, data json.RawMessage) (bool, error) {
	if err := validate(path, data); err != nil {
		return false, err
	}
	if s.isClosed() {
		return false, ErrClosed
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO documents (path, data) VALUES ($1, $2::jsonb) ON CONFLICT (path) DO NOTHING`,
		path, string(data))
	if err != nil {
		return false, fmt.Errorf("create %s: %w", path, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Put implements Store.
func (s *PostgresStore) Put(ctx context.Context, path string, data json.RawMessage) (Document, error) {
	if err := validate(path, data); err != nil {
		return Document{}, err
	}
	if s.isClosed() {
		return Document{}, ErrClosed
	}
	doc := Document{Path: path, Data: cloneBytes(data)}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO documents (path, data) VALUES ($1, $2::jsonb)
		 ON CONFLICT (path) DO UPDATE SET
		   data = EXCLUDED.data,
		   version = documents.version + 1,
		   updated_at = now()
		 RETURNING version, updated_at`,
		path, string(data),
	).Scan(&doc.Version, &doc.UpdatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("put %s: %w", path, err)
	}
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	s.hub.publish(doc)
	return doc, nil
}

// Merge implements Store using the jsonb concatenation operator, which
// replaces matching top-level keys and keeps the rest.
func (s *PostgresStore) Merge(ctx context.Context, path string, data json.RawMessage) (Document, error) {
	if err := validate(path, data); err != nil {
		return Document{}, err
	}
	if s.isClosed() {
		return Document{}, ErrClosed
	}
	doc := Document{Path: path}
	var merged string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO documents (path, data) VALUES ($1, $2::jsonb)
		 ON CONFLICT (path) DO UPDATE SET
		   data = documents.data || EXCLUDED.data,
		   version = documents.version + 1,
		   updated_at = now()
		 RETURNING data::text, version, updated_at`,
		path, string(data),
	).Scan(&merged, &doc.Version, &doc.UpdatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("merge %s: %w", path, err)
	}
	doc.Data = json.RawMessage(merged)
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	s.hub.publish(doc)
	return doc, nil
}

// Watch implements Store. The subscription is registered before the current
// document is read so no notification can fall in between.
func (s *PostgresStore) Watch(ctx context.Context, path string) (*Subscription, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	sub, err := s.hub.subscribe(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	doc, ok, err := s.Get(ctx, path)
	if err != nil {
		sub.Close()
		return nil, err
	}
	if ok {
		s.hub.publish(doc)
	}
	return sub, nil
}

func (s *PostgresStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.done
	s.hub.closeAll(nil)
	s.pool.Close()
	return nil
}
