// Package gateway connects the dashboard to the document store: one stream
// of snapshots per topic, idempotent default creation and fire-and-forget writes.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/mployhr/recruitdash/internal/adapters/docstore"
	"github.com/mployhr/recruitdash/internal/adapters/mq/queue"
	"github.com/mployhr/recruitdash/internal/adapters/mq/worker"
	"github.com/mployhr/recruitdash/pkg/logger"
)

const (
	defaultAppID     = "default-app-id"
	defaultQueueSize = 256
	errorsBuffer     = 64
)

// Gateway is the dashboard's only path to the document store.
type Gateway struct {
	appID     string
	queueSize int
	store     docstore.Store
	logger    logger.Logger
	observers []func(Topic, docstore.Document)

	queue  *queue.InMemoryQueue
	writer *worker.Writer
	errs   chan error

	mu      sync.Mutex
	started bool
	closed  bool

	errMu      sync.Mutex
	errsClosed bool
}

// New creates a gateway over store. Call Start before writing.
func New(store docstore.Store, opts ...Option) *Gateway {
	g := &Gateway{
		appID:     defaultAppID,
		queueSize: defaultQueueSize,
		store:     store,
		logger:    logger.Nop(),
		errs:      make(chan error, errorsBuffer),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.queue = queue.NewInMemoryQueue(queue.WithCapacity(g.queueSize))
	g.writer = worker.NewWriter(g.queue, store,
		worker.WithName("writer"),
		worker.WithLogger(g.logger),
		worker.WithErrorHandler(func(r queue.WriteRequest, err error) {
			g.report(Topic(r.Topic), err)
		}),
		worker.WithWrittenHandler(func(r queue.WriteRequest, doc docstore.Document) {
			for _, fn := range g.observers {
				fn(Topic(r.Topic), doc)
			}
		}),
	)
	return g
}

// AppID returns the application id used in document paths.
func (g *Gateway) AppID() string { return g.appID }

// Path returns the document path of topic.
func (g *Gateway) Path(t Topic) string { return DocumentPath(g.appID, t) }

// Start runs the writer until ctx is cancelled or Close is called.
func (g *Gateway) Start(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started || g.closed {
		return
	}
	g.started = true
	go g.writer.Run(ctx)
}

// Subscribe opens a stream of snapshots for topic. The first snapshot
// reflects the current document, with Exists false when it is absent.
func (g *Gateway) Subscribe(ctx context.Context, t Topic) (*Stream, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("subscribe: %w: %q", ErrUnknownTopic, t)
	}
	path := g.Path(t)
	sub, err := g.store.Watch(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", t, err)
	}
	_, exists, err := g.store.Get(ctx, path)
	if err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", t, err)
	}
	g.logger.Debug(ctx, "subscribed", logger.String("topic", string(t)), logger.Bool("exists", exists))
	return newStream(t, sub, !exists), nil
}

// Fetch reads the current document of topic once.
func (g *Gateway) Fetch(ctx context.Context, t Topic) (Snapshot, error) {
	if !t.Valid() {
		return Snapshot{}, fmt.Errorf("fetch: %w: %q", ErrUnknownTopic, t)
	}
	doc, ok, err := g.store.Get(ctx, g.Path(t))
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch %s: %w", t, err)
	}
	if !ok {
		return Snapshot{Topic: t}, nil
	}
	return Snapshot{Topic: t, Exists: true, Data: doc.Data, Version: doc.Version, UpdatedAt: doc.UpdatedAt}, nil
}

// EnsureDefault creates the topic's document from value when it does not
// exist. It reports whether this call created it; concurrent callers race
// and the store keeps the first.
func (g *Gateway) EnsureDefault(ctx context.Context, t Topic, value any) (bool, error) {
	if !t.Valid() {
		return false, fmt.Errorf("ensure default: %w: %q", ErrUnknownTopic, t)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("ensure default %s: %w", t, err)
	}
	created, err := g.store.Create(ctx, g.Path(t), data)
	if err != nil {
		return false, fmt.Errorf("ensure default %s: %w", t, err)
	}
	if created {
		g.logger.Info(ctx, "default document created", logger.String("topic", string(t)))
	}
	return created, nil
}

// Write replaces the topic's document with value. It never blocks on the
// store and never returns an error: failures arrive on Errors.
func (g *Gateway) Write(ctx context.Context, t Topic, value any) {
	g.enqueue(ctx, t, value, false)
}

// Update sets only the top-level fields of value on the topic's document,
// so fields another client changed meanwhile survive. Like Write it reports
// failures on Errors.
func (g *Gateway) Update(ctx context.Context, t Topic, value any) {
	g.enqueue(ctx, t, value, true)
}

func (g *Gateway) enqueue(ctx context.Context, t Topic, value any, merge bool) {
	if !t.Valid() {
		g.report(t, ErrUnknownTopic)
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		g.report(t, err)
		return
	}
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if closed {
		g.report(t, ErrClosed)
		return
	}
	r := queue.WriteRequest{Topic: string(t), Path: g.Path(t), Data: data, Merge: merge}
	if err := g.queue.Enqueue(ctx, r); err != nil {
		if errors.Is(err, queue.ErrClosed) {
			err = ErrClosed
		}
		g.report(t, err)
	}
}

// Errors delivers write failures. It is closed by Close once pending writes finish.
func (g *Gateway) Errors() <-chan error { return g.errs }

func (g *Gateway) report(t Topic, err error) {
	werr := &WriteError{Topic: t, Err: err}
	g.logger.Warn(context.Background(), "write failed", logger.String("topic", string(t)), logger.Error(err))

	g.errMu.Lock()
	defer g.errMu.Unlock()
	if g.errsClosed {
		return
	}
	select {
	case g.errs <- werr:
	default:
		g.logger.Warn(context.Background(), "write error dropped, errors channel full")
	}
}

// Close stops accepting writes, waits for queued ones to be persisted and
// closes Errors.
func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	started := g.started
	g.mu.Unlock()

	_ = g.queue.Close()
	var err error
	if started {
		err = g.writer.Shutdown(ctx)
	}
	g.errMu.Lock()
	g.errsClosed = true
	close(g.errs)
	g.errMu.Unlock()
	return err
}
