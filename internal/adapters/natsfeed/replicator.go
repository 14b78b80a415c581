// Package natsfeed mirrors persisted dashboard documents between instances
// that each keep their own store, using NATS core publish/subscribe.
package natsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mployhr/recruitdash/internal/adapters/docstore"
	"github.com/mployhr/recruitdash/pkg/logger"
	"github.com/mployhr/recruitdash/pkg/metrics"
	"github.com/nats-io/nats.go"
)

const (
	defaultSeenLimit = 1024
	applyTimeout     = 5 * time.Second
	subjectPrefix    = "recruitdash"
)

// Applier stores a document received from a peer.
type Applier interface {
	Put(ctx context.Context, path string, data json.RawMessage) (docstore.Document, error)
}

// Envelope is the wire form of one replicated write.
type Envelope struct {
	ID        string          `json:"id"`
	Origin    string          `json:"origin"`
	Topic     string          `json:"topic"`
	Path      string          `json:"path"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Replicator publishes local writes and applies remote ones.
type Replicator struct {
	appID  string
	origin string
	store  Applier
	seen   *seenSet
	logger logger.Logger

	mu  sync.Mutex
	nc  *nats.Conn
	sub *nats.Subscription
}

// New creates a replicator for appID that applies remote writes to store.
func New(appID string, store Applier, opts ...Option) *Replicator {
	r := &Replicator{
		appID:  appID,
		origin: uuid.NewString(),
		store:  store,
		seen:   newSeenSet(defaultSeenLimit),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Origin returns this instance's id.
func (r *Replicator) Origin() string { return r.origin }

// Subject returns the subject a topic is published on.
func (r *Replicator) Subject(topic string) string {
	return fmt.Sprintf("%s.%s.%s", subjectPrefix, r.appID, topic)
}

// Connect dials the NATS server at url and starts applying peer writes.
func (r *Replicator) Connect(url string) error {
	nc, err := nats.Connect(url,
		nats.Name("recruitdash-"+r.origin),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				r.logger.Warn(context.Background(), "nats disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			r.logger.Info(context.Background(), "nats reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}

	sub, err := nc.Subscribe(r.Subject("*"), func(msg *nats.Msg) {
		if err := r.handle(msg.Data); err != nil {
			r.logger.Warn(context.Background(), "replicated change rejected",
				logger.String("subject", msg.Subject), logger.Error(err))
		}
	})
	if err != nil {
		nc.Close()
		return fmt.Errorf("subscribe %s: %w", r.Subject("*"), err)
	}

	r.mu.Lock()
	r.nc, r.sub = nc, sub
	r.mu.Unlock()
	r.logger.Info(context.Background(), "replication connected",
		logger.String("url", url), logger.String("origin", r.origin))
	return nil
}

// Publish sends a persisted local write to peers.
func (r *Replicator) Publish(topic string, doc docstore.Document) error {
	r.mu.Lock()
	nc := r.nc
	r.mu.Unlock()
	if nc == nil {
		return ErrNotConnected
	}

	data, err := r.encode(topic, doc)
	if err != nil {
		return err
	}
	if err := nc.Publish(r.Subject(topic), data); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	metrics.RecordReplicated("out")
	return nil
}

func (r *Replicator) encode(topic string, doc docstore.Document) ([]byte, error) {
	env := Envelope{
		ID:        uuid.NewString(),
		Origin:    r.origin,
		Topic:     topic,
		Path:      doc.Path,
		Data:      doc.Data,
		UpdatedAt: doc.UpdatedAt,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", topic, err)
	}
	return data, nil
}

// handle applies one peer message. Own messages and duplicates are ignored.
func (r *Replicator) handle(data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	if env.ID == "" || env.Path == "" || len(env.Data) == 0 {
		return ErrBadEnvelope
	}
	if env.Origin == r.origin {
		return nil
	}
	if r.seen.SeenAndRecord(env.ID) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()
	if _, err := r.store.Put(ctx, env.Path, env.Data); err != nil {
		return fmt.Errorf("apply %s from %s: %w", env.Topic, env.Origin, err)
	}
	metrics.RecordReplicated("in")
	return nil
}

// Close unsubscribes and drains the connection.
func (r *Replicator) Close() error {
	r.mu.Lock()
	nc, sub := r.nc, r.sub
	r.nc, r.sub = nil, nil
	r.mu.Unlock()

	if nc == nil {
		return nil
	}
	if sub != nil {
		_ = sub.Unsubscribe()
	}
	if err := nc.Drain(); err != nil {
		nc.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}
