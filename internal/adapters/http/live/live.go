// Package live pushes change notices to browsers over websockets.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	service "github.com/mployhr/recruitdash/internal/app"
	"github.com/mployhr/recruitdash/pkg/logger"
	"github.com/mployhr/recruitdash/pkg/metrics"
)

const (
	defaultClientBuffer = 8
	defaultWriteTimeout = 5 * time.Second
	defaultPongWait     = 60 * time.Second
	maxInboundBytes     = 512
)

// ErrClosed is returned once the hub has stopped.
var ErrClosed = errors.New("live hub closed")

// Source produces change notices.
type Source interface {
	Changes() (<-chan service.Change, func())
}

// Hub fans change notices out to every connected websocket client.
type Hub struct {
	src      Source
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	buffer       int
	writeTimeout time.Duration
	pongWait     time.Duration
	logger       logger.Logger
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithClientBuffer sets how many notices may wait per client before new ones are dropped.
func WithClientBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithPongWait sets how long a silent client is kept; pings go out at 9/10 of it.
func WithPongWait(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pongWait = d
		}
	}
}

// NewHub creates a hub fed by src.
func NewHub(src Source, opts ...Option) *Hub {
	h := &Hub{
		src:          src,
		clients:      make(map[*client]struct{}),
		buffer:       defaultClientBuffer,
		writeTimeout: defaultWriteTimeout,
		pongWait:     defaultPongWait,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register attaches the websocket endpoint at /ws.
func (h *Hub) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/ws", h)
}

// Run forwards notices until ctx is done or the source stops, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	changes, stop := h.src.Changes()
	defer stop()
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			msg, err := json.Marshal(c)
			if err != nil {
				h.logger.Warn(ctx, "encoding change notice failed", logger.Error(err))
				continue
			}
			h.broadcast(msg)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and holds the connection until the peer leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, h.buffer)}
	if !h.add(c) {
		deadline := time.Now().Add(h.writeTimeout)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ErrClosed.Error()), deadline)
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
	h.remove(c)
}

// readPump drains the peer so control frames are processed.
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(maxInboundBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.pongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.UpdateLiveClients(len(h.clients))
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		metrics.UpdateLiveClients(len(h.clients))
	}
}

// broadcast never blocks; a client with a full buffer misses the notice.
func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	metrics.UpdateLiveClients(0)
}
