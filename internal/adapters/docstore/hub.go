package docstore

import (
	"context"
	"sync"
)

// hub fans documents out to subscriptions keyed by path. Deliveries never
// block: when a subscriber falls behind, its oldest pending snapshot is
// dropped because every snapshot carries the full document.
type hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	closed bool
}

func newHub(buffer int) *hub {
	if buffer < 1 {
		buffer = defaultBuffer
	}
	return &hub{subs: make(map[string]map[*Subscription]struct{}), buffer: buffer}
}

// subscribe registers a subscription and, when initial is non-nil, queues it first.
func (h *hub) subscribe(ctx context.Context, path string, initial *Document) (*Subscription, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	s := &Subscription{
		path: path,
		ch:   make(chan Document, h.buffer),
		hub:  h,
		done: make(chan struct{}),
	}
	set, ok := h.subs[path]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[path] = set
	}
	set[s] = struct{}{}
	if initial != nil {
		s.deliver(*initial)
	}
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			h.remove(s, nil)
		case <-s.done:
		}
	}()
	return s, nil
}

// publish sends doc to every subscription on its path.
func (h *hub) publish(doc Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[doc.Path] {
		s.deliver(doc)
	}
}

// deliver must be called with the hub lock held.
func (s *Subscription) deliver(doc Document) {
	if doc.Version <= s.lastVersion {
		return
	}
	s.lastVersion = doc.Version
	doc.Data = cloneBytes(doc.Data)
	for {
		select {
		case s.ch <- doc:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

func (h *hub) remove(s *Subscription, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detach(s, err)
}

// detach must be called with the hub lock held.
func (h *hub) detach(s *Subscription, err error) {
	s.once.Do(func() {
		if set, ok := h.subs[s.path]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.path)
			}
		}
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
		close(s.ch)
	})
}

// closeAll ends every subscription with err and rejects new ones.
func (h *hub) closeAll(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, set := range h.subs {
		for s := range set {
			h.detach(s, err)
		}
	}
}

// paths lists every path with at least one subscriber.
func (h *hub) paths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.subs))
	for p := range h.subs {
		out = append(out, p)
	}
	return out
}
