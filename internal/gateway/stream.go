package gateway

import (
	"sync"

	"github.com/mployhr/recruitdash/internal/adapters/docstore"
	"github.com/mployhr/recruitdash/pkg/metrics"
)

// Stream delivers snapshots of one topic until it is closed or fails.
type Stream struct {
	topic Topic
	sub   *docstore.Subscription
	ch    chan Snapshot
	done  chan struct{}

	mu  sync.Mutex
	err error
}

func newStream(topic Topic, sub *docstore.Subscription, missing bool) *Stream {
	s := &Stream{
		topic: topic,
		sub:   sub,
		ch:    make(chan Snapshot, 1),
		done:  make(chan struct{}),
	}
	go s.run(missing)
	return s
}

func (s *Stream) run(missing bool) {
	defer close(s.done)
	defer close(s.ch)
	defer s.recordErr()

	if missing {
		metrics.RecordSnapshot(string(s.topic))
		if !s.send(Snapshot{Topic: s.topic}) {
			return
		}
	}
	for doc := range s.sub.C() {
		metrics.RecordSnapshot(string(s.topic))
		snap := Snapshot{
			Topic:     s.topic,
			Exists:    true,
			Data:      doc.Data,
			Version:   doc.Version,
			UpdatedAt: doc.UpdatedAt,
		}
		if !s.send(snap) {
			return
		}
	}
}

func (s *Stream) recordErr() {
	err := s.sub.Err()
	if err == nil {
		return
	}
	metrics.RecordSubscriptionError(string(s.topic))
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// send returns false once the subscription has ended.
func (s *Stream) send(snap Snapshot) bool {
	select {
	case s.ch <- snap:
		return true
	case <-s.sub.Done():
		return false
	}
}

// Topic returns the streamed topic.
func (s *Stream) Topic() Topic { return s.topic }

// C delivers snapshots. It is closed when the stream ends.
func (s *Stream) C() <-chan Snapshot { return s.ch }

// Err returns the terminal error once C is closed; nil after a normal Close.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close unsubscribes and waits for delivery to stop.
func (s *Stream) Close() {
	s.sub.Close()
	<-s.done
}
