package natsfeed

import "sync"

// seenSet remembers the most recent message ids so redelivered messages are
// applied once. When full, the oldest id is forgotten.
type seenSet struct {
	mu    sync.Mutex
	ids   map[string]struct{}
	ring  []string
	next  int
	limit int
}

func newSeenSet(limit int) *seenSet {
	if limit < 1 {
		limit = defaultSeenLimit
	}
	return &seenSet{
		ids:   make(map[string]struct{}, limit),
		ring:  make([]string, limit),
		limit: limit,
	}
}

// SeenAndRecord reports whether id was already recorded, recording it if not.
func (s *seenSet) SeenAndRecord(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return true
	}
	if old := s.ring[s.next]; old != "" {
		delete(s.ids, old)
	}
	s.ring[s.next] = id
	s.next = (s.next + 1) % s.limit
	s.ids[id] = struct{}{}
	return false
}

// Len returns the number of remembered ids.
func (s *seenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
