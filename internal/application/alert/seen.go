package alert

import (
	"container/list"
	"sync"
	"time"
)

// seenSet is a TTL-bound LRU of event ids that were already alerted.
type seenSet struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	now   func() time.Time
	ll    *list.List // most recent at front
	items map[string]*list.Element
}

type seenEntry struct {
	key string
	exp time.Time
}

func newSeenSet(maxKeys int, ttl time.Duration) *seenSet {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &seenSet{cap: maxKeys, ttl: ttl, now: time.Now, ll: list.New(), items: make(map[string]*list.Element)}
}

// markNew records key and reports whether it was absent or expired. Expired
// entries at the cold end are dropped on every call.
func (s *seenSet) markNew(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	defer s.sweep(now)

	if el, ok := s.items[key]; ok {
		en := el.Value.(seenEntry)
		if now.Before(en.exp) {
			s.ll.MoveToFront(el)
			return false
		}
		en.exp = now.Add(s.ttl)
		el.Value = en
		s.ll.MoveToFront(el)
		return true
	}

	s.items[key] = s.ll.PushFront(seenEntry{key: key, exp: now.Add(s.ttl)})
	for s.ll.Len() > s.cap {
		s.evict(s.ll.Back())
	}
	return true
}

func (s *seenSet) sweep(now time.Time) {
	for t := s.ll.Back(); t != nil && !now.Before(t.Value.(seenEntry).exp); t = s.ll.Back() {
		s.evict(t)
	}
}

func (s *seenSet) evict(el *list.Element) {
	s.ll.Remove(el)
	delete(s.items, el.Value.(seenEntry).key)
}

func (s *seenSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ll.Len()
}
