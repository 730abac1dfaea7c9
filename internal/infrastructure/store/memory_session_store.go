package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemorySessionStore keeps sessions in process. Data outlives the logical
// expiry until Destroy is called so the sweeper can still read it.
type MemorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*memorySession
}

type memorySession struct {
	values    map[string][]byte
	expiresAt time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*memorySession),
	}
}

// WithClock replaces the time source, for tests.
func (s *MemorySessionStore) WithClock(now func() time.Time) *MemorySessionStore {
	s.now = now
	return s
}

func (s *MemorySessionStore) Get(ctx context.Context, sid, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sid]
	if !ok {
		return nil, false, nil
	}
	v, ok := sess.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemorySessionStore) Set(ctx context.Context, sid, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sid]
	if !ok {
		sess = &memorySession{values: make(map[string][]byte)}
		s.sessions[sid] = sess
	}
	sess.values[key] = append([]byte(nil), value...)
	sess.expiresAt = s.now().Add(s.ttl)
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, sid, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sid]; ok {
		delete(sess.values, key)
	}
	return nil
}

// Expired returns up to limit session ids whose expiry is before now, oldest first.
func (s *MemorySessionStore) Expired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type entry struct {
		id  string
		exp time.Time
	}
	var expired []entry
	for id, sess := range s.sessions {
		if sess.expiresAt.Before(now) {
			expired = append(expired, entry{id, sess.expiresAt})
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].exp.Before(expired[j].exp) })

	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	ids := make([]string, len(expired))
	for i, e := range expired {
		ids[i] = e.id
	}
	return ids, nil
}

func (s *MemorySessionStore) Exists(ctx context.Context, sid string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sid]
	return ok && len(sess.values) > 0, nil
}

// DropData removes sid's values but keeps its expiry entry, the way Redis
// behaves once the hash TTL lapses before a sweep.
func (s *MemorySessionStore) DropData(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sid]; ok {
		sess.values = make(map[string][]byte)
	}
}

func (s *MemorySessionStore) Destroy(ctx context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
	return nil
}
