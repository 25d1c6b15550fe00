package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	sess      Session
	expiresAt time.Time
}

// MemoryStore is an in-process session store for tests and Redis-less
// development. Expiry is checked lazily on Get.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	subs    *subscribers
}

// NewMemoryStore builds an in-memory session store. A zero ttl means
// sessions never expire.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		subs:    newSubscribers(),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(s.entries, id)
		return Session{}, ErrNotFound
	}
	return entry.sess, nil
}

func (s *MemoryStore) Set(_ context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := memoryEntry{sess: sess}
	if s.ttl > 0 {
		entry.expiresAt = time.Now().Add(s.ttl)
	}
	s.entries[sess.ID] = entry
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	s.subs.publish(id)
	return nil
}

func (s *MemoryStore) Subscribe() (<-chan string, func()) {
	s.mu.Lock()
	id, ch := s.subs.add()
	s.mu.Unlock()
	cancel := func() {
		s.mu.Lock()
		s.subs.remove(id)
		s.mu.Unlock()
	}
	return ch, cancel
}
