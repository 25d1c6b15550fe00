package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:v1:"

// RedisStore keeps sessions in Redis so restarts and multiple front-end
// replicas agree on who is signed in. Clear notifications stay process-local:
// a replica that did not handle the logout learns of it when its chat janitor
// revalidates the session against the store.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration

	mu   sync.Mutex
	subs *subscribers
}

// NewRedisStore builds a Redis-backed session store with the given TTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, subs: newSubscribers()}
}

// Get loads a session by ID.
func (s *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+id).Result()
	if err == redis.Nil {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("session lookup: %w", err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

// Set stores the session, refreshing its TTL.
func (s *RedisStore) Set(ctx context.Context, sess Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+sess.ID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Clear removes the session and notifies subscribers. Clearing an absent
// session is a no-op so logout stays idempotent.
func (s *RedisStore) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.mu.Lock()
	s.subs.publish(id)
	s.mu.Unlock()
	return nil
}

// Subscribe registers for cleared-session notifications.
func (s *RedisStore) Subscribe() (<-chan string, func()) {
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
