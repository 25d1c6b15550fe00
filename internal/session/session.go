package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/brunlockfaster/webfront/internal/backend"
)

// ErrNotFound indicates the session ID has no live entry (never created,
// expired, or cleared by logout).
var ErrNotFound = errors.New("session not found")

// CookieName is the browser cookie carrying the session ID.
const CookieName = "br_session"

// ContextKey is the fiber.Ctx Locals key under which the loader middleware
// stores the resolved Session.
const ContextKey = "session"

// Session ties a backend bearer token and user profile to one browser.
// It is the sole authorization signal for every backend call made on the
// visitor's behalf.
type Session struct {
	ID        string       `json:"id"`
	Token     string       `json:"token"`
	User      backend.User `json:"user"`
	CreatedAt time.Time    `json:"created_at"`
}

// New mints a session for a fresh login or registration.
func New(token string, user backend.User) Session {
	return Session{
		ID:        uuid.NewString(),
		Token:     token,
		User:      user,
		CreatedAt: time.Now().UTC(),
	}
}

// Store is the process-wide session registry. Subscribe lets consumers
// (the chat manager) react when a session ends.
type Store interface {
	Get(ctx context.Context, id string) (Session, error)
	Set(ctx context.Context, sess Session) error
	Clear(ctx context.Context, id string) error

	// Subscribe registers a channel that receives the ID of every cleared
	// session. The returned func cancels the subscription. Delivery is
	// best-effort: a slow consumer drops events rather than blocking Clear.
	Subscribe() (<-chan string, func())
}

// subscribers is the fan-out shared by both Store implementations.
type subscribers struct {
	chans map[int]chan string
	next  int
}

func newSubscribers() *subscribers {
	return &subscribers{chans: make(map[int]chan string)}
}

func (s *subscribers) add() (int, chan string) {
	id := s.next
	s.next++
	ch := make(chan string, 16)
	s.chans[id] = ch
	return id, ch
}

func (s *subscribers) remove(id int) {
	if ch, ok := s.chans[id]; ok {
		delete(s.chans, id)
		close(ch)
	}
}

func (s *subscribers) publish(sessionID string) {
	for _, ch := range s.chans {
		select {
		case ch <- sessionID:
		default:
		}
	}
}
