package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/brunlockfaster/webfront/internal/backend"
	"github.com/brunlockfaster/webfront/internal/session"
)

// Manager owns one Thread per session and tears threads down when the
// session ends (logout propagation via the session store subscription) or
// goes idle (janitor sweep).
type Manager struct {
	api      API
	sessions session.Store
	logger   *slog.Logger
	opts     Options

	mu      sync.Mutex
	threads map[string]*Thread
	closed  bool

	unsubscribe func()
	stop        chan struct{}
	wg          sync.WaitGroup
}

// NewManager builds the chat manager and starts its background workers.
func NewManager(api API, sessions session.Store, logger *slog.Logger, opts Options) *Manager {
	m := &Manager{
		api:      api,
		sessions: sessions,
		logger:   logger,
		opts:     opts.withDefaults(),
		threads:  make(map[string]*Thread),
		stop:     make(chan struct{}),
	}

	events, cancel := sessions.Subscribe()
	m.unsubscribe = cancel

	m.wg.Add(2)
	go m.watchSessions(events)
	go m.janitor()

	return m
}

// Open attaches a watcher to the session's thread, creating the thread (and
// starting its poll loop) if this is the first surface to open. A session
// without a token never reaches the backend.
func (m *Manager) Open(sess session.Session) (*Watcher, error) {
	if sess.Token == "" {
		return nil, ErrNoSession
	}
	t, err := m.thread(sess)
	if err != nil {
		return nil, err
	}
	return t.attach(), nil
}

// Snapshot returns the session's current message list without attaching a
// watcher. A session with no thread yet sees an empty list.
func (m *Manager) Snapshot(sess session.Session) []backend.Message {
	m.mu.Lock()
	t, ok := m.threads[sess.ID]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return t.snapshot()
}

// Send trims and posts one message. Empty input and missing sessions are
// rejected locally with no network call. The server-echoed message is merged
// into the thread so the next poll tick cannot duplicate it.
func (m *Manager) Send(ctx context.Context, sess session.Session, text string) (backend.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return backend.Message{}, ErrEmptyMessage
	}
	if sess.Token == "" {
		return backend.Message{}, ErrNoSession
	}

	t, err := m.thread(sess)
	if err != nil {
		return backend.Message{}, err
	}
	t.touch()

	echo, err := m.api.SendMessage(ctx, sess.Token, text)
	if err != nil {
		return backend.Message{}, err
	}

	t.merge([]backend.Message{echo})
	return echo, nil
}

// CloseSession tears down the session's thread, if any.
func (m *Manager) CloseSession(sessionID string) {
	m.mu.Lock()
	t, ok := m.threads[sessionID]
	if ok {
		delete(m.threads, sessionID)
	}
	m.mu.Unlock()
	if ok {
		t.close()
		m.logger.Debug("chat thread closed", "session_id", sessionID)
	}
}

// Close stops background workers and every thread.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	threads := make([]*Thread, 0, len(m.threads))
	for id, t := range m.threads {
		delete(m.threads, id)
		threads = append(threads, t)
	}
	m.mu.Unlock()

	m.unsubscribe()
	close(m.stop)
	for _, t := range threads {
		t.close()
	}
	m.wg.Wait()
}

func (m *Manager) thread(sess session.Session) (*Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	t, ok := m.threads[sess.ID]
	if !ok {
		t = newThread(sess.ID, sess.Token, m.api, m.logger, m.opts.PollInterval)
		m.threads[sess.ID] = t
	}
	return t, nil
}

func (m *Manager) watchSessions(events <-chan string) {
	defer m.wg.Done()
	for {
		select {
		case <-m.stop:
			return
		case id, ok := <-events:
			if !ok {
				return
			}
			m.CloseSession(id)
		}
	}
}

// janitor periodically sweeps threads that are no longer backed by a live
// surface or a live session.
func (m *Manager) janitor() {
	defer m.wg.Done()
	interval := m.opts.IdleTimeout / 2
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

// sweep tears down threads whose surfaces went quiet past the idle timeout
// (tabs killed without a close call, with or without a leaked watcher) and
// threads whose session no longer exists in the store (TTL expiry; explicit
// logouts arrive via the subscription instead).
func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.threads))
	for id := range m.threads {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.mu.Lock()
		t, ok := m.threads[id]
		m.mu.Unlock()
		if !ok {
			continue
		}
		if t.idleSince(now, m.opts.IdleTimeout) {
			m.CloseSession(id)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := m.sessions.Get(ctx, id)
		cancel()
		if errors.Is(err, session.ErrNotFound) {
			m.CloseSession(id)
		}
	}
}
