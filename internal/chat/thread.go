package chat

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brunlockfaster/webfront/internal/backend"
)

// Thread is the single chat state for one session. Every render surface
// (account panel, floating widget) observes the same thread through a
// Watcher, so there is exactly one poll loop per signed-in visitor no
// matter how many panels are open.
type Thread struct {
	sessionID string
	token     string
	api       API
	logger    *slog.Logger
	interval  time.Duration

	mu         sync.Mutex
	msgs       []backend.Message
	seen       map[int64]bool
	cursor     int64
	watchers   map[int]*Watcher
	nextWatch  int
	lastActive time.Time
	closed     bool

	loopCancel context.CancelFunc
	loopDone   chan struct{}
}

func newThread(sessionID, token string, api API, logger *slog.Logger, interval time.Duration) *Thread {
	return &Thread{
		sessionID:  sessionID,
		token:      token,
		api:        api,
		logger:     logger,
		interval:   interval,
		seen:       make(map[int64]bool),
		watchers:   make(map[int]*Watcher),
		lastActive: time.Now(),
	}
}

// Watcher is a read-only subscription to a thread.
type Watcher struct {
	thread  *Thread
	id      int
	updates chan struct{}
	once    sync.Once
	done    atomic.Bool
}

// Snapshot returns a copy of the current message list in display order.
func (w *Watcher) Snapshot() []backend.Message {
	return w.thread.snapshot()
}

// Updates signals (coalesced) whenever the thread state changes. The channel
// closes when the watcher or thread is closed.
func (w *Watcher) Updates() <-chan struct{} {
	return w.updates
}

// Closed reports whether the watcher has been detached or its thread torn
// down behind its back (logout, janitor sweep).
func (w *Watcher) Closed() bool {
	return w.done.Load()
}

// Close detaches the watcher. The last watcher leaving stops the poll loop.
func (w *Watcher) Close() {
	w.once.Do(func() {
		w.thread.detach(w.id)
	})
}

func (t *Thread) attach() *Watcher {
	t.mu.Lock()
	w := &Watcher{
		thread:  t,
		id:      t.nextWatch,
		updates: make(chan struct{}, 1),
	}
	t.nextWatch++
	t.watchers[w.id] = w
	t.lastActive = time.Now()
	startLoop := len(t.watchers) == 1 && t.loopCancel == nil && !t.closed
	if startLoop {
		ctx, cancel := context.WithCancel(context.Background())
		t.loopCancel = cancel
		t.loopDone = make(chan struct{})
		go t.pollLoop(ctx, t.loopDone)
	}
	t.mu.Unlock()
	return w
}

func (t *Thread) detach(id int) {
	t.mu.Lock()
	w, ok := t.watchers[id]
	if ok {
		delete(t.watchers, id)
		w.done.Store(true)
		close(w.updates)
	}
	t.lastActive = time.Now()
	var stop context.CancelFunc
	if len(t.watchers) == 0 && t.loopCancel != nil {
		stop = t.loopCancel
		t.loopCancel = nil
	}
	t.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// pollLoop fetches immediately, then on every tick until cancelled. A failed
// tick is logged and skipped; the previous list stays visible and the next
// tick proceeds with the same cursor.
func (t *Thread) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	t.pollOnce(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.pollOnce(ctx)
		}
	}
}

func (t *Thread) pollOnce(ctx context.Context) {
	t.mu.Lock()
	cursor := t.cursor
	t.mu.Unlock()

	msgs, err := t.api.Messages(ctx, t.token, cursor)
	if err != nil {
		if ctx.Err() == nil {
			t.logger.Warn("chat poll failed", "session_id", t.sessionID, "error", err)
		}
		return
	}
	// A response that raced thread teardown is discarded, never applied.
	if ctx.Err() != nil {
		return
	}
	t.merge(msgs)
}

// merge reconciles fetched or echoed messages by server-assigned ID: already
// seen IDs are skipped, so an optimistic append followed by a poll tick can
// not duplicate a message. Messages without an ID are dropped entirely; there
// is no way to dedupe them on a later tick. Merging is backend activity, not
// surface activity, so lastActive stays untouched.
func (t *Thread) merge(msgs []backend.Message) {
	t.mu.Lock()
	changed := false
	for _, m := range msgs {
		if m.ID == 0 || t.seen[m.ID] {
			continue
		}
		t.msgs = append(t.msgs, m)
		t.seen[m.ID] = true
		if m.ID > t.cursor {
			t.cursor = m.ID
		}
		changed = true
	}
	var notify []*Watcher
	if changed {
		for _, w := range t.watchers {
			notify = append(notify, w)
		}
	}
	t.mu.Unlock()

	for _, w := range notify {
		select {
		case w.updates <- struct{}{}:
		default:
		}
	}
}

func (t *Thread) snapshot() []backend.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastActive = time.Now()
	out := make([]backend.Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

func (t *Thread) close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	stop := t.loopCancel
	t.loopCancel = nil
	for id, w := range t.watchers {
		delete(t.watchers, id)
		w.done.Store(true)
		close(w.updates)
	}
	t.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (t *Thread) touch() {
	t.mu.Lock()
	t.lastActive = time.Now()
	t.mu.Unlock()
}

// idleSince reports whether no surface has touched the thread (snapshot,
// send, attach, detach) for the timeout. A leaked watcher from a killed tab
// stops producing snapshots, so it does not keep the thread alive.
func (t *Thread) idleSince(now time.Time, timeout time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return now.Sub(t.lastActive) >= timeout
}
