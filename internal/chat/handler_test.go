package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/brunlockfaster/webfront/internal/backend"
	"github.com/brunlockfaster/webfront/internal/logging"
	"github.com/brunlockfaster/webfront/internal/session"
)

func TestHandlerOpenRecreatesAfterTeardown(t *testing.T) {
	fake := newFakeUnlockAPI()
	defer fake.close()
	store := session.NewMemoryStore(0)
	api := backend.New(fake.srv.URL, 5*time.Second)
	m := NewManager(api, store, logging.Discard(), Options{PollInterval: time.Hour, IdleTimeout: time.Minute})
	t.Cleanup(m.Close)
	sess := newTestSession(t, store, "t1")
	h := NewHandler(m)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(session.ContextKey, sess)
		return c.Next()
	})
	app.Post("/open", h.Open)
	app.Post("/close", h.Close)

	post := func(path string) int {
		t.Helper()
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, path, nil))
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		return resp.StatusCode
	}

	if code := post("/open"); code != http.StatusOK {
		t.Fatalf("first open status = %d", code)
	}
	waitFor(t, func() bool { return fake.fetches() == 1 })

	// Logout elsewhere tears the thread down behind the handler's back.
	if err := store.Clear(context.Background(), sess.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	waitFor(t, func() bool {
		m.mu.Lock()
		_, ok := m.threads[sess.ID]
		m.mu.Unlock()
		return !ok
	})

	// Re-login under the same session ID: open must attach a fresh watcher
	// and restart the poll loop instead of bumping the stale refcount.
	if err := store.Set(context.Background(), sess); err != nil {
		t.Fatalf("set: %v", err)
	}
	if code := post("/open"); code != http.StatusOK {
		t.Fatalf("reopen status = %d", code)
	}
	waitFor(t, func() bool { return fake.fetches() == 2 })

	if code := post("/close"); code != http.StatusOK {
		t.Fatalf("close status = %d", code)
	}
}
