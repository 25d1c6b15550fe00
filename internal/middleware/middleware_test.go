package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/brunlockfaster/webfront/internal/backend"
	"github.com/brunlockfaster/webfront/internal/logging"
	"github.com/brunlockfaster/webfront/internal/session"
)

func testCache(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	app := fiber.New()
	calls := 0
	app.Post("/orders", Idempotency(testCache(t), time.Minute, logging.Discard()), func(c *fiber.Ctx) error {
		calls++
		return c.SendString("created")
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status = %d", i, resp.StatusCode)
		}
	}
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2", calls)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	app := fiber.New()
	calls := 0
	app.Post("/topup", Idempotency(testCache(t), time.Minute, logging.Discard()), func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusCreated).SendString("first")
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/topup", nil)
		req.Header.Set("Idempotency-Key", "key-1")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("request %d status = %d", i, resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if string(body) != "first" {
			t.Fatalf("request %d body = %q", i, body)
		}
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
}

func TestIdempotencyNilCacheDisabled(t *testing.T) {
	app := fiber.New()
	calls := 0
	app.Post("/topup", Idempotency(nil, time.Minute, logging.Discard()), func(c *fiber.Ctx) error {
		calls++
		return c.SendString("ok")
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/topup", nil)
		req.Header.Set("Idempotency-Key", "key-1")
		if _, err := app.Test(req); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2", calls)
	}
}

func TestSessionLoaderAndRequireSession(t *testing.T) {
	store := session.NewMemoryStore(0)
	sess := session.New("jwt-abc", backend.User{Email: "me@example.com"})
	if err := store.Set(context.Background(), sess); err != nil {
		t.Fatalf("store: %v", err)
	}

	app := fiber.New()
	app.Use(SessionLoader(store))
	app.Get("/api/session/orders", RequireSession(), func(c *fiber.Ctx) error {
		got := c.Locals(session.ContextKey).(session.Session)
		return c.SendString(got.User.Email)
	})

	// No cookie: rejected before any handler work.
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/session/orders", nil))
	if err != nil {
		t.Fatalf("anonymous request: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", resp.StatusCode)
	}

	// Live cookie: session lands in Locals.
	req := httptest.NewRequest(http.MethodGet, "/api/session/orders", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.ID})
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("authenticated request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "me@example.com" {
		t.Fatalf("body = %q", body)
	}
}

func TestRequirePageRedirectsAnonymous(t *testing.T) {
	app := fiber.New()
	app.Use(SessionLoader(session.NewMemoryStore(0)))
	app.Get("/account", RequirePage(), func(c *fiber.Ctx) error {
		return c.SendString("account")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/account", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Fatalf("location = %q, want /login", loc)
	}
}

func TestRequestIDReplacesInvalidInbound(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid\ninjected=true")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	got := resp.Header.Get("X-Request-ID")
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("response request id %q is not a uuid", got)
	}

	// A well-formed inbound ID is preserved for cross-service correlation.
	inbound := uuid.NewString()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", inbound)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.Header.Get("X-Request-ID") != inbound {
		t.Fatalf("inbound id not preserved: got %q", resp.Header.Get("X-Request-ID"))
	}
}

func TestAuditLogsSessionID(t *testing.T) {
	store := session.NewMemoryStore(0)
	sess := session.New("jwt-abc", backend.User{Email: "me@example.com"})
	if err := store.Set(context.Background(), sess); err != nil {
		t.Fatalf("store: %v", err)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	app := fiber.New()
	app.Use(RequestID())
	app.Use(Audit(logger))
	app.Use(SessionLoader(store))
	app.Get("/account", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest(http.MethodGet, "/account", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.ID})
	if _, err := app.Test(req); err != nil {
		t.Fatalf("request: %v", err)
	}

	line := buf.String()
	if !strings.Contains(line, `"session_id":"`+sess.ID+`"`) {
		t.Fatalf("audit line missing session id: %s", line)
	}
	if !strings.Contains(line, `"request_id"`) || !strings.Contains(line, `"path":"/account"`) {
		t.Fatalf("audit line missing request fields: %s", line)
	}
}

func TestLoginRateLimitBlocksAfterThreshold(t *testing.T) {
	app := fiber.New()
	app.Post("/login", LoginRateLimit(testCache(t), 3), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		return resp.StatusCode
	}

	for i := 0; i < 3; i++ {
		if code := post(); code != http.StatusOK {
			t.Fatalf("attempt %d status = %d, want 200", i+1, code)
		}
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Fatalf("throttled status = %d, want 429", code)
	}
}
