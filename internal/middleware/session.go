package middleware

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/brunlockfaster/webfront/internal/session"
)

// SessionLoader resolves the session cookie into a session.Session stored in
// Locals. A missing or dead cookie is not an error here; gating happens in
// RequireSession / RequirePage so public pages stay reachable.
func SessionLoader(store session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Cookies(session.CookieName)
		if id == "" {
			return c.Next()
		}
		sess, err := store.Get(c.UserContext(), id)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				return fiber.NewError(http.StatusInternalServerError, "session lookup failed")
			}
			// Stale cookie: drop it so the browser stops presenting it.
			c.Cookie(&fiber.Cookie{Name: session.CookieName, Value: "", MaxAge: -1, HTTPOnly: true})
			return c.Next()
		}
		c.Locals(session.ContextKey, sess)
		return c.Next()
	}
}

// RequireSession rejects API calls without a live session. No backend call
// is ever attempted for an anonymous caller.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals(session.ContextKey).(session.Session); !ok {
			return fiber.NewError(http.StatusUnauthorized, "you are not logged in")
		}
		return c.Next()
	}
}

// RequirePage redirects anonymous page visitors to the login form instead of
// rendering a protected page.
func RequirePage() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals(session.ContextKey).(session.Session); !ok {
			return c.Redirect("/login", fiber.StatusFound)
		}
		return c.Next()
	}
}
