package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/brunlockfaster/webfront/internal/session"
)

// Audit logs one line per request. Session-gated traffic carries the session
// ID so a visitor's page loads, top-ups and chat polls can be correlated
// across the request log.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("duration", time.Since(start)),
			slog.String("ip", c.IP()),
		}
		if requestID, _ := c.Locals(requestIDHeader).(string); requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if sess, ok := c.Locals(session.ContextKey).(session.Session); ok {
			attrs = append(attrs, slog.String("session_id", sess.ID))
		}

		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			logger.Error("request", attrs...)
			return err
		}
		logger.Info("request", attrs...)
		return nil
	}
}
