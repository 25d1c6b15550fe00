package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/brunlockfaster/webfront/internal/backend"
	"github.com/brunlockfaster/webfront/internal/session"
)

// Handler serves the login/register pages and their form posts, plus logout.
type Handler struct {
	service      *Service
	cookieTTL    time.Duration
	cookieSecure bool
}

// NewHandler builds an auth HTTP handler. cookieTTL bounds the session
// cookie lifetime; it should match the store TTL.
func NewHandler(service *Service, cookieTTL time.Duration, cookieSecure bool) *Handler {
	return &Handler{service: service, cookieTTL: cookieTTL, cookieSecure: cookieSecure}
}

// ShowLogin renders the login form; signed-in visitors bounce to /account.
func (h *Handler) ShowLogin(c *fiber.Ctx) error {
	if _, ok := c.Locals(session.ContextKey).(session.Session); ok {
		return c.Redirect("/account", fiber.StatusFound)
	}
	return c.Render("login", fiber.Map{})
}

// Login handles the login form post.
func (h *Handler) Login(c *fiber.Ctx) error {
	email := c.FormValue("email")
	password := c.FormValue("password")

	sess, err := h.service.Login(c.UserContext(), email, password)
	if err != nil {
		return c.Status(statusFor(err)).Render("login", fiber.Map{
			"Error": userMessage(err, "Login failed"),
			"Email": email,
		})
	}

	h.setCookie(c, sess.ID)
	return c.Redirect("/account", fiber.StatusSeeOther)
}

// ShowRegister renders the registration form.
func (h *Handler) ShowRegister(c *fiber.Ctx) error {
	if _, ok := c.Locals(session.ContextKey).(session.Session); ok {
		return c.Redirect("/account", fiber.StatusFound)
	}
	return c.Render("register", fiber.Map{})
}

// Register handles the registration form post.
func (h *Handler) Register(c *fiber.Ctx) error {
	input := RegisterInput{
		Name:     c.FormValue("name"),
		Email:    c.FormValue("email"),
		Phone:    c.FormValue("phone"),
		Password: c.FormValue("password"),
		Confirm:  c.FormValue("confirm"),
	}

	sess, err := h.service.Register(c.UserContext(), input)
	if err != nil {
		return c.Status(statusFor(err)).Render("register", fiber.Map{
			"Error": userMessage(err, "Registration failed"),
			"Name":  input.Name,
			"Email": input.Email,
			"Phone": input.Phone,
		})
	}

	h.setCookie(c, sess.ID)
	return c.Redirect("/account", fiber.StatusSeeOther)
}

// Logout clears the store entry and the cookie together, then sends the
// visitor home.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if sess, ok := c.Locals(session.ContextKey).(session.Session); ok {
		if err := h.service.Logout(c.UserContext(), sess.ID); err != nil {
			return fiber.NewError(http.StatusInternalServerError, "logout failed")
		}
	}
	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    "",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (h *Handler) setCookie(c *fiber.Ctx, sessionID string) {
	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    sessionID,
		MaxAge:   int(h.cookieTTL.Seconds()),
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrMissingCredentials), errors.Is(err, ErrPasswordMismatch):
		return http.StatusBadRequest
	default:
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusBadRequest {
				return apiErr.Status
			}
		}
		return http.StatusBadGateway
	}
}

func userMessage(err error, fallback string) string {
	if errors.Is(err, ErrMissingCredentials) || errors.Is(err, ErrPasswordMismatch) {
		return err.Error()
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
