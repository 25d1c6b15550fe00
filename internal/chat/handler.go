package chat

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/brunlockfaster/webfront/internal/session"
)

// Handler maps the browser-facing chat endpoints onto the manager. Panel
// open/close calls are refcounted per session so the account panel and the
// floating widget can be open at once while sharing a single watcher.
type Handler struct {
	manager *Manager

	mu   sync.Mutex
	open map[string]*openState
}

type openState struct {
	watcher *Watcher
	refs    int
}

// NewHandler builds the chat HTTP handler.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager, open: make(map[string]*openState)}
}

type messageView struct {
	ID         int64  `json:"id"`
	SenderType string `json:"sender_type"`
	Message    string `json:"message"`
	CreatedAt  string `json:"created_at"`
}

// Open marks a chat surface as visible, starting the poll loop on the first
// open surface for the session.
func (h *Handler) Open(c *fiber.Ctx) error {
	sess, ok := c.Locals(session.ContextKey).(session.Session)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "please log in to chat")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	state, exists := h.open[sess.ID]
	if exists && !state.watcher.Closed() {
		state.refs++
		return c.JSON(fiber.Map{"open": true})
	}
	// A logout or janitor sweep closed the watcher behind our back; drop the
	// stale entry and attach fresh.
	if exists {
		delete(h.open, sess.ID)
	}

	w, err := h.manager.Open(sess)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	h.open[sess.ID] = &openState{watcher: w, refs: 1}
	return c.JSON(fiber.Map{"open": true})
}

// Close marks a surface hidden; the last close detaches the watcher and
// stops the poll loop.
func (h *Handler) Close(c *fiber.Ctx) error {
	sess, ok := c.Locals(session.ContextKey).(session.Session)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "please log in to chat")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	state, exists := h.open[sess.ID]
	if !exists {
		return c.JSON(fiber.Map{"open": false})
	}
	if state.watcher.Closed() {
		delete(h.open, sess.ID)
		return c.JSON(fiber.Map{"open": false})
	}
	state.refs--
	if state.refs <= 0 {
		state.watcher.Close()
		delete(h.open, sess.ID)
	}
	return c.JSON(fiber.Map{"open": state.refs > 0})
}

// Messages returns the thread snapshot. It never triggers a fetch of its
// own: the poll loop is the only reader of the backend.
func (h *Handler) Messages(c *fiber.Ctx) error {
	sess, ok := c.Locals(session.ContextKey).(session.Session)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "please log in to chat")
	}

	msgs := h.manager.Snapshot(sess)
	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, messageView{
			ID:         m.ID,
			SenderType: m.SenderType,
			Message:    m.Body,
			CreatedAt:  m.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(fiber.Map{"messages": views})
}

type sendRequest struct {
	Message string `json:"message"`
}

// Send posts one message and echoes the stored copy back to the surface.
func (h *Handler) Send(c *fiber.Ctx) error {
	sess, ok := c.Locals(session.ContextKey).(session.Session)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "please log in to chat")
	}

	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	echo, err := h.manager.Send(c.UserContext(), sess, req.Message)
	switch {
	case errors.Is(err, ErrEmptyMessage):
		return fiber.NewError(http.StatusBadRequest, "message is empty")
	case errors.Is(err, ErrNoSession):
		return fiber.NewError(http.StatusUnauthorized, "please log in to chat")
	case err != nil:
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}

	return c.JSON(fiber.Map{"message": messageView{
		ID:         echo.ID,
		SenderType: echo.SenderType,
		Message:    echo.Body,
		CreatedAt:  echo.CreatedAt.Format(time.RFC3339),
	}})
}

// ReleaseSession drops any open watcher refcount for a session that just
// logged out. The manager's own subscription closes the thread; this only
// clears the handler's bookkeeping.
func (h *Handler) ReleaseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if state, exists := h.open[sessionID]; exists {
		state.watcher.Close()
		delete(h.open, sessionID)
	}
}
