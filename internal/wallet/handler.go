package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/brunlockfaster/webfront/internal/session"
)

// Handler exposes the wallet JSON endpoints used by the account page.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Statement returns the credit balance and recent activity.
func (h *Handler) Statement(c *fiber.Ctx) error {
	sess, ok := c.Locals(session.ContextKey).(session.Session)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "you are not logged in")
	}
	stmt := h.service.Statement(c.UserContext(), sess)
	return c.JSON(fiber.Map{
		"credit_balance_cents": stmt.CreditBalanceCents,
		"transactions":         stmt.Transactions,
	})
}

type topUpRequest struct {
	AmountCents int64 `json:"amountCents"`
}

// TopUp creates a checkout session; the browser follows the returned URL.
func (h *Handler) TopUp(c *fiber.Ctx) error {
	sess, ok := c.Locals(session.ContextKey).(session.Session)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "you are not logged in")
	}

	var req topUpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	url, err := h.service.TopUp(c.UserContext(), sess, req.AmountCents)
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case err != nil:
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}

	return c.JSON(fiber.Map{"url": url})
}
