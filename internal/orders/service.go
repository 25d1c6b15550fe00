package orders

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/brunlockfaster/webfront/internal/backend"
	"github.com/brunlockfaster/webfront/internal/session"
)

const defaultPriceCents = 2_900

// Validation failures for the public order form; surfaced inline, no
// backend call is made.
var (
	ErrMissingEmail = errors.New("please enter your email")
	ErrMissingBrand = errors.New("please specify your brand")
	ErrMissingModel = errors.New("please specify your model")
	ErrMissingIMEI  = errors.New("please enter an IMEI")
)

// API is the slice of the unlock backend client the order flows need.
type API interface {
	CreateOrder(ctx context.Context, req backend.OrderRequest) (string, error)
	TrackOrder(ctx context.Context, orderNumber, email string) (backend.Order, error)
	MyOrders(ctx context.Context, token string) ([]backend.Order, error)
}

// Service handles the three order flows: guest checkout from the landing
// page, public tracking, and the signed-in order list. Orders themselves are
// owned by the backend; nothing here mutates one.
type Service struct {
	api    API
	logger *slog.Logger
}

// NewService builds the orders service.
func NewService(api API, logger *slog.Logger) *Service {
	return &Service{api: api, logger: logger}
}

// CreateInput is the landing-page order form. Brand and Model carry the
// resolved values (free-text "Other" entries already substituted).
type CreateInput struct {
	Email      string
	Brand      string
	Model      string
	IMEI       string
	PriceCents int64
}

// Create validates the form and submits the order, returning the checkout
// URL to redirect the browser to. A missing price falls back to the base
// unlock price.
func (s *Service) Create(ctx context.Context, input CreateInput) (string, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.Brand = strings.TrimSpace(input.Brand)
	input.Model = strings.TrimSpace(input.Model)
	input.IMEI = strings.TrimSpace(input.IMEI)

	switch {
	case input.Email == "":
		return "", ErrMissingEmail
	case input.Brand == "":
		return "", ErrMissingBrand
	case input.Model == "":
		return "", ErrMissingModel
	case input.IMEI == "":
		return "", ErrMissingIMEI
	}

	if input.PriceCents <= 0 {
		input.PriceCents = defaultPriceCents
	}

	return s.api.CreateOrder(ctx, backend.OrderRequest{
		Email:      input.Email,
		Brand:      input.Brand,
		Model:      input.Model,
		IMEI:       input.IMEI,
		PriceCents: input.PriceCents,
	})
}

// Track looks up a single order by number + email for the public page.
func (s *Service) Track(ctx context.Context, orderNumber, email string) (backend.Order, error) {
	return s.api.TrackOrder(ctx, strings.TrimSpace(orderNumber), strings.TrimSpace(email))
}

// ListMine returns the caller's orders for the account page. Failures
// degrade to an empty list with the error reported for inline display.
func (s *Service) ListMine(ctx context.Context, sess session.Session) ([]backend.Order, error) {
	list, err := s.api.MyOrders(ctx, sess.Token)
	if err != nil {
		s.logger.Warn("order list fetch failed", "session_id", sess.ID, "error", err)
		return nil, err
	}
	if list == nil {
		list = []backend.Order{}
	}
	return list, nil
}
