package orders

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/brunlockfaster/webfront/internal/backend"
	"github.com/brunlockfaster/webfront/internal/session"
)

// Handler serves the order form post, the tracking page and the account
// order list.
type Handler struct {
	service *Service
}

// NewHandler builds an orders HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles the landing-page order form. The brand/model selects offer
// an "Other" option backed by free-text fields, mirroring the form layout.
func (h *Handler) Create(c *fiber.Ctx) error {
	input := CreateInput{
		Email: c.FormValue("email"),
		Brand: c.FormValue("brand"),
		Model: c.FormValue("model"),
		IMEI:  c.FormValue("imei"),
	}
	if input.Brand == "Other" {
		input.Brand = c.FormValue("custom_brand")
		input.Model = c.FormValue("custom_model")
	} else if input.Model == "Other" {
		input.Model = c.FormValue("custom_model")
	}
	if price := c.FormValue("price_cents"); price != "" {
		cents, err := strconv.ParseInt(price, 10, 64)
		if err == nil {
			input.PriceCents = cents
		}
	}

	checkoutURL, err := h.service.Create(c.UserContext(), input)
	if err != nil {
		if isValidationError(err) {
			return c.Status(http.StatusBadRequest).Render("index", fiber.Map{
				"Error": err.Error(),
				"Form":  input,
			})
		}
		return c.Status(http.StatusBadGateway).Render("index", fiber.Map{
			"Error": "Failed to create order: " + err.Error(),
			"Form":  input,
		})
	}

	return c.Redirect(checkoutURL, fiber.StatusSeeOther)
}

// Track renders the tracking result for an order number + email pair.
func (h *Handler) Track(c *fiber.Ctx) error {
	orderNumber := c.Query("order_number", c.FormValue("order_number"))
	email := c.Query("email", c.FormValue("email"))
	if orderNumber == "" || email == "" {
		return c.Render("track", fiber.Map{})
	}

	order, err := h.service.Track(c.UserContext(), orderNumber, email)
	if err != nil {
		msg := "Unable to find order"
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return c.Render("track", fiber.Map{"Error": msg, "OrderNumber": orderNumber, "Email": email})
	}

	return c.Render("track", fiber.Map{"Order": order, "OrderNumber": orderNumber, "Email": email})
}

// ListMine returns the signed-in caller's orders as JSON for the account
// page refresh button.
func (h *Handler) ListMine(c *fiber.Ctx) error {
	sess, ok := c.Locals(session.ContextKey).(session.Session)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "you are not logged in")
	}
	list, err := h.service.ListMine(c.UserContext(), sess)
	if err != nil {
		return fiber.NewError(http.StatusBadGateway, "failed to load orders")
	}
	return c.JSON(fiber.Map{"orders": list})
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrMissingEmail) ||
		errors.Is(err, ErrMissingBrand) ||
		errors.Is(err, ErrMissingModel) ||
		errors.Is(err, ErrMissingIMEI)
}
