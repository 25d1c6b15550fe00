package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/brunlockfaster/webfront/internal/backend"
	"github.com/brunlockfaster/webfront/internal/middleware"
	"github.com/brunlockfaster/webfront/internal/orders"
	"github.com/brunlockfaster/webfront/internal/session"
	"github.com/brunlockfaster/webfront/internal/wallet"
)

// brandModels backs the landing page device selects. "Other" on either
// level reveals a free-text field.
var brandModels = map[string][]string{
	"Apple":        {"iPhone 16 / 16 Pro", "iPhone 15 / 15 Pro", "iPhone 14 / 14 Pro", "iPhone 13 / 13 Pro", "iPhone 12 / 12 Pro", "iPhone SE (all)", "Other"},
	"Samsung":      {"Galaxy S24 / S24 Ultra", "Galaxy S23 / S23 Ultra", "Galaxy S22 / S22 Ultra", "Galaxy A series", "Galaxy Note 20", "Other"},
	"LG":           {"LG Wing", "LG Velvet", "LG Stylo 6", "LG K51 / K92", "Other"},
	"Motorola":     {"Moto G Power (all years)", "Moto G Stylus (all years)", "Motorola Edge (all)", "Motorola One 5G", "Moto E (all years)", "Other"},
	"Google Pixel": {"Pixel 9 / 9 Pro", "Pixel 8 / 8 Pro", "Pixel 7 / 7 Pro", "Pixel 6 / 6 Pro", "Pixel 5 / 5a", "Other"},
	"OnePlus":      {"OnePlus 12 / 12R", "OnePlus 11 / 11R", "OnePlus 10 Pro / 10T", "OnePlus 9 / 9 Pro", "Nord N30 / N20", "Other"},
	"Huawei":       {"P60 / P60 Pro", "P50 / P50 Pro", "Mate 50 / 50 Pro", "Mate 40 / 40 Pro", "Nova series", "Other"},
	"Sony":         {"Xperia 1 V", "Xperia 5 V", "Xperia 10 V", "Xperia Pro / Pro-I", "Other"},
	"Nokia":        {"Nokia G50", "Nokia X100", "Nokia 5.4", "Nokia 3.4", "Other"},
	"Xiaomi":       {"Xiaomi 13 / 13 Pro", "Xiaomi 12 / 12 Pro", "Xiaomi 11 / 11T", "Redmi Note 13 / 12", "POCO F5 / F4", "Other"},
}

// RegisterPageRoutes wires the server-rendered pages.
func RegisterPageRoutes(app *fiber.App, d Deps, orderSvc *orders.Service, walletSvc *wallet.Service) {
	app.Get("/", func(c *fiber.Ctx) error {
		_, signedIn := c.Locals(session.ContextKey).(session.Session)
		return c.Render("index", fiber.Map{
			"Brands":   brandModels,
			"SignedIn": signedIn,
		})
	})

	// Chat access gate: logged-in visitors go straight to the account page
	// where the chat lives; everyone else is asked to sign in first.
	app.Get("/chat", func(c *fiber.Ctx) error {
		if _, ok := c.Locals(session.ContextKey).(session.Session); ok {
			return c.Redirect("/account", fiber.StatusFound)
		}
		return c.Render("chat_gate", fiber.Map{})
	})

	app.Get("/order-success", func(c *fiber.Ctx) error {
		return c.Render("order_success", fiber.Map{"OrderNumber": c.Query("order")})
	})

	app.Get("/order-cancel", func(c *fiber.Ctx) error {
		return c.Render("order_cancel", fiber.Map{})
	})

	// Account dashboard: orders, wallet credit and the inline chat panel in
	// one view. Data fetch failures degrade per section instead of failing
	// the whole page.
	app.Get("/account", middleware.RequirePage(), func(c *fiber.Ctx) error {
		sess := c.Locals(session.ContextKey).(session.Session)

		var ordersErr string
		list, err := orderSvc.ListMine(c.UserContext(), sess)
		if err != nil {
			ordersErr = "Failed to load orders"
			list = []backend.Order{}
		}

		stmt := walletSvc.Statement(c.UserContext(), sess)

		return c.Render("account", fiber.Map{
			"User":         sess.User,
			"Orders":       list,
			"OrdersError":  ordersErr,
			"CreditCents":  stmt.CreditBalanceCents,
			"Transactions": stmt.Transactions,
			"Presets":      wallet.Presets,
		})
	})
}
