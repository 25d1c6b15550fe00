package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/brunlockfaster/webfront/internal/auth"
	"github.com/brunlockfaster/webfront/internal/backend"
	"github.com/brunlockfaster/webfront/internal/chat"
	"github.com/brunlockfaster/webfront/internal/config"
	"github.com/brunlockfaster/webfront/internal/middleware"
	"github.com/brunlockfaster/webfront/internal/orders"
	"github.com/brunlockfaster/webfront/internal/session"
	"github.com/brunlockfaster/webfront/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	API      *backend.Client
	Sessions session.Store
	Chat     *chat.Manager
	Cache    *redis.Client
	Logger   *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(middleware.SessionLoader(d.Sessions))

	RegisterHealthRoutes(app, d)

	// Services and handlers
	orderSvc := orders.NewService(d.API, d.Logger)
	walletSvc := wallet.NewService(d.API, d.Logger)
	authSvc := auth.NewService(d.API, d.Sessions, d.Logger)

	orderHandler := orders.NewHandler(orderSvc)
	walletHandler := wallet.NewHandler(walletSvc)
	authHandler := auth.NewHandler(authSvc, d.Cfg.SessionTTL, d.Cfg.CookieSecure)
	chatHandler := chat.NewHandler(d.Chat)

	// Pages
	RegisterPageRoutes(app, d, orderSvc, walletSvc)

	// Auth forms
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	app.Get("/login", authHandler.ShowLogin)
	app.Post("/login", rateLimiter, authHandler.Login)
	app.Get("/register", authHandler.ShowRegister)
	app.Post("/register", authHandler.Register)
	app.Post("/logout", func(c *fiber.Ctx) error {
		if sess, ok := c.Locals(session.ContextKey).(session.Session); ok {
			chatHandler.ReleaseSession(sess.ID)
		}
		return authHandler.Logout(c)
	})

	// Public order flows
	app.Post("/orders", orderHandler.Create)
	app.Get("/track", orderHandler.Track)
	app.Post("/track", orderHandler.Track)

	// Session-scoped JSON surface for the account page and chat widget
	api := app.Group("/api/session", middleware.RequireSession())
	api.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	api.Get("/orders", orderHandler.ListMine)
	api.Get("/wallet", walletHandler.Statement)
	api.Post("/wallet/topup", walletHandler.TopUp)
	api.Post("/chat/open", chatHandler.Open)
	api.Post("/chat/close", chatHandler.Close)
	api.Get("/chat/messages", chatHandler.Messages)
	api.Post("/chat/messages", chatHandler.Send)

	return nil
}
