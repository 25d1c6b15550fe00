package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"

	"github.com/brunlockfaster/webfront/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app *fiber.App
	d   routes.Deps
}

// New instantiates the HTTP server with HTML views and delegates route
// wiring to routes.Setup.
func New(d routes.Deps) (*Server, error) {
	engine := html.New("./web/templates", ".html")
	engine.Reload(d.Cfg.AppEnv == "development" || d.Cfg.AppEnv == "dev")
	engine.AddFunc("div", func(a, b int64) int64 { return a / b })
	engine.AddFunc("mod", func(a, b int64) int64 {
		m := a % b
		if m < 0 {
			m = -m
		}
		return m
	})

	app := fiber.New(fiber.Config{
		AppName:      d.Cfg.AppName,
		Views:        engine,
		ViewsLayout:  "layouts/main",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	if err := routes.Setup(app, d); err != nil {
		return nil, err
	}

	return &Server{app: app, d: d}, nil
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.d.Cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
