package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brunlockfaster/webfront/internal/backend"
	"github.com/brunlockfaster/webfront/internal/chat"
	"github.com/brunlockfaster/webfront/internal/config"
	"github.com/brunlockfaster/webfront/internal/infra"
	"github.com/brunlockfaster/webfront/internal/logging"
	"github.com/brunlockfaster/webfront/internal/routes"
	"github.com/brunlockfaster/webfront/internal/server"
	"github.com/brunlockfaster/webfront/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppEnv)

	ctx := context.Background()

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else if !config.IsDev(cfg.AppEnv) {
		logger.Error("REDIS_URL is required outside development")
		os.Exit(1)
	}

	var sessions session.Store
	if cache != nil {
		sessions = session.NewRedisStore(cache, cfg.SessionTTL)
	} else {
		logger.Warn("no redis configured, using in-memory sessions")
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	}

	api := backend.New(cfg.BackendURL, cfg.BackendTimeout)

	chatManager := chat.NewManager(api, sessions, logger, chat.Options{
		PollInterval: cfg.PollInterval,
		IdleTimeout:  cfg.IdleTimeout,
	})
	defer chatManager.Close()

	srv, err := server.New(routes.Deps{
		Cfg:      cfg,
		API:      api,
		Sessions: sessions,
		Chat:     chatManager,
		Cache:    cache,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
