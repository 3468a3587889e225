package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GoArmGo/ModuleHub/internal/handler"
	"github.com/GoArmGo/ModuleHub/internal/web"
)

const shutdownTimeout = 30 * time.Second

// runServer сверяет диск с бд, чистит истёкшие отзывы сессий, запускает HTTP сервер и ждёт отмены ctx
func runServer(ctx context.Context, a *App) error {
	cfg := a.c.Config
	logger := a.c.Logger

	if _, err := a.c.ModuleUseCase.Reconcile(ctx); err != nil {
		// сервер всё равно стартует: сверка повторится при следующем запуске
		logger.Error("startup reconciliation failed", "error", err)
	}
	if _, err := a.c.Sessions.PurgeRevoked(ctx); err != nil {
		logger.Error("failed to purge expired session revocations", "error", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           newRouter(ctx, a.c),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("ошибка при запуске сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received, stopping HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}

// newRouter собирает маршруты. ctx ограничивает жизнь фоновой очистки лимитера.
func newRouter(ctx context.Context, c Components) http.Handler {
	cfg := c.Config
	logger := c.Logger

	authHandler := handler.NewAuthHandler(c.AuthUseCase, c.Sessions, logger)
	moduleHandler := handler.NewModuleHandler(c.ModuleUseCase, cfg.MaxUploadBytes, logger)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(handler.RequestLogger(logger))
	if c.Metrics != nil {
		r.Use(c.Metrics.Middleware)
	}
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	// попытки входа и регистрации ограничиваются по IP
	authLimit := func(next http.Handler) http.Handler { return next }
	if cfg.AuthRatePerSec > 0 {
		limiter := handler.NewIPLimiter(ctx, cfg.AuthRatePerSec, cfg.AuthRateBurst, logger)
		if c.Metrics != nil {
			limiter.OnDenied = c.Metrics.IncRateLimitDenied
		}
		authLimit = limiter.Middleware
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
	r.Get("/login", handler.Page(web.Static, "login.html", logger))
	r.Get("/register", handler.Page(web.Static, "register.html", logger))
	r.With(authLimit).Post("/login", authHandler.Login)
	r.With(authLimit).Post("/register", authHandler.Register)
	r.Get("/logout", authHandler.Logout)

	r.Group(func(r chi.Router) {
		r.Use(handler.RequireSession(c.Sessions, logger))
		r.Get("/dashboard", handler.Page(web.Static, "dashboard.html", logger))
		r.Post("/upload", moduleHandler.Upload)
		r.Get("/list", moduleHandler.List)
		r.Post("/delete", moduleHandler.Delete)
	})

	r.Handle("/modules/*", handler.ModuleFiles("/modules", cfg.ModulesDir))
	r.Get("/healthz", handler.Health(c.Health, logger))
	if c.Metrics != nil {
		r.Handle("/metrics", c.Metrics.Handler())
	}

	return r
}
