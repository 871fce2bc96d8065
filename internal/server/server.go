// Package server exposes the habit manager over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/julianstephens/habita/internal/habits"
	"github.com/julianstephens/habita/internal/logger"
)

type Config struct {
	// JWTSecret enables bearer token auth on /api when set.
	JWTSecret string
}

// New builds the application with every route registered.
func New(m *habits.Manager, cfg Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "habita",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	SetupRoutes(app, m, cfg)
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		logger.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func SetupRoutes(app *fiber.App, m *habits.Manager, cfg Config) {
	h := &handlers{m: m}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	if cfg.JWTSecret != "" {
		api.Use(AuthMiddleware(cfg.JWTSecret))
	}

	hs := api.Group("/habits")
	hs.Get("/", h.listHabits)
	hs.Post("/", h.createHabit)
	hs.Get("/:id", h.getHabit)
	hs.Put("/:id", h.updateHabit)
	hs.Delete("/:id", h.deleteHabit)
	hs.Post("/:id/toggle", h.toggleHabit)
	hs.Post("/:id/timed", h.completeTimed)
	hs.Get("/:id/stats", h.habitStats)

	api.Get("/compatibility", h.compatibility)
	api.Get("/level", h.level)
	api.Get("/motivation/:streak", h.motivation)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, app *fiber.App, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("API listening", "addr", addr)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("Shutting down API")
		return app.ShutdownWithTimeout(5 * time.Second)
	}
}
