// Package api exposes the order book over HTTP.
package api

import (
	"context"

	"github.com/erain9/lobsim/pkg/core"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
)

// Server wraps the fiber app serving the order book endpoints.
type Server struct {
	app     *fiber.App
	handler *Handler
}

// NewServer creates the HTTP server for an order book.
func NewServer(book *core.OrderBook) *Server {
	handler := NewHandler(book)

	app := fiber.New(fiber.Config{
		AppName:               "lobsim",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Error().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Int("status", code).
				Str("error", err.Error()).
				Msg("Request error")

			return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(RequestID())
	app.Use(RequestLogger())
	app.Use(HTTPMetrics())

	app.Get("/", handler.Index)
	app.Get("/health", handler.HealthCheck)
	app.Post("/order", handler.PlaceOrder)
	app.Delete("/order/:id", handler.CancelOrder)
	app.Get("/lob", handler.GetBook)
	app.Get("/price_history", handler.GetPriceHistory)

	return &Server{
		app:     app,
		handler: handler,
	}
}

// App exposes the fiber app, primarily for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves HTTP on the given address until Shutdown is called.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
