package api

import (
	"time"

	"github.com/erain9/lobsim/pkg/otel"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	otelsdk "go.opentelemetry.io/otel"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns each request an id, honoring one supplied by the
// caller, and echoes it in the response.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Locals(requestIDHeader, requestID)
		c.Set(requestIDHeader, requestID)
		return c.Next()
	}
}

// RequestLogger logs every request with latency and response status.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		latency := time.Since(start)
		requestID, _ := c.Locals(requestIDHeader).(string)
		log.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Str("request_id", requestID).
			Int("status", c.Response().StatusCode()).
			Int64("latency_ms", latency.Milliseconds()).
			Int("bytes_in", len(c.Body())).
			Int("bytes_out", len(c.Response().Body())).
			Msg("HTTP request")

		return err
	}
}

// HTTPMetrics records request counts, latency and errors.
func HTTPMetrics() fiber.Handler {
	metrics, err := otel.GetHTTPServerMetrics(otelsdk.GetMeterProvider().Meter("lobsim-api"))
	if err != nil {
		log.Warn().Err(err).Msg("HTTP metrics unavailable")
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		start := time.Now()

		metrics.IncRequests(ctx, c.Method(), c.Path())
		metrics.AddInFlightRequests(ctx, 1)
		defer metrics.AddInFlightRequests(ctx, -1)

		err := c.Next()

		status := c.Response().StatusCode()
		metrics.RecordLatency(ctx, c.Method(), c.Route().Path, time.Since(start), status)
		if status >= fiber.StatusInternalServerError {
			metrics.IncErrors(ctx, c.Method(), c.Route().Path, status)
		}

		return err
	}
}
