package api

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/erain9/lobsim/pkg/core"
	"github.com/erain9/lobsim/pkg/logging"
	"github.com/gofiber/fiber/v2"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog/log"
)

// Handler serves the order book HTTP endpoints.
type Handler struct {
	Book      *core.OrderBook
	StartTime time.Time

	OrdersReceived  int64
	OrdersCancelled int64
	TradesExecuted  int64
}

// NewHandler creates a handler around an order book.
func NewHandler(book *core.OrderBook) *Handler {
	return &Handler{
		Book:      book,
		StartTime: time.Now(),
	}
}

// PlaceOrder handles POST /order.
func (h *Handler) PlaceOrder(c *fiber.Ctx) error {
	var req PlaceOrderRequest

	if err := c.BodyParser(&req); err != nil {
		log.Warn().
			Err(err).
			Str("ip", c.IP()).
			Str("path", c.Path()).
			Msg("Invalid request: malformed JSON")
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Invalid request: malformed JSON",
		})
	}

	side, err := core.ParseSide(req.Side)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Invalid side: must be BUY or SELL",
		})
	}

	ctx := requestContext(c)
	atomic.AddInt64(&h.OrdersReceived, 1)

	result, err := h.Book.PlaceOrder(ctx, req.Client, side, fpdecimal.FromFloat(req.Price), req.Volume)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidPrice):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "Invalid price: must be positive",
			})
		case errors.Is(err, core.ErrInvalidVolume):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "Invalid volume: must be positive",
			})
		default:
			log.Error().
				Err(err).
				Str("client", req.Client).
				Msg("Error placing order")
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Error: "Internal server error",
			})
		}
	}

	atomic.AddInt64(&h.TradesExecuted, int64(len(result.Trades)))

	logger := logging.FromContext(ctx)
	logger.Info().
		Uint64("order_id", result.OrderID).
		Str("client", req.Client).
		Str("side", side.String()).
		Str("status", string(result.Status)).
		Int64("executed_volume", result.ExecutedVolume()).
		Int("trades_count", len(result.Trades)).
		Msg("Order placed")

	return c.Status(fiber.StatusCreated).JSON(PlaceOrderResponse{
		OrderID:         result.OrderID,
		Status:          string(result.Status),
		ExecutedVolume:  result.ExecutedVolume(),
		RemainingVolume: req.Volume - result.ExecutedVolume(),
		Trades:          toTradeInfos(result.Trades),
	})
}

// CancelOrder handles DELETE /order/:id.
func (h *Handler) CancelOrder(c *fiber.Ctx) error {
	orderID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Invalid order id",
		})
	}

	ctx := requestContext(c)

	result, err := h.Book.CancelOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, core.ErrOrderNotFound) {
			log.Warn().
				Uint64("order_id", orderID).
				Str("ip", c.IP()).
				Msg("Cancel order: order not found")
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error: "Order not found",
			})
		}
		log.Error().
			Err(err).
			Uint64("order_id", orderID).
			Msg("Error cancelling order")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "Internal server error",
		})
	}

	atomic.AddInt64(&h.OrdersCancelled, 1)

	logger := logging.FromContext(ctx)
	logger.Info().
		Uint64("order_id", orderID).
		Int64("cancelled_volume", result.CancelledVolume).
		Msg("Order cancelled")

	return c.Status(fiber.StatusOK).JSON(CancelOrderResponse{
		OrderID:         result.OrderID,
		Status:          string(core.StatusCancelled),
		CancelledVolume: result.CancelledVolume,
	})
}

// GetBook handles GET /lob.
func (h *Handler) GetBook(c *fiber.Ctx) error {
	levels := core.DefaultSnapshotDepth
	if levelsStr := c.Query("levels"); levelsStr != "" {
		parsed, err := strconv.Atoi(levelsStr)
		if err != nil || parsed < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "Invalid levels: must be an integer between 1 and 50",
			})
		}
		levels = parsed
	}

	depth, err := h.Book.Snapshot(levels)
	if err != nil {
		if errors.Is(err, core.ErrInvalidDepth) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "Invalid levels: must be an integer between 1 and 50",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "Internal server error",
		})
	}

	return c.Status(fiber.StatusOK).JSON(DepthResponse{
		Bids: toPriceLevelInfos(depth.Bids),
		Asks: toPriceLevelInfos(depth.Asks),
	})
}

// GetPriceHistory handles GET /price_history.
func (h *Handler) GetPriceHistory(c *fiber.Ctx) error {
	points := h.Book.PriceHistory()

	out := make([]PricePointInfo, 0, len(points))
	for _, p := range points {
		out = append(out, PricePointInfo{
			Timestamp: p.Timestamp,
			Price:     p.Price.String(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(PriceHistoryResponse{Points: out})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.StartTime).Seconds()),
		"open_orders":    h.Book.OpenOrders(),
	})
}

// Index handles GET /.
func (h *Handler) Index(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"service": "lobsim",
		"endpoints": []string{
			"POST /order",
			"DELETE /order/:id",
			"GET /lob",
			"GET /price_history",
			"GET /health",
		},
	})
}

// requestContext returns the request context annotated with the request
// id assigned by the RequestID middleware.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if requestID, ok := c.Locals(requestIDHeader).(string); ok {
		ctx = logging.WithRequestID(ctx, requestID)
	}
	return ctx
}
