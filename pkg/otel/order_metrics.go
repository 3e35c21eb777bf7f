package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// orderBookMetrics holds the singleton instance
	orderBookMetrics *OrderBookMetrics
	// meter is the global meter for order book metrics
	meter = otel.GetMeterProvider().Meter(instrumentationName)
)

// OrderBookMetrics holds metrics for order book operations
type OrderBookMetrics struct {
	ordersPlacedTotal    metric.Int64Counter
	ordersCancelledTotal metric.Int64Counter
	tradesTotal          metric.Int64Counter
}

// GetOrderBookMetrics returns the OrderBookMetrics singleton
func GetOrderBookMetrics() *OrderBookMetrics {
	if orderBookMetrics == nil {
		ordersPlacedTotal, err := meter.Int64Counter(
			"orderbook.orders_placed.total",
			metric.WithDescription("Total number of orders placed"),
			metric.WithUnit("{order}"),
		)
		if err != nil {
			return &OrderBookMetrics{}
		}

		ordersCancelledTotal, err := meter.Int64Counter(
			"orderbook.orders_cancelled.total",
			metric.WithDescription("Total number of orders cancelled"),
			metric.WithUnit("{order}"),
		)
		if err != nil {
			return &OrderBookMetrics{}
		}

		tradesTotal, err := meter.Int64Counter(
			"orderbook.trades.total",
			metric.WithDescription("Total number of trades executed"),
			metric.WithUnit("{trade}"),
		)
		if err != nil {
			return &OrderBookMetrics{}
		}

		orderBookMetrics = &OrderBookMetrics{
			ordersPlacedTotal:    ordersPlacedTotal,
			ordersCancelledTotal: ordersCancelledTotal,
			tradesTotal:          tradesTotal,
		}
	}

	return orderBookMetrics
}

// RecordOrderPlaced increments the placed-order counter and the trade
// counter for the trades the order generated
func (m *OrderBookMetrics) RecordOrderPlaced(ctx context.Context, side string, tradeCount int) {
	if m.ordersPlacedTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("order.side", side),
	}
	m.ordersPlacedTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	if tradeCount > 0 {
		m.tradesTotal.Add(ctx, int64(tradeCount), metric.WithAttributes(attrs...))
	}
}

// RecordOrderCancelled increments the cancelled-order counter
func (m *OrderBookMetrics) RecordOrderCancelled(ctx context.Context) {
	if m.ordersCancelledTotal == nil {
		return
	}
	m.ordersCancelledTotal.Add(ctx, 1)
}
