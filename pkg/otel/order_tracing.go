package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Span names
	SpanPlaceOrder    = "place_order"
	SpanCancelOrder   = "cancel_order"
	SpanPublishReport = "publish_report"

	// Attribute keys
	AttributeOrderID         = "order.id"
	AttributeOrderSide       = "order.side"
	AttributeOrderPrice      = "order.price"
	AttributeOrderVolume     = "order.volume"
	AttributeOrderStatus     = "order.status"
	AttributeExecutedVolume  = "order.executed_volume"
	AttributeRemainingVolume = "order.remaining_volume"
	AttributeCancelledVolume = "order.cancelled_volume"
	AttributeTradeCount      = "trade.count"
)

// StartOrderSpan starts a new span for order processing. It returns a nil
// span when tracing is not initialized; the other helpers accept nil.
func StartOrderSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := GetOrderBookTracer()
	if tracer == nil {
		return ctx, nil
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// AddAttributes adds attributes to a span
func AddAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.SetAttributes(attrs...)
}

// EndSpan ends a span
func EndSpan(span trace.Span) {
	if span == nil {
		return
	}
	span.End()
}

// SpanOK marks a span as successful
func SpanOK(span trace.Span, msg string) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Ok, msg)
}

// SpanError marks a span as failed
func SpanError(span trace.Span, msg string) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Error, msg)
}
