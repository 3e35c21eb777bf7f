package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/erain9/lobsim/pkg/messaging"
	"github.com/erain9/lobsim/pkg/otel"
	"github.com/nikolaydubina/fpdecimal"
	"go.opentelemetry.io/otel/attribute"
)

var half = fpdecimal.FromFloat(0.5)

// OrderBook maintains a continuous double auction for a single
// instrument under price-time priority.
//
// Mutating operations (PlaceOrder, CancelOrder) are serialized: each one
// holds the write lock end-to-end, so a second mutation can never observe
// or interleave with a half-applied match. Read operations (Snapshot,
// BestBid, BestAsk, PriceHistory) share the read lock and therefore run
// concurrently with each other but never mid-mutation. This is the
// book's concurrency contract; backends rely on it and add no locking of
// their own beyond what their storage requires.
type OrderBook struct {
	mu      sync.RWMutex
	backend OrderBookBackend
	sender  messaging.MessageSender

	// Per-instance counters so multiple books never share id or
	// sequence space.
	nextID  uint64
	nextSeq uint64

	lastTradePrice fpdecimal.Decimal

	// Mid-price history ring.
	history      []PricePoint
	historyStart int
	historyLimit int
	lastMid      fpdecimal.Decimal
	hasMid       bool
}

// Option configures an OrderBook.
type Option func(*OrderBook)

// WithMessageSender wires an execution-report publisher. Publishing is
// best effort: failures never fail the mutation that produced the report.
func WithMessageSender(sender messaging.MessageSender) Option {
	return func(ob *OrderBook) {
		ob.sender = sender
	}
}

// WithPriceHistoryLimit overrides the size of the mid-price history ring.
func WithPriceHistoryLimit(limit int) Option {
	return func(ob *OrderBook) {
		if limit > 0 {
			ob.historyLimit = limit
		}
	}
}

// NewOrderBook creates an OrderBook on top of a backend.
func NewOrderBook(backend OrderBookBackend, opts ...Option) *OrderBook {
	ob := &OrderBook{
		backend:      backend,
		historyLimit: DefaultPriceHistoryLimit,
	}
	for _, opt := range opts {
		opt(ob)
	}
	return ob
}

// GetOrder returns the resting order with the given id, or nil if the id
// is unknown (filled, cancelled, or never placed).
func (ob *OrderBook) GetOrder(orderID uint64) *Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.backend.GetOrder(orderID)
}

// OpenOrders returns the number of orders currently resting in the book.
func (ob *OrderBook) OpenOrders() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.backend.Len()
}

// PlaceOrder validates and matches an incoming limit order, rests any
// remainder, and returns the assigned id, the final status and the
// trades generated, in execution order.
//
// The incoming order trades at the resting order's price (the maker is
// the price setter), never worse than its own limit. At equal prices the
// oldest sequence trades first.
func (ob *OrderBook) PlaceOrder(ctx context.Context, client string, side Side, price fpdecimal.Decimal, volume int64) (*PlaceResult, error) {
	ctx, span := otel.StartOrderSpan(ctx, otel.SpanPlaceOrder,
		attribute.String(otel.AttributeOrderSide, side.String()),
		attribute.String(otel.AttributeOrderPrice, price.String()),
		attribute.Int64(otel.AttributeOrderVolume, volume),
	)
	defer otel.EndSpan(span)

	if side != Buy && side != Sell {
		otel.SpanError(span, "invalid side")
		return nil, ErrInvalidSide
	}
	if price.LessThanOrEqual(fpdecimal.Zero) {
		otel.SpanError(span, "invalid price")
		return nil, ErrInvalidPrice
	}
	if volume <= 0 {
		otel.SpanError(span, "invalid volume")
		return nil, ErrInvalidVolume
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.nextID++
	ob.nextSeq++
	order, err := NewOrder(ob.nextID, client, side, price, volume, ob.nextSeq)
	if err != nil {
		// Unreachable after the checks above; kept so the constructor
		// stays the single source of truth for order validity.
		otel.SpanError(span, "invalid order")
		return nil, err
	}

	trades := ob.match(order)

	if order.Remaining() > 0 {
		if err := ob.backend.StoreOrder(order); err != nil {
			otel.SpanError(span, "failed to store order")
			return nil, fmt.Errorf("storing order %d: %w", order.ID(), err)
		}
		ob.backend.AppendToSide(side, order)
	}

	result := &PlaceResult{
		OrderID: order.ID(),
		Status:  order.Status(),
		Trades:  trades,
	}

	ob.recordMidPrice()
	ob.publish(ctx, toMessagingDone(order, result))

	otel.AddAttributes(span,
		attribute.String(otel.AttributeOrderID, fmt.Sprintf("%d", order.ID())),
		attribute.String(otel.AttributeOrderStatus, string(result.Status)),
		attribute.Int64(otel.AttributeExecutedVolume, result.ExecutedVolume()),
		attribute.Int64(otel.AttributeRemainingVolume, order.Remaining()),
		attribute.Int(otel.AttributeTradeCount, len(trades)),
	)
	otel.SpanOK(span, "order placed")
	otel.GetOrderBookMetrics().RecordOrderPlaced(ctx, side.String(), len(trades))

	return result, nil
}

// match runs the matching loop for an incoming order against the
// opposite side. Called with the write lock held.
func (ob *OrderBook) match(order *Order) []Trade {
	trades := make([]Trade, 0)
	opposite := oppositeSide(order.Side())

	for order.Remaining() > 0 {
		level := ob.backend.BestLevel(opposite)
		if level == nil || !crosses(order.Side(), order.Price(), level.Price()) {
			break
		}

		// Oldest order at the best opposite price; FIFO within the level
		// enforces time priority.
		resting := level.Front()
		tradeVolume := min64(order.Remaining(), resting.Remaining())

		order.Fill(tradeVolume)
		resting.Fill(tradeVolume)
		level.Reduce(tradeVolume)

		trades = append(trades, Trade{
			Price:        resting.Price(),
			Volume:       tradeVolume,
			MakerOrderID: resting.ID(),
			TakerOrderID: order.ID(),
			MakerClient:  resting.Client(),
			TakerClient:  order.Client(),
			Sequence:     order.Sequence(),
			Timestamp:    time.Now(),
		})
		ob.lastTradePrice = resting.Price()

		if resting.Remaining() == 0 {
			// RemoveFromSide evicts the level the moment it empties;
			// BestLevel never returns a stale entry.
			ob.backend.RemoveFromSide(resting)
			ob.backend.DeleteOrder(resting.ID())
		} else {
			// Persist the partial fill for backends with external storage.
			_ = ob.backend.UpdateOrder(resting)
		}
	}

	return trades
}

// CancelOrder removes a resting order's remaining volume from the book.
// Cancelling an id that is unknown (already filled, already cancelled,
// or never placed) fails with ErrOrderNotFound and has no side effect.
func (ob *OrderBook) CancelOrder(ctx context.Context, orderID uint64) (*CancelResult, error) {
	ctx, span := otel.StartOrderSpan(ctx, otel.SpanCancelOrder,
		attribute.String(otel.AttributeOrderID, fmt.Sprintf("%d", orderID)),
	)
	defer otel.EndSpan(span)

	ob.mu.Lock()
	defer ob.mu.Unlock()

	order := ob.backend.GetOrder(orderID)
	if order == nil {
		otel.SpanError(span, "order not found")
		return nil, ErrOrderNotFound
	}

	ob.backend.RemoveFromSide(order)
	ob.backend.DeleteOrder(orderID)
	cancelled := order.Cancel()

	result := &CancelResult{
		OrderID:         orderID,
		CancelledVolume: cancelled,
	}

	ob.recordMidPrice()
	ob.publish(ctx, toMessagingCancel(order, result))

	otel.AddAttributes(span, attribute.Int64(otel.AttributeCancelledVolume, cancelled))
	otel.SpanOK(span, "order cancelled")
	otel.GetOrderBookMetrics().RecordOrderCancelled(ctx)

	return result, nil
}

// Snapshot returns aggregated (price, volume) depth for the top levels
// of each side: bids descending, asks ascending. A non-positive levels
// argument selects DefaultSnapshotDepth; anything above MaxSnapshotDepth
// fails with ErrInvalidDepth. The snapshot reflects a single consistent
// point in time.
func (ob *OrderBook) Snapshot(levels int) (*Depth, error) {
	if levels <= 0 {
		levels = DefaultSnapshotDepth
	}
	if levels > MaxSnapshotDepth {
		return nil, ErrInvalidDepth
	}

	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return &Depth{
		Bids: ob.backend.Depth(Buy, levels),
		Asks: ob.backend.Depth(Sell, levels),
	}, nil
}

// BestBid returns the highest bid price, ok=false when the bid side is
// empty.
func (ob *OrderBook) BestBid() (fpdecimal.Decimal, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.bestPriceLocked(Buy)
}

// BestAsk returns the lowest ask price, ok=false when the ask side is
// empty.
func (ob *OrderBook) BestAsk() (fpdecimal.Decimal, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.bestPriceLocked(Sell)
}

// LastTradePrice returns the price of the most recent execution, ok=false
// before the first trade.
func (ob *OrderBook) LastTradePrice() (fpdecimal.Decimal, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	if ob.lastTradePrice.Equal(fpdecimal.Zero) {
		return fpdecimal.Zero, false
	}
	return ob.lastTradePrice, true
}

// PriceHistory returns the recorded mid-price points, oldest first.
func (ob *OrderBook) PriceHistory() []PricePoint {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	out := make([]PricePoint, len(ob.history))
	for i := range ob.history {
		out[i] = ob.history[(ob.historyStart+i)%len(ob.history)]
	}
	return out
}

// String implements fmt.Stringer interface
func (ob *OrderBook) String() string {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	builder := strings.Builder{}
	builder.WriteString("Ask:")
	for _, l := range ob.backend.Depth(Sell, MaxSnapshotDepth) {
		builder.WriteString(fmt.Sprintf("\n%s -> volume: %d", l.Price.String(), l.Volume))
	}
	builder.WriteString("\nBid:")
	for _, l := range ob.backend.Depth(Buy, MaxSnapshotDepth) {
		builder.WriteString(fmt.Sprintf("\n%s -> volume: %d", l.Price.String(), l.Volume))
	}
	builder.WriteString("\n")
	return builder.String()
}

// private methods

func (ob *OrderBook) bestPriceLocked(side Side) (fpdecimal.Decimal, bool) {
	level := ob.backend.BestLevel(side)
	if level == nil {
		return fpdecimal.Zero, false
	}
	return level.Price(), true
}

// recordMidPrice appends a history point after a mutation when the
// mid-price changed. Called with the write lock held.
func (ob *OrderBook) recordMidPrice() {
	bid, hasBid := ob.bestPriceLocked(Buy)
	ask, hasAsk := ob.bestPriceLocked(Sell)

	var mid fpdecimal.Decimal
	switch {
	case hasBid && hasAsk:
		mid = bid.Add(ask).Mul(half)
	case hasBid:
		mid = bid
	case hasAsk:
		mid = ask
	default:
		return
	}

	if ob.hasMid && mid.Equal(ob.lastMid) {
		return
	}
	ob.lastMid = mid
	ob.hasMid = true

	point := PricePoint{
		Timestamp: time.Now().UnixMilli(),
		Price:     mid,
	}
	if len(ob.history) < ob.historyLimit {
		ob.history = append(ob.history, point)
		return
	}
	ob.history[ob.historyStart] = point
	ob.historyStart = (ob.historyStart + 1) % len(ob.history)
}

// publish hands an execution report to the broadcast layer, if any.
func (ob *OrderBook) publish(ctx context.Context, msg *messaging.DoneMessage) {
	if ob.sender == nil || msg == nil {
		return
	}

	ctx, span := otel.StartOrderSpan(ctx, otel.SpanPublishReport,
		attribute.String(otel.AttributeOrderID, fmt.Sprintf("%d", msg.OrderID)),
		attribute.Int(otel.AttributeTradeCount, len(msg.Trades)),
	)
	defer otel.EndSpan(span)

	if err := ob.sender.SendDoneMessage(ctx, msg); err != nil {
		otel.SpanError(span, fmt.Sprintf("failed to publish execution report: %v", err))
		return
	}
	otel.SpanOK(span, "execution report published")
}

// Helper functions for the matching engine

// oppositeSide returns the side an incoming order matches against.
func oppositeSide(side Side) Side {
	if side == Buy {
		return Sell
	}
	return Buy
}

// crosses reports whether an incoming limit at orderPrice can trade
// against the best opposite level at levelPrice.
func crosses(side Side, orderPrice, levelPrice fpdecimal.Decimal) bool {
	if side == Buy {
		return levelPrice.LessThanOrEqual(orderPrice)
	}
	return levelPrice.GreaterThanOrEqual(orderPrice)
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
