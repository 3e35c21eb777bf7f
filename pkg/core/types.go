package core

import (
	"encoding/json"
	"time"

	"github.com/erain9/lobsim/pkg/messaging"
	"github.com/nikolaydubina/fpdecimal"
)

// Trade records a single execution produced by the matching loop. Trades
// are output-only: the book hands them to the caller and the broadcast
// layer and keeps no reference.
type Trade struct {
	Price        fpdecimal.Decimal
	Volume       int64
	MakerOrderID uint64
	TakerOrderID uint64
	MakerClient  string
	TakerClient  string
	Sequence     uint64
	Timestamp    time.Time
}

// MarshalJSON implements Marshaler interface
func (t *Trade) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Price        string    `json:"price"`
		Volume       int64     `json:"volume"`
		MakerOrderID uint64    `json:"makerOrderID"`
		TakerOrderID uint64    `json:"takerOrderID"`
		MakerClient  string    `json:"makerClient"`
		TakerClient  string    `json:"takerClient"`
		Sequence     uint64    `json:"sequence"`
		Timestamp    time.Time `json:"timestamp"`
	}{
		Price:        t.Price.String(),
		Volume:       t.Volume,
		MakerOrderID: t.MakerOrderID,
		TakerOrderID: t.TakerOrderID,
		MakerClient:  t.MakerClient,
		TakerClient:  t.TakerClient,
		Sequence:     t.Sequence,
		Timestamp:    t.Timestamp,
	})
}

// PlaceResult is returned by PlaceOrder: the assigned id, the final status
// of the incoming order, and the trades it generated in execution order.
type PlaceResult struct {
	OrderID uint64
	Status  Status
	Trades  []Trade
}

// ExecutedVolume returns the total volume traded by the incoming order.
func (r *PlaceResult) ExecutedVolume() int64 {
	var total int64
	for _, t := range r.Trades {
		total += t.Volume
	}
	return total
}

// CancelResult is returned by CancelOrder.
type CancelResult struct {
	OrderID         uint64
	CancelledVolume int64
}

// DepthLevel is one aggregated price level in a snapshot.
type DepthLevel struct {
	Price  fpdecimal.Decimal
	Volume int64
}

// MarshalJSON implements Marshaler interface
func (l DepthLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Price  string `json:"price"`
		Volume int64  `json:"volume"`
	}{
		Price:  l.Price.String(),
		Volume: l.Volume,
	})
}

// Depth is a point-in-time aggregated view of the top levels of the book.
// Bids are sorted descending by price, asks ascending.
type Depth struct {
	Bids []DepthLevel `json:"bids"`
	Asks []DepthLevel `json:"asks"`
}

// PricePoint is one entry of the mid-price history.
type PricePoint struct {
	// Timestamp in Unix milliseconds, ready for charting clients.
	Timestamp int64             `json:"timestamp"`
	Price     fpdecimal.Decimal `json:"-"`
}

// MarshalJSON implements Marshaler interface
func (p PricePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Timestamp int64  `json:"timestamp"`
		Price     string `json:"price"`
	}{
		Timestamp: p.Timestamp,
		Price:     p.Price.String(),
	})
}

// toMessagingDone converts a completed placement into the wire message
// handed to the broadcast layer.
func toMessagingDone(order *Order, result *PlaceResult) *messaging.DoneMessage {
	msg := &messaging.DoneMessage{
		OrderID:         order.ID(),
		Client:          order.Client(),
		Side:            order.Side().String(),
		Status:          string(result.Status),
		Price:           order.Price().String(),
		ExecutedVolume:  result.ExecutedVolume(),
		RemainingVolume: order.Remaining(),
		Stored:          order.Remaining() > 0,
	}

	if len(result.Trades) > 0 {
		msg.Trades = make([]messaging.Trade, 0, len(result.Trades))
		for _, t := range result.Trades {
			msg.Trades = append(msg.Trades, messaging.Trade{
				Price:        t.Price.String(),
				Volume:       t.Volume,
				MakerOrderID: t.MakerOrderID,
				TakerOrderID: t.TakerOrderID,
				MakerClient:  t.MakerClient,
				TakerClient:  t.TakerClient,
				Sequence:     t.Sequence,
				Timestamp:    t.Timestamp,
			})
		}
	}

	return msg
}

// toMessagingCancel converts a completed cancellation into a wire message.
func toMessagingCancel(order *Order, result *CancelResult) *messaging.DoneMessage {
	return &messaging.DoneMessage{
		OrderID:         order.ID(),
		Client:          order.Client(),
		Side:            order.Side().String(),
		Status:          string(StatusCancelled),
		Price:           order.Price().String(),
		CancelledVolume: result.CancelledVolume,
	}
}
