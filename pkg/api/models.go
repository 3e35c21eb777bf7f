package api

import (
	"time"

	"github.com/erain9/lobsim/pkg/core"
)

// PlaceOrderRequest is the payload for POST /order
type PlaceOrderRequest struct {
	Client string  `json:"client"`
	Side   string  `json:"side"`
	Price  float64 `json:"price"`
	Volume int64   `json:"volume"`
}

// TradeInfo describes one execution in a place-order response
type TradeInfo struct {
	Price       string    `json:"price"`
	Volume      int64     `json:"volume"`
	MakerOrder  uint64    `json:"maker_order_id"`
	TakerOrder  uint64    `json:"taker_order_id"`
	MakerClient string    `json:"maker_client"`
	TakerClient string    `json:"taker_client"`
	Timestamp   time.Time `json:"timestamp"`
}

// PlaceOrderResponse is returned by POST /order
type PlaceOrderResponse struct {
	OrderID         uint64      `json:"order_id"`
	Status          string      `json:"status"`
	ExecutedVolume  int64       `json:"executed_volume"`
	RemainingVolume int64       `json:"remaining_volume"`
	Trades          []TradeInfo `json:"trades"`
}

// CancelOrderResponse is returned by DELETE /order/:id
type CancelOrderResponse struct {
	OrderID         uint64 `json:"order_id"`
	Status          string `json:"status"`
	CancelledVolume int64  `json:"cancelled_volume"`
}

// PriceLevelInfo is one aggregated depth level
type PriceLevelInfo struct {
	Price  string `json:"price"`
	Volume int64  `json:"volume"`
}

// DepthResponse is returned by GET /lob
type DepthResponse struct {
	Bids []PriceLevelInfo `json:"bids"`
	Asks []PriceLevelInfo `json:"asks"`
}

// PricePointInfo is one mid-price history sample
type PricePointInfo struct {
	Timestamp int64  `json:"timestamp"`
	Price     string `json:"price"`
}

// PriceHistoryResponse is returned by GET /price_history
type PriceHistoryResponse struct {
	Points []PricePointInfo `json:"points"`
}

// ErrorResponse is the uniform error payload
type ErrorResponse struct {
	Error string `json:"error"`
}

func toTradeInfos(trades []core.Trade) []TradeInfo {
	out := make([]TradeInfo, 0, len(trades))
	for _, t := range trades {
		out = append(out, TradeInfo{
			Price:       t.Price.String(),
			Volume:      t.Volume,
			MakerOrder:  t.MakerOrderID,
			TakerOrder:  t.TakerOrderID,
			MakerClient: t.MakerClient,
			TakerClient: t.TakerClient,
			Timestamp:   t.Timestamp,
		})
	}
	return out
}

func toPriceLevelInfos(levels []core.DepthLevel) []PriceLevelInfo {
	out := make([]PriceLevelInfo, 0, len(levels))
	for _, l := range levels {
		out = append(out, PriceLevelInfo{
			Price:  l.Price.String(),
			Volume: l.Volume,
		})
	}
	return out
}
