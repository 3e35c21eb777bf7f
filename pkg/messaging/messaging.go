package messaging

import (
	"context"
	"time"
)

// MessageSender defines an interface for publishing execution reports.
// This keeps the core package decoupled from specific implementations
// like the Kafka producers in the queue package.
type MessageSender interface {
	SendDoneMessage(ctx context.Context, done *DoneMessage) error
	Close() error
}

// DoneMessage is the execution report broadcast after every successful
// mutation of the book: a placement (with any trades it generated) or a
// cancellation.
type DoneMessage struct {
	OrderID         uint64  `json:"orderID"`
	Client          string  `json:"client"`
	Side            string  `json:"side"`
	Status          string  `json:"status"`
	Price           string  `json:"price"`
	ExecutedVolume  int64   `json:"executedVolume"`
	RemainingVolume int64   `json:"remainingVolume"`
	CancelledVolume int64   `json:"cancelledVolume,omitempty"`
	Trades          []Trade `json:"trades,omitempty"`
	Stored          bool    `json:"stored"`
}

// Trade represents a single execution inside a DoneMessage.
type Trade struct {
	Price        string    `json:"price"`
	Volume       int64     `json:"volume"`
	MakerOrderID uint64    `json:"makerOrderID"`
	TakerOrderID uint64    `json:"takerOrderID"`
	MakerClient  string    `json:"makerClient"`
	TakerClient  string    `json:"takerClient"`
	Sequence     uint64    `json:"sequence"`
	Timestamp    time.Time `json:"timestamp"`
}
