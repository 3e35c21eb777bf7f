package core

import "github.com/nikolaydubina/fpdecimal"

// LevelQueue is a read/adjust view of one price level handed out by a
// backend. Front returns the oldest resting order at the level; Reduce
// lowers the level's active volume after the front order is partially
// filled. Views are only valid while the book's write lock is held.
type LevelQueue interface {
	Price() fpdecimal.Decimal
	ActiveVolume() int64
	Front() *Order
	Reduce(volume int64)
}

// OrderBookBackend defines the storage interface for different backend
// implementations. Backends own the identity map, both side indexes and
// all price levels; only the OrderBook mutates them, and always under the
// book's guard.
type OrderBookBackend interface {
	// Order identity operations
	GetOrder(orderID uint64) *Order
	StoreOrder(order *Order) error
	UpdateOrder(order *Order) error
	DeleteOrder(orderID uint64)

	// Side operations. AppendToSide records a position handle internally
	// so RemoveFromSide is O(1) in level depth; RemoveFromSide subtracts
	// the order's remaining volume from its level and evicts the level
	// the instant its active volume reaches zero.
	AppendToSide(side Side, order *Order)
	RemoveFromSide(order *Order) bool

	// BestLevel returns the best tradable level of a side, nil when the
	// side is empty. Backends never hand out levels with zero volume.
	BestLevel(side Side) LevelQueue

	// Depth returns the top levels of a side, best first.
	Depth(side Side, levels int) []DepthLevel

	// Len returns the number of resting orders across both sides.
	Len() int
}
