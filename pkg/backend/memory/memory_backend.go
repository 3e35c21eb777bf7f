// Package memory provides an in-memory implementation of the order book
// backend. Price levels live in B-trees keyed by price, one per side, and
// each level keeps its orders in an intrusive doubly-linked list so that
// time priority is structural and cancellation is O(1) given the order.
package memory

import (
	"github.com/erain9/lobsim/pkg/core"
	"github.com/google/btree"
	"github.com/nikolaydubina/fpdecimal"
)

const btreeDegree = 16

// orderNode is a resting order's position inside its price level queue.
// The backend keeps one per resting order as the cancellation handle.
type orderNode struct {
	order *core.Order
	level *priceLevel
	prev  *orderNode
	next  *orderNode
}

// priceLevel is a FIFO queue of resting orders at a single price.
type priceLevel struct {
	price  fpdecimal.Decimal
	head   *orderNode
	tail   *orderNode
	volume int64
}

var _ core.LevelQueue = (*priceLevel)(nil)

func (l *priceLevel) Price() fpdecimal.Decimal { return l.price }

func (l *priceLevel) ActiveVolume() int64 { return l.volume }

// Front returns the oldest resting order at this level.
func (l *priceLevel) Front() *core.Order {
	if l.head == nil {
		return nil
	}
	return l.head.order
}

// Reduce subtracts executed volume from the level total.
func (l *priceLevel) Reduce(volume int64) {
	l.volume -= volume
}

func (l *priceLevel) append(order *core.Order) *orderNode {
	node := &orderNode{order: order, level: l}
	if l.tail == nil {
		l.head = node
		l.tail = node
	} else {
		node.prev = l.tail
		l.tail.next = node
		l.tail = node
	}
	l.volume += order.Remaining()
	return node
}

func (l *priceLevel) unlink(node *orderNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	node.level = nil
}

// Backend implements core.OrderBookBackend with in-process storage.
// It does no locking of its own: the owning OrderBook serializes access.
type Backend struct {
	orders map[uint64]*core.Order
	nodes  map[uint64]*orderNode

	// Both trees sort best price first: bids descending, asks ascending,
	// so Min() is always the top of book.
	bids *btree.BTreeG[*priceLevel]
	asks *btree.BTreeG[*priceLevel]
}

var _ core.OrderBookBackend = (*Backend)(nil)

// NewBackend creates a new in-memory order book backend.
func NewBackend() *Backend {
	return &Backend{
		orders: make(map[uint64]*core.Order),
		nodes:  make(map[uint64]*orderNode),
		bids: btree.NewG(btreeDegree, func(a, b *priceLevel) bool {
			return a.price.GreaterThan(b.price)
		}),
		asks: btree.NewG(btreeDegree, func(a, b *priceLevel) bool {
			return a.price.LessThan(b.price)
		}),
	}
}

// GetOrder returns the resting order with the given id, or nil.
func (b *Backend) GetOrder(orderID uint64) *core.Order {
	return b.orders[orderID]
}

// StoreOrder adds an order to the identity map.
func (b *Backend) StoreOrder(order *core.Order) error {
	if _, ok := b.orders[order.ID()]; ok {
		return core.ErrOrderExists
	}
	b.orders[order.ID()] = order
	return nil
}

// UpdateOrder is a no-op: resting orders are shared pointers, so fills
// are already visible.
func (b *Backend) UpdateOrder(order *core.Order) error {
	return nil
}

// DeleteOrder removes an order from the identity map.
func (b *Backend) DeleteOrder(orderID uint64) {
	delete(b.orders, orderID)
}

// AppendToSide enqueues an order at the back of its price level,
// creating the level if needed, and records the cancellation handle.
func (b *Backend) AppendToSide(side core.Side, order *core.Order) {
	tree := b.tree(side)
	level, ok := tree.Get(&priceLevel{price: order.Price()})
	if !ok {
		level = &priceLevel{price: order.Price()}
		tree.ReplaceOrInsert(level)
	}
	b.nodes[order.ID()] = level.append(order)
}

// RemoveFromSide unlinks an order from its price level, subtracts its
// remaining volume from the level and evicts the level the moment it
// empties. Returns false when the order is not resting on any side.
func (b *Backend) RemoveFromSide(order *core.Order) bool {
	node, ok := b.nodes[order.ID()]
	if !ok {
		return false
	}
	delete(b.nodes, order.ID())

	level := node.level
	level.unlink(node)
	level.volume -= order.Remaining()

	if level.head == nil {
		b.tree(order.Side()).Delete(level)
	}
	return true
}

// BestLevel returns the top price level of a side, nil when empty.
func (b *Backend) BestLevel(side core.Side) core.LevelQueue {
	if level, ok := b.tree(side).Min(); ok {
		return level
	}
	return nil
}

// Depth returns up to the requested number of aggregated levels for a
// side, best price first.
func (b *Backend) Depth(side core.Side, levels int) []core.DepthLevel {
	out := make([]core.DepthLevel, 0, levels)
	b.tree(side).Ascend(func(level *priceLevel) bool {
		out = append(out, core.DepthLevel{
			Price:  level.price,
			Volume: level.volume,
		})
		return len(out) < levels
	})
	return out
}

// Len returns the number of resting orders.
func (b *Backend) Len() int {
	return len(b.orders)
}

func (b *Backend) tree(side core.Side) *btree.BTreeG[*priceLevel] {
	if side == core.Buy {
		return b.bids
	}
	return b.asks
}
