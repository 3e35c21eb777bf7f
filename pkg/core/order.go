package core

import (
	"encoding/json"

	"github.com/nikolaydubina/fpdecimal"
)

// Side represents buy or sell side of the order
type Side int

// Order sides
const (
	Sell Side = iota
	Buy
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// ParseSide converts a wire string into a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	default:
		return 0, ErrInvalidSide
	}
}

// MarshalText implements encoding.TextMarshaler so sides serialize as
// "BUY"/"SELL" in JSON.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Side) UnmarshalText(data []byte) error {
	side, err := ParseSide(string(data))
	if err != nil {
		return err
	}
	*s = side
	return nil
}

// Status represents the lifecycle state of an order
type Status string

// Order statuses
const (
	StatusActive          Status = "ACTIVE"
	StatusPartiallyFilled Status = "PARTIALLY_FILLED"
	StatusFilled          Status = "FILLED"
	StatusCancelled       Status = "CANCELLED"
)

// Order stores identity and fill state for a single resting or incoming
// order. Identity fields (id, client, side, price, sequence, originalVolume)
// never change after construction; remaining and status are mutated only by
// the matching loop and by cancellation.
type Order struct {
	id             uint64
	client         string
	side           Side
	price          fpdecimal.Decimal
	originalVolume int64
	remaining      int64
	sequence       uint64
	status         Status
}

// NewOrder constructs an order in ACTIVE state. Price and volume must be
// positive; the book validates before assigning ids so rejected orders
// never consume id or sequence space.
func NewOrder(id uint64, client string, side Side, price fpdecimal.Decimal, volume int64, sequence uint64) (*Order, error) {
	if price.LessThanOrEqual(fpdecimal.Zero) {
		return nil, ErrInvalidPrice
	}
	if volume <= 0 {
		return nil, ErrInvalidVolume
	}
	if side != Buy && side != Sell {
		return nil, ErrInvalidSide
	}

	return &Order{
		id:             id,
		client:         client,
		side:           side,
		price:          price,
		originalVolume: volume,
		remaining:      volume,
		sequence:       sequence,
		status:         StatusActive,
	}, nil
}

// ID returns the order id
func (o *Order) ID() uint64 {
	return o.id
}

// Client returns the opaque client identifier
func (o *Order) Client() string {
	return o.client
}

// Side returns side of the Order
func (o *Order) Side() Side {
	return o.side
}

// Price returns the limit price
func (o *Order) Price() fpdecimal.Decimal {
	return o.price
}

// OriginalVolume returns the volume the order was placed with
func (o *Order) OriginalVolume() int64 {
	return o.originalVolume
}

// Remaining returns the unfilled volume
func (o *Order) Remaining() int64 {
	return o.remaining
}

// Sequence returns the arrival counter, the sole time-priority key
func (o *Order) Sequence() uint64 {
	return o.sequence
}

// Status returns the current lifecycle state
func (o *Order) Status() Status {
	return o.status
}

// Fill reduces remaining volume by the traded amount and updates the
// status. Volume must not exceed remaining; the matching loop guarantees
// this by always trading min(taker remaining, maker remaining).
func (o *Order) Fill(volume int64) {
	o.remaining -= volume
	if o.remaining == 0 {
		o.status = StatusFilled
	} else {
		o.status = StatusPartiallyFilled
	}
}

// Cancel marks the order cancelled and returns the volume removed from
// the book.
func (o *Order) Cancel() int64 {
	cancelled := o.remaining
	o.remaining = 0
	o.status = StatusCancelled
	return cancelled
}

// orderJSON is the wire form shared by MarshalJSON and UnmarshalJSON. The
// Redis backend round-trips orders through it.
type orderJSON struct {
	ID             uint64 `json:"id"`
	Client         string `json:"client"`
	Side           Side   `json:"side"`
	Price          string `json:"price"`
	OriginalVolume int64  `json:"originalVolume"`
	Remaining      int64  `json:"remaining"`
	Sequence       uint64 `json:"sequence"`
	Status         Status `json:"status"`
}

// MarshalJSON implements custom JSON marshaling for Order
func (o *Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(orderJSON{
		ID:             o.id,
		Client:         o.client,
		Side:           o.side,
		Price:          o.price.String(),
		OriginalVolume: o.originalVolume,
		Remaining:      o.remaining,
		Sequence:       o.sequence,
		Status:         o.status,
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Order
func (o *Order) UnmarshalJSON(data []byte) error {
	var oj orderJSON
	if err := json.Unmarshal(data, &oj); err != nil {
		return err
	}

	price, err := fpdecimal.FromString(oj.Price)
	if err != nil {
		return err
	}

	o.id = oj.ID
	o.client = oj.Client
	o.side = oj.Side
	o.price = price
	o.originalVolume = oj.OriginalVolume
	o.remaining = oj.Remaining
	o.sequence = oj.Sequence
	o.status = oj.Status
	return nil
}

// String implements Stringer interface
func (o *Order) String() string {
	j, _ := o.MarshalJSON()
	return string(j)
}
