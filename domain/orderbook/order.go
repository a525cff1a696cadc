package orderbook

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Kind tags the request variant. Cancels carry only an id; market
// orders carry no price.
type Kind uint8

const (
	KindCancel Kind = iota
	KindMarket
	KindLimit
)

func (k Kind) String() string {
	switch k {
	case KindCancel:
		return "CANCEL"
	case KindMarket:
		return "MARKET"
	default:
		return "LIMIT"
	}
}

// Order is one inbound request. Which fields are meaningful depends on
// Kind: cancels use only ID, markets additionally Side/Size/Remaining,
// limits everything. Remaining is mutated exclusively by the matching
// engine; all other fields are fixed at construction.
type Order struct {
	ID        uint64
	Timestamp int64 // microseconds, strictly monotonic per process
	Kind      Kind
	Side      Side
	Size      int64
	Remaining int64
	Price     decimal.Decimal

	next *Order
	prev *Order
}

// Limit builds a resting-capable order. Size must be positive.
func Limit(id uint64, side Side, size int64, price decimal.Decimal) Order {
	return Order{
		ID:        id,
		Timestamp: defaultClock.Next(),
		Kind:      KindLimit,
		Side:      side,
		Size:      size,
		Remaining: size,
		Price:     price,
	}
}

// Market builds an order that takes whatever liquidity is available and
// discards the rest.
func Market(id uint64, side Side, size int64) Order {
	return Order{
		ID:        id,
		Timestamp: defaultClock.Next(),
		Kind:      KindMarket,
		Side:      side,
		Size:      size,
		Remaining: size,
	}
}

// Cancel builds a cancellation request for a previously submitted id.
func Cancel(id uint64) Order {
	return Order{
		ID:        id,
		Timestamp: defaultClock.Next(),
		Kind:      KindCancel,
	}
}

// Less reports whether o has strictly better book priority than other.
// Both orders must be resting limit orders on the same side. Better
// price wins; at equal price the earlier timestamp wins; at equal
// timestamp the smaller original size executes first.
func (o *Order) Less(other *Order) bool {
	if cmp := o.Price.Cmp(other.Price); cmp != 0 {
		if o.Side == Buy {
			return cmp > 0
		}
		return cmp < 0
	}
	if o.Timestamp != other.Timestamp {
		return o.Timestamp < other.Timestamp
	}
	return o.Size < other.Size
}

// Filled reports how much of the original size has executed.
func (o *Order) Filled() int64 {
	return o.Size - o.Remaining
}

// Reset clears the order for pool reuse.
func (o *Order) Reset() { *o = Order{} }

// Next exposes read-only traversal within a price level.
func (o *Order) Next() *Order { return o.next }

func (o *Order) String() string {
	switch o.Kind {
	case KindCancel:
		return fmt.Sprintf("Cancel Order: %d.", o.ID)
	case KindMarket:
		return fmt.Sprintf("Market Order: %s %d units.", o.Side, o.Remaining)
	default:
		return fmt.Sprintf("Limit Order: %s %d units at %s.", o.Side, o.Remaining, o.Price)
	}
}
