package orderbook

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Trade records one fill. It snapshots price, size, and ids at emission
// time and never references live order state. Side is the aggressor
// side; Price is always the resting order's price.
type Trade struct {
	Timestamp int64
	Side      Side
	Price     decimal.Decimal
	Size      int64
	TakerID   uint64
	MakerID   uint64
}

func (t Trade) String() string {
	return fmt.Sprintf("Executed: %s %d units at %s", t.Side, t.Size, t.Price)
}
