package orderbook

import (
	"fmt"
	"strings"
)

// String renders the book grouped by side and price level, asks worst
// to best above bids best to worst. Diagnostics only.
func (b *Orderbook) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("----- Orderbook -----\n")

	sb.WriteString("Asks:\n")
	b.asks.Descend(func(lvl *PriceLevel) bool {
		writeLevel(&sb, lvl)
		return true
	})

	sb.WriteString("Bids:\n")
	b.bids.Descend(func(lvl *PriceLevel) bool {
		writeLevel(&sb, lvl)
		return true
	})

	sb.WriteString("---------------------")
	return sb.String()
}

func writeLevel(sb *strings.Builder, lvl *PriceLevel) {
	fmt.Fprintf(sb, "  %s x %d (%d orders)\n", lvl.Price, lvl.TotalQty, lvl.OrderCount)
	for o := lvl.Head(); o != nil; o = o.Next() {
		fmt.Fprintf(sb, "    id=%d remaining=%d\n", o.ID, o.Remaining)
	}
}
