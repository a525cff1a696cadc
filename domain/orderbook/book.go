package orderbook

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Quote is a top-of-book pair observed atomically. HasBid/HasAsk report
// whether the corresponding side is non-empty.
type Quote struct {
	Bid    decimal.Decimal
	Ask    decimal.Decimal
	HasBid bool
	HasAsk bool
}

// Orderbook owns the two sides of a single instrument and the trade
// log. It is an exclusive resource: at most one Submit runs at a time,
// and the matching loop completes before the lock is released, so
// callers never observe a crossed or torn book.
type Orderbook struct {
	mu sync.Mutex

	bids *levelTree
	asks *levelTree

	// orders indexes resting limit orders for O(log n) cancellation.
	orders map[uint64]*Order

	trades []Trade

	clock    *Clock
	onRetire func(*Order)
}

// Option configures an Orderbook.
type Option func(*Orderbook)

// WithClock injects the clock used to stamp trades.
func WithClock(c *Clock) Option {
	return func(b *Orderbook) { b.clock = c }
}

// WithRetireHook registers a callback invoked for every order that
// leaves the engine terminally: filled, cancelled, or discarded market
// remainders. Hosts use it to recycle order allocations.
func WithRetireHook(fn func(*Order)) Option {
	return func(b *Orderbook) { b.onRetire = fn }
}

// New creates an empty book.
func New(opts ...Option) *Orderbook {
	b := &Orderbook{
		bids:   newLevelTree(),
		asks:   newLevelTree(),
		orders: make(map[uint64]*Order),
		clock:  defaultClock,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Submit processes one request under the book lock and returns the
// trades it produced, in execution order. A request that cannot match
// and cannot rest produces no trades and no error.
func (b *Orderbook) Submit(o *Order) []Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submit(o)
}

// SubmitLocked is Submit for callers that provide their own exclusion,
// such as a replay loop that owns the book outright.
func (b *Orderbook) SubmitLocked(o *Order) []Trade {
	return b.submit(o)
}

func (b *Orderbook) submit(o *Order) []Trade {
	start := len(b.trades)

	switch o.Kind {
	case KindCancel:
		b.cancel(o.ID)
	case KindMarket:
		// Market requests never rest: filled or not, the order is spent
		// once matching ends and any remainder is discarded.
		b.match(o)
		b.retire(o)
	case KindLimit:
		b.match(o)
		if o.Remaining > 0 {
			b.rest(o)
		} else {
			b.retire(o)
		}
	}

	return b.trades[start:len(b.trades):len(b.trades)]
}

// cancel removes a resting order by id. Unknown ids are a no-op: a
// failed cancel is indistinguishable from cancelling an already filled
// order.
func (b *Orderbook) cancel(id uint64) {
	o, ok := b.orders[id]
	if !ok {
		return
	}

	tree := b.bids
	if o.Side == Sell {
		tree = b.asks
	}
	lvl := tree.Find(o.Price)
	if lvl == nil {
		panic("orderbook: indexed order has no price level")
	}
	lvl.unlink(o)
	if lvl.Empty() {
		tree.Delete(lvl.Price)
	}
	delete(b.orders, id)
	b.retire(o)
}

// match executes the incoming order against the opposite side while it
// remains marketable. The print price is always the passive order's.
func (b *Orderbook) match(o *Order) {
	opp := b.asks
	if o.Side == Sell {
		opp = b.bids
	}

	for o.Remaining > 0 {
		var best *PriceLevel
		if o.Side == Buy {
			best = opp.Min()
		} else {
			best = opp.Max()
		}
		if best == nil {
			return
		}
		if o.Kind == KindLimit {
			if o.Side == Buy && best.Price.GreaterThan(o.Price) {
				return
			}
			if o.Side == Sell && best.Price.LessThan(o.Price) {
				return
			}
		}

		maker := best.Head()
		if maker.Remaining <= 0 {
			panic("orderbook: resting order with non-positive remaining")
		}

		fill := min64(o.Remaining, maker.Remaining)
		o.Remaining -= fill
		maker.Remaining -= fill
		best.TotalQty -= fill

		b.trades = append(b.trades, Trade{
			Timestamp: b.clock.Next(),
			Side:      o.Side,
			Price:     best.Price,
			Size:      fill,
			TakerID:   o.ID,
			MakerID:   maker.ID,
		})

		// A partially filled maker keeps its place: priority depends on
		// price, timestamp, and original size, none of which changed.
		if maker.Remaining == 0 {
			best.popHead()
			delete(b.orders, maker.ID)
			if best.Empty() {
				opp.Delete(best.Price)
			}
			b.retire(maker)
		}
	}
}

func (b *Orderbook) rest(o *Order) {
	tree := b.bids
	if o.Side == Sell {
		tree = b.asks
	}
	tree.GetOrCreate(o.Price).insert(o)
	b.orders[o.ID] = o
}

func (b *Orderbook) retire(o *Order) {
	if b.onRetire != nil {
		b.onRetire(o)
	}
}

// BestBid returns the highest resting buy price, if any.
func (b *Orderbook) BestBid() (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bestBidLocked()
}

// BestAsk returns the lowest resting sell price, if any.
func (b *Orderbook) BestAsk() (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bestAskLocked()
}

// Spread returns both best prices drawn from a single consistent
// state. While both sides are non-empty, Bid < Ask always holds.
func (b *Orderbook) Spread() Quote {
	b.mu.Lock()
	defer b.mu.Unlock()
	var q Quote
	q.Bid, q.HasBid = b.bestBidLocked()
	q.Ask, q.HasAsk = b.bestAskLocked()
	return q
}

func (b *Orderbook) bestBidLocked() (decimal.Decimal, bool) {
	lvl := b.bids.Max()
	if lvl == nil {
		return decimal.Decimal{}, false
	}
	return lvl.Price, true
}

func (b *Orderbook) bestAskLocked() (decimal.Decimal, bool) {
	lvl := b.asks.Min()
	if lvl == nil {
		return decimal.Decimal{}, false
	}
	return lvl.Price, true
}

// Len is the total count of resting orders across both sides.
func (b *Orderbook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orders)
}

// Trades returns a copy of the trade log in append order.
func (b *Orderbook) Trades() []Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Trade, len(b.trades))
	copy(out, b.trades)
	return out
}

// WalkBids visits bid levels best to worst under the book lock.
func (b *Orderbook) WalkBids(fn func(*PriceLevel) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids.Descend(fn)
}

// WalkAsks visits ask levels best to worst under the book lock.
func (b *Orderbook) WalkAsks(fn func(*PriceLevel) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.asks.Ascend(fn)
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
