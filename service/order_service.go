package service

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Professor833/order-matching-engine/domain/orderbook"
	"github.com/Professor833/order-matching-engine/infra/memory"
	"github.com/Professor833/order-matching-engine/infra/sequence"
	entrywal "github.com/Professor833/order-matching-engine/infra/wal/entry"
	exitwal "github.com/Professor833/order-matching-engine/infra/wal/exit"
	"github.com/Professor833/order-matching-engine/snapshot"
)

var (
	ErrInvalidSize  = errors.New("order size must be positive")
	ErrInvalidPrice = errors.New("limit price must be positive")
)

// OrderService is the only write entry point into the engine.
//
// The submit pipeline is: journal the request, apply it to the book,
// stage resulting fills in the outbox. mu serializes the whole
// pipeline so the journal sequence always equals the last applied
// request, which is what makes snapshots consistent.
type OrderService struct {
	mu sync.Mutex

	log      *slog.Logger
	book     *orderbook.Orderbook
	pool     *memory.Pool[orderbook.Order]
	ring     *memory.RetireRing
	reader   *snapshot.Reader
	seqGen   *sequence.Sequencer
	tradeSeq *sequence.Sequencer
	journal  *entrywal.WAL
	outbox   *exitwal.Outbox

	feed chan orderbook.Trade
}

const feedBuffer = 1024

func NewOrderService(
	log *slog.Logger,
	book *orderbook.Orderbook,
	pool *memory.Pool[orderbook.Order],
	ring *memory.RetireRing,
	reader *snapshot.Reader,
	seqGen *sequence.Sequencer,
	tradeSeq *sequence.Sequencer,
	journal *entrywal.WAL,
	outbox *exitwal.Outbox,
) *OrderService {
	return &OrderService{
		log:      log,
		book:     book,
		pool:     pool,
		ring:     ring,
		reader:   reader,
		seqGen:   seqGen,
		tradeSeq: tradeSeq,
		journal:  journal,
		outbox:   outbox,
		feed:     make(chan orderbook.Trade, feedBuffer),
	}
}

// PlaceLimit submits a limit order and returns the journal sequence it
// was logged under plus any fills it produced.
func (s *OrderService) PlaceLimit(
	id uint64,
	side orderbook.Side,
	size int64,
	price decimal.Decimal,
) (uint64, []orderbook.Trade, error) {
	if size <= 0 {
		return 0, nil, ErrInvalidSize
	}
	if !price.IsPositive() {
		return 0, nil, ErrInvalidPrice
	}

	o := s.pool.Get()
	*o = orderbook.Limit(id, side, size, price)
	return s.submit(o)
}

// PlaceMarket submits a market order. Any part that finds no liquidity
// is discarded, not queued.
func (s *OrderService) PlaceMarket(
	id uint64,
	side orderbook.Side,
	size int64,
) (uint64, []orderbook.Trade, error) {
	if size <= 0 {
		return 0, nil, ErrInvalidSize
	}

	o := s.pool.Get()
	*o = orderbook.Market(id, side, size)
	return s.submit(o)
}

// Cancel removes a resting order. Cancelling an unknown or already
// filled id is a silent no-op, so no error is reported for it.
func (s *OrderService) Cancel(id uint64) (uint64, error) {
	o := s.pool.Get()
	*o = orderbook.Cancel(id)
	seq, _, err := s.submit(o)
	return seq, err
}

func (s *OrderService) submit(o *orderbook.Order) (uint64, []orderbook.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seqGen.Next()

	rec := entrywal.NewRecord(recordType(o.Kind), seq, o.Timestamp, encodeOrder(o))
	if err := s.journal.Append(rec); err != nil {
		s.pool.Put(o)
		return 0, nil, err
	}

	kind, id := o.Kind, o.ID
	trades := s.book.Submit(o)

	// The book never holds on to a cancel request, so it can be recycled
	// immediately; every other kind comes back through the retire hook.
	if kind == orderbook.KindCancel {
		s.pool.Put(o)
	}

	for _, t := range trades {
		s.publish(t)
	}

	s.log.Debug("request applied",
		"seq", seq, "id", id, "kind", kind.String(), "fills", len(trades))

	return seq, trades, nil
}

// publish stages a fill in the outbox for durable delivery and offers
// it to the live feed. The feed is best effort: a slow subscriber
// drops ticks, the outbox never does.
func (s *OrderService) publish(t orderbook.Trade) {
	seq := s.tradeSeq.Next()

	payload, err := encodeTrade(seq, t)
	if err != nil {
		s.log.Error("encode trade", "seq", seq, "err", err)
		return
	}
	if err := s.outbox.PutNew(seq, payload); err != nil {
		s.log.Error("stage trade in outbox", "seq", seq, "err", err)
	}

	select {
	case s.feed <- t:
	default:
	}
}

// TradeFeed streams fills as they happen. Delivery is lossy under
// backpressure; durable consumers read the broadcast topic instead.
func (s *OrderService) TradeFeed() <-chan orderbook.Trade {
	return s.feed
}

// Quote returns the current top of book.
func (s *OrderService) Quote() orderbook.Quote {
	return s.book.Spread()
}

// PriceLevelView is an aggregated level for market-data consumers.
type PriceLevelView struct {
	Price  string `json:"price"`
	Size   int64  `json:"size"`
	Orders int    `json:"orders"`
}

// BookDepth is the full aggregated book, both sides best first.
type BookDepth struct {
	Bids []PriceLevelView `json:"bids"`
	Asks []PriceLevelView `json:"asks"`
}

// Depth walks the book under a read epoch and returns aggregated
// levels, best to worst on each side.
func (s *OrderService) Depth() BookDepth {
	s.reader.Begin()
	defer s.reader.End()

	var d BookDepth
	s.book.WalkBids(func(lvl *orderbook.PriceLevel) bool {
		d.Bids = append(d.Bids, PriceLevelView{
			Price:  lvl.Price.String(),
			Size:   lvl.TotalQty,
			Orders: lvl.OrderCount,
		})
		return true
	})
	s.book.WalkAsks(func(lvl *orderbook.PriceLevel) bool {
		d.Asks = append(d.Asks, PriceLevelView{
			Price:  lvl.Price.String(),
			Size:   lvl.TotalQty,
			Orders: lvl.OrderCount,
		})
		return true
	})
	return d
}

// OpenOrders returns the ids of all resting orders, bids then asks,
// best level first. Used by operational tooling.
func (s *OrderService) OpenOrders() []uint64 {
	s.reader.Begin()
	defer s.reader.End()

	out := make([]uint64, 0, 256)
	collect := func(lvl *orderbook.PriceLevel) bool {
		for o := lvl.Head(); o != nil; o = o.Next() {
			out = append(out, o.ID)
		}
		return true
	}
	s.book.WalkBids(collect)
	s.book.WalkAsks(collect)
	return out
}

// AdvanceEpoch performs one safe reclamation pass. Called periodically
// by a background job.
func (s *OrderService) AdvanceEpoch() {
	memory.AdvanceEpochAndReclaim(s.ring, s.pool, s.reader.Epoch())
}
