package orderbook

import (
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func submit(b *Orderbook, o Order) []Trade {
	return b.Submit(&o)
}

func TestInitialState(t *testing.T) {
	book := New()
	if book.Len() != 0 {
		t.Error("new book should be empty")
	}
	if _, ok := book.BestBid(); ok {
		t.Error("empty book should have no best bid")
	}
	if _, ok := book.BestAsk(); ok {
		t.Error("empty book should have no best ask")
	}
}

func TestInsert(t *testing.T) {
	book := New()
	submit(book, Limit(0, Buy, 10, d("10")))

	if book.Len() != 1 {
		t.Errorf("expected 1 resting order, got %d", book.Len())
	}
	bid, ok := book.BestBid()
	if !ok || !bid.Equal(d("10")) {
		t.Errorf("expected best bid 10, got %s (ok=%v)", bid, ok)
	}
	if _, ok := book.BestAsk(); ok {
		t.Error("ask side should be empty")
	}
}

func TestExecution(t *testing.T) {
	book := New()
	submit(book, Limit(0, Buy, 10, d("10")))
	trades := submit(book, Limit(1, Sell, 10, d("10")))

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if book.Len() != 0 {
		t.Error("equal volumes should empty the book")
	}
	q := book.Spread()
	if q.HasBid || q.HasAsk {
		t.Error("both sides should be empty after full execution")
	}
}

func TestBasicCross(t *testing.T) {
	book := New()
	submit(book, Limit(1, Buy, 100, d("99.50")))
	submit(book, Limit(2, Sell, 100, d("100.50")))
	trades := submit(book, Market(3, Buy, 50))

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	tr := trades[0]
	if tr.Side != Buy || !tr.Price.Equal(d("100.50")) || tr.Size != 50 {
		t.Errorf("unexpected trade %+v", tr)
	}
	if tr.TakerID != 3 || tr.MakerID != 2 {
		t.Errorf("trade ids wrong: taker=%d maker=%d", tr.TakerID, tr.MakerID)
	}

	q := book.Spread()
	if !q.HasBid || !q.Bid.Equal(d("99.50")) {
		t.Errorf("expected best bid 99.50, got %s", q.Bid)
	}
	if !q.HasAsk || !q.Ask.Equal(d("100.50")) {
		t.Errorf("expected best ask 100.50, got %s", q.Ask)
	}
}

func TestPartialFillPassiveLarger(t *testing.T) {
	book := New()
	submit(book, Limit(1, Sell, 200, d("10.00")))
	trades := submit(book, Market(2, Buy, 50))

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	tr := trades[0]
	if !tr.Price.Equal(d("10.00")) || tr.Size != 50 || tr.TakerID != 2 || tr.MakerID != 1 {
		t.Errorf("unexpected trade %+v", tr)
	}
	if book.Len() != 1 {
		t.Fatal("order 1 should remain resting")
	}

	var remaining int64
	book.WalkAsks(func(lvl *PriceLevel) bool {
		remaining = lvl.Head().Remaining
		return false
	})
	if remaining != 150 {
		t.Errorf("expected remaining 150, got %d", remaining)
	}
}

func TestSweepAcrossLevels(t *testing.T) {
	book := New()
	submit(book, Limit(1, Sell, 10, d("10.00")))
	submit(book, Limit(2, Sell, 10, d("10.10")))
	trades := submit(book, Market(3, Buy, 15))

	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if !trades[0].Price.Equal(d("10.00")) || trades[0].Size != 10 {
		t.Errorf("unexpected first trade %+v", trades[0])
	}
	if !trades[1].Price.Equal(d("10.10")) || trades[1].Size != 5 {
		t.Errorf("unexpected second trade %+v", trades[1])
	}

	ask, ok := book.BestAsk()
	if !ok || !ask.Equal(d("10.10")) {
		t.Errorf("expected best ask 10.10, got %s", ask)
	}
	var remaining int64
	book.WalkAsks(func(lvl *PriceLevel) bool {
		remaining = lvl.Head().Remaining
		return false
	})
	if remaining != 5 {
		t.Errorf("expected remaining 5 on order 2, got %d", remaining)
	}
}

func TestCancelBeforeMatch(t *testing.T) {
	book := New()
	submit(book, Limit(1, Buy, 100, d("99.00")))
	submit(book, Cancel(1))
	trades := submit(book, Market(2, Sell, 100))

	if len(trades) != 0 {
		t.Errorf("expected no trades, got %d", len(trades))
	}
	if book.Len() != 0 {
		t.Error("book should be empty; market remainder must be discarded")
	}
}

func TestCancelUnknownIDIsNoOp(t *testing.T) {
	book := New()
	submit(book, Limit(1, Buy, 10, d("99.00")))
	submit(book, Cancel(42))
	submit(book, Cancel(42))

	if book.Len() != 1 {
		t.Error("cancel of unknown id must leave the book untouched")
	}
}

func TestCrossingLimit(t *testing.T) {
	book := New()
	submit(book, Limit(1, Sell, 50, d("100.00")))
	trades := submit(book, Limit(2, Buy, 80, d("100.00")))

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if !trades[0].Price.Equal(d("100.00")) || trades[0].Size != 50 {
		t.Errorf("unexpected trade %+v", trades[0])
	}

	bid, ok := book.BestBid()
	if !ok || !bid.Equal(d("100.00")) {
		t.Errorf("order 2 should rest at 100.00, got %s (ok=%v)", bid, ok)
	}
	var remaining int64
	book.WalkBids(func(lvl *PriceLevel) bool {
		remaining = lvl.Head().Remaining
		return false
	})
	if remaining != 30 {
		t.Errorf("expected remaining 30, got %d", remaining)
	}
}

func TestPriceTimePriority(t *testing.T) {
	book := New()
	submit(book, Limit(1, Buy, 10, d("100.00")))
	submit(book, Limit(2, Buy, 10, d("100.00")))
	trades := submit(book, Market(3, Sell, 10))

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].MakerID != 1 {
		t.Errorf("earlier order must execute first, matched against %d", trades[0].MakerID)
	}
	if book.Len() != 1 {
		t.Error("order 2 should remain resting")
	}
}

func TestSizeTieBreakAtEqualTimestamp(t *testing.T) {
	book := New()

	big := Order{ID: 1, Timestamp: 1_000, Kind: KindLimit, Side: Buy, Size: 20, Remaining: 20, Price: d("100.00")}
	small := Order{ID: 2, Timestamp: 1_000, Kind: KindLimit, Side: Buy, Size: 10, Remaining: 10, Price: d("100.00")}
	book.Submit(&big)
	book.Submit(&small)

	trades := submit(book, Market(3, Sell, 10))
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].MakerID != 2 {
		t.Errorf("smaller order must execute first at equal price and time, matched %d", trades[0].MakerID)
	}
}

func TestLimitAtExactOppositePriceMatches(t *testing.T) {
	book := New()
	submit(book, Limit(1, Sell, 10, d("100.00")))
	trades := submit(book, Limit(2, Buy, 10, d("100.00")))
	if len(trades) != 1 {
		t.Error("buy at exactly best ask must match")
	}

	submit(book, Limit(3, Buy, 10, d("99.00")))
	trades = submit(book, Limit(4, Sell, 10, d("99.00")))
	if len(trades) != 1 {
		t.Error("sell at exactly best bid must match")
	}
}

func TestMarketOnEmptyOppositeSide(t *testing.T) {
	book := New()
	submit(book, Limit(1, Buy, 10, d("99.00")))
	trades := submit(book, Market(2, Buy, 10))

	if len(trades) != 0 {
		t.Error("market buy with no asks must produce no trades")
	}
	if book.Len() != 1 {
		t.Error("market order must not rest")
	}
}

func TestMarketSweepsEntireSide(t *testing.T) {
	book := New()
	submit(book, Limit(1, Sell, 10, d("10.00")))
	submit(book, Limit(2, Sell, 20, d("10.50")))
	submit(book, Limit(3, Sell, 30, d("11.00")))

	trades := submit(book, Market(4, Buy, 100))
	if len(trades) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(trades))
	}
	if _, ok := book.BestAsk(); ok {
		t.Error("ask side should be fully consumed")
	}
}

func TestNonCrossingLimitOnlyRests(t *testing.T) {
	book := New()
	submit(book, Limit(1, Sell, 10, d("101.00")))
	before := len(book.Trades())

	trades := submit(book, Limit(2, Buy, 10, d("100.00")))
	if len(trades) != 0 || len(book.Trades()) != before {
		t.Error("non-crossing limit must leave the trade log unchanged")
	}
	if book.Len() != 2 {
		t.Error("non-crossing limit must insert exactly one resting order")
	}
}

func TestRetireHook(t *testing.T) {
	var retired []uint64
	book := New(WithRetireHook(func(o *Order) {
		retired = append(retired, o.ID)
	}))

	submit(book, Limit(1, Sell, 10, d("10.00")))
	submit(book, Market(2, Buy, 30)) // fills 1, remainder discarded
	submit(book, Limit(3, Buy, 5, d("9.00")))
	submit(book, Cancel(3))

	want := map[uint64]bool{1: true, 2: true, 3: true}
	for _, id := range retired {
		delete(want, id)
	}
	if len(want) != 0 {
		t.Errorf("missing retirements: %v (got %v)", want, retired)
	}
}

func TestRetireHookFullyFilledMarket(t *testing.T) {
	var retired []uint64
	book := New(WithRetireHook(func(o *Order) {
		retired = append(retired, o.ID)
	}))

	submit(book, Limit(1, Sell, 5, d("10.00")))
	submit(book, Market(2, Buy, 5)) // consumed exactly, no remainder

	want := map[uint64]bool{1: true, 2: true}
	for _, id := range retired {
		delete(want, id)
	}
	if len(want) != 0 {
		t.Errorf("orders never retired: %v (retired=%v)", want, retired)
	}
}

// Conservation: original size equals remaining plus the sum of fills,
// for every order, at the end of a random order storm.
func TestFillConservation(t *testing.T) {
	book := New()
	rng := rand.New(rand.NewSource(7))

	const n = 2000
	sizes := make(map[uint64]int64, n)
	for i := 0; i < n; i++ {
		id := uint64(i)
		size := int64(rng.Intn(4) + 1)
		price := decimal.NewFromInt(int64(rng.Intn(200) + 1))
		sizes[id] = size
		side := Buy
		if rng.Intn(2) == 1 {
			side = Sell
		}
		submit(book, Limit(id, side, size, price))
	}

	filled := make(map[uint64]int64, n)
	for _, tr := range book.Trades() {
		if tr.Size <= 0 {
			t.Fatalf("trade with non-positive size: %+v", tr)
		}
		filled[tr.TakerID] += tr.Size
		filled[tr.MakerID] += tr.Size
	}

	resting := make(map[uint64]int64, n)
	walk := func(lvl *PriceLevel) bool {
		for o := lvl.Head(); o != nil; o = o.Next() {
			if o.Remaining <= 0 || o.Remaining > o.Size {
				t.Fatalf("resting order %d violates 0 < remaining <= size: %d/%d", o.ID, o.Remaining, o.Size)
			}
			resting[o.ID] = o.Remaining
		}
		return true
	}
	book.WalkBids(walk)
	book.WalkAsks(walk)

	for id, size := range sizes {
		if got := resting[id] + filled[id]; got != size {
			t.Fatalf("order %d: remaining+fills = %d, want %d", id, got, size)
		}
	}

	if q := book.Spread(); q.HasBid && q.HasAsk && q.Bid.Cmp(q.Ask) >= 0 {
		t.Fatalf("book is crossed: bid=%s ask=%s", q.Bid, q.Ask)
	}
}

// Each side must stay ordered under its priority relation.
func TestSidesStaySorted(t *testing.T) {
	book := New()
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 500; i++ {
		side := Buy
		if rng.Intn(2) == 1 {
			side = Sell
		}
		price := decimal.NewFromInt(int64(rng.Intn(50) + 1))
		submit(book, Limit(uint64(i), side, int64(rng.Intn(9)+1), price))
	}

	checkSide := func(walk func(func(*PriceLevel) bool)) {
		var prev *Order
		walk(func(lvl *PriceLevel) bool {
			for o := lvl.Head(); o != nil; o = o.Next() {
				if prev != nil && o.Less(prev) {
					t.Fatalf("order %d precedes %d but has better priority", prev.ID, o.ID)
				}
				cp := *o
				prev = &cp
			}
			return true
		})
	}
	checkSide(book.WalkBids)
	checkSide(book.WalkAsks)
}

func TestConcurrentSubmitsKeepSpreadConsistent(t *testing.T) {
	book := New()

	var writers sync.WaitGroup
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			if q := book.Spread(); q.HasBid && q.HasAsk && q.Bid.Cmp(q.Ask) >= 0 {
				t.Errorf("observed crossed spread: bid=%s ask=%s", q.Bid, q.Ask)
				return
			}
		}
	}()

	for w := 0; w < 4; w++ {
		writers.Add(1)
		go func(seed int64) {
			defer writers.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 500; i++ {
				side := Buy
				if rng.Intn(2) == 1 {
					side = Sell
				}
				price := decimal.NewFromInt(int64(rng.Intn(40) + 80))
				o := Limit(uint64(seed)*1_000_000+uint64(i), side, int64(rng.Intn(5)+1), price)
				book.Submit(&o)
			}
		}(int64(w + 1))
	}

	writers.Wait()
	close(done)
}

func TestTradeLogIsAppendOnlyAcrossSubmits(t *testing.T) {
	book := New()
	submit(book, Limit(1, Sell, 10, d("10.00")))
	submit(book, Limit(2, Sell, 10, d("10.10")))
	submit(book, Market(3, Buy, 12))
	first := book.Trades()

	submit(book, Limit(4, Sell, 10, d("10.20")))
	submit(book, Market(5, Buy, 5))
	second := book.Trades()

	if len(second) <= len(first) {
		t.Fatal("trade log must grow append-only")
	}
	for i, tr := range first {
		if second[i] != tr {
			// decimal equality on identical values is structural here
			if !second[i].Price.Equal(tr.Price) || second[i].Size != tr.Size ||
				second[i].TakerID != tr.TakerID || second[i].MakerID != tr.MakerID {
				t.Fatalf("earlier trades mutated at index %d", i)
			}
		}
	}
}

func TestRender(t *testing.T) {
	book := New()
	submit(book, Limit(1, Buy, 10, d("99.00")))
	submit(book, Limit(2, Sell, 5, d("101.00")))

	out := book.String()
	if out == "" {
		t.Fatal("render should produce output")
	}
	for _, want := range []string{"Asks:", "Bids:", "99", "101"} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
}
