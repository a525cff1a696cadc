package orderbook

import (
	"strings"
	"testing"
)

func TestLimitConstruction(t *testing.T) {
	o := Limit(1, Buy, 10, d("100"))
	if o.ID != 1 || o.Kind != KindLimit || o.Side != Buy {
		t.Errorf("unexpected order %+v", o)
	}
	if o.Size != 10 || o.Remaining != 10 {
		t.Errorf("remaining should start at size, got %d/%d", o.Remaining, o.Size)
	}
	if o.Timestamp == 0 {
		t.Error("timestamp must be assigned at construction")
	}
}

func TestMarketConstruction(t *testing.T) {
	o := Market(2, Sell, 50)
	if o.Kind != KindMarket || o.Side != Sell || o.Remaining != 50 {
		t.Errorf("unexpected order %+v", o)
	}
}

func TestCancelConstruction(t *testing.T) {
	o := Cancel(3)
	if o.Kind != KindCancel || o.ID != 3 {
		t.Errorf("unexpected order %+v", o)
	}
}

func TestTimestampsStrictlyIncrease(t *testing.T) {
	prev := Limit(0, Buy, 1, d("1")).Timestamp
	for i := 1; i < 100; i++ {
		ts := Limit(uint64(i), Buy, 1, d("1")).Timestamp
		if ts <= prev {
			t.Fatalf("timestamp %d not greater than previous %d", ts, prev)
		}
		prev = ts
	}
}

func TestPriorityByPrice(t *testing.T) {
	buyLow := Order{Side: Buy, Price: d("100"), Timestamp: 1, Size: 10}
	buyHigh := Order{Side: Buy, Price: d("101"), Timestamp: 2, Size: 10}
	if !buyHigh.Less(&buyLow) {
		t.Error("higher-priced buy must have priority")
	}
	if buyLow.Less(&buyHigh) {
		t.Error("lower-priced buy must not have priority")
	}

	sellLow := Order{Side: Sell, Price: d("100"), Timestamp: 2, Size: 10}
	sellHigh := Order{Side: Sell, Price: d("101"), Timestamp: 1, Size: 10}
	if !sellLow.Less(&sellHigh) {
		t.Error("lower-priced sell must have priority")
	}
}

func TestPriorityByTime(t *testing.T) {
	early := Order{Side: Buy, Price: d("100"), Timestamp: 1, Size: 10}
	late := Order{Side: Buy, Price: d("100"), Timestamp: 2, Size: 5}
	if !early.Less(&late) {
		t.Error("at equal price the earlier order must have priority")
	}
}

func TestPriorityBySize(t *testing.T) {
	small := Order{Side: Sell, Price: d("100"), Timestamp: 1, Size: 5}
	big := Order{Side: Sell, Price: d("100"), Timestamp: 1, Size: 10}
	if !small.Less(&big) {
		t.Error("at equal price and time the smaller order must have priority")
	}
	if big.Less(&small) || small.Less(&small) {
		t.Error("priority relation must be a strict order")
	}
}

func TestPriceEqualityIsExact(t *testing.T) {
	a := Order{Side: Buy, Price: d("0.1"), Timestamp: 1, Size: 1}
	b := Order{Side: Buy, Price: d("0.10"), Timestamp: 2, Size: 1}
	// 0.1 and 0.10 are the same price; time must decide.
	if !a.Less(&b) {
		t.Error("equal decimal prices must fall through to the time key")
	}
}

func TestOrderStrings(t *testing.T) {
	l := Limit(1, Buy, 10, d("100"))
	if s := l.String(); !strings.Contains(s, "BUY") || !strings.Contains(s, "100") {
		t.Errorf("unexpected limit repr %q", s)
	}
	m := Market(2, Sell, 50)
	if s := m.String(); !strings.Contains(s, "SELL") || !strings.Contains(s, "50") {
		t.Errorf("unexpected market repr %q", s)
	}
	c := Cancel(3)
	if s := c.String(); !strings.Contains(s, "3") {
		t.Errorf("unexpected cancel repr %q", s)
	}
}
