package orderbook

import (
	"sync"
	"time"
)

// Clock issues strictly monotonic microsecond timestamps. If the
// underlying source stalls or regresses, the next reading is bumped to
// previous+1 so that ordering never depends on the OS clock behaving.
type Clock struct {
	mu   sync.Mutex
	last int64
	now  func() int64
}

// NewClock wraps a microsecond time source.
func NewClock(now func() int64) *Clock {
	return &Clock{now: now}
}

// SystemClock returns a clock backed by the wall clock.
func SystemClock() *Clock {
	return NewClock(func() int64 { return time.Now().UnixMicro() })
}

// Next returns a timestamp strictly greater than every previous one.
func (c *Clock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now()
	if t <= c.last {
		t = c.last + 1
	}
	c.last = t
	return t
}

// defaultClock stamps orders built with Limit, Market, and Cancel.
var defaultClock = SystemClock()
