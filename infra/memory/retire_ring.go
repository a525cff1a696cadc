package memory

import "sync/atomic"

// RetireRing is a single-producer single-consumer ring buffer holding
// objects that left the book but may still be referenced by an active
// snapshot. The engine goroutine enqueues; the reclaim job dequeues.
type RetireRing struct {
	head  uint64
	_pad1 [56]byte
	tail  uint64
	_pad2 [56]byte
	buf   []any
	mask  uint64
}

// NewRetireRing creates a ring. Size must be a power of two.
func NewRetireRing(size uint64) *RetireRing {
	if size == 0 || size&(size-1) != 0 {
		panic("RetireRing size must be power of two")
	}
	return &RetireRing{
		buf:  make([]any, size),
		mask: size - 1,
	}
}

// Enqueue adds a retired object. It returns false when the ring is
// full; the caller drops the object and lets the GC take it.
func (r *RetireRing) Enqueue(v any) bool {
	h := r.head
	t := atomic.LoadUint64(&r.tail)
	if h-t == uint64(len(r.buf)) {
		return false
	}
	r.buf[h&r.mask] = v
	atomic.AddUint64(&r.head, 1)
	return true
}

// Dequeue removes the oldest retired object, or returns nil.
func (r *RetireRing) Dequeue() any {
	t := r.tail
	h := atomic.LoadUint64(&r.head)
	if t == h {
		return nil
	}
	v := r.buf[t&r.mask]
	r.buf[t&r.mask] = nil
	atomic.AddUint64(&r.tail, 1)
	return v
}

// Len reports how many objects are waiting for reclamation.
func (r *RetireRing) Len() int {
	return int(atomic.LoadUint64(&r.head) - atomic.LoadUint64(&r.tail))
}
