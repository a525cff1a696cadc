package orderbook

import "github.com/shopspring/decimal"

// PriceLevel holds the resting orders at a single price, ordered by
// timestamp and then by original size. Insertion scans from the tail,
// so with a monotonic clock it is effectively an append.
type PriceLevel struct {
	Price decimal.Decimal

	head *Order
	tail *Order

	TotalQty   int64
	OrderCount int
}

func (p *PriceLevel) insert(o *Order) {
	at := p.tail
	for at != nil && o.Less(at) {
		at = at.prev
	}
	switch {
	case at == nil: // new head
		o.next = p.head
		if p.head != nil {
			p.head.prev = o
		} else {
			p.tail = o
		}
		p.head = o
	case at == p.tail:
		at.next = o
		o.prev = at
		p.tail = o
	default:
		o.next = at.next
		o.prev = at
		at.next.prev = o
		at.next = o
	}
	p.TotalQty += o.Remaining
	p.OrderCount++
}

func (p *PriceLevel) popHead() *Order {
	o := p.head
	if o == nil {
		return nil
	}
	p.head = o.next
	if p.head != nil {
		p.head.prev = nil
	} else {
		p.tail = nil
	}
	o.next = nil
	o.prev = nil
	p.TotalQty -= o.Remaining
	p.OrderCount--
	return o
}

func (p *PriceLevel) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	p.TotalQty -= o.Remaining
	p.OrderCount--
}

func (p *PriceLevel) Empty() bool {
	return p.head == nil
}

// Head returns the order with the best priority at this price.
func (p *PriceLevel) Head() *Order {
	return p.head
}
