package book

import (
	"matchcore/internal/common"
	"matchcore/internal/money"
)

// PriceLevel is the FIFO queue of resting orders at one price on one side of
// one symbol's book. total is maintained incrementally on
// enqueue, partial fill, and removal — never recomputed from scratch on the
// hot path.
type PriceLevel struct {
	Price  money.Decimal
	orders []*common.Order
	total  money.Decimal
}

// NewPriceLevel creates an empty level at price.
func NewPriceLevel(price money.Decimal) *PriceLevel {
	return &PriceLevel{Price: price, total: money.Zero}
}

// Enqueue appends order to the tail of the level, preserving time priority.
func (l *PriceLevel) Enqueue(o *common.Order) {
	l.orders = append(l.orders, o)
	l.total = l.total.Add(o.Remaining())
}

// Head peeks the oldest resting order without removing it, or nil if empty.
func (l *PriceLevel) Head() *common.Order {
	if len(l.orders) == 0 {
		return nil
	}
	return l.orders[0]
}

// PopHead removes and returns the oldest resting order, or nil if empty.
// Callers must have already accounted for its remaining quantity in total
// via DecrementTotal; PopHead alone does not touch total.
func (l *PriceLevel) PopHead() *common.Order {
	if len(l.orders) == 0 {
		return nil
	}
	o := l.orders[0]
	l.orders[0] = nil
	l.orders = l.orders[1:]
	return o
}

// DecrementTotal reduces the level's aggregate quantity, called whenever the
// head order is partially or fully filled during matching.
func (l *PriceLevel) DecrementTotal(qty money.Decimal) {
	l.total = l.total.Sub(qty)
}

// Total returns the level's aggregate open quantity.
func (l *PriceLevel) Total() money.Decimal {
	return l.total
}

// IsEmpty reports whether the queue has no resting orders; an empty level
// signals its owning side to drop it.
func (l *PriceLevel) IsEmpty() bool {
	return len(l.orders) == 0
}

// Remove is O(n) in the level's length and is used only on cancel. It
// returns the removed order and whether it was found.
func (l *PriceLevel) Remove(id common.OrderId) (*common.Order, bool) {
	for i, o := range l.orders {
		if o.ID != id {
			continue
		}
		l.total = l.total.Sub(o.Remaining())
		l.orders = append(l.orders[:i], l.orders[i+1:]...)
		return o, true
	}
	return nil, false
}

// Orders returns the level's resting orders in FIFO order. The returned
// slice is owned by the level and must not be mutated by callers.
func (l *PriceLevel) Orders() []*common.Order {
	return l.orders
}
