package common

import (
	"fmt"
	"time"

	"matchcore/internal/money"
)

// Order is the engine's in-memory representation of a submitted order. It is
// mutated only inside the engine's per-symbol critical section and removed
// from all indices once it reaches a terminal Status.
type Order struct {
	ID       OrderId
	Symbol   string
	Side     Side
	Type     OrderType
	Price    money.Decimal // zero value for Market orders; required otherwise
	HasPrice bool
	Original money.Decimal // original_quantity, > 0
	Filled   money.Decimal // filled_quantity, >= 0, <= Original

	AcceptedSequence  Sequence
	AcceptedTimestamp time.Time

	Status Status
}

// Remaining returns the order's unfilled quantity.
func (o *Order) Remaining() money.Decimal {
	return o.Original.Sub(o.Filled)
}

// IsFullyFilled reports whether Filled has reached Original.
func (o *Order) IsFullyFilled() bool {
	return o.Filled.Cmp(o.Original) >= 0
}

// Fill advances Filled by qty and refreshes Status accordingly. It never
// rests/cancels the order; callers decide terminal transitions.
func (o *Order) Fill(qty money.Decimal) {
	o.Filled = o.Filled.Add(qty)
	if o.IsFullyFilled() {
		o.Status = Filled
	} else if o.Filled.IsPositive() {
		o.Status = PartiallyFilled
	}
}

func (o Order) String() string {
	priceStr := "-"
	if o.HasPrice {
		priceStr = o.Price.String()
	}
	return fmt.Sprintf(
		"Order{id=%s symbol=%s side=%s type=%s price=%s qty=%s/%s seq=%d status=%s}",
		o.ID, o.Symbol, o.Side, o.Type, priceStr, o.Filled, o.Original,
		o.AcceptedSequence, o.Status,
	)
}
