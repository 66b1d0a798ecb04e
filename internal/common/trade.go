package common

import (
	"fmt"
	"time"

	"matchcore/internal/money"
)

// Trade is a single execution produced by the matching loop. Price
// always equals the maker's resting price — the maker price rule — never
// the aggressor's.
type Trade struct {
	ID       uint64
	Symbol   string
	Price    money.Decimal
	Quantity money.Decimal

	AggressorSide Side

	MakerOrderID OrderId
	TakerOrderID OrderId
	MakerSeq     Sequence
	TakerSeq     Sequence

	Timestamp time.Time
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"Trade{id=%d symbol=%s price=%s qty=%s aggressor=%s maker=%s taker=%s}",
		t.ID, t.Symbol, t.Price, t.Quantity, t.AggressorSide, t.MakerOrderID, t.TakerOrderID,
	)
}
