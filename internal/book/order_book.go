// Package book implements the per-symbol order book: a dual-priority
// structure (price outer, time inner) plus the price-time matching protocol.
package book

import (
	"errors"
	"sync"
	"time"

	"github.com/tidwall/btree"

	"matchcore/internal/common"
	"matchcore/internal/money"
)

var (
	// ErrOrderNotFound is returned by Cancel for an unknown or already
	// terminal order id.
	ErrOrderNotFound = errors.New("book: order not found")
	// ErrInvariant signals a matching-core bug (e.g. negative residual).
	// Callers must never swallow this.
	ErrInvariant = errors.New("book: invariant violation")
)

type indexEntry struct {
	side  common.Side
	price money.Decimal
}

// levels is the price-ordered map backing one side of the book. The less
// function determines both the btree ordering and which side MinMut()
// resolves to: bids sort highest-first, asks lowest-first.
type levels = btree.BTreeG[*PriceLevel]

// TradeIDSource mints globally increasing trade ids; supplied by the owning
// engine so trade ids stay unique across all of its symbols.
type TradeIDSource interface {
	NextTradeID() uint64
}

// Clock supplies the current time; production code uses the system clock,
// tests can inject a fixed one for reproducible fixtures.
type Clock func() time.Time

// OrderBook is the per-symbol container: bid/ask priority structures plus a
// flat order-id index for O(1) cancel. All mutating methods take the book's
// own guard.
type OrderBook struct {
	Symbol string

	mu    sync.RWMutex
	bids  *levels
	asks  *levels
	index map[common.OrderId]indexEntry

	lastTradePrice money.Decimal
	hasLastTrade   bool

	tradeIDs TradeIDSource
	clock    Clock
}

// NewOrderBook constructs an empty book for symbol.
func NewOrderBook(symbol string, tradeIDs TradeIDSource, clock Clock) *OrderBook {
	if clock == nil {
		clock = time.Now
	}
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.GreaterThan(b.Price) // highest bid sorts first
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.LessThan(b.Price) // lowest ask sorts first
	})
	return &OrderBook{
		Symbol:   symbol,
		bids:     bids,
		asks:     asks,
		index:    make(map[common.OrderId]indexEntry),
		tradeIDs: tradeIDs,
		clock:    clock,
	}
}

func (b *OrderBook) sideLevels(s common.Side) *levels {
	if s == common.Buy {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) oppositeLevels(s common.Side) *levels {
	return b.sideLevels(s.Opposite())
}

// marketable reports whether limit price L on side S would immediately
// match the opposite side's current best price.
func marketable(side common.Side, limit money.Decimal, best money.Decimal) bool {
	if side == common.Buy {
		return limit.GreaterThanOrEqual(best)
	}
	return limit.LessThanOrEqual(best)
}

// runMatch executes the core matching protocol for aggressor
// against the opposite side of the book. marketableFor reports, for a given
// opposite-side best price, whether the aggressor is still willing to trade
// at it (always true for Market orders, a limit-price check otherwise).
func (b *OrderBook) runMatch(aggressor *common.Order, marketableFor func(bestOppositePrice money.Decimal) bool) ([]common.Trade, error) {
	var trades []common.Trade
	opposite := b.oppositeLevels(aggressor.Side)

	for aggressor.Remaining().IsPositive() {
		level, ok := opposite.MinMut()
		if !ok {
			break
		}
		if !marketableFor(level.Price) {
			break
		}

		for aggressor.Remaining().IsPositive() && !level.IsEmpty() {
			maker := level.Head()
			aggRemaining := aggressor.Remaining()
			makerRemaining := maker.Remaining()
			qty := money.Min(aggRemaining, makerRemaining)

			if qty.IsNegative() || qty.IsZero() {
				return trades, ErrInvariant
			}

			trade := common.Trade{
				ID:            b.tradeIDs.NextTradeID(),
				Symbol:        b.Symbol,
				Price:         level.Price,
				Quantity:      qty,
				AggressorSide: aggressor.Side,
				MakerOrderID:  maker.ID,
				TakerOrderID:  aggressor.ID,
				MakerSeq:      maker.AcceptedSequence,
				TakerSeq:      aggressor.AcceptedSequence,
				Timestamp:     b.clock(),
			}
			trades = append(trades, trade)

			aggressor.Fill(qty)
			maker.Fill(qty)
			level.DecrementTotal(qty)
			b.lastTradePrice = level.Price
			b.hasLastTrade = true

			if maker.IsFullyFilled() {
				level.PopHead()
				delete(b.index, maker.ID)
			}
		}

		if level.IsEmpty() {
			opposite.Delete(level)
		}
	}

	return trades, nil
}

// AddLimit matches a limit order against the opposite side first, then
// rests any residual on its own side.
func (b *OrderBook) AddLimit(order *common.Order) ([]common.Trade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	trades, err := b.runMatch(order, func(bestOpposite money.Decimal) bool {
		return marketable(order.Side, order.Price, bestOpposite)
	})
	if err != nil {
		return trades, err
	}

	if order.Remaining().IsPositive() {
		b.rest(order)
	}
	return trades, nil
}

// rest places order's residual quantity on its own side, appended at the
// tail of its price level to preserve time priority.
func (b *OrderBook) rest(order *common.Order) {
	side := b.sideLevels(order.Side)
	level, ok := side.GetMut(&PriceLevel{Price: order.Price})
	if !ok {
		level = NewPriceLevel(order.Price)
		side.Set(level)
	}
	level.Enqueue(order)
	b.index[order.ID] = indexEntry{side: order.Side, price: order.Price}
}

// MatchMarket sweeps the opposite side until order is fully filled or
// liquidity is exhausted; any residual is discarded, never rested.
func (b *OrderBook) MatchMarket(order *common.Order) ([]common.Trade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	trades, err := b.runMatch(order, func(money.Decimal) bool { return true })
	if err != nil {
		return trades, err
	}
	if order.IsFullyFilled() {
		order.Status = common.Filled
	} else {
		order.Status = common.Cancelled
	}
	return trades, nil
}

// MatchIOC runs one limit-style matching pass and discards any residual
// instead of resting it.
func (b *OrderBook) MatchIOC(order *common.Order) ([]common.Trade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	trades, err := b.runMatch(order, func(bestOpposite money.Decimal) bool {
		return marketable(order.Side, order.Price, bestOpposite)
	})
	if err != nil {
		return trades, err
	}
	if order.IsFullyFilled() {
		order.Status = common.Filled
	} else {
		order.Status = common.Cancelled
	}
	return trades, nil
}

// MatchFOK runs the two-phase fill-or-kill protocol:
// a non-mutating probe accumulates available quantity at acceptable prices;
// only if that covers the full order quantity does the second phase consume
// it. Otherwise the order is rejected with zero trades and Status Cancelled,
// leaving the book untouched.
func (b *OrderBook) MatchFOK(order *common.Order) ([]common.Trade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.probeFillable(order) {
		order.Status = common.Cancelled
		return nil, nil
	}

	trades, err := b.runMatch(order, func(bestOpposite money.Decimal) bool {
		return marketable(order.Side, order.Price, bestOpposite)
	})
	if err != nil {
		return trades, err
	}
	if !order.IsFullyFilled() {
		// The probe guaranteed fillability; reaching here means a bug.
		return trades, ErrInvariant
	}
	order.Status = common.Filled
	return trades, nil
}

// probeFillable walks the opposite side read-only, accumulating quantity at
// prices acceptable to order, until either the requested quantity is covered
// (fillable) or the walk runs out of acceptable levels (not fillable). It
// mutates no book state.
func (b *OrderBook) probeFillable(order *common.Order) bool {
	opposite := b.oppositeLevels(order.Side)
	needed := order.Remaining()

	fillable := false
	opposite.Scan(func(level *PriceLevel) bool {
		if !marketable(order.Side, order.Price, level.Price) {
			return false
		}
		available := level.Total()
		if available.GreaterThanOrEqual(needed) {
			fillable = true
			return false
		}
		needed = needed.Sub(available)
		return true
	})
	return fillable
}

// Cancel removes order_id from its resting price level and the index. It is
// atomic with respect to matching on this symbol.
func (b *OrderBook) Cancel(id common.OrderId) (*common.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.index[id]
	if !ok {
		return nil, ErrOrderNotFound
	}

	side := b.sideLevels(entry.side)
	level, ok := side.GetMut(&PriceLevel{Price: entry.price})
	if !ok {
		return nil, ErrOrderNotFound
	}

	order, ok := level.Remove(id)
	if !ok {
		return nil, ErrOrderNotFound
	}
	delete(b.index, id)
	if level.IsEmpty() {
		side.Delete(level)
	}

	order.Status = common.Cancelled
	return order, nil
}

// BBO returns the best bid and best ask prices by peeking the first level of
// each side's btree, which is O(log P) in the number of price levels; the
// best prices are not cached.
func (b *OrderBook) BBO() (bid money.Decimal, hasBid bool, ask money.Decimal, hasAsk bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if lvl, ok := b.bids.Min(); ok {
		bid, hasBid = lvl.Price, true
	}
	if lvl, ok := b.asks.Min(); ok {
		ask, hasAsk = lvl.Price, true
	}
	return
}

// LastTradePrice returns the most recent trade price on this symbol, if any.
func (b *OrderBook) LastTradePrice() (money.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastTradePrice, b.hasLastTrade
}

// PriceQty is one (price, aggregate_quantity) row of a depth snapshot.
type PriceQty struct {
	Price money.Decimal
	Qty   money.Decimal
}

// Depth returns up to k price levels per side, best price first. Ties within a level are not expanded.
func (b *OrderBook) Depth(k int) (bids []PriceQty, asks []PriceQty) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if k <= 0 {
		return nil, nil
	}
	b.bids.Scan(func(lvl *PriceLevel) bool {
		bids = append(bids, PriceQty{Price: lvl.Price, Qty: lvl.Total()})
		return len(bids) < k
	})
	b.asks.Scan(func(lvl *PriceLevel) bool {
		asks = append(asks, PriceQty{Price: lvl.Price, Qty: lvl.Total()})
		return len(asks) < k
	})
	return bids, asks
}
