package book

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchcore/internal/common"
	"matchcore/internal/money"
)

// --- Setup & Helpers --------------------------------------------------------

type fakeTradeIDs struct {
	n atomic.Uint64
}

func (f *fakeTradeIDs) NextTradeID() uint64 { return f.n.Add(1) }

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func newTestBook() *OrderBook {
	return NewOrderBook("BTC-USDT", &fakeTradeIDs{}, fixedClock(time.Unix(0, 0)))
}

var seq common.Sequence

func nextSeq() common.Sequence {
	seq++
	return seq
}

func price(s string) money.Decimal { return money.MustParse(s, money.MinScale) }
func qty(s string) money.Decimal   { return money.MustParse(s, money.MinScale) }

func newOrder(id string, side common.Side, typ common.OrderType, p, q string) *common.Order {
	o := &common.Order{
		ID:               common.OrderId(id),
		Symbol:           "BTC-USDT",
		Side:             side,
		Type:             typ,
		Original:         qty(q),
		Filled:           money.Zero,
		AcceptedSequence: nextSeq(),
		Status:           common.Pending,
	}
	if typ != common.Market {
		o.Price = price(p)
		o.HasPrice = true
	}
	return o
}

// --- Resting then crossing (scenario 1) -------------------------------------

func TestAddLimit_RestsWhenNoCross(t *testing.T) {
	b := newTestBook()
	order := newOrder("b1", common.Buy, common.Limit, "100", "10")

	trades, err := b.AddLimit(order)
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, common.Pending, order.Status)

	bid, hasBid, _, hasAsk := b.BBO()
	assert.True(t, hasBid)
	assert.False(t, hasAsk)
	assert.True(t, bid.Equal(price("100")))
}

func TestAddLimit_CrossesRestingOrder(t *testing.T) {
	b := newTestBook()

	resting := newOrder("maker1", common.Sell, common.Limit, "100", "10")
	_, err := b.AddLimit(resting)
	require.NoError(t, err)

	aggressor := newOrder("taker1", common.Buy, common.Limit, "101", "4")
	trades, err := b.AddLimit(aggressor)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	trade := trades[0]
	// The maker's resting price governs the trade, not the aggressor's limit.
	assert.True(t, trade.Price.Equal(price("100")))
	assert.True(t, trade.Quantity.Equal(qty("4")))
	assert.Equal(t, common.OrderId("maker1"), trade.MakerOrderID)
	assert.Equal(t, common.OrderId("taker1"), trade.TakerOrderID)

	assert.Equal(t, common.Filled, aggressor.Status)
	assert.True(t, resting.Remaining().Equal(qty("6")))
	assert.Equal(t, common.PartiallyFilled, resting.Status)
}

// --- Time priority at one level (scenario 2) --------------------------------

func TestAddLimit_TimePriorityWithinLevel(t *testing.T) {
	b := newTestBook()

	first := newOrder("first", common.Sell, common.Limit, "100", "5")
	second := newOrder("second", common.Sell, common.Limit, "100", "5")
	_, err := b.AddLimit(first)
	require.NoError(t, err)
	_, err = b.AddLimit(second)
	require.NoError(t, err)

	aggressor := newOrder("agg", common.Buy, common.Limit, "100", "6")
	trades, err := b.AddLimit(aggressor)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	// The earlier-resting order fills first and completely before the later one.
	assert.Equal(t, common.OrderId("first"), trades[0].MakerOrderID)
	assert.True(t, trades[0].Quantity.Equal(qty("5")))
	assert.Equal(t, common.OrderId("second"), trades[1].MakerOrderID)
	assert.True(t, trades[1].Quantity.Equal(qty("1")))

	assert.True(t, first.IsFullyFilled())
	assert.True(t, second.Remaining().Equal(qty("4")))
}

// --- FOK unfillable (scenario 3) --------------------------------------------

func TestMatchFOK_UnfillableRejectsWithoutMutating(t *testing.T) {
	b := newTestBook()

	resting := newOrder("maker", common.Sell, common.Limit, "100", "5")
	_, err := b.AddLimit(resting)
	require.NoError(t, err)

	fok := newOrder("fok1", common.Buy, common.FOK, "100", "10")
	trades, err := b.MatchFOK(fok)
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, common.Cancelled, fok.Status)

	// The book is untouched: the resting order still has its original quantity.
	_, hasBid, ask, hasAsk := b.BBO()
	assert.False(t, hasBid)
	require.True(t, hasAsk)
	assert.True(t, ask.Equal(price("100")))
	assert.True(t, resting.Remaining().Equal(qty("5")))
}

// --- FOK fillable exactly (scenario 4) --------------------------------------

func TestMatchFOK_FillableConsumesExactly(t *testing.T) {
	b := newTestBook()

	level1 := newOrder("maker1", common.Sell, common.Limit, "100", "4")
	level2 := newOrder("maker2", common.Sell, common.Limit, "101", "6")
	_, err := b.AddLimit(level1)
	require.NoError(t, err)
	_, err = b.AddLimit(level2)
	require.NoError(t, err)

	fok := newOrder("fok2", common.Buy, common.FOK, "101", "10")
	trades, err := b.MatchFOK(fok)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, common.Filled, fok.Status)
	assert.True(t, fok.IsFullyFilled())
	assert.True(t, level1.IsFullyFilled())
	assert.True(t, level2.IsFullyFilled())
}

// --- IOC partial fill (scenario 5) ------------------------------------------

func TestMatchIOC_PartialFillDiscardsResidual(t *testing.T) {
	b := newTestBook()

	resting := newOrder("maker", common.Sell, common.Limit, "100", "3")
	_, err := b.AddLimit(resting)
	require.NoError(t, err)

	ioc := newOrder("ioc1", common.Buy, common.IOC, "100", "10")
	trades, err := b.MatchIOC(ioc)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Quantity.Equal(qty("3")))

	// IOC never rests its unfilled remainder.
	assert.Equal(t, common.Cancelled, ioc.Status)
	_, hasBid, _, hasAsk := b.BBO()
	assert.False(t, hasBid)
	assert.False(t, hasAsk)
}

// --- Cancel during life (scenario 6) ----------------------------------------

func TestCancel_RemovesRestingOrder(t *testing.T) {
	b := newTestBook()

	order := newOrder("cancel-me", common.Buy, common.Limit, "100", "10")
	_, err := b.AddLimit(order)
	require.NoError(t, err)

	cancelled, err := b.Cancel(order.ID)
	require.NoError(t, err)
	assert.Equal(t, common.Cancelled, cancelled.Status)

	_, hasBid, _, _ := b.BBO()
	assert.False(t, hasBid)

	_, err = b.Cancel(order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCancel_UnknownIDReturnsNotFound(t *testing.T) {
	b := newTestBook()
	_, err := b.Cancel("does-not-exist")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

// --- Market orders -----------------------------------------------------------

func TestMatchMarket_SweepsAndDiscardsResidual(t *testing.T) {
	b := newTestBook()

	_, err := b.AddLimit(newOrder("maker1", common.Sell, common.Limit, "100", "3"))
	require.NoError(t, err)
	_, err = b.AddLimit(newOrder("maker2", common.Sell, common.Limit, "101", "3"))
	require.NoError(t, err)

	market := newOrder("mkt1", common.Buy, common.Market, "", "10")
	trades, err := b.MatchMarket(market)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, common.Cancelled, market.Status)
	assert.True(t, market.Filled.Equal(qty("6")))
}

func TestMatchMarket_NoLiquidityCancelsWithoutTrades(t *testing.T) {
	b := newTestBook()
	market := newOrder("mkt1", common.Buy, common.Market, "", "10")
	trades, err := b.MatchMarket(market)
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, common.Cancelled, market.Status)
}

// --- Invariants --------------------------------------------------------------

func TestInvariant_BookNeverCrossesAfterMatching(t *testing.T) {
	b := newTestBook()

	_, err := b.AddLimit(newOrder("s1", common.Sell, common.Limit, "100", "5"))
	require.NoError(t, err)
	_, err = b.AddLimit(newOrder("b1", common.Buy, common.Limit, "99", "5"))
	require.NoError(t, err)

	bid, hasBid, ask, hasAsk := b.BBO()
	require.True(t, hasBid)
	require.True(t, hasAsk)
	assert.True(t, bid.LessThan(ask), "best bid must never be >= best ask once matching settles")
}

func TestInvariant_QuantityConservedAcrossTrades(t *testing.T) {
	b := newTestBook()

	resting := newOrder("maker", common.Sell, common.Limit, "100", "7")
	_, err := b.AddLimit(resting)
	require.NoError(t, err)

	aggressor := newOrder("taker", common.Buy, common.Limit, "100", "7")
	trades, err := b.AddLimit(aggressor)
	require.NoError(t, err)

	total := money.Zero
	for _, tr := range trades {
		total = total.Add(tr.Quantity)
	}
	assert.True(t, total.Equal(qty("7")))
	assert.True(t, aggressor.Filled.Equal(total))
	assert.True(t, resting.Filled.Equal(total))
}

func TestDepth_ReturnsBestLevelsFirst(t *testing.T) {
	b := newTestBook()

	_, err := b.AddLimit(newOrder("s1", common.Sell, common.Limit, "102", "1"))
	require.NoError(t, err)
	_, err = b.AddLimit(newOrder("s2", common.Sell, common.Limit, "101", "1"))
	require.NoError(t, err)
	_, err = b.AddLimit(newOrder("b1", common.Buy, common.Limit, "98", "1"))
	require.NoError(t, err)
	_, err = b.AddLimit(newOrder("b2", common.Buy, common.Limit, "99", "1"))
	require.NoError(t, err)

	bids, asks := b.Depth(10)
	require.Len(t, bids, 2)
	require.Len(t, asks, 2)
	assert.True(t, bids[0].Price.Equal(price("99")), "best bid first")
	assert.True(t, asks[0].Price.Equal(price("101")), "best ask first")
}
