// Package engine implements the multi-symbol matching coordinator: it
// validates and routes orders by type, resolves or lazily creates the
// per-symbol order book, drives the book's match loop, dispatches trade and
// book-update callbacks, and aggregates statistics.
package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"matchcore/internal/book"
	"matchcore/internal/common"
	"matchcore/internal/money"
)

// Engine is the single constructed value owning every symbol's order book.
// The zero value is not usable; construct with New.
type Engine struct {
	cfg Config

	registryMu sync.RWMutex
	books      map[string]*book.OrderBook

	ordersMu   sync.RWMutex
	liveOrders map[common.OrderId]string // order id -> symbol, for duplicate detection

	seq      common.SequenceGenerator
	tradeSeq atomic.Uint64
	ids      common.IDGenerator

	callbacksMu    sync.RWMutex
	tradeCallbacks []TradeCallback
	bookCallbacks  []BookUpdateCallback

	stats *statsTracker

	logger zerolog.Logger
	clock  book.Clock
}

// Option customizes an Engine at construction.
type Option func(*Engine)

// WithIDGenerator overrides the default collision-resistant uuid generator,
// e.g. with common.NewSeededGenerator for reproducible tests.
func WithIDGenerator(g common.IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithLogger overrides the default zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the system clock, for deterministic trade timestamps
// in tests.
func WithClock(c func() time.Time) Option {
	return func(e *Engine) { e.clock = c }
}

// New constructs an empty, ready-to-use engine. No symbols exist at
// construction; a symbol's book is created lazily by the first Submit,
// Cancel, BBO or Depth call that names it.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg,
		books:      make(map[string]*book.OrderBook),
		liveOrders: make(map[common.OrderId]string),
		ids:        common.NewUUIDGenerator(),
		stats:      newStatsTracker(),
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NextTradeID implements book.TradeIDSource: trade ids are minted
// engine-wide so they stay unique across every symbol.
func (e *Engine) NextTradeID() uint64 {
	return e.tradeSeq.Add(1)
}

// bookFor resolves or lazily creates the OrderBook for symbol. The registry
// guard is held only long enough to look up or insert the book, never while
// matching runs.
func (e *Engine) bookFor(symbol string) *book.OrderBook {
	e.registryMu.RLock()
	b, ok := e.books[symbol]
	e.registryMu.RUnlock()
	if ok {
		return b
	}

	e.registryMu.Lock()
	defer e.registryMu.Unlock()
	if b, ok = e.books[symbol]; ok {
		return b
	}
	b = book.NewOrderBook(symbol, e, e.clock)
	e.books[symbol] = b
	return b
}

// Symbols enumerates every symbol with a live order book.
func (e *Engine) Symbols() []string {
	e.registryMu.RLock()
	defer e.registryMu.RUnlock()
	out := make([]string, 0, len(e.books))
	for s := range e.books {
		out = append(out, s)
	}
	return out
}

// Submit validates and routes one order through its type-specific matching
// protocol. Validation and duplicate-id failures are returned
// synchronously and never mutate book state; internal invariant violations
// are fatal and are surfaced as a panic rather than swallowed.
func (e *Engine) Submit(in SubmitOrderInput) (SubmissionResult, error) {
	e.stats.recordReceived(in.Symbol)

	side, typ, qty, price, hasPrice, err := e.validate(in)
	if err != nil {
		e.stats.recordRejected(in.Symbol)
		reason := err.Error()
		if verr, ok := err.(*ValidationError); ok {
			reason = verr.Reason
		}
		return SubmissionResult{Status: common.Rejected, RejectReason: reason}, err
	}

	orderID := common.OrderId(in.OrderID)
	if orderID == "" {
		if !e.cfg.AssignIDs {
			err := newValidationError(ReasonMissingOrderID, "order_id is required when AssignIDs is disabled")
			e.stats.recordRejected(in.Symbol)
			return SubmissionResult{Status: common.Rejected, RejectReason: err.Reason}, err
		}
		orderID = e.ids.NewOrderID()
	} else if e.isLive(orderID) {
		dupErr := &DuplicateOrderIdError{OrderID: string(orderID)}
		e.stats.recordRejected(in.Symbol)
		return SubmissionResult{Status: common.Rejected, RejectReason: ReasonDuplicateID}, dupErr
	}

	order := &common.Order{
		ID:                orderID,
		Symbol:            in.Symbol,
		Side:              side,
		Type:              typ,
		Price:             price,
		HasPrice:          hasPrice,
		Original:          qty,
		Filled:            money.Zero,
		AcceptedSequence:  e.seq.Next(),
		AcceptedTimestamp: e.now(),
		Status:            common.Pending,
	}

	e.stats.recordAccepted(in.Symbol)
	e.markLive(order)

	b := e.bookFor(in.Symbol)

	var trades []common.Trade
	switch typ {
	case common.Market:
		trades, err = b.MatchMarket(order)
	case common.Limit:
		// Order.Fill already set Filled/PartiallyFilled as trades landed;
		// any order.Status left at Pending here genuinely never matched
		// and now rests untouched.
		trades, err = b.AddLimit(order)
	case common.IOC:
		trades, err = b.MatchIOC(order)
	case common.FOK:
		trades, err = b.MatchFOK(order)
	}
	if err != nil {
		panic(err) // internal invariant violation: must not be swallowed
	}

	if order.Status.IsTerminal() {
		e.unmarkLive(order.ID)
	}

	volume := money.Zero
	for _, t := range trades {
		volume = volume.Add(t.Quantity)
	}
	e.stats.recordTrades(in.Symbol, len(trades), volume)

	e.dispatch(trades, e.snapshotEvent(in.Symbol, b))

	return SubmissionResult{
		OrderID: order.ID,
		Status:  order.Status,
		Trades:  trades,
	}, nil
}

// Cancel cancels a resting order by (order_id, symbol), atomic with respect
// to matching on that symbol.
func (e *Engine) Cancel(symbol string, orderID common.OrderId) (*common.Order, error) {
	b := e.bookFor(symbol)
	order, err := b.Cancel(orderID)
	if err != nil {
		return nil, ErrNotFound
	}
	e.unmarkLive(orderID)
	e.dispatch(nil, e.snapshotEvent(symbol, b))
	return order, nil
}

// BBO returns the best bid/ask for symbol.
func (e *Engine) BBO(symbol string) (bid money.Decimal, hasBid bool, ask money.Decimal, hasAsk bool) {
	return e.bookFor(symbol).BBO()
}

// Depth returns up to k price levels per side for symbol.
// k <= 0 uses the engine's configured default depth.
func (e *Engine) Depth(symbol string, k int) (bids, asks []book.PriceQty) {
	if k <= 0 {
		k = e.cfg.DefaultDepth
	}
	return e.bookFor(symbol).Depth(k)
}

// Stats returns a statistics snapshot.
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

func (e *Engine) snapshotEvent(symbol string, b *book.OrderBook) BookUpdateEvent {
	k := e.cfg.DefaultDepth
	bids, asks := b.Depth(k)
	bestBid, hasBid, bestAsk, hasAsk := b.BBO()
	return BookUpdateEvent{
		Symbol:    symbol,
		Timestamp: e.now(),
		Bids:      bids,
		Asks:      asks,
		BestBid:   bestBid,
		HasBid:    hasBid,
		BestAsk:   bestAsk,
		HasAsk:    hasAsk,
	}
}

func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now()
}

func (e *Engine) isLive(id common.OrderId) bool {
	e.ordersMu.RLock()
	defer e.ordersMu.RUnlock()
	_, ok := e.liveOrders[id]
	return ok
}

func (e *Engine) markLive(order *common.Order) {
	e.ordersMu.Lock()
	defer e.ordersMu.Unlock()
	e.liveOrders[order.ID] = order.Symbol
}

func (e *Engine) unmarkLive(id common.OrderId) {
	e.ordersMu.Lock()
	defer e.ordersMu.Unlock()
	delete(e.liveOrders, id)
}
