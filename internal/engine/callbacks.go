package engine

import (
	"time"

	"matchcore/internal/book"
	"matchcore/internal/common"
	"matchcore/internal/money"
)

// TradeCallback is invoked once per emitted trade, in emission order.
type TradeCallback func(common.Trade)

// BookUpdateEvent mirrors the depth snapshot shape so subscribers can reuse the same rendering code as a direct
// depth query.
type BookUpdateEvent struct {
	Symbol    string
	Timestamp time.Time
	Bids      []book.PriceQty
	Asks      []book.PriceQty
	BestBid   money.Decimal
	HasBid    bool
	BestAsk   money.Decimal
	HasAsk    bool
}

// BookUpdateCallback is invoked once per submission that touched a symbol's
// book, after all of that submission's trade callbacks.
type BookUpdateCallback func(BookUpdateEvent)

// OnTrade registers a trade subscriber. Registration takes the engine's
// callback guard.
func (e *Engine) OnTrade(cb TradeCallback) {
	e.callbacksMu.Lock()
	defer e.callbacksMu.Unlock()
	e.tradeCallbacks = append(e.tradeCallbacks, cb)
}

// OnBookUpdate registers a book-update subscriber.
func (e *Engine) OnBookUpdate(cb BookUpdateCallback) {
	e.callbacksMu.Lock()
	defer e.callbacksMu.Unlock()
	e.bookCallbacks = append(e.bookCallbacks, cb)
}

// dispatch invokes trade callbacks for each trade in emission order, then
// the book-update callbacks once, catching and logging any callback panic
// so one misbehaving subscriber cannot affect the engine or other
// subscribers.
func (e *Engine) dispatch(trades []common.Trade, evt BookUpdateEvent) {
	e.callbacksMu.RLock()
	tradeCbs := append([]TradeCallback(nil), e.tradeCallbacks...)
	bookCbs := append([]BookUpdateCallback(nil), e.bookCallbacks...)
	e.callbacksMu.RUnlock()

	for _, trade := range trades {
		for _, cb := range tradeCbs {
			e.safeInvokeTrade(cb, trade)
		}
	}
	for _, cb := range bookCbs {
		e.safeInvokeBookUpdate(cb, evt)
	}
}

func (e *Engine) safeInvokeTrade(cb TradeCallback, trade common.Trade) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn().
				Interface("panic", r).
				Str("symbol", trade.Symbol).
				Msg("trade callback panicked")
		}
	}()
	cb(trade)
}

func (e *Engine) safeInvokeBookUpdate(cb BookUpdateCallback, evt BookUpdateEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn().
				Interface("panic", r).
				Str("symbol", evt.Symbol).
				Msg("book update callback panicked")
		}
	}()
	cb(evt)
}
