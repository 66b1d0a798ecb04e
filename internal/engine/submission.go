package engine

import (
	"matchcore/internal/common"
	"matchcore/internal/money"
)

// SubmitOrderInput is the order submission input from the API collaborator.
// Quantity/Price arrive as canonical decimal strings; the core never accepts
// a binary float on this path.
type SubmitOrderInput struct {
	Symbol    string
	OrderType string // "market", "limit", "ioc", "fok"
	Side      string // "buy", "sell"
	Quantity  string
	Price     string // required for limit/ioc/fok, ignored for market
	OrderID   string // optional; engine assigns one if empty and Config.AssignIDs
}

// SubmissionResult is the engine's synchronous response to Submit. Trades
// holds exactly what this submission emitted, possibly empty.
type SubmissionResult struct {
	OrderID      common.OrderId
	Status       common.Status
	Trades       []common.Trade
	RejectReason string
}

func parseOrderType(s string) (common.OrderType, bool) {
	switch s {
	case "market":
		return common.Market, true
	case "limit":
		return common.Limit, true
	case "ioc":
		return common.IOC, true
	case "fok":
		return common.FOK, true
	default:
		return 0, false
	}
}

func parseSide(s string) (common.Side, bool) {
	switch s {
	case "buy":
		return common.Buy, true
	case "sell":
		return common.Sell, true
	default:
		return 0, false
	}
}

// validate checks a submission against the engine's configured bounds and
// returns the parsed, type-safe fields. It never mutates
// engine or book state.
func (e *Engine) validate(in SubmitOrderInput) (side common.Side, typ common.OrderType, qty money.Decimal, price money.Decimal, hasPrice bool, err error) {
	if in.Symbol == "" {
		return side, typ, qty, price, false, newValidationError(ReasonEmptySymbol, "symbol must not be empty")
	}

	side, ok := parseSide(in.Side)
	if !ok {
		return side, typ, qty, price, false, newValidationError(ReasonUnknownSide, "unknown side %q", in.Side)
	}

	typ, ok = parseOrderType(in.OrderType)
	if !ok {
		return side, typ, qty, price, false, newValidationError(ReasonUnknownType, "unknown order type %q", in.OrderType)
	}

	qty, qerr := money.ParsePositive(in.Quantity, e.cfg.DecimalScale)
	if qerr != nil {
		return side, typ, qty, price, false, newValidationError(ReasonBadQuantity, "%s", qerr)
	}
	if qty.LessThan(e.cfg.MinQuantity) || qty.GreaterThan(e.cfg.MaxQuantity) {
		return side, typ, qty, price, false, newValidationError(ReasonQuantityBounds, "quantity %s outside [%s, %s]", qty, e.cfg.MinQuantity, e.cfg.MaxQuantity)
	}

	if typ.RequiresPrice() {
		if in.Price == "" {
			return side, typ, qty, price, false, newValidationError(ReasonMissingPrice, "price is required for order type %s", typ)
		}
		p, perr := money.ParsePositive(in.Price, e.cfg.DecimalScale)
		if perr != nil {
			return side, typ, qty, price, false, newValidationError(ReasonBadPrice, "%s", perr)
		}
		if p.LessThan(e.cfg.MinPrice) || p.GreaterThan(e.cfg.MaxPrice) {
			return side, typ, qty, price, false, newValidationError(ReasonPriceBounds, "price %s outside [%s, %s]", p, e.cfg.MinPrice, e.cfg.MaxPrice)
		}
		price, hasPrice = p, true
	}

	return side, typ, qty, price, hasPrice, nil
}
