package engine

import "matchcore/internal/money"

// Config is injected at construction. The core never reads
// environment variables, files, or flags itself — that belongs to the
// cmd/ entry points.
type Config struct {
	MinQuantity money.Decimal
	MaxQuantity money.Decimal
	MinPrice    money.Decimal
	MaxPrice    money.Decimal

	// DefaultDepth is used when a depth query doesn't specify k.
	DefaultDepth int

	// DecimalScale is the maximum number of fractional digits accepted on
	// parsed quantity/price strings; a value below money.MinScale is raised
	// to money.MinScale.
	DecimalScale int32

	// AssignIDs controls whether the engine mints an OrderId when the
	// caller's input omits one.
	AssignIDs bool
}

// DefaultConfig returns permissive bounds suitable for tests and examples.
func DefaultConfig() Config {
	scale := int32(money.MinScale)
	return Config{
		MinQuantity:  money.MustParse("0.00000001", scale),
		MaxQuantity:  money.MustParse("1000000000", scale),
		MinPrice:     money.MustParse("0.00000001", scale),
		MaxPrice:     money.MustParse("1000000000", scale),
		DefaultDepth: 10,
		DecimalScale: scale,
		AssignIDs:    true,
	}
}
