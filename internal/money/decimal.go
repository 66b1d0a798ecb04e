// Package money wraps github.com/shopspring/decimal in a thin, exchange-specific
// type so the matching core never accidentally touches a binary float on a
// monetary path. Every price and quantity in the engine flows through Decimal.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MinScale is the floor on the scale Parse enforces: a smaller scale
// argument is raised to MinScale, so values with up to this many fractional
// digits always parse. It does not pad String() output.
const MinScale = 8

var (
	// ErrMalformed is returned when a string cannot be parsed as a decimal.
	ErrMalformed = errors.New("money: malformed decimal")
	// ErrNegative names a negative value where a non-negative one is
	// required. No function in this package returns it; ParsePositive
	// reports negative input with ErrNotPositive.
	ErrNegative = errors.New("money: value must not be negative")
	// ErrNotPositive is returned when a value must be strictly positive.
	ErrNotPositive = errors.New("money: value must be positive")
	// ErrScaleOverflow is returned when a value carries more fractional
	// digits than the configured scale allows.
	ErrScaleOverflow = errors.New("money: too many fractional digits")
)

// Decimal is an exact, fixed-scale signed rational. Comparisons and equality
// are canonical (trailing-zero-insensitive): "1.50" and "1.5" compare equal.
type Decimal struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Decimal{d: decimal.Zero}

// Parse reads a canonical decimal string at the given scale. Non-numeric
// input is rejected, as is a value carrying more fractional digits than
// scale permits.
func Parse(s string, scale int32) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	if scale < MinScale {
		scale = MinScale
	}
	if -d.Exponent() > scale {
		return Decimal{}, fmt.Errorf("%w: %q exceeds scale %d", ErrScaleOverflow, s, scale)
	}
	return Decimal{d: d}, nil
}

// ParsePositive is Parse plus a positivity check, for fields like quantity
// and price that must be strictly positive.
func ParsePositive(s string, scale int32) (Decimal, error) {
	v, err := Parse(s, scale)
	if err != nil {
		return Decimal{}, err
	}
	if !v.IsPositive() {
		return Decimal{}, fmt.Errorf("%w: %q", ErrNotPositive, s)
	}
	return v, nil
}

// MustParse is Parse for compile-time-known literals (default configs,
// test fixtures); it panics on malformed input.
func MustParse(s string, scale int32) Decimal {
	v, err := Parse(s, scale)
	if err != nil {
		panic(err)
	}
	return v
}

// FromInt64 builds a Decimal from an integer, used by tests and internal
// bookkeeping rather than user input.
func FromInt64(v int64) Decimal {
	return Decimal{d: decimal.NewFromInt(v)}
}

// FromFloat64 should only ever be used in tests; it exists to keep fixtures
// readable without parsing strings everywhere.
func FromFloat64(v float64) Decimal {
	return Decimal{d: decimal.NewFromFloat(v)}
}

func (d Decimal) Add(o Decimal) Decimal { return Decimal{d: d.d.Add(o.d)} }
func (d Decimal) Sub(o Decimal) Decimal { return Decimal{d: d.d.Sub(o.d)} }
func (d Decimal) Mul(o Decimal) Decimal { return Decimal{d: d.d.Mul(o.d)} }

// Cmp returns -1, 0, or 1 per decimal.Decimal.Cmp, canonical (trailing-zero
// insensitive)
func (d Decimal) Cmp(o Decimal) int { return d.d.Cmp(o.d) }

func (d Decimal) LessThan(o Decimal) bool           { return d.d.LessThan(o.d) }
func (d Decimal) LessThanOrEqual(o Decimal) bool    { return d.d.LessThanOrEqual(o.d) }
func (d Decimal) GreaterThan(o Decimal) bool        { return d.d.GreaterThan(o.d) }
func (d Decimal) GreaterThanOrEqual(o Decimal) bool { return d.d.GreaterThanOrEqual(o.d) }
func (d Decimal) Equal(o Decimal) bool              { return d.d.Equal(o.d) }

func (d Decimal) IsZero() bool     { return d.d.IsZero() }
func (d Decimal) IsPositive() bool { return d.d.IsPositive() }
func (d Decimal) IsNegative() bool { return d.d.IsNegative() }

// Min returns whichever of a, b compares lower.
func Min(a, b Decimal) Decimal {
	if a.LessThanOrEqual(b) {
		return a
	}
	return b
}

func (d Decimal) String() string { return d.d.String() }

// Float64 is an escape hatch for presentation layers (e.g. depth snapshots
// serialized to JSON-like structures) and must never be used on a path that
// feeds back into matching.
func (d Decimal) Float64() float64 {
	f, _ := d.d.Float64()
	return f
}
