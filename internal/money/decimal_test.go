package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_Malformed(t *testing.T) {
	_, err := Parse("not-a-number", MinScale)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParse_ScaleOverflow(t *testing.T) {
	_, err := Parse("1.123456789", 8)
	assert.ErrorIs(t, err, ErrScaleOverflow)
}

func TestParse_WithinScale(t *testing.T) {
	d, err := Parse("1.12345678", 8)
	assert.NoError(t, err)
	assert.Equal(t, "1.12345678", d.String())
}

func TestParse_ScaleBelowMinimumIsRaised(t *testing.T) {
	// A scale argument below MinScale is raised to MinScale, not honored
	// literally: this value has more fractional digits than the requested
	// scale of 2 but fewer than the enforced floor of 8, so it must parse.
	d, err := Parse("1.123456", 2)
	assert.NoError(t, err)
	assert.Equal(t, "1.123456", d.String())
}

func TestParsePositive_RejectsZero(t *testing.T) {
	_, err := ParsePositive("0", MinScale)
	assert.ErrorIs(t, err, ErrNotPositive)
}

func TestParsePositive_RejectsNegative(t *testing.T) {
	_, err := ParsePositive("-1", MinScale)
	assert.ErrorIs(t, err, ErrNotPositive)
}

func TestParsePositive_AcceptsPositive(t *testing.T) {
	d, err := ParsePositive("0.00000001", MinScale)
	assert.NoError(t, err)
	assert.True(t, d.IsPositive())
}

func TestCanonicalComparison(t *testing.T) {
	a := MustParse("1.50", MinScale)
	b := MustParse("1.5", MinScale)
	assert.True(t, a.Equal(b))
	assert.Equal(t, 0, a.Cmp(b))
}

func TestComparisons(t *testing.T) {
	low := MustParse("1", MinScale)
	high := MustParse("2", MinScale)

	assert.True(t, low.LessThan(high))
	assert.True(t, low.LessThanOrEqual(high))
	assert.True(t, high.GreaterThan(low))
	assert.True(t, high.GreaterThanOrEqual(low))
	assert.False(t, high.LessThan(low))
}

func TestArithmetic(t *testing.T) {
	a := MustParse("2.5", MinScale)
	b := MustParse("1.5", MinScale)

	assert.Equal(t, "4", a.Add(b).String())
	assert.Equal(t, "1", a.Sub(b).String())
	assert.Equal(t, "3.75", a.Mul(b).String())
}

func TestMin(t *testing.T) {
	a := MustParse("3", MinScale)
	b := MustParse("5", MinScale)
	assert.True(t, Min(a, b).Equal(a))
	assert.True(t, Min(b, a).Equal(a))
}

func TestIsZeroIsPositiveIsNegative(t *testing.T) {
	assert.True(t, Zero.IsZero())
	assert.False(t, Zero.IsPositive())
	assert.False(t, Zero.IsNegative())

	assert.True(t, MustParse("1", MinScale).IsPositive())
	assert.True(t, MustParse("-1", MinScale).IsNegative())
}

func TestMustParse_PanicsOnMalformed(t *testing.T) {
	assert.Panics(t, func() {
		MustParse("nope", MinScale)
	})
}
