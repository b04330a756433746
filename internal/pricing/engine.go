package pricing

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in whole currency units.
type Money = int64

// MaxStoredPercent is the largest discount percentage an entry can carry.
const MaxStoredPercent = 99

// ErrInvalidInput is returned when user supplied text cannot be used as a price.
var ErrInvalidInput = errors.New("invalid input")

var hundred = decimal.NewFromInt(100)

// plainNumber matches digits with optional "," grouping, an optional sign and
// at most one decimal point. Exponent forms are rejected.
var plainNumber = regexp.MustCompile(`^[+-]?(?:[0-9][0-9,]*(?:\.[0-9]*)?|\.[0-9]+)$`)

// ParseDecimal parses a user-typed number, ignoring surrounding spaces and
// "," grouping separators. Only plain digit notation is accepted.
func ParseDecimal(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if !plainNumber.MatchString(raw) {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// Line describes a priced quantity used for aggregation.
type Line struct {
	Qty       int
	UnitPrice Money
}

// Subtotal sums UnitPrice*Qty over lines with a positive quantity.
func Subtotal(lines []Line) Money {
	var subtotal Money
	for _, l := range lines {
		if l.Qty <= 0 {
			continue
		}
		subtotal += Money(l.Qty) * l.UnitPrice
	}
	return subtotal
}

// ClampPercent returns p when it lies in [0,100) and zero otherwise. A 100%
// discount is treated as malformed input rather than a free item.
func ClampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() || p.GreaterThanOrEqual(hundred) {
		return decimal.Zero
	}
	return p
}

// ParsePercent parses a discount percentage. Blank, unparsable and
// out-of-range values all yield zero.
func ParsePercent(raw string) decimal.Decimal {
	p, ok := ParseDecimal(raw)
	if !ok {
		return decimal.Zero
	}
	return ClampPercent(p)
}

// StoredPercent converts a clamped percentage into the integer kept on an entry.
func StoredPercent(p decimal.Decimal) int {
	v := int(ClampPercent(p).Round(0).IntPart())
	if v > MaxStoredPercent {
		v = MaxStoredPercent
	}
	return v
}

// ParseListedPrice parses a non-negative whole price, accepting "," grouping.
func ParseListedPrice(raw string) (Money, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("price is required: %w", ErrInvalidInput)
	}
	v, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", raw, ErrInvalidInput)
	}
	if v < 0 {
		return 0, fmt.Errorf("price must not be negative: %w", ErrInvalidInput)
	}
	return v, nil
}

// Apply returns the stored price for a listed price after discount, rounded
// half away from zero.
func Apply(listed Money, percent decimal.Decimal) Money {
	if listed <= 0 {
		return 0
	}
	p := ClampPercent(percent)
	stored := decimal.NewFromInt(listed).Mul(hundred.Sub(p)).Div(hundred)
	return stored.Round(0).IntPart()
}

// Reveal recovers the approximate listed price from a stored price. The
// result is only used for display; the round trip through Apply is lossy.
func Reveal(stored Money, percent int) Money {
	if percent <= 0 || percent >= 100 {
		return stored
	}
	listed := decimal.NewFromInt(stored).Mul(hundred).Div(decimal.NewFromInt(int64(100 - percent)))
	return listed.Round(0).IntPart()
}
