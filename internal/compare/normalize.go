package compare

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/cart-calc/internal/pricing"
)

// UnitPrice is a price per one base unit.
type UnitPrice struct {
	Value decimal.Decimal
	Base  Unit
}

// ParseAmount parses a user-typed price or quantity: digits with optional
// "," grouping and decimal point. Exponent notation is rejected.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	return pricing.ParseDecimal(raw)
}

// Normalize computes price / (quantity × multiplier). It reports false when
// either amount does not parse, the price is negative, the quantity is not
// strictly positive or the unit is unsupported.
func Normalize(rawPrice, rawQuantity string, unit Unit) (UnitPrice, bool) {
	if !unit.Valid() {
		return UnitPrice{}, false
	}
	price, ok := ParseAmount(rawPrice)
	if !ok || price.IsNegative() {
		return UnitPrice{}, false
	}
	qty, ok := ParseAmount(rawQuantity)
	if !ok || !qty.IsPositive() {
		return UnitPrice{}, false
	}
	return UnitPrice{
		Value: price.Div(qty.Mul(unit.multiplier())),
		Base:  unit.Base(),
	}, true
}
