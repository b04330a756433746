package compare

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnknownUnit is returned by ParseUnit for unsupported units.
var ErrUnknownUnit = errors.New("unknown unit")

// Unit is a measurement unit a product quantity is expressed in.
type Unit string

const (
	Gram       Unit = "g"
	Kilogram   Unit = "kg"
	Milliliter Unit = "ml"
	Liter      Unit = "l"
)

var thousand = decimal.NewFromInt(1000)

// Units lists the supported units in display order.
func Units() []Unit { return []Unit{Gram, Kilogram, Milliliter, Liter} }

// ParseUnit accepts short and long unit names, case-insensitively.
func ParseUnit(raw string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "g", "gram", "grams":
		return Gram, nil
	case "kg", "kilogram", "kilograms":
		return Kilogram, nil
	case "ml", "milliliter", "milliliters", "millilitre":
		return Milliliter, nil
	case "l", "liter", "liters", "litre":
		return Liter, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUnit, raw)
}

// Valid reports whether u is one of the supported units.
func (u Unit) Valid() bool {
	switch u {
	case Gram, Kilogram, Milliliter, Liter:
		return true
	}
	return false
}

// Base returns the canonical unit prices are compared in: gram for mass,
// milliliter for volume.
func (u Unit) Base() Unit {
	switch u {
	case Gram, Kilogram:
		return Gram
	case Milliliter, Liter:
		return Milliliter
	}
	return ""
}

// multiplier converts a quantity in u to its base unit.
func (u Unit) multiplier() decimal.Decimal {
	switch u {
	case Kilogram, Liter:
		return thousand
	}
	return decimal.NewFromInt(1)
}
