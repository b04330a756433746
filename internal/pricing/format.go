package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultSymbol is the currency glyph used when none is configured.
const DefaultSymbol = "₩"

// Formatter renders amounts for display.
type Formatter struct {
	Symbol string
}

func (f Formatter) symbol() string {
	if s := strings.TrimSpace(f.Symbol); s != "" {
		return s
	}
	return DefaultSymbol
}

// Group renders v with thousands separators and no currency glyph.
func (f Formatter) Group(v Money) string {
	return printer().Sprintf("%d", v)
}

// Format renders v as a grouped amount prefixed with the currency glyph.
func (f Formatter) Format(v Money) string {
	if v < 0 {
		// Negate via uint64 so the minimum int64 keeps its magnitude.
		mag := uint64(-(v + 1)) + 1
		return "-" + f.symbol() + printer().Sprintf("%d", mag)
	}
	return f.symbol() + f.Group(v)
}

func printer() *message.Printer {
	return message.NewPrinter(language.Korean)
}

// FormatUnitPrice renders a per-base-unit price rounded to two decimals.
func (f Formatter) FormatUnitPrice(v decimal.Decimal, baseUnit string) string {
	return f.symbol() + v.StringFixed(2) + "/" + baseUnit
}
