package recognize

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/noah-isme/cart-calc/internal/pricing"
)

// Candidate is what a recognizer read off a price tag. Zero fields mean
// nothing was found.
type Candidate struct {
	Name  string        `json:"name,omitempty"`
	Price pricing.Money `json:"price,omitempty"`
}

// HasName reports whether a product name was found.
func (c Candidate) HasName() bool { return c.Name != "" }

// HasPrice reports whether a positive price was found.
func (c Candidate) HasPrice() bool { return c.Price > 0 }

// Empty reports whether nothing usable was found.
func (c Candidate) Empty() bool { return !c.HasName() && !c.HasPrice() }

// ExtractCandidate splits recognized text lines into a name and a price.
// Words before the first word containing a digit form the name; that word
// and everything after it are reduced to their digits to form the price.
func ExtractCandidate(lines []string) Candidate {
	words := strings.Fields(strings.Join(lines, " "))
	var name []string
	var digits strings.Builder
	priceStarted := false
	for _, w := range words {
		if !priceStarted && !strings.ContainsFunc(w, unicode.IsDigit) {
			name = append(name, w)
			continue
		}
		priceStarted = true
		for _, r := range w {
			if unicode.IsNumber(r) {
				digits.WriteRune(r)
			}
		}
	}

	c := Candidate{Name: strings.Join(name, " ")}
	// Non-ASCII digits or overflow leave the price unset.
	if v, err := strconv.ParseInt(digits.String(), 10, 64); err == nil && v > 0 {
		c.Price = v
	}
	return c
}
