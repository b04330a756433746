package compare

import (
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Draft is an editable product candidate.
type Draft struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	RawPrice    string    `json:"rawPrice"`
	RawQuantity string    `json:"rawQuantity"`
	Unit        Unit      `json:"unit"`
}

// Ranked is a draft that produced a unit price.
type Ranked struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	BaseUnit  Unit            `json:"baseUnit"`
}

func (d Draft) rank() (Ranked, bool) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return Ranked{}, false
	}
	up, ok := Normalize(d.RawPrice, d.RawQuantity, d.Unit)
	if !ok {
		return Ranked{}, false
	}
	return Ranked{ID: d.ID, Name: name, UnitPrice: up.Value, BaseUnit: up.Base}, true
}

// Rankable reports whether d would appear in a ranking.
func (d Draft) Rankable() bool {
	_, ok := d.rank()
	return ok
}

// Rank drops unnamed or unnormalizable drafts and orders the rest by
// ascending unit price. Equal prices keep their input order. Prices are
// compared by value regardless of base unit.
func Rank(drafts []Draft) []Ranked {
	out := make([]Ranked, 0, len(drafts))
	for _, d := range drafts {
		if r, ok := d.rank(); ok {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b Ranked) int {
		return a.UnitPrice.Cmp(b.UnitPrice)
	})
	return out
}
