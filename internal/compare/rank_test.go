package compare

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func draft(name, price, qty string, unit Unit) Draft {
	return Draft{ID: uuid.New(), Name: name, RawPrice: price, RawQuantity: qty, Unit: unit}
}

func names(ranked []Ranked) []string {
	out := make([]string, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.Name)
	}
	return out
}

func TestRankOrdersByUnitPrice(t *testing.T) {
	ranked := Rank([]Draft{
		draft("A", "3000", "500", Gram),
		draft("B", "5000", "1", Kilogram),
	})
	require.Equal(t, []string{"B", "A"}, names(ranked))
	require.True(t, ranked[0].UnitPrice.Equal(decimal.NewFromInt(5)))
	require.True(t, ranked[1].UnitPrice.Equal(decimal.NewFromInt(6)))
	require.Equal(t, Gram, ranked[0].BaseUnit)
}

func TestRankExcludesDegenerateDrafts(t *testing.T) {
	ranked := Rank([]Draft{
		draft("C", "1000", "0", Liter),
		draft("", "100", "1", Gram),
		draft("   ", "100", "1", Gram),
		draft("D", "abc", "1", Gram),
		draft("E", "200", "2", Milliliter),
	})
	require.Equal(t, []string{"E"}, names(ranked))
}

func TestRankIsStableForTies(t *testing.T) {
	ranked := Rank([]Draft{
		draft("first", "1000", "1", Kilogram),
		draft("cheap", "1", "2", Gram),
		draft("second", "1", "1", Gram),
		draft("third", "2000", "2", Liter),
	})
	require.Equal(t, []string{"cheap", "first", "second", "third"}, names(ranked))
}

func TestRankEmptyInput(t *testing.T) {
	require.Empty(t, Rank(nil))
	require.Empty(t, Rank([]Draft{draft("", "", "", Gram)}))
}

func TestRankOutputIsSorted(t *testing.T) {
	var drafts []Draft
	for i := 0; i < 30; i++ {
		price := decimal.NewFromInt(int64((i * 37) % 101)).String()
		qty := decimal.NewFromInt(int64(i%7 + 1)).String()
		drafts = append(drafts, draft("p", price, qty, Units()[i%4]))
	}
	ranked := Rank(drafts)
	require.Len(t, ranked, 30)
	for i := 1; i < len(ranked); i++ {
		require.True(t, ranked[i-1].UnitPrice.LessThanOrEqual(ranked[i].UnitPrice))
	}
}
