package cart

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() uuid.UUID {
	var n byte
	return func() uuid.UUID {
		n++
		var id uuid.UUID
		id[15] = n
		return id
	}
}

func mustAdd(t *testing.T, c *Cart, name, price, discount string) Entry {
	t.Helper()
	e, err := c.AddEntry(name, price, discount)
	require.NoError(t, err)
	return e
}

func TestAddEntryAppliesDiscount(t *testing.T) {
	c := New()
	e := mustAdd(t, c, "  Milk ", "2,000", "10")

	require.Equal(t, "Milk", e.Name)
	require.EqualValues(t, 1800, e.StoredPrice)
	require.Equal(t, 10, e.DiscountPercent)
	require.Equal(t, 1, e.Quantity)
	require.True(t, e.Checked)
	require.EqualValues(t, 2000, e.ListedPrice())
}

func TestAddEntryInvalidDiscountStoresListedPrice(t *testing.T) {
	c := New()
	for _, d := range []string{"100", "150", "-4", "ten", "1e1", "1e-20000000"} {
		e := mustAdd(t, c, "Bread", "1200", d)
		require.EqualValues(t, 1200, e.StoredPrice, "discount %q", d)
		require.Zero(t, e.DiscountPercent, "discount %q", d)
	}
}

func TestAddEntryRejectsInvalidInput(t *testing.T) {
	c := New()
	mustAdd(t, c, "Eggs", "500", "")

	cases := []struct{ name, price string }{
		{"", "100"},
		{"   ", "100"},
		{"Cheese", ""},
		{"Cheese", "abc"},
		{"Cheese", "-10"},
	}
	for _, tc := range cases {
		_, err := c.AddEntry(tc.name, tc.price, "")
		require.True(t, errors.Is(err, ErrInvalidInput), "name=%q price=%q err=%v", tc.name, tc.price, err)
	}
	require.Equal(t, 1, c.Len())
	require.EqualValues(t, 500, c.Total())

	_, err := c.AddEntry("Cheese", "abc", "")
	require.EqualError(t, err, `parse price "abc": invalid input`)
}

func TestTotalsAndSelection(t *testing.T) {
	c := New()
	a := mustAdd(t, c, "A", "1000", "")
	mustAdd(t, c, "B", "500", "")
	c.SetQuantity(a.ID, 1)

	require.EqualValues(t, 2500, c.Total())
	require.EqualValues(t, 2500, c.SelectedTotal())
	require.True(t, c.IsAllSelected())

	b := c.Entries()[1]
	c.ToggleChecked(b.ID)
	require.EqualValues(t, 2500, c.Total())
	require.EqualValues(t, 2000, c.SelectedTotal())
	require.False(t, c.IsAllSelected())

	c.ToggleChecked(b.ID)
	require.True(t, c.IsAllSelected())
}

func TestSetAllChecked(t *testing.T) {
	c := New()
	mustAdd(t, c, "A", "100", "")
	mustAdd(t, c, "B", "200", "")

	c.SetAllChecked(false)
	require.Zero(t, c.SelectedTotal())
	require.False(t, c.IsAllSelected())
	for _, e := range c.Entries() {
		require.False(t, e.Checked)
	}

	c.SetAllChecked(true)
	require.EqualValues(t, 300, c.SelectedTotal())
	require.True(t, c.IsAllSelected())
}

func TestEmptyCartIsNotAllSelected(t *testing.T) {
	c := New()
	require.False(t, c.IsAllSelected())
	c.SetAllChecked(true)
	require.False(t, c.IsAllSelected())

	e := mustAdd(t, c, "A", "100", "")
	c.RemoveEntry(e.ID)
	require.False(t, c.IsAllSelected())
	require.Zero(t, c.Total())
}

func TestQuantityFloorsAtOne(t *testing.T) {
	c := New()
	e := mustAdd(t, c, "A", "300", "")

	c.SetQuantity(e.ID, -5)
	got, ok := c.Entry(e.ID)
	require.True(t, ok)
	require.Equal(t, 1, got.Quantity)

	c.SetQuantity(e.ID, 3)
	got, _ = c.Entry(e.ID)
	require.Equal(t, 4, got.Quantity)
	require.EqualValues(t, 1200, c.Total())
}

func TestUnknownIDsAreNoOps(t *testing.T) {
	c := New()
	mustAdd(t, c, "A", "100", "")
	before := c.Summary()

	missing := uuid.New()
	c.SetQuantity(missing, 4)
	c.ToggleChecked(missing)
	c.RemoveEntry(missing)

	require.Equal(t, before, c.Summary())
	_, ok := c.Entry(missing)
	require.False(t, ok)
}

func TestRemoveEntryIsIdempotent(t *testing.T) {
	c := New()
	a := mustAdd(t, c, "A", "100", "")
	mustAdd(t, c, "B", "200", "")

	c.RemoveEntry(a.ID)
	c.RemoveEntry(a.ID)
	require.Equal(t, 1, c.Len())
	require.EqualValues(t, 200, c.Total())
	require.True(t, c.IsAllSelected())
}

func TestRemovalKeepsInsertionOrderAcrossCompaction(t *testing.T) {
	c := New()
	c.NewID = sequentialIDs()
	var ids []uuid.UUID
	for i := 0; i < 40; i++ {
		ids = append(ids, mustAdd(t, c, "item", "10", "").ID)
	}
	// Remove everything except every fifth entry.
	var kept []uuid.UUID
	for i, id := range ids {
		if i%5 == 0 {
			kept = append(kept, id)
			continue
		}
		c.RemoveEntry(id)
	}

	entries := c.Entries()
	require.Len(t, entries, len(kept))
	for i, e := range entries {
		require.Equal(t, kept[i], e.ID)
		got, ok := c.Entry(e.ID)
		require.True(t, ok)
		require.Equal(t, e, got)
	}
	require.EqualValues(t, 10*len(kept), c.Total())

	c.ToggleChecked(kept[0])
	require.False(t, c.IsAllSelected())
	require.EqualValues(t, 10*(len(kept)-1), c.SelectedTotal())
}

func TestClearAll(t *testing.T) {
	c := New()
	mustAdd(t, c, "A", "100", "")
	mustAdd(t, c, "B", "200", "")
	c.ClearAll()

	require.Zero(t, c.Len())
	require.Empty(t, c.Entries())
	require.False(t, c.IsAllSelected())

	mustAdd(t, c, "C", "50", "")
	require.EqualValues(t, 50, c.Total())
}

func TestTotalNeverBelowSelectedTotal(t *testing.T) {
	c := New()
	c.NewID = sequentialIDs()
	prices := []string{"100", "2,500", "0", "999", "1"}
	for i, p := range prices {
		e := mustAdd(t, c, "item", p, "15")
		c.SetQuantity(e.ID, i)
		if i%2 == 1 {
			c.ToggleChecked(e.ID)
		}
		require.GreaterOrEqual(t, c.Total(), c.SelectedTotal())
	}
}

func TestJSONRoundTrip(t *testing.T) {
	c := New()
	a := mustAdd(t, c, "A", "1000", "20")
	mustAdd(t, c, "B", "500", "")
	c.SetQuantity(a.ID, 2)
	c.ToggleChecked(a.ID)

	data, err := json.Marshal(c)
	require.NoError(t, err)

	restored := New()
	require.NoError(t, json.Unmarshal(data, restored))
	require.Equal(t, c.Entries(), restored.Entries())
	require.Equal(t, c.Summary(), restored.Summary())
}

func TestFromRecordsNormalizes(t *testing.T) {
	id := uuid.New()
	c := FromRecords([]Entry{
		{ID: id, Name: "A", StoredPrice: -3, DiscountPercent: 120, Quantity: 0, Checked: true},
		{ID: id, Name: "dup", StoredPrice: 10, Quantity: 1},
		{ID: uuid.Nil, Name: "nil", StoredPrice: 10, Quantity: 1},
	})

	require.Equal(t, 1, c.Len())
	e, ok := c.Entry(id)
	require.True(t, ok)
	require.Zero(t, e.StoredPrice)
	require.Zero(t, e.DiscountPercent)
	require.Equal(t, 1, e.Quantity)
	require.True(t, c.IsAllSelected())
}
