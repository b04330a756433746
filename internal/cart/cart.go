package cart

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/cart-calc/internal/pricing"
)

// ErrInvalidInput is returned when the provided entry fields cannot be used.
var ErrInvalidInput = pricing.ErrInvalidInput

// compactAfter is the minimum number of tombstones before slots are compacted.
const compactAfter = 16

// Entry is a purchasable line in the cart. StoredPrice is already discounted.
type Entry struct {
	ID              uuid.UUID     `json:"id"`
	Name            string        `json:"name"`
	StoredPrice     pricing.Money `json:"storedPrice"`
	DiscountPercent int           `json:"discountPercent"`
	Quantity        int           `json:"quantity"`
	Checked         bool          `json:"checked"`
}

// LineTotal returns StoredPrice multiplied by Quantity.
func (e Entry) LineTotal() pricing.Money {
	return e.StoredPrice * pricing.Money(e.Quantity)
}

// ListedPrice returns the approximate pre-discount unit price.
func (e Entry) ListedPrice() pricing.Money {
	return pricing.Reveal(e.StoredPrice, e.DiscountPercent)
}

// Summary aggregates the cart totals.
type Summary struct {
	Count         int           `json:"count"`
	Total         pricing.Money `json:"total"`
	SelectedTotal pricing.Money `json:"selectedTotal"`
	AllSelected   bool          `json:"allSelected"`
}

// Cart keeps entries in insertion order with an id index. Removed entries
// leave nil slots that are compacted once they outnumber live entries.
//
// The zero value is an empty cart ready to use. A Cart is not safe for
// concurrent use.
type Cart struct {
	slots      []*Entry
	index      map[uuid.UUID]int
	live       int
	checked    int
	tombstones int

	// NewID overrides entry id generation.
	NewID func() uuid.UUID
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// FromRecords rebuilds a cart from persisted entries. Records with a nil or
// duplicate id are skipped and out-of-range fields are normalized.
func FromRecords(records []Entry) *Cart {
	c := New()
	for _, rec := range records {
		if rec.ID == uuid.Nil {
			continue
		}
		if _, dup := c.index[rec.ID]; dup {
			continue
		}
		if rec.Quantity < 1 {
			rec.Quantity = 1
		}
		if rec.StoredPrice < 0 {
			rec.StoredPrice = 0
		}
		if rec.DiscountPercent < 0 || rec.DiscountPercent > pricing.MaxStoredPercent {
			rec.DiscountPercent = 0
		}
		entry := rec
		c.insert(&entry)
	}
	return c
}

func (c *Cart) nextID() uuid.UUID {
	if c.NewID != nil {
		return c.NewID()
	}
	return uuid.New()
}

func (c *Cart) insert(e *Entry) {
	if c.index == nil {
		c.index = make(map[uuid.UUID]int)
	}
	c.index[e.ID] = len(c.slots)
	c.slots = append(c.slots, e)
	c.live++
	if e.Checked {
		c.checked++
	}
}

func (c *Cart) lookup(id uuid.UUID) *Entry {
	pos, ok := c.index[id]
	if !ok {
		return nil
	}
	return c.slots[pos]
}

// AddEntry parses the submitted fields and appends a checked entry with a
// quantity of one. An unparsable discount is treated as no discount.
func (c *Cart) AddEntry(name, listedPrice, discountPercent string) (Entry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Entry{}, fmt.Errorf("name is required: %w", ErrInvalidInput)
	}
	listed, err := pricing.ParseListedPrice(listedPrice)
	if err != nil {
		return Entry{}, err
	}
	percent := pricing.ParsePercent(discountPercent)
	e := &Entry{
		ID:              c.nextID(),
		Name:            name,
		StoredPrice:     pricing.Apply(listed, percent),
		DiscountPercent: pricing.StoredPercent(percent),
		Quantity:        1,
		Checked:         true,
	}
	c.insert(e)
	return *e, nil
}

// Entry returns the entry with the given id.
func (c *Cart) Entry(id uuid.UUID) (Entry, bool) {
	e := c.lookup(id)
	if e == nil {
		return Entry{}, false
	}
	return *e, true
}

// SetQuantity adjusts the quantity by delta, never going below one. Unknown
// ids are ignored.
func (c *Cart) SetQuantity(id uuid.UUID, delta int) {
	e := c.lookup(id)
	if e == nil {
		return
	}
	q := e.Quantity + delta
	if q < 1 {
		q = 1
	}
	e.Quantity = q
}

// ToggleChecked flips the checked flag of an entry. Unknown ids are ignored.
func (c *Cart) ToggleChecked(id uuid.UUID) {
	e := c.lookup(id)
	if e == nil {
		return
	}
	e.Checked = !e.Checked
	if e.Checked {
		c.checked++
	} else {
		c.checked--
	}
}

// SetAllChecked sets the checked flag on every entry.
func (c *Cart) SetAllChecked(value bool) {
	for _, e := range c.slots {
		if e != nil {
			e.Checked = value
		}
	}
	if value {
		c.checked = c.live
	} else {
		c.checked = 0
	}
}

// RemoveEntry deletes an entry. Removing an unknown id is a no-op.
func (c *Cart) RemoveEntry(id uuid.UUID) {
	pos, ok := c.index[id]
	if !ok {
		return
	}
	e := c.slots[pos]
	c.slots[pos] = nil
	delete(c.index, id)
	c.live--
	if e.Checked {
		c.checked--
	}
	c.tombstones++
	if c.tombstones >= compactAfter && c.tombstones > c.live {
		c.compact()
	}
}

func (c *Cart) compact() {
	slots := make([]*Entry, 0, c.live)
	for _, e := range c.slots {
		if e == nil {
			continue
		}
		c.index[e.ID] = len(slots)
		slots = append(slots, e)
	}
	c.slots = slots
	c.tombstones = 0
}

// ClearAll removes every entry.
func (c *Cart) ClearAll() {
	c.slots = nil
	c.index = nil
	c.live = 0
	c.checked = 0
	c.tombstones = 0
}

// Len reports the number of entries.
func (c *Cart) Len() int { return c.live }

// Entries returns a copy of the entries in insertion order.
func (c *Cart) Entries() []Entry {
	out := make([]Entry, 0, c.live)
	for _, e := range c.slots {
		if e != nil {
			out = append(out, *e)
		}
	}
	return out
}

func (c *Cart) lines(onlyChecked bool) []pricing.Line {
	lines := make([]pricing.Line, 0, c.live)
	for _, e := range c.slots {
		if e == nil || (onlyChecked && !e.Checked) {
			continue
		}
		lines = append(lines, pricing.Line{Qty: e.Quantity, UnitPrice: e.StoredPrice})
	}
	return lines
}

// Total sums StoredPrice*Quantity over all entries.
func (c *Cart) Total() pricing.Money {
	return pricing.Subtotal(c.lines(false))
}

// SelectedTotal sums StoredPrice*Quantity over checked entries.
func (c *Cart) SelectedTotal() pricing.Money {
	return pricing.Subtotal(c.lines(true))
}

// IsAllSelected reports whether the cart is non-empty and every entry is checked.
func (c *Cart) IsAllSelected() bool {
	return c.live > 0 && c.checked == c.live
}

// Summary returns the aggregate view of the cart.
func (c *Cart) Summary() Summary {
	return Summary{
		Count:         c.live,
		Total:         c.Total(),
		SelectedTotal: c.SelectedTotal(),
		AllSelected:   c.IsAllSelected(),
	}
}

type document struct {
	Entries []Entry `json:"entries"`
}

// Records returns one persistable record per entry, in insertion order.
func (c *Cart) Records() []Entry { return c.Entries() }

// MarshalJSON stores one record per entry.
func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(document{Entries: c.Records()})
}

// UnmarshalJSON replaces the cart contents with the decoded records.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	restored := FromRecords(doc.Entries)
	restored.NewID = c.NewID
	*c = *restored
	return nil
}
