package recognize

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/noah-isme/cart-calc/internal/cart"
	"github.com/noah-isme/cart-calc/internal/obs"
	"github.com/noah-isme/cart-calc/internal/pricing"
)

// Outcome describes what a delivery did to the form.
type Outcome string

const (
	Applied Outcome = obs.RecognitionApplied
	Stale   Outcome = obs.RecognitionStale
	Empty   Outcome = obs.RecognitionEmpty
)

// Ticket identifies one recognition request against a Form.
type Ticket uint64

// Fields are the raw entry inputs as a user would see them.
type Fields struct {
	Name            string `json:"name"`
	Price           string `json:"price"`
	DiscountPercent string `json:"discountPercent"`
}

// Form holds the pending entry inputs. Recognition results are merged into
// it only while no newer recognition or manual edit has happened. A Form is
// safe for concurrent use.
type Form struct {
	mu        sync.Mutex
	fields    Fields
	gen       uint64
	formatter pricing.Formatter
}

// NewForm returns an empty form that groups prices with f.
func NewForm(f pricing.Formatter) *Form {
	return &Form{formatter: f}
}

// Fields returns the current inputs.
func (f *Form) Fields() Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

// SetName replaces the name input.
func (f *Form) SetName(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.fields.Name = v
}

// SetPrice replaces the price input. Integers are regrouped with thousands
// separators; anything else clears the field.
func (f *Form) SetPrice(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.fields.Price = f.regroup(v)
}

// SetDiscount replaces the discount input.
func (f *Form) SetDiscount(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.fields.DiscountPercent = v
}

func (f *Form) regroup(v string) string {
	n, err := strconv.ParseInt(strings.ReplaceAll(v, ",", ""), 10, 64)
	if err != nil {
		return ""
	}
	return f.formatter.Group(n)
}

// BeginRecognition starts a recognition request. Earlier tickets become stale.
func (f *Form) BeginRecognition() Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	return Ticket(f.gen)
}

// Deliver merges c into the form when t is still current. Absent candidate
// fields leave the existing inputs untouched.
func (f *Form) Deliver(t Ticket, c Candidate) Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	if uint64(t) != f.gen {
		return Stale
	}
	if c.Empty() {
		return Empty
	}
	if c.HasName() {
		f.fields.Name = c.Name
	}
	if c.HasPrice() {
		f.fields.Price = f.formatter.Group(c.Price)
	}
	return Applied
}

// Recognize runs rec for image against a fresh ticket and waits for the
// delivery. A delivery arriving after ctx is done is still merged if current.
func (f *Form) Recognize(ctx context.Context, rec Recognizer, image []byte) (Outcome, Candidate, error) {
	type result struct {
		outcome Outcome
		c       Candidate
	}
	t := f.BeginRecognition()
	ch := make(chan result, 1)
	rec.Recognize(ctx, image, once(func(c Candidate) {
		ch <- result{outcome: f.Deliver(t, c), c: c}
	}))
	select {
	case res := <-ch:
		return res.outcome, res.c, nil
	case <-ctx.Done():
		return "", Candidate{}, ctx.Err()
	}
}

// SubmitTo adds the form inputs to c as a new entry and clears the inputs.
// The inputs are kept when the entry is rejected.
func (f *Form) SubmitTo(c *cart.Cart) (cart.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, err := c.AddEntry(f.fields.Name, f.fields.Price, f.fields.DiscountPercent)
	if err != nil {
		return cart.Entry{}, err
	}
	f.fields = Fields{}
	return e, nil
}
