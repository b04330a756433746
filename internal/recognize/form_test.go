package recognize_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cart-calc/internal/cart"
	"github.com/noah-isme/cart-calc/internal/pricing"
	"github.com/noah-isme/cart-calc/internal/recognize"
)

func TestFormSetPriceRegroups(t *testing.T) {
	f := recognize.NewForm(pricing.Formatter{})
	f.SetPrice("12000")
	require.Equal(t, "12,000", f.Fields().Price)
	f.SetPrice("1,234,5")
	require.Equal(t, "12,345", f.Fields().Price)
	f.SetPrice("12,5a")
	require.Empty(t, f.Fields().Price)
}

func TestFormDeliverMergesPresentFields(t *testing.T) {
	f := recognize.NewForm(pricing.Formatter{})
	f.SetName("typed")
	f.SetDiscount("10")

	ticket := f.BeginRecognition()
	require.Equal(t, recognize.Applied, f.Deliver(ticket, recognize.Candidate{Price: 2500}))
	require.Equal(t, recognize.Fields{Name: "typed", Price: "2,500", DiscountPercent: "10"}, f.Fields())

	ticket = f.BeginRecognition()
	require.Equal(t, recognize.Applied, f.Deliver(ticket, recognize.Candidate{Name: "Milk"}))
	require.Equal(t, "Milk", f.Fields().Name)
	require.Equal(t, "2,500", f.Fields().Price)
}

func TestFormDeliverEmptyKeepsInputs(t *testing.T) {
	f := recognize.NewForm(pricing.Formatter{})
	f.SetName("Tea")
	ticket := f.BeginRecognition()
	require.Equal(t, recognize.Empty, f.Deliver(ticket, recognize.Candidate{}))
	require.Equal(t, "Tea", f.Fields().Name)
}

func TestFormDiscardsStaleDeliveries(t *testing.T) {
	f := recognize.NewForm(pricing.Formatter{})
	first := f.BeginRecognition()
	second := f.BeginRecognition()

	require.Equal(t, recognize.Applied, f.Deliver(second, recognize.Candidate{Name: "Second", Price: 200}))
	require.Equal(t, recognize.Stale, f.Deliver(first, recognize.Candidate{Name: "First", Price: 100}))
	require.Equal(t, recognize.Fields{Name: "Second", Price: "200"}, f.Fields())
}

func TestFormManualEditMakesPendingDeliveryStale(t *testing.T) {
	f := recognize.NewForm(pricing.Formatter{})
	ticket := f.BeginRecognition()
	f.SetName("typed while waiting")
	require.Equal(t, recognize.Stale, f.Deliver(ticket, recognize.Candidate{Name: "Scanned"}))
	require.Equal(t, "typed while waiting", f.Fields().Name)
}

func TestFormRecognizeWaitsForDelivery(t *testing.T) {
	f := recognize.NewForm(pricing.Formatter{})
	rec := recognize.Func(func(ctx context.Context, image []byte) recognize.Candidate {
		return recognize.Candidate{Name: string(image), Price: 1500}
	})
	outcome, c, err := f.Recognize(context.Background(), rec, []byte("Juice"))
	require.NoError(t, err)
	require.Equal(t, recognize.Applied, outcome)
	require.Equal(t, recognize.Candidate{Name: "Juice", Price: 1500}, c)
	require.Equal(t, recognize.Fields{Name: "Juice", Price: "1,500"}, f.Fields())
}

type silentRecognizer struct{}

func (silentRecognizer) Recognize(context.Context, []byte, func(recognize.Candidate)) {}

func TestFormRecognizeStopsWithContext(t *testing.T) {
	f := recognize.NewForm(pricing.Formatter{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err := f.Recognize(ctx, silentRecognizer{}, []byte("x"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

type chattyRecognizer struct{ calls atomic.Int32 }

func (c *chattyRecognizer) Recognize(_ context.Context, _ []byte, deliver func(recognize.Candidate)) {
	for range 3 {
		c.calls.Add(1)
		deliver(recognize.Candidate{Name: "again"})
	}
}

func TestFormRecognizeToleratesRepeatedDeliveries(t *testing.T) {
	f := recognize.NewForm(pricing.Formatter{})
	rec := &chattyRecognizer{}
	outcome, _, err := f.Recognize(context.Background(), rec, []byte("x"))
	require.NoError(t, err)
	require.Equal(t, recognize.Applied, outcome)
	require.EqualValues(t, 3, rec.calls.Load())
}

func TestFormSubmitToClearsOnSuccess(t *testing.T) {
	f := recognize.NewForm(pricing.Formatter{})
	c := cart.New()

	f.SetPrice("2000")
	_, err := f.SubmitTo(c)
	require.ErrorIs(t, err, cart.ErrInvalidInput)
	require.Equal(t, "2,000", f.Fields().Price)
	require.Zero(t, c.Len())

	f.SetName("Milk")
	f.SetDiscount("10")
	e, err := f.SubmitTo(c)
	require.NoError(t, err)
	require.EqualValues(t, 1800, e.StoredPrice)
	require.Equal(t, 10, e.DiscountPercent)
	require.Equal(t, recognize.Fields{}, f.Fields())
	require.Equal(t, 1, c.Len())
}

func TestAwaitReturnsFirstDelivery(t *testing.T) {
	rec := &chattyRecognizer{}
	c, err := recognize.Await(context.Background(), rec, nil)
	require.NoError(t, err)
	require.Equal(t, "again", c.Name)
}
