package cart

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cart-calc/internal/common"
	"github.com/noah-isme/cart-calc/internal/obs"
	"github.com/noah-isme/cart-calc/internal/pricing"
	"github.com/noah-isme/cart-calc/internal/session"
)

// Handler exposes cart sessions over HTTP.
type Handler struct {
	Store     Store
	Formatter pricing.Formatter
	Metrics   *obs.DomainMetrics
	Logger    *zerolog.Logger
}

// EntryView is the API representation of an entry.
type EntryView struct {
	ID                   uuid.UUID     `json:"id"`
	Name                 string        `json:"name"`
	Quantity             int           `json:"quantity"`
	Checked              bool          `json:"checked"`
	DiscountPercent      int           `json:"discountPercent"`
	StoredPrice          pricing.Money `json:"storedPrice"`
	ListedPrice          pricing.Money `json:"listedPrice"`
	LineTotal            pricing.Money `json:"lineTotal"`
	FormattedPrice       string        `json:"formattedPrice"`
	FormattedListedPrice string        `json:"formattedListedPrice,omitempty"`
	FormattedLineTotal   string        `json:"formattedLineTotal"`
}

// SummaryView adds display strings to Summary.
type SummaryView struct {
	Summary
	FormattedTotal         string `json:"formattedTotal"`
	FormattedSelectedTotal string `json:"formattedSelectedTotal"`
}

// View is the API representation of a cart session.
type View struct {
	ID      string      `json:"id"`
	Entries []EntryView `json:"entries"`
	Summary SummaryView `json:"summary"`
}

type addEntryRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	Price           string `json:"price" validate:"required,max=32"`
	DiscountPercent string `json:"discountPercent" validate:"max=16"`
}

type quantityRequest struct {
	Delta int `json:"delta" validate:"min=-1000,max=1000"`
}

type selectionRequest struct {
	Checked *bool `json:"checked" validate:"required"`
}

// Routes returns the cart router. Middleware in writes wraps every mutating route.
func (h *Handler) Routes(writes ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.With(writes...).Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.With(writes...).Delete("/", h.Discard)
		r.Group(func(r chi.Router) {
			r.Use(writes...)
			r.Post("/entries", h.AddEntry)
			r.Delete("/entries", h.ClearAll)
			r.Patch("/entries/{entryId}/quantity", h.SetQuantity)
			r.Post("/entries/{entryId}/toggle", h.Toggle)
			r.Delete("/entries/{entryId}", h.RemoveEntry)
			r.Put("/selection", h.SetSelection)
		})
	})
	return r
}

// Create starts an empty cart session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, c, err := h.Store.Create(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusCreated, h.view(id, c))
}

// Get returns the cart entries and totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.Store.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, h.view(id, c))
}

// Discard deletes the cart session.
func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddEntry parses and appends a new entry.
func (h *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	var payload addEntryRequest
	if err := common.DecodeAndValidate(r, &payload); err != nil {
		h.Metrics.EntryAdded(false)
		h.writeError(w, r, err)
		return
	}
	h.mutate(w, r, http.StatusCreated, func(c *Cart) error {
		_, err := c.AddEntry(payload.Name, payload.Price, payload.DiscountPercent)
		h.Metrics.EntryAdded(err == nil)
		return err
	})
}

// ClearAll removes every entry.
func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusOK, func(c *Cart) error {
		c.ClearAll()
		return nil
	})
}

// SetQuantity adjusts an entry quantity by a delta.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var payload quantityRequest
	if err := common.DecodeAndValidate(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	entryID := entryParam(r)
	h.mutate(w, r, http.StatusOK, func(c *Cart) error {
		c.SetQuantity(entryID, payload.Delta)
		return nil
	})
}

// Toggle flips the checked flag of an entry.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	entryID := entryParam(r)
	h.mutate(w, r, http.StatusOK, func(c *Cart) error {
		c.ToggleChecked(entryID)
		return nil
	})
}

// RemoveEntry deletes an entry.
func (h *Handler) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	entryID := entryParam(r)
	h.mutate(w, r, http.StatusOK, func(c *Cart) error {
		c.RemoveEntry(entryID)
		return nil
	})
}

// SetSelection checks or unchecks every entry.
func (h *Handler) SetSelection(w http.ResponseWriter, r *http.Request) {
	var payload selectionRequest
	if err := common.DecodeAndValidate(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.mutate(w, r, http.StatusOK, func(c *Cart) error {
		c.SetAllChecked(*payload.Checked)
		return nil
	})
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, status int, fn func(*Cart) error) {
	id := chi.URLParam(r, "id")
	c, err := h.Store.Update(r.Context(), id, fn)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Data(w, status, h.view(id, c))
}

// entryParam parses the entry id; malformed ids become uuid.Nil, which never
// matches an entry, so the mutation is a no-op.
func entryParam(r *http.Request) uuid.UUID {
	id, err := uuid.Parse(chi.URLParam(r, "entryId"))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (h *Handler) view(id string, c *Cart) View {
	entries := c.Entries()
	out := View{ID: id, Entries: make([]EntryView, 0, len(entries))}
	for _, e := range entries {
		ev := EntryView{
			ID:                 e.ID,
			Name:               e.Name,
			Quantity:           e.Quantity,
			Checked:            e.Checked,
			DiscountPercent:    e.DiscountPercent,
			StoredPrice:        e.StoredPrice,
			ListedPrice:        e.ListedPrice(),
			LineTotal:          e.LineTotal(),
			FormattedPrice:     h.Formatter.Format(e.StoredPrice),
			FormattedLineTotal: h.Formatter.Format(e.LineTotal()),
		}
		if e.DiscountPercent > 0 {
			ev.FormattedListedPrice = h.Formatter.Format(ev.ListedPrice)
		}
		out.Entries = append(out.Entries, ev)
	}
	sum := c.Summary()
	out.Summary = SummaryView{
		Summary:                sum,
		FormattedTotal:         h.Formatter.Format(sum.Total),
		FormattedSelectedTotal: h.Formatter.Format(sum.SelectedTotal),
	}
	return out
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *common.AppError
	switch {
	case errors.As(err, &appErr):
	case errors.Is(err, ErrInvalidInput):
		appErr = common.BadRequest(err.Error(), err)
	case errors.Is(err, session.ErrNotFound):
		appErr = common.NotFound("cart not found", err)
	default:
		appErr = common.Internal("unable to process cart", err)
		obs.LoggerOrNop(h.Logger).Error().Err(err).
			Str("cart_id", chi.URLParam(r, "id")).
			Str("route", r.URL.Path).
			Msg("cart_request_failed")
	}
	common.WriteError(w, appErr)
}
