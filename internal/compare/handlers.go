package compare

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/cart-calc/internal/common"
	"github.com/noah-isme/cart-calc/internal/obs"
	"github.com/noah-isme/cart-calc/internal/pricing"
	"github.com/noah-isme/cart-calc/internal/session"
)

// Handler exposes comparison sessions and stateless ranking over HTTP.
type Handler struct {
	Store     Store
	Formatter pricing.Formatter
	Metrics   *obs.DomainMetrics
	Logger    *zerolog.Logger
}

// DraftView is the API representation of a draft.
type DraftView struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Price    string    `json:"price"`
	Quantity string    `json:"quantity"`
	Unit     Unit      `json:"unit"`
	Rankable bool      `json:"rankable"`
}

// RankedView is a ranked product with its display string.
type RankedView struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	BaseUnit  Unit            `json:"baseUnit"`
	Display   string          `json:"display"`
}

// View is the API representation of a comparison session.
type View struct {
	ID      string       `json:"id"`
	Drafts  []DraftView  `json:"drafts"`
	CanRank bool         `json:"canRank"`
	Results []RankedView `json:"results"`
}

type draftRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=200"`
	Price    *string `json:"price" validate:"omitempty,max=32"`
	Quantity *string `json:"quantity" validate:"omitempty,max=32"`
	Unit     *string `json:"unit" validate:"omitempty,max=16"`
}

type rankRequest struct {
	Drafts []draftRequest `json:"drafts" validate:"required,max=200,dive"`
}

func (req draftRequest) patch() (DraftPatch, error) {
	p := DraftPatch{Name: req.Name, RawPrice: req.Price, RawQuantity: req.Quantity}
	if req.Unit != nil {
		u, err := ParseUnit(*req.Unit)
		if err != nil {
			return DraftPatch{}, err
		}
		p.Unit = &u
	}
	return p, nil
}

// Routes returns the comparison router. Middleware in writes wraps every
// mutating session route.
func (h *Handler) Routes(writes ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.With(writes...).Post("/", h.Create)
	r.Post("/rank", h.RankStateless)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Group(func(r chi.Router) {
			r.Use(writes...)
			r.Delete("/", h.Discard)
			r.Post("/drafts", h.AddDraft)
			r.Delete("/drafts", h.Reset)
			r.Patch("/drafts/{draftId}", h.UpdateDraft)
			r.Delete("/drafts/{draftId}", h.RemoveDraft)
			r.Post("/rank", h.Rank)
		})
	})
	return r
}

// Create starts a comparison session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, cs, err := h.Store.Create(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusCreated, h.view(id, cs))
}

// Get returns the drafts and the last ranking.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cs, err := h.Store.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, h.view(id, cs))
}

// Discard deletes the session.
func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddDraft appends a draft, optionally pre-filled.
func (h *Handler) AddDraft(w http.ResponseWriter, r *http.Request) {
	patch, ok := h.decodePatch(w, r)
	if !ok {
		return
	}
	h.mutate(w, r, http.StatusCreated, func(cs *Session) error {
		_, err := cs.AddDraft(patch)
		return err
	})
}

// UpdateDraft edits a draft in place.
func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	patch, ok := h.decodePatch(w, r)
	if !ok {
		return
	}
	draftID := draftParam(r)
	h.mutate(w, r, http.StatusOK, func(cs *Session) error {
		return cs.UpdateDraft(draftID, patch)
	})
}

// RemoveDraft deletes a draft.
func (h *Handler) RemoveDraft(w http.ResponseWriter, r *http.Request) {
	draftID := draftParam(r)
	h.mutate(w, r, http.StatusOK, func(cs *Session) error {
		cs.RemoveDraft(draftID)
		return nil
	})
}

// Reset returns the session to a single blank draft.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusOK, func(cs *Session) error {
		cs.Reset()
		return nil
	})
}

// Rank ranks the session drafts and stores the result.
func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusOK, func(cs *Session) error {
		ranked := cs.Rank()
		h.Metrics.Ranked("session", len(cs.drafts), len(ranked))
		return nil
	})
}

// RankStateless ranks the posted drafts without a session.
func (h *Handler) RankStateless(w http.ResponseWriter, r *http.Request) {
	var payload rankRequest
	if err := common.DecodeAndValidate(r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	drafts := make([]Draft, 0, len(payload.Drafts))
	for _, req := range payload.Drafts {
		patch, err := req.patch()
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		d := Draft{ID: uuid.New(), Unit: Gram}
		if err := patch.apply(&d); err != nil {
			h.writeError(w, r, err)
			return
		}
		drafts = append(drafts, d)
	}
	ranked := Rank(drafts)
	h.Metrics.Ranked("stateless", len(drafts), len(ranked))
	common.Data(w, http.StatusOK, map[string]any{"results": h.rankedViews(ranked)})
}

func (h *Handler) decodePatch(w http.ResponseWriter, r *http.Request) (DraftPatch, bool) {
	var payload draftRequest
	if err := common.DecodeAndValidate(r, &payload); err != nil {
		h.writeError(w, r, err)
		return DraftPatch{}, false
	}
	patch, err := payload.patch()
	if err != nil {
		h.writeError(w, r, err)
		return DraftPatch{}, false
	}
	return patch, true
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, status int, fn func(*Session) error) {
	id := chi.URLParam(r, "id")
	cs, err := h.Store.Update(r.Context(), id, fn)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Data(w, status, h.view(id, cs))
}

func draftParam(r *http.Request) uuid.UUID {
	id, err := uuid.Parse(chi.URLParam(r, "draftId"))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (h *Handler) view(id string, cs *Session) View {
	drafts := cs.Drafts()
	v := View{
		ID:      id,
		Drafts:  make([]DraftView, 0, len(drafts)),
		CanRank: cs.CanRank(),
		Results: h.rankedViews(cs.Results()),
	}
	for _, d := range drafts {
		v.Drafts = append(v.Drafts, DraftView{
			ID:       d.ID,
			Name:     d.Name,
			Price:    d.RawPrice,
			Quantity: d.RawQuantity,
			Unit:     d.Unit,
			Rankable: d.Rankable(),
		})
	}
	return v
}

func (h *Handler) rankedViews(ranked []Ranked) []RankedView {
	out := make([]RankedView, 0, len(ranked))
	for _, rp := range ranked {
		out = append(out, RankedView{
			ID:        rp.ID,
			Name:      rp.Name,
			UnitPrice: rp.UnitPrice,
			BaseUnit:  rp.BaseUnit,
			Display:   h.Formatter.FormatUnitPrice(rp.UnitPrice, string(rp.BaseUnit)),
		})
	}
	return out
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *common.AppError
	switch {
	case errors.As(err, &appErr):
	case errors.Is(err, ErrUnknownUnit):
		appErr = common.BadRequest(err.Error(), err)
	case errors.Is(err, session.ErrNotFound):
		appErr = common.NotFound("comparison not found", err)
	default:
		appErr = common.Internal("unable to process comparison", err)
		obs.LoggerOrNop(h.Logger).Error().Err(err).
			Str("comparison_id", chi.URLParam(r, "id")).
			Str("route", r.URL.Path).
			Msg("comparison_request_failed")
	}
	common.WriteError(w, appErr)
}
