package recognize

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cart-calc/internal/common"
	"github.com/noah-isme/cart-calc/internal/obs"
	"github.com/noah-isme/cart-calc/internal/pricing"
)

const defaultMaxImageBytes = 8 << 20

// Handler exposes price tag recognition over HTTP.
type Handler struct {
	Recognizer    Recognizer
	Formatter     pricing.Formatter
	Metrics       *obs.DomainMetrics
	Logger        *zerolog.Logger
	Timeout       time.Duration
	MaxImageBytes int64
}

// View is the API representation of a recognition result. Fields holds the
// entry inputs after the candidate was merged into them.
type View struct {
	Outcome        Outcome   `json:"outcome"`
	Recognized     Candidate `json:"recognized"`
	FormattedPrice string    `json:"formattedPrice,omitempty"`
	Fields         Fields    `json:"fields"`
}

// currentInput carries the inputs the client already had before recognition.
type currentInput struct {
	Name            string `validate:"max=200"`
	Price           string `validate:"max=32"`
	DiscountPercent string `validate:"max=16"`
}

// Routes returns the recognition router.
func (h *Handler) Routes(mw ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.With(mw...).Post("/", h.Recognize)
	return r
}

// Recognize reads the raw image body and merges the recognized name and
// price into the inputs passed as query parameters.
func (h *Handler) Recognize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := currentInput{Name: q.Get("name"), Price: q.Get("price"), DiscountPercent: q.Get("discountPercent")}
	if err := common.Validator().Struct(in); err != nil {
		common.WriteError(w, common.BadRequest("invalid input fields", err))
		return
	}

	limit := h.MaxImageBytes
	if limit <= 0 {
		limit = defaultMaxImageBytes
	}
	image, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.WriteError(w, common.NewAppError("IMAGE_TOO_LARGE", "image exceeds size limit", http.StatusRequestEntityTooLarge, err))
			return
		}
		common.WriteError(w, common.BadRequest("unable to read image", err))
		return
	}
	if len(image) == 0 {
		common.WriteError(w, common.BadRequest("image body is required", nil))
		return
	}

	form := NewForm(h.Formatter)
	form.SetName(in.Name)
	form.SetPrice(in.Price)
	form.SetDiscount(in.DiscountPercent)

	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	outcome, c, err := form.Recognize(ctx, h.Recognizer, image)
	if err != nil {
		obs.LoggerOrNop(h.Logger).Warn().Err(err).Int("image_bytes", len(image)).Msg("recognition_timeout")
		common.WriteError(w, common.NewAppError("RECOGNITION_TIMEOUT", "recognition did not finish in time", http.StatusGatewayTimeout, err))
		return
	}
	h.Metrics.Recognition(string(outcome))

	view := View{Outcome: outcome, Recognized: c, Fields: form.Fields()}
	if c.HasPrice() {
		view.FormattedPrice = h.Formatter.Format(c.Price)
	}
	common.Data(w, http.StatusOK, view)
}
