package cart_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cart-calc/internal/cart"
	"github.com/noah-isme/cart-calc/internal/obs"
	"github.com/noah-isme/cart-calc/internal/pricing"
	"github.com/noah-isme/cart-calc/internal/session"
)

type harness struct {
	t       *testing.T
	router  http.Handler
	metrics *obs.DomainMetrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions, err := session.NewStore(session.Config{Client: client, Prefix: "test:", TTL: time.Hour})
	require.NoError(t, err)
	metrics := obs.NewDomainMetrics("test", prometheus.NewRegistry())
	h := &cart.Handler{
		Store:     cart.Store{Sessions: sessions},
		Formatter: pricing.Formatter{Symbol: "₩"},
		Metrics:   metrics,
	}
	return &harness{t: t, router: h.Routes(), metrics: metrics}
}

func (h *harness) do(method, path, body string) (int, cart.View) {
	h.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	var env struct {
		Data cart.View `json:"data"`
	}
	if rr.Code < 300 && rr.Body.Len() > 0 {
		require.NoError(h.t, json.Unmarshal(rr.Body.Bytes(), &env))
	}
	return rr.Code, env.Data
}

func (h *harness) create() string {
	code, view := h.do(http.MethodPost, "/", "")
	require.Equal(h.t, http.StatusCreated, code)
	require.NotEmpty(h.t, view.ID)
	return view.ID
}

func TestCartLifecycle(t *testing.T) {
	h := newHarness(t)
	id := h.create()

	code, view := h.do(http.MethodPost, "/"+id+"/entries", `{"name":"Milk","price":"2,000","discountPercent":"10"}`)
	require.Equal(t, http.StatusCreated, code)
	require.Len(t, view.Entries, 1)
	milk := view.Entries[0]
	require.EqualValues(t, 1800, milk.StoredPrice)
	require.EqualValues(t, 2000, milk.ListedPrice)
	require.Equal(t, "₩1,800", milk.FormattedPrice)
	require.Equal(t, "₩2,000", milk.FormattedListedPrice)

	_, view = h.do(http.MethodPost, "/"+id+"/entries", `{"name":"Bread","price":"700"}`)
	require.Len(t, view.Entries, 2)
	bread := view.Entries[1]
	require.Empty(t, bread.FormattedListedPrice)

	code, view = h.do(http.MethodPatch, "/"+id+"/entries/"+bread.ID.String()+"/quantity", `{"delta":2}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 3, view.Entries[1].Quantity)
	require.EqualValues(t, 1800+2100, view.Summary.Total)
	require.Equal(t, "₩3,900", view.Summary.FormattedTotal)
	require.True(t, view.Summary.AllSelected)

	_, view = h.do(http.MethodPost, "/"+id+"/entries/"+milk.ID.String()+"/toggle", "")
	require.False(t, view.Summary.AllSelected)
	require.EqualValues(t, 2100, view.Summary.SelectedTotal)

	_, view = h.do(http.MethodPut, "/"+id+"/selection", `{"checked":true}`)
	require.True(t, view.Summary.AllSelected)

	_, view = h.do(http.MethodDelete, "/"+id+"/entries/"+milk.ID.String(), "")
	require.Len(t, view.Entries, 1)
	require.EqualValues(t, 2100, view.Summary.Total)

	code, view = h.do(http.MethodGet, "/"+id, "")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, view.Entries, 1)

	_, view = h.do(http.MethodDelete, "/"+id+"/entries", "")
	require.Empty(t, view.Entries)
	require.False(t, view.Summary.AllSelected)

	require.Equal(t, float64(2), testutil.ToFloat64(h.metrics.EntriesAdded.WithLabelValues("ok")))
}

func TestAddEntryRejectsInvalidInput(t *testing.T) {
	h := newHarness(t)
	id := h.create()

	for _, body := range []string{
		`{"name":"   ","price":"100"}`,
		`{"name":"Eggs","price":"cheap"}`,
		`{"name":"Eggs"}`,
		`{"name":"Eggs","price":"100","unexpected":true}`,
		`not json`,
	} {
		code, _ := h.do(http.MethodPost, "/"+id+"/entries", body)
		require.Equal(t, http.StatusBadRequest, code, body)
	}

	_, view := h.do(http.MethodGet, "/"+id, "")
	require.Empty(t, view.Entries)
	require.Equal(t, float64(5), testutil.ToFloat64(h.metrics.EntriesAdded.WithLabelValues("invalid")))
}

func TestUnknownEntryIsNoOp(t *testing.T) {
	h := newHarness(t)
	id := h.create()
	h.do(http.MethodPost, "/"+id+"/entries", `{"name":"Tea","price":"300"}`)

	for _, entry := range []string{uuid.NewString(), "not-a-uuid"} {
		code, view := h.do(http.MethodPost, "/"+id+"/entries/"+entry+"/toggle", "")
		require.Equal(t, http.StatusOK, code)
		require.True(t, view.Summary.AllSelected)

		code, view = h.do(http.MethodDelete, "/"+id+"/entries/"+entry, "")
		require.Equal(t, http.StatusOK, code)
		require.Len(t, view.Entries, 1)
	}
}

func TestMissingCartIsNotFound(t *testing.T) {
	h := newHarness(t)
	for _, id := range []string{uuid.NewString(), "garbage"} {
		code, _ := h.do(http.MethodGet, "/"+id, "")
		require.Equal(t, http.StatusNotFound, code)
		code, _ = h.do(http.MethodPost, "/"+id+"/entries", `{"name":"Tea","price":"300"}`)
		require.Equal(t, http.StatusNotFound, code)
	}
}

func TestDiscardCart(t *testing.T) {
	h := newHarness(t)
	id := h.create()
	code, _ := h.do(http.MethodDelete, "/"+id, "")
	require.Equal(t, http.StatusNoContent, code)
	code, _ = h.do(http.MethodGet, "/"+id, "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestSelectionRequiresFlag(t *testing.T) {
	h := newHarness(t)
	id := h.create()
	code, _ := h.do(http.MethodPut, "/"+id+"/selection", `{}`)
	require.Equal(t, http.StatusBadRequest, code)
}
