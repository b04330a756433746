package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandlerMiddlewareEnforcesLimitPerSession(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	limited := Handler{
		Limiter: SlidingWindow{Client: client, Prefix: "ratelimit:"},
		Config:  Config{Key: SessionKey, Window: time.Minute, Max: 1},
	}

	r := chi.NewRouter()
	r.With(limited.Middleware).Post("/carts/{id}/entries", okHandler().ServeHTTP)

	send := func(id string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/carts/"+id+"/entries", nil))
		return rr
	}

	require.Equal(t, http.StatusOK, send("a").Code)
	rr := send("a")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, "1", rr.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rr.Header().Get("Retry-After"))

	require.Equal(t, http.StatusOK, send("b").Code)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, time.Duration, int) (Decision, error) {
	return Decision{}, errors.New("redis down")
}

func TestHandlerMiddlewareOnError(t *testing.T) {
	var got error
	handler := Handler{
		Limiter: failingLimiter{},
		Config:  Config{Key: func(*http.Request) string { return "err" }, Window: time.Second, Max: 1},
		OnError: func(err error) { got = err },
	}

	rr := httptest.NewRecorder()
	handler.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.EqualError(t, got, "redis down")
}

func TestSessionKeyFallsBackToClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/comparisons/rank", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	require.Equal(t, "ip:192.0.2.7", SessionKey(req))
}

func TestPerIP(t *testing.T) {
	mw, err := PerIP(memory.NewStore(), "2-M")
	require.NoError(t, err)
	handler := mw(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/recognitions", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}
	require.Equal(t, http.StatusOK, send("198.51.100.1:1"))
	require.Equal(t, http.StatusOK, send("198.51.100.1:2"))
	require.Equal(t, http.StatusTooManyRequests, send("198.51.100.1:3"))
	require.Equal(t, http.StatusOK, send("198.51.100.2:1"))

	_, err = PerIP(memory.NewStore(), "lots")
	require.Error(t, err)
}
