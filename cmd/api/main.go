package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cart-calc/internal/cart"
	"github.com/noah-isme/cart-calc/internal/common"
	"github.com/noah-isme/cart-calc/internal/compare"
	"github.com/noah-isme/cart-calc/internal/config"
	"github.com/noah-isme/cart-calc/internal/health"
	"github.com/noah-isme/cart-calc/internal/obs"
	"github.com/noah-isme/cart-calc/internal/pricing"
	"github.com/noah-isme/cart-calc/internal/ratelimit"
	"github.com/noah-isme/cart-calc/internal/recognize"
	"github.com/noah-isme/cart-calc/internal/resilience"
	"github.com/noah-isme/cart-calc/internal/session"
)

const shutdownGrace = 15 * time.Second

func main() {
	cfg := config.MustLoad()

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	shutdownTracer, err := obs.InitTracer(context.Background(), obs.TracingConfig{
		Enabled:       cfg.Obs.EnableTracing,
		ServiceName:   obs.ServiceName,
		Endpoint:      cfg.Obs.OTLPEndpoint,
		SamplingRatio: cfg.Obs.SamplingRatio,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
		cfg.Obs.EnableTracing = false
	}
	defer func() {
		if shutdownTracer == nil {
			return
		}
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown tracer")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.Obs.EnablePrometheus {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	sessions, err := session.NewStore(session.Config{
		Client:           redisClient,
		Prefix:           cfg.Session.KeyPrefix,
		TTL:              cfg.Session.TTL,
		LockTTL:          cfg.Session.LockTTL,
		LockRetryBackoff: cfg.Session.LockRetryBackoff,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise session store")
	}

	var (
		httpMetrics    *obs.HTTPMetrics
		domainMetrics  *obs.DomainMetrics
		breakerMetrics *resilience.BreakerMetrics
	)
	if cfg.Obs.EnablePrometheus {
		reg := prometheus.DefaultRegisterer
		httpMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, reg)
		domainMetrics = obs.NewDomainMetrics(cfg.Obs.MetricsNamespace, reg)
		breakerMetrics = resilience.NewBreakerMetrics(cfg.Obs.MetricsNamespace, reg)
	}

	formatter := pricing.Formatter{Symbol: cfg.CurrencySymbol}
	cartHandler := &cart.Handler{
		Store:     cart.Store{Sessions: sessions},
		Formatter: formatter,
		Metrics:   domainMetrics,
		Logger:    &logger,
	}
	compareHandler := &compare.Handler{
		Store:     compare.Store{Sessions: sessions},
		Formatter: formatter,
		Metrics:   domainMetrics,
		Logger:    &logger,
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL, Prefix: cfg.Session.KeyPrefix}
	writeLimit := ratelimit.Handler{
		Limiter: ratelimit.SlidingWindow{Client: redisClient, Prefix: cfg.Session.KeyPrefix + "rl:"},
		Config: ratelimit.Config{
			Key:    ratelimit.SessionKey,
			Window: cfg.RateLimit.Window,
			Max:    cfg.RateLimit.Max,
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}
	writes := []func(http.Handler) http.Handler{writeLimit.Middleware, idem.Middleware}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.Obs.EnableTracing {
		r.Use(obs.TracingMiddleware)
	}
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.Obs.EnablePrometheus {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Probes:  map[string]health.Probe{"redis": health.RedisProbe(redisClient)},
		Timeout: 500 * time.Millisecond,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Mount("/carts", cartHandler.Routes(writes...))
		v.Mount("/comparisons", compareHandler.Routes(writes...))

		if !cfg.RecognizerEnabled() {
			logger.Info().Msg("recognizer endpoint not configured; recognitions disabled")
			return
		}
		recHandler, err := newRecognitionHandler(cfg, formatter, domainMetrics, breakerMetrics, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise recognizer")
		}
		limitStore, err := ratelimit.NewStore(redisClient, cfg.Session.KeyPrefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise recognition limiter store")
		}
		perIP, err := ratelimit.PerIP(limitStore, cfg.RateLimit.RecognizerRate)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise recognition limiter")
		}
		v.Mount("/recognitions", recHandler.Routes(perIP))
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		health.SetReady(false)
		logger.Info().Msg("server draining")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	health.SetReady(true)
	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func newRecognitionHandler(
	cfg *config.Config,
	formatter pricing.Formatter,
	metrics *obs.DomainMetrics,
	breakerMetrics *resilience.BreakerMetrics,
	logger *zerolog.Logger,
) (*recognize.Handler, error) {
	rc := cfg.Recognizer
	breaker := resilience.NewBreaker(rc.CircuitMinRequests, rc.CircuitFailureRate, rc.CircuitOpenFor).
		WithTarget("recognizer").
		WithLogger(logger).
		WithMetrics(breakerMetrics)
	rec := &recognize.HTTPRecognizer{
		Client: resilience.HTTPClient{
			Client:      resilience.NewTracedClient(rc.Timeout),
			Breaker:     breaker,
			BaseBackoff: rc.RetryBase,
			MaxAttempts: rc.MaxAttempts,
			Jitter:      0.2,
			Timeout:     rc.Timeout,
		},
		Endpoint: rc.URL,
		Metrics:  metrics,
		Logger:   logger,
	}
	if rc.URL == "" {
		return nil, recognize.ErrNotConfigured
	}
	return &recognize.Handler{
		Recognizer: rec,
		Formatter:  formatter,
		Metrics:    metrics,
		Logger:     logger,
		// Leave room for every retry attempt.
		Timeout:    rc.Timeout * time.Duration(max(rc.MaxAttempts, 1)+1),
	}, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
