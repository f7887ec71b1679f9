// Package api configures and exposes the HTTP server, routes,
// metrics, docs and related middleware of the callback service.
package api

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"callback/internal/api/handler/v1handler"
	"callback/internal/config"
	"callback/pkg/auth"
	"callback/pkg/callback"
	"callback/pkg/logger"
	"callback/pkg/middleware"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// v1Spec contains the embedded OpenAPI specification for version 1 of the API.
//
//go:embed specs/v1.yaml
var v1Spec []byte

// Options holds configuration for the HTTP server and its dependencies.
// It is typically created from a config.Config via NewOptions.
type Options struct {
	// Adapter configures the controller adapter; Logger and MeterProvider
	// are filled in by NewHandler when empty.
	Adapter callback.Options
	// Auth configures bearer token verification; an empty public key disables it.
	Auth auth.Options

	// Addr is the TCP address the server listens on, e.g. ":8080".
	Addr string
	// ReadTimeout is the maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration
	// ReadHeaderTimeout is the amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration
	// MaxHeaderBytes controls the maximum number of bytes the server
	// will read parsing the request header's keys and values, including the request line.
	MaxHeaderBytes int
	// MetricsPath is the HTTP path at which Prometheus metrics are served.
	MetricsPath string
	// RateLimit and RateLimitBurst bound the admitted request rate; 0 disables limiting.
	RateLimit      float64
	RateLimitBurst int
	// CORSOrigin is the allowed CORS origin; empty allows any.
	CORSOrigin string
	// Pprof mounts profiling handlers.
	Pprof bool
	// Registry receives the OpenTelemetry exporter and backs MetricsPath;
	// nil uses the Prometheus default registry.
	Registry *prometheus.Registry
}

// NewOptions constructs an Options value from the provided application configuration.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Adapter: callback.Options{
			APIVersion:         cfg.APIVersion,
			Languages:          cfg.Adapter.Languages,
			FilesInBody:        cfg.Adapter.FilesInBody,
			MaxBodyBytes:       cfg.Adapter.MaxBodyBytes,
			MaxMultipartMemory: cfg.Adapter.MaxMultipartMemory,
		},
		Auth: auth.Options{PublicKey: cfg.JWT.PublicKey},

		Addr:              cfg.HTTP.Addr,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MetricsPath:       cfg.HTTP.MetricsPath,
		RateLimit:         cfg.HTTP.RateLimit,
		RateLimitBurst:    cfg.HTTP.RateLimitBurst,
		CORSOrigin:        cfg.HTTP.CORSOrigin,
		Pprof:             cfg.HTTP.Pprof,
	}
}

// NewHandler builds the routed handler with its middleware chain:
// - Prometheus metrics endpoint (MetricsPath)
// - OpenTelemetry metrics exporter (Prometheus) feeding the adapter instruments
// - Embedded OpenAPI v1 spec and Swagger UI
// - v1 controllers served through the callback adapter
// - optional pprof endpoints
// The mux is wrapped with metrics, authentication, rate limiting, CORS and logging.
func NewHandler(ctx context.Context, opts Options) (http.Handler, error) {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if opts.Registry != nil {
		registerer, gatherer = opts.Registry, opts.Registry
	}

	// otel
	if opts.Adapter.MeterProvider == nil {
		exp, err := otelprom.New(otelprom.WithRegisterer(registerer))
		if err != nil {
			return nil, fmt.Errorf("could not create otel exporter: %w", err)
		}
		opts.Adapter.MeterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	}
	if opts.Adapter.Logger == nil {
		opts.Adapter.Logger = logger.NewDebugger(logger.Get(ctx))
	}

	adapter, err := callback.New(opts.Adapter)
	if err != nil {
		return nil, fmt.Errorf("could not create controller adapter: %w", err)
	}

	mux := http.NewServeMux()

	// prometheus metrics server
	mux.Handle(opts.MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// v1 specs file
	mux.HandleFunc("GET /specs/v1.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(v1Spec)
	})
	// v1 api swagger playground
	mux.Handle("/v1/docs/", v5emb.New(
		"Callback Service",
		"/specs/v1.yaml",
		"/v1/docs/",
	))

	// v1 api
	v1 := v1handler.New(v1handler.Deps{APIVersion: adapter.APIVersion()})
	mux.Handle("GET /v1/ping", adapter.HandlerFunc(v1.Ping))
	mux.Handle("GET /v1/whoami", adapter.HandlerFunc(v1.WhoAmI))
	mux.Handle("GET /v1/echo/{name}", adapter.HandlerFunc(v1.Echo))
	mux.Handle("POST /v1/echo/{name}", adapter.HandlerFunc(v1.Echo))

	// pprof
	if opts.Pprof {
		mux.Handle(middleware.PprofPath, middleware.PprofMux())
	}

	handler := middleware.WithMetrics(mux)

	// authentication
	if opts.Auth.PublicKey != "" {
		verifier, err := auth.NewVerifier(opts.Auth)
		if err != nil {
			return nil, fmt.Errorf("could not create token verifier: %w", err)
		}
		handler = auth.Middleware(verifier, adapter.Reject)(handler)
	}

	// rate limiting
	handler = middleware.WithRateLimit(opts.RateLimit, opts.RateLimitBurst, adapter.RejectStatus)(handler)

	// cors
	handler = middleware.WithCORS(opts.CORSOrigin)(handler)

	// logger
	handler = middleware.WithLogger(handler)

	return handler, nil
}

// NewServer wires up and returns a configured *http.Server using the provided Options.
// No request timeout is imposed on controllers beyond the server's write timeout.
func NewServer(ctx context.Context, opts Options) (*http.Server, error) {
	handler, err := NewHandler(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
		ErrorLog:          logger.StdLogger(ctx, slog.LevelError),
	}, nil
}
