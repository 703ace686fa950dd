package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ryanbastic/offers-retriever/internal/metrics"
)

// Options configures the HTTP surface.
type Options struct {
	// StrictAddresses rejects mint and owner values that are not base58
	// encoded 32-byte public keys.
	StrictAddresses bool
	// Backends are pinged by /v1/readyz.
	Backends map[string]Pinger
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(logger *slog.Logger, svc OfferService, opts Options) http.Handler {
	mux := chi.NewRouter()

	mux.Use(RequestID)
	mux.Use(Logging(logger))
	mux.Use(Recovery(logger))
	mux.Use(CORS)
	mux.Use(metrics.Metrics)

	config := huma.DefaultConfig("Offers Retriever", "1.0.0")
	// Response bodies are free-form offer maps; no $schema links.
	config.CreateHooks = nil
	api := humachi.New(mux, config)

	registerOfferRoutes(api, NewOfferHandler(svc, opts.StrictAddresses, logger))

	health := NewHealthHandler(opts.Backends, logger)
	mux.Get("/v1/livez", health.Livez)
	mux.Get("/v1/readyz", health.Readyz)
	mux.Get("/v1/health", health.Readyz)
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}
