package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	leadintake "github.com/phbpx/lead-intake"
	"github.com/phbpx/lead-intake/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riandyrn/otelchi"
	"github.com/rs/cors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

// DefaultMaxBodyBytes matches the 1 MB body limit of the public form
// endpoints.
const DefaultMaxBodyBytes = 1 << 20

// RouterConfig carries everything the router needs. Store and StatusCheck are
// nil when no database is configured.
type RouterConfig struct {
	ServiceName  string
	Log          *otelzap.SugaredLogger
	Store        leadintake.LeadStore
	StatusCheck  StatusCheck
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	MaxBodyBytes int64
}

// NewRouter builds the service mux.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	leadHandler := NewLeadHandler(cfg.Store, cfg.Log, cfg.Metrics)
	webhookHandler := NewWebhookHandler(cfg.Log, cfg.Metrics)
	healthHandler := NewHealthHandler(cfg.StatusCheck, cfg.Log)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)
	r.Use(otelchi.Middleware(cfg.ServiceName, otelchi.WithChiRoutes(r)))

	r.Get("/health", healthHandler.Liveness)
	r.Get("/readiness", healthHandler.Readiness)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestSize(cfg.MaxBodyBytes))

		r.Post("/ingest/lead", leadHandler.Ingest)
		r.Post("/webhooks/whatsapp", webhookHandler.WhatsApp)
	})

	return r
}
