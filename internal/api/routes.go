package api

import (
	"net/http"
	"time"

	"stockwatch/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates and configures a Chi router with all routes
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(cfg.HTTP.RequestTimeoutSeconds) * time.Second))
	r.Use(CORSMiddleware(cfg.HTTP.CORSAllowedOrigins))
	r.Use(MetricsMiddleware)
	r.Use(LoggingMiddleware)

	r.Get("/", h.HandleIndex)

	// Metrics endpoint for Prometheus
	r.Handle("/metrics", promhttp.Handler())

	// Resolved records
	r.Get("/stock/", h.HandleMissingTicker)
	r.Get("/stock/{ticker}", h.HandleGetStock)
	r.Get("/stock/{ticker}/history", h.HandleGetHistory)
	r.Get("/search", h.HandleSearch)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", h.HandleHealth)

		// Upstream passthrough
		r.Get("/stock", h.HandleChartProxy)
		r.Get("/quoteSummary", h.HandleQuoteSummaryProxy)
		r.Get("/scrapeYahoo", h.HandleScrapeProxy)

		// Watchlists
		r.Route("/watchlists", func(r chi.Router) {
			r.Get("/", h.HandleListWatchlists)
			r.Post("/", h.HandleCreateWatchlist)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.HandleGetWatchlist)
				r.Put("/", h.HandleRenameWatchlist)
				r.Delete("/", h.HandleDeleteWatchlist)
				r.Get("/stocks", h.HandleWatchlistStocks)
				r.Post("/symbols", h.HandleAddSymbol)
				r.Delete("/symbols/{symbol}", h.HandleRemoveSymbol)
			})
		})
	})

	return r
}

// CORSMiddleware returns CORS middleware with the specified allowed origins
func CORSMiddleware(allowedOrigins string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
