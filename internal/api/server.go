// Package api serves the dashboard: JSON views, ticker lookup, manual
// refresh, Prometheus metrics and a WebSocket feed of scan cycles.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"MomentumWatch/internal/model"
	"MomentumWatch/internal/scheduler"
)

// Scanner is the polling loop as seen by the API.
type Scanner interface {
	State() scheduler.State
	RunNow(ctx context.Context) (*model.ScanResult, error)
}

// Quotes serves on-demand provider lookups.
type Quotes interface {
	Ticker(ctx context.Context, symbol string) (model.Ticker, bool, error)
	Search(ctx context.Context, query string) ([]model.SearchResult, error)
	Losers(ctx context.Context) ([]model.Ticker, error)
}

// Fundamentals answers from the cache only.
type Fundamentals interface {
	Lookup(symbol string) (model.Fundamentals, bool)
}

// Alerts exposes the detector's history and highlights.
type Alerts interface {
	Recent() []model.Alert
	Highlights() []string
}

// API bundles the handler dependencies. Alerts, Hub and Gatherer may be nil.
type API struct {
	Scanner      Scanner
	Quotes       Quotes
	Fundamentals Fundamentals
	Alerts       Alerts
	Hub          *Hub
	Gatherer     prometheus.Gatherer
}

// Routes builds the chi router.
func (api *API) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", api.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/scan", api.handleScan)
		r.Get("/scan/{view}", api.handleScanView)
		r.Get("/alerts", api.handleAlerts)
		r.Get("/tickers/{symbol}", api.handleTicker)
		r.Get("/search", api.handleSearch)
		r.Get("/losers", api.handleLosers)
		r.Post("/refresh", api.handleRefresh)
	})

	if api.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(api.Gatherer, promhttp.HandlerOpts{}))
	}
	if api.Hub != nil {
		r.Get("/ws", api.Hub.ServeWS(func() any { return api.snapshotMessage() }))
	}
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
