// Package api exposes the campaign replica over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"campaignScope/internal/model"
)

const defaultRequestTimeout = 30 * time.Second

// CampaignLister is the query service the handlers read from.
type CampaignLister interface {
	ListCampaigns(ctx context.Context) ([]model.CampaignRecord, error)
}

// ReadyFunc returns nil once the service can answer queries with fresh data.
type ReadyFunc func(ctx context.Context) error

// AllReady combines checks; the first failure wins.
func AllReady(checks ...ReadyFunc) ReadyFunc {
	return func(ctx context.Context) error {
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// NewRouter builds the HTTP handler. ready may be nil, in which case /ready
// always succeeds.
func NewRouter(campaigns CampaignLister, ready ReadyFunc, logger *zap.Logger) chi.Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handlers{campaigns: campaigns, ready: ready, logger: logger}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))
	r.Use(middleware.SetHeader("Access-Control-Allow-Origin", "*"))
	r.Use(middleware.SetHeader("Access-Control-Allow-Methods", "GET, OPTIONS"))
	r.Use(instrument)

	r.Get("/health", h.health)
	r.Get("/ready", h.readiness)
	r.Get("/campaigns", h.listCampaigns)
	r.Options("/campaigns", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
