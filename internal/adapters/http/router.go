package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/legal-dashboard/internal/config"
	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/core/ports"
)

// HTTPMetrics is the subset of the prometheus wiring the router needs.
type HTTPMetrics interface {
	Handler() http.Handler
	Middleware(service string, next http.Handler) http.Handler
}

// Deps are the inbound services behind the routes. Nil services answer 503.
type Deps struct {
	Analytics ports.AnalyticsReader
	Dashboard ports.DashboardReader
	Scraping  ports.ScrapingManager
	Auth      ports.Authenticator
	Analysis  ports.TextAnalysisService
	Events    ports.EventStats
	Proxies   ports.ProxyStatusReader
	Reports   ports.ReportExporter
	WebSocket http.Handler
	Metrics   HTTPMetrics
}

type Router struct {
	cfg  config.Config
	deps Deps
}

func NewRouter(cfg config.Config, deps Deps) *Router {
	return &Router{cfg: cfg, deps: deps}
}

func (rt *Router) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(requestIDMiddleware, accessLogMiddleware)
	if rt.deps.Metrics != nil {
		mux.Use(func(next http.Handler) http.Handler {
			return rt.deps.Metrics.Middleware("api", next)
		})
	}
	mux.Use(corsMiddleware(rt.cfg.CORSAllowedOrigins))
	mux.Use(func(next http.Handler) http.Handler {
		return rateLimitMiddleware(next, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	})
	mux.Use(func(next http.Handler) http.Handler {
		return backpressureMiddleware(next, rt.cfg.APIMaxInFlight, rt.cfg.APIInFlightWait)
	})

	mux.Get("/health", rt.wrap(rt.handleHealth))
	mux.Get("/health/ready", rt.wrap(rt.handleReady))
	if rt.deps.Metrics != nil {
		mux.Handle("/metrics", rt.deps.Metrics.Handler())
	}

	authed := requireAuth(rt.deps.Auth)

	mux.Route("/api", func(api chi.Router) {
		api.Route("/analytics", rt.analyticsRoutes)
		api.With(authed).Route("/enhanced-analytics", rt.analyticsRoutes)

		api.Route("/auth", func(r chi.Router) {
			r.Post("/register", rt.wrap(rt.handleRegister))
			r.Post("/login", rt.wrap(rt.handleLogin))
			r.With(authed).Get("/me", rt.wrap(rt.handleMe))
			r.With(authed, requireAdmin).Get("/users", rt.wrap(rt.handleListUsers))
		})

		api.With(authed).Route("/dashboard", func(r chi.Router) {
			r.Get("/summary", rt.wrap(rt.handleSummary))
			r.Get("/charts-data", rt.wrap(rt.handleChartsData))
			r.Get("/ai-suggestions", rt.wrap(rt.handleAISuggestions))
			r.Get("/ai-training-stats", rt.wrap(rt.handleAITrainingStats))
			r.Post("/ai-feedback", rt.wrap(rt.handleAIFeedback))
			r.Get("/performance-metrics", rt.wrap(rt.handlePerformanceMetrics))
			r.Get("/trends", rt.wrap(rt.handleTrends))
		})

		api.With(authed).Route("/ai", func(r chi.Router) {
			r.Post("/analyze", rt.wrap(rt.handleAnalyze))
			r.Get("/analyses", rt.wrap(rt.handleListAnalyses))
		})

		api.With(authed).Route("/scraping", func(r chi.Router) {
			r.Post("/start", rt.wrap(rt.handleStartScrape))
			r.Get("/status", rt.wrap(rt.handleScrapeStatusList))
			r.Get("/status/{id}", rt.wrap(rt.handleScrapeStatus))
			r.Get("/queue", rt.wrap(rt.handleQueueCounts))
			r.With(requireAdmin).Post("/clean", rt.wrap(rt.handleCleanQueue))
		})

		api.With(authed, requireAdmin).Get("/proxy/status", rt.wrap(rt.handleProxyStatus))
		api.With(authed).Get("/reports/scraping/export", rt.wrap(rt.handleExportScrapeJobs))

		api.Route("/ws", rt.realtimeRoutes)
		api.Route("/websocket", rt.realtimeRoutes)
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (rt *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			writeError(w, r, err)
		}
	}
}

func (rt *Router) handleHealth(w http.ResponseWriter, _ *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}

func (rt *Router) handleReady(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Analytics == nil {
		return errNotConfigured("readiness")
	}
	services := rt.deps.Analytics.Readiness(r.Context())
	overall := domain.Overall(services)
	status := http.StatusOK
	if overall == domain.HealthDown {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status":    overall,
		"services":  services,
		"checkedAt": time.Now().UTC(),
	})
	return nil
}

func errNotConfigured(what string) error {
	return domain.NewError(domain.ErrTemporary, what, "not configured")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
