package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// analyticsRoutes never read the request body or query, so malformed input
// cannot fail them.
func (rt *Router) analyticsRoutes(r chi.Router) {
	r.Get("/predictive-insights", rt.wrap(rt.handlePredictiveInsights))
	r.Get("/realtime-metrics", rt.wrap(rt.handleRealTimeMetrics))
	r.Get("/real-time-metrics", rt.wrap(rt.handleRealTimeMetrics))
	r.Get("/system-health", rt.wrap(rt.handleSystemHealth))
}

func (rt *Router) handlePredictiveInsights(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Analytics == nil {
		return errNotConfigured("analytics")
	}
	writeJSON(w, http.StatusOK, map[string]any{"insights": rt.deps.Analytics.PredictiveInsights(r.Context())})
	return nil
}

func (rt *Router) handleRealTimeMetrics(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Analytics == nil {
		return errNotConfigured("analytics")
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics": rt.deps.Analytics.RealTimeMetrics(r.Context())})
	return nil
}

func (rt *Router) handleSystemHealth(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Analytics == nil {
		return errNotConfigured("analytics")
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": rt.deps.Analytics.SystemHealth(r.Context())})
	return nil
}
