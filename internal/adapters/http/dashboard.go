package httpadapter

import (
	"net/http"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

func (rt *Router) handleSummary(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Dashboard == nil {
		return errNotConfigured("dashboard")
	}
	summary, err := rt.deps.Dashboard.Summary(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, summary)
	return nil
}

func (rt *Router) handleChartsData(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Dashboard == nil {
		return errNotConfigured("dashboard")
	}
	charts, err := rt.deps.Dashboard.ChartsData(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, charts)
	return nil
}

func (rt *Router) handleAISuggestions(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Dashboard == nil {
		return errNotConfigured("dashboard")
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": rt.deps.Dashboard.AISuggestions(r.Context())})
	return nil
}

func (rt *Router) handleAITrainingStats(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Dashboard == nil {
		return errNotConfigured("dashboard")
	}
	stats, err := rt.deps.Dashboard.AITrainingStats(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, stats)
	return nil
}

func (rt *Router) handleAIFeedback(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Dashboard == nil {
		return errNotConfigured("dashboard")
	}
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	claims, _ := claimsFromContext(r.Context())
	err := rt.deps.Dashboard.SubmitFeedback(r.Context(), domain.Feedback{
		AnalysisID: req.AnalysisID,
		UserID:     claims.ID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (rt *Router) handlePerformanceMetrics(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Dashboard == nil {
		return errNotConfigured("dashboard")
	}
	writeJSON(w, http.StatusOK, rt.deps.Dashboard.PerformanceMetrics(r.Context()))
	return nil
}

func (rt *Router) handleTrends(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Dashboard == nil {
		return errNotConfigured("dashboard")
	}
	writeJSON(w, http.StatusOK, map[string]any{"trends": rt.deps.Dashboard.Trends(r.Context())})
	return nil
}
