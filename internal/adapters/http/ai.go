package httpadapter

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

func (rt *Router) handleAnalyze(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Analysis == nil {
		return errNotConfigured("analysis")
	}
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	analysis, err := rt.deps.Analysis.Analyze(r.Context(), domain.AnalyzeRequest{
		DocumentID: req.DocumentID,
		Text:       req.Text,
		Type:       domain.AnalysisType(req.Type),
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, analysis)
	return nil
}

// GET /api/ai/analyses?document_id=&limit=
func (rt *Router) handleListAnalyses(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Analysis == nil {
		return errNotConfigured("analysis")
	}
	q := r.URL.Query()
	limit, err := optionalInt(q.Get("limit"), "limit")
	if err != nil {
		return err
	}
	items, err := rt.deps.Analysis.List(r.Context(), strings.TrimSpace(q.Get("document_id")), limit)
	if err != nil {
		return err
	}
	if items == nil {
		items = []domain.AiAnalysis{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
	return nil
}

func optionalInt(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewError(domain.ErrInvalidInput, "parse query", name+" must be an integer")
	}
	return n, nil
}
