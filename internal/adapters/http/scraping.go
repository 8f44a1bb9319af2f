package httpadapter

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

func (rt *Router) handleStartScrape(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Scraping == nil {
		return errNotConfigured("scraping")
	}
	var req startScrapeRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	createdBy := ""
	if claims, ok := claimsFromContext(r.Context()); ok {
		createdBy = claims.ID
	}
	rec, err := rt.deps.Scraping.Start(r.Context(), domain.StartScrapeCommand{
		URL:       req.URL,
		SourceID:  req.SourceID,
		Depth:     req.Depth,
		CreatedBy: createdBy,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"jobId":  rec.ID,
		"status": rec.Status,
	})
	return nil
}

// GET /api/scraping/status?status=&page=&limit=
func (rt *Router) handleScrapeStatusList(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Scraping == nil {
		return errNotConfigured("scraping")
	}
	q := r.URL.Query()
	page, err := optionalInt(q.Get("page"), "page")
	if err != nil {
		return err
	}
	limit, err := optionalInt(q.Get("limit"), "limit")
	if err != nil {
		return err
	}
	result, err := rt.deps.Scraping.List(r.Context(), domain.ScrapeJobFilter{
		Status: domain.ScrapeStatus(strings.TrimSpace(q.Get("status"))),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, result)
	return nil
}

func (rt *Router) handleScrapeStatus(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Scraping == nil {
		return errNotConfigured("scraping")
	}
	rec, err := rt.deps.Scraping.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, rec)
	return nil
}

func (rt *Router) handleQueueCounts(w http.ResponseWriter, _ *http.Request) error {
	if rt.deps.Scraping == nil {
		return errNotConfigured("scraping")
	}
	counts := rt.deps.Scraping.QueueCounts()
	writeJSON(w, http.StatusOK, map[string]any{"counts": counts, "total": counts.Total()})
	return nil
}

func (rt *Router) handleCleanQueue(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Scraping == nil {
		return errNotConfigured("scraping")
	}
	var req cleanQueueRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	state := domain.JobState(req.State)
	if state == "" {
		state = domain.JobCompleted
	}
	removed, err := rt.deps.Scraping.CleanQueue(time.Duration(req.GraceSeconds)*time.Second, state)
	if err != nil {
		return err
	}
	if removed == nil {
		removed = []int64{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed, "count": len(removed)})
	return nil
}

func (rt *Router) handleProxyStatus(w http.ResponseWriter, _ *http.Request) error {
	proxies := []domain.ProxyState{}
	if rt.deps.Proxies != nil {
		if status := rt.deps.Proxies.Status(); status != nil {
			proxies = status
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"proxies": proxies, "total": len(proxies)})
	return nil
}

// GET /api/reports/scraping/export?format=csv|xlsx
// The report is buffered so a failure can still be answered with JSON.
func (rt *Router) handleExportScrapeJobs(w http.ResponseWriter, r *http.Request) error {
	if rt.deps.Reports == nil {
		return errNotConfigured("reports")
	}
	var buf bytes.Buffer
	contentType, ext, err := rt.deps.Reports.ExportScrapeJobs(r.Context(), r.URL.Query().Get("format"), &buf)
	if err != nil {
		return err
	}
	filename := fmt.Sprintf("scrape-jobs-%s.%s", time.Now().UTC().Format("20060102-150405"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
	return nil
}
