package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/legal-dashboard/internal/config"
	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

func decodeBody(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode response %q: %v", body, err)
	}
	return out
}

func TestSystemHealthIsOKForAnyInput(t *testing.T) {
	handler := newTestHandler(config.Config{}, testDeps())

	for _, body := range []string{"", "{", `{"status":"down"}`, "\x00\x01"} {
		res := doRequest(handler, http.MethodGet, "/api/analytics/system-health?x=%zz", "", body)
		if res.Code != http.StatusOK {
			t.Fatalf("expected 200 for body %q, got %d", body, res.Code)
		}
		if got := decodeBody(t, res.Body.Bytes()); got["status"] != "ok" {
			t.Fatalf("expected status ok, got %v", got)
		}
	}
}

func TestPublicAnalyticsShapes(t *testing.T) {
	handler := newTestHandler(config.Config{}, testDeps())

	insights := decodeBody(t, doRequest(handler, http.MethodGet, "/api/analytics/predictive-insights", "", "").Body.Bytes())
	if list, ok := insights["insights"].([]any); !ok || len(list) != 0 {
		t.Fatalf("expected empty insights list, got %v", insights)
	}

	for _, path := range []string{"/api/analytics/realtime-metrics", "/api/analytics/real-time-metrics"} {
		got := decodeBody(t, doRequest(handler, http.MethodGet, path, "", "").Body.Bytes())
		metrics, ok := got["metrics"].(map[string]any)
		if !ok {
			t.Fatalf("expected metrics object at %s, got %v", path, got)
		}
		if uptime, ok := metrics["uptime"].(float64); !ok || uptime < 0 {
			t.Fatalf("expected non-negative numeric uptime, got %v", metrics["uptime"])
		}
	}
}

func TestEnhancedAnalyticsRequiresAuth(t *testing.T) {
	handler := newTestHandler(config.Config{}, testDeps())

	if res := doRequest(handler, http.MethodGet, "/api/enhanced-analytics/system-health", "", ""); res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", res.Code)
	}
	if res := doRequest(handler, http.MethodGet, "/api/enhanced-analytics/system-health", "forged", ""); res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", res.Code)
	}
	if res := doRequest(handler, http.MethodGet, "/api/enhanced-analytics/system-health", "user-token", ""); res.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", res.Code)
	}
}

func TestAdminRoutesRejectPlainUsers(t *testing.T) {
	handler := newTestHandler(config.Config{}, testDeps())

	for _, path := range []string{"/api/auth/users", "/api/proxy/status"} {
		if res := doRequest(handler, http.MethodGet, path, "user-token", ""); res.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for %s, got %d", path, res.Code)
		}
		if res := doRequest(handler, http.MethodGet, path, "admin-token", ""); res.Code != http.StatusOK {
			t.Fatalf("expected 200 for admin on %s, got %d", path, res.Code)
		}
	}
	if res := doRequest(handler, http.MethodPost, "/api/scraping/clean", "user-token", `{}`); res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for clean, got %d", res.Code)
	}
}

func TestStartScrapeReturns201WithJobID(t *testing.T) {
	deps := testDeps()
	scraping := deps.Scraping.(*scrapingFake)
	handler := newTestHandler(config.Config{}, deps)

	res := doRequest(handler, http.MethodPost, "/api/scraping/start", "user-token", `{"url":"https://court.example/r/1","sourceId":"court","depth":2}`)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if got := decodeBody(t, res.Body.Bytes()); got["jobId"] != "job-1" {
		t.Fatalf("expected jobId in response, got %v", got)
	}
	if len(scraping.started) != 1 || scraping.started[0].CreatedBy != "u-1" || scraping.started[0].Depth != 2 {
		t.Fatalf("unexpected start command %+v", scraping.started)
	}
}

func TestStartScrapeValidatesBody(t *testing.T) {
	handler := newTestHandler(config.Config{}, testDeps())

	res := doRequest(handler, http.MethodPost, "/api/scraping/start", "user-token", `{"url":"not a url","depth":9}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	fields, ok := decodeBody(t, res.Body.Bytes())["fields"].(map[string]any)
	if !ok {
		t.Fatalf("expected field errors in %s", res.Body.String())
	}
	for _, f := range []string{"url", "sourceId", "depth"} {
		if _, ok := fields[f]; !ok {
			t.Fatalf("expected error for %s, got %v", f, fields)
		}
	}

	if res := doRequest(handler, http.MethodPost, "/api/scraping/start", "user-token", `{"url":`); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid json, got %d", res.Code)
	}
}

func TestScrapeStatusMapsNotFound(t *testing.T) {
	deps := testDeps()
	deps.Scraping.(*scrapingFake).getErr = domain.NewError(domain.ErrNotFound, "get scrape job", "missing")
	handler := newTestHandler(config.Config{}, deps)

	res := doRequest(handler, http.MethodGet, "/api/scraping/status/missing", "user-token", "")
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestScrapeStatusListPassesQuery(t *testing.T) {
	deps := testDeps()
	scraping := deps.Scraping.(*scrapingFake)
	handler := newTestHandler(config.Config{}, deps)

	res := doRequest(handler, http.MethodGet, "/api/scraping/status?status=failed&page=2&limit=5", "user-token", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if scraping.lastList.Status != domain.ScrapeFailed || scraping.lastList.Page != 2 || scraping.lastList.Limit != 5 {
		t.Fatalf("unexpected filter %+v", scraping.lastList)
	}
	if res := doRequest(handler, http.MethodGet, "/api/scraping/status?page=two", "user-token", ""); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad page, got %d", res.Code)
	}
}

func TestCleanQueueDefaultsToCompleted(t *testing.T) {
	deps := testDeps()
	scraping := deps.Scraping.(*scrapingFake)
	handler := newTestHandler(config.Config{}, deps)

	res := doRequest(handler, http.MethodPost, "/api/scraping/clean", "admin-token", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if len(scraping.cleaned) != 1 || scraping.cleaned[0] != domain.JobCompleted {
		t.Fatalf("expected completed clean, got %v", scraping.cleaned)
	}
	if got := decodeBody(t, res.Body.Bytes()); got["count"] != float64(0) {
		t.Fatalf("unexpected clean response %v", got)
	}
}

func TestCleanQueueBoundsGraceSeconds(t *testing.T) {
	deps := testDeps()
	scraping := deps.Scraping.(*scrapingFake)
	handler := newTestHandler(config.Config{}, deps)

	res := doRequest(handler, http.MethodPost, "/api/scraping/clean", "admin-token", `{"graceSeconds":9300000000}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized grace, got %d: %s", res.Code, res.Body.String())
	}
	fields, _ := decodeBody(t, res.Body.Bytes())["fields"].(map[string]any)
	if fields["graceSeconds"] == nil {
		t.Fatalf("expected graceSeconds field error, got %s", res.Body.String())
	}
	if len(scraping.graces) != 0 {
		t.Fatalf("expected no clean call, got %v", scraping.graces)
	}

	res = doRequest(handler, http.MethodPost, "/api/scraping/clean", "admin-token", `{"graceSeconds":31536000,"state":"failed"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 at the bound, got %d: %s", res.Code, res.Body.String())
	}
	if len(scraping.graces) != 1 || scraping.graces[0] != 365*24*time.Hour {
		t.Fatalf("expected one year grace, got %v", scraping.graces)
	}
}

func TestAIFeedbackReturns204AndStampsUser(t *testing.T) {
	deps := testDeps()
	dashboard := deps.Dashboard.(*dashboardFake)
	handler := newTestHandler(config.Config{}, deps)

	res := doRequest(handler, http.MethodPost, "/api/dashboard/ai-feedback", "user-token", `{"analysisId":"a-1","rating":4}`)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", res.Code, res.Body.String())
	}
	if len(dashboard.feedback) != 1 || dashboard.feedback[0].UserID != "u-1" {
		t.Fatalf("expected feedback with user id, got %+v", dashboard.feedback)
	}

	if res := doRequest(handler, http.MethodPost, "/api/dashboard/ai-feedback", "user-token", `{"analysisId":"a-1","rating":9}`); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out of range rating, got %d", res.Code)
	}
}

func TestDashboardRoutes(t *testing.T) {
	handler := newTestHandler(config.Config{}, testDeps())

	cases := map[string]string{
		"/api/dashboard/summary":             "users",
		"/api/dashboard/charts-data":         "labels",
		"/api/dashboard/ai-suggestions":      "suggestions",
		"/api/dashboard/ai-training-stats":   "feedbackCount",
		"/api/dashboard/performance-metrics": "goroutines",
		"/api/dashboard/trends":              "trends",
	}
	for path, key := range cases {
		res := doRequest(handler, http.MethodGet, path, "user-token", "")
		if res.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, res.Code)
		}
		if _, ok := decodeBody(t, res.Body.Bytes())[key]; !ok {
			t.Fatalf("expected key %q in %s response: %s", key, path, res.Body.String())
		}
	}
}

func TestAuthRoutes(t *testing.T) {
	handler := newTestHandler(config.Config{}, testDeps())

	res := doRequest(handler, http.MethodPost, "/api/auth/register", "", `{"email":"jane@firm.example","password":"long-enough"}`)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if res := doRequest(handler, http.MethodPost, "/api/auth/register", "", `{"email":"nope","password":"short"}`); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid register, got %d", res.Code)
	}
	if res := doRequest(handler, http.MethodPost, "/api/auth/login", "", `{"email":"a@b.c","password":"wrong"}`); res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad login, got %d", res.Code)
	}
	me := doRequest(handler, http.MethodGet, "/api/auth/me", "user-token", "")
	user, ok := decodeBody(t, me.Body.Bytes())["user"].(map[string]any)
	if me.Code != http.StatusOK || !ok || user["id"] != "u-1" {
		t.Fatalf("unexpected me response %d %s", me.Code, me.Body.String())
	}
}

func TestAnalyzeMapsErrors(t *testing.T) {
	deps := testDeps()
	deps.Analysis = analysisFake{err: errors.New("db exploded: password=hunter2")}
	handler := newTestHandler(config.Config{}, deps)

	res := doRequest(handler, http.MethodPost, "/api/ai/analyze", "user-token", `{"text":"contract"}`)
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	if strings.Contains(res.Body.String(), "hunter2") {
		t.Fatalf("internal error details leaked: %s", res.Body.String())
	}

	if res := doRequest(handler, http.MethodPost, "/api/ai/analyze", "user-token", `{"text":"x","type":"poetry"}`); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown analysis type, got %d", res.Code)
	}
}

func TestReadinessReturns503WhenComponentDown(t *testing.T) {
	deps := testDeps()
	deps.Analytics = analyticsFake{services: []domain.ServiceHealth{
		{Name: "postgres", Status: domain.HealthOK},
		{Name: "nats", Status: domain.HealthDown},
	}}
	handler := newTestHandler(config.Config{}, deps)

	res := doRequest(handler, http.MethodGet, "/health/ready", "", "")
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
	if got := decodeBody(t, res.Body.Bytes()); got["status"] != "down" {
		t.Fatalf("expected overall down, got %v", got)
	}

	if res := doRequest(handler, http.MethodGet, "/health", "", ""); res.Code != http.StatusOK {
		t.Fatalf("expected liveness 200, got %d", res.Code)
	}
}

func TestWebSocketEventsInfoOnBothPrefixes(t *testing.T) {
	handler := newTestHandler(config.Config{}, testDeps())

	for _, path := range []string{"/api/ws/events", "/api/websocket/events"} {
		res := doRequest(handler, http.MethodGet, path, "", "")
		if res.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, res.Code)
		}
		got := decodeBody(t, res.Body.Bytes())
		events, _ := got["events"].([]any)
		if len(events) != 10 {
			t.Fatalf("expected 10 event types, got %v", got["events"])
		}
		conns, _ := got["connections"].(map[string]any)
		if conns["total"] != float64(3) {
			t.Fatalf("expected 3 connections, got %v", got["connections"])
		}
	}
}

func TestExportSetsAttachmentHeaders(t *testing.T) {
	handler := newTestHandler(config.Config{}, testDeps())

	res := doRequest(handler, http.MethodGet, "/api/reports/scraping/export?format=csv", "user-token", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.HasPrefix(res.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("unexpected content type %q", res.Header().Get("Content-Type"))
	}
	if !strings.Contains(res.Header().Get("Content-Disposition"), ".csv") {
		t.Fatalf("unexpected disposition %q", res.Header().Get("Content-Disposition"))
	}

	deps := testDeps()
	deps.Reports = reportsFake{err: domain.NewError(domain.ErrInvalidInput, "export", "unsupported format pdf")}
	handler = newTestHandler(config.Config{}, deps)
	if res := doRequest(handler, http.MethodGet, "/api/reports/scraping/export?format=pdf", "user-token", ""); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported format, got %d", res.Code)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	handler := newTestHandler(config.Config{}, testDeps())

	req := doRequest(handler, http.MethodGet, "/health", "", "")
	if req.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id header")
	}
}
