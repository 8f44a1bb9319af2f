package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

func TestMiddlewareCountsRequestsWithNormalizedPath(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	for _, path := range []string{"/api/scraping/status/a", "/api/scraping/status/b"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodGet, "/api/scraping/status/{id}", "404"))
	if got != 2 {
		t.Fatalf("expected 2 requests on normalized path, got %v", got)
	}
}

func TestSetQueueCounts(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.SetQueueCounts(domain.JobCounts{Waiting: 3, Failed: 1})

	if got := testutil.ToFloat64(m.queueJobs.WithLabelValues("waiting")); got != 3 {
		t.Fatalf("expected waiting=3, got %v", got)
	}
	if got := testutil.ToFloat64(m.queueJobs.WithLabelValues("failed")); got != 1 {
		t.Fatalf("expected failed=1, got %v", got)
	}
}

func TestDomainCounters(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.RecordCacheOp("memory", "get", "hit")
	m.RecordAnalysis("sentiment", nil)
	m.RecordAnalysis("sentiment", errors.New("boom"))
	m.WebSocketConnections().Set(4)

	if got := testutil.ToFloat64(m.cacheOpsTotal.WithLabelValues("api", "memory", "get", "hit")); got != 1 {
		t.Fatalf("expected one cache hit, got %v", got)
	}
	if got := testutil.ToFloat64(m.analysesTotal.WithLabelValues("api", "sentiment", "error")); got != 1 {
		t.Fatalf("expected one failed analysis, got %v", got)
	}
	if got := testutil.ToFloat64(m.wsConnections); got != 4 {
		t.Fatalf("expected 4 connections, got %v", got)
	}
}

func TestHandlerServesWorkerCollectorsWhenRegistered(t *testing.T) {
	api := NewHTTPServerMetrics("api")
	worker := NewWorkerMetrics("api")
	api.MustRegister(worker.Collectors()...)

	worker.StartScrape()
	worker.FinishScrape(50*time.Millisecond, nil)
	worker.RecordCleaned("completed", 2)

	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := res.Body.String()
	if !strings.Contains(body, "legal_dashboard_worker_scrape_process_total") {
		t.Fatalf("expected worker series in api registry output")
	}
	if !strings.Contains(body, "legal_dashboard_worker_queue_cleaned_total") {
		t.Fatalf("expected cleaned series in api registry output")
	}
}
