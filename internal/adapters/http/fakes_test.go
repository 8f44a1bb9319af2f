package httpadapter

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/kirillkom/legal-dashboard/internal/config"
	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

type analyticsFake struct {
	services []domain.ServiceHealth
}

func (analyticsFake) PredictiveInsights(context.Context) []domain.Insight { return []domain.Insight{} }

func (analyticsFake) RealTimeMetrics(context.Context) domain.RealTimeMetrics {
	return domain.RealTimeMetrics{Uptime: 12.5}
}

func (analyticsFake) SystemHealth(context.Context) domain.HealthStatus { return domain.HealthOK }

func (f analyticsFake) Readiness(context.Context) []domain.ServiceHealth { return f.services }

type dashboardFake struct {
	feedback    []domain.Feedback
	feedbackErr error
}

func (dashboardFake) Summary(context.Context) (domain.DashboardSummary, error) {
	return domain.DashboardSummary{Users: 3, Documents: 7}, nil
}

func (dashboardFake) ChartsData(context.Context) (domain.ChartsData, error) {
	return domain.ChartsData{Labels: []string{"waiting"}, Series: []int{1}}, nil
}

func (dashboardFake) AISuggestions(context.Context) []domain.Suggestion { return []domain.Suggestion{} }

func (dashboardFake) AITrainingStats(context.Context) (domain.TrainingStats, error) {
	return domain.TrainingStats{FeedbackCount: 2}, nil
}

func (f *dashboardFake) SubmitFeedback(_ context.Context, fb domain.Feedback) error {
	if f.feedbackErr != nil {
		return f.feedbackErr
	}
	f.feedback = append(f.feedback, fb)
	return nil
}

func (dashboardFake) PerformanceMetrics(context.Context) domain.PerformanceMetrics {
	return domain.PerformanceMetrics{Goroutines: 4}
}

func (dashboardFake) Trends(context.Context) []domain.Trend { return []domain.Trend{} }

type scrapingFake struct {
	started  []domain.StartScrapeCommand
	startErr error
	getErr   error
	lastList domain.ScrapeJobFilter
	cleaned  []domain.JobState
	graces   []time.Duration
}

func (f *scrapingFake) Start(_ context.Context, cmd domain.StartScrapeCommand) (*domain.ScrapeJobRecord, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, cmd)
	return &domain.ScrapeJobRecord{ID: "job-1", URL: cmd.URL, Status: domain.ScrapePending}, nil
}

func (f *scrapingFake) List(_ context.Context, filter domain.ScrapeJobFilter) (domain.ScrapeJobPage, error) {
	f.lastList = filter
	return domain.ScrapeJobPage{Items: []domain.ScrapeJobRecord{}, Page: 1}, nil
}

func (f *scrapingFake) Get(_ context.Context, id string) (*domain.ScrapeJobRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &domain.ScrapeJobRecord{ID: id, Status: domain.ScrapeRunning, Progress: 50}, nil
}

func (f *scrapingFake) QueueCounts() domain.JobCounts {
	return domain.JobCounts{Waiting: 2, Completed: 1}
}

func (f *scrapingFake) CleanQueue(grace time.Duration, state domain.JobState) ([]int64, error) {
	f.cleaned = append(f.cleaned, state)
	f.graces = append(f.graces, grace)
	return nil, nil
}

// authFake accepts "user-token" and "admin-token".
type authFake struct{}

func (authFake) Register(_ context.Context, cmd domain.RegisterCommand) (*domain.AuthSession, error) {
	return &domain.AuthSession{AccessToken: "user-token", User: domain.AuthUser{ID: "u-1", Email: cmd.Email, Role: domain.RoleUser}}, nil
}

func (authFake) Login(_ context.Context, cmd domain.LoginCommand) (*domain.AuthSession, error) {
	if cmd.Password != "secret-password" {
		return nil, domain.NewError(domain.ErrUnauthorized, "login", "invalid credentials")
	}
	return &domain.AuthSession{AccessToken: "user-token"}, nil
}

func (authFake) Verify(_ context.Context, token string) (domain.AuthClaims, error) {
	switch token {
	case "user-token":
		return domain.AuthClaims{ID: "u-1", Sub: "u-1", Role: domain.RoleUser}, nil
	case "admin-token":
		return domain.AuthClaims{ID: "admin", Sub: "admin", Role: domain.RoleAdmin}, nil
	}
	return domain.AuthClaims{}, domain.NewError(domain.ErrUnauthorized, "verify", "bad token")
}

func (authFake) Me(_ context.Context, id string) (domain.AuthUser, error) {
	return domain.AuthUser{ID: id, Email: id + "@firm.example"}, nil
}

func (authFake) ListUsers(context.Context) ([]domain.AuthUser, error) {
	return []domain.AuthUser{{ID: "u-1"}, {ID: "admin"}}, nil
}

type analysisFake struct {
	err error
}

func (f analysisFake) Analyze(_ context.Context, req domain.AnalyzeRequest) (*domain.AiAnalysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.AiAnalysis{ID: "a-1", DocumentID: req.DocumentID, Type: req.Type, Confidence: 0.5}, nil
}

func (f analysisFake) List(context.Context, string, int) ([]domain.AiAnalysis, error) {
	return nil, f.err
}

type statsFake struct{ total int }

func (f statsFake) Stats() domain.ConnectionStats { return domain.ConnectionStats{Total: f.total} }

type reportsFake struct {
	err error
}

func (f reportsFake) ExportScrapeJobs(_ context.Context, format string, w io.Writer) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	_, _ = io.WriteString(w, "id,url\njob-1,https://court.example\n")
	return "text/csv; charset=utf-8", "csv", nil
}

func testDeps() Deps {
	return Deps{
		Analytics: analyticsFake{services: []domain.ServiceHealth{{Name: "postgres", Status: domain.HealthOK}}},
		Dashboard: &dashboardFake{},
		Scraping:  &scrapingFake{},
		Auth:      authFake{},
		Analysis:  analysisFake{},
		Events:    statsFake{total: 3},
		Reports:   reportsFake{},
	}
}

func newTestHandler(cfg config.Config, deps Deps) http.Handler {
	return NewRouter(cfg, deps).Handler()
}

func doRequest(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}
