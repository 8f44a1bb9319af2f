package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

// AnalyticsReader backs the analytics and enhanced analytics routes.
type AnalyticsReader interface {
	PredictiveInsights(ctx context.Context) []domain.Insight
	RealTimeMetrics(ctx context.Context) domain.RealTimeMetrics
	SystemHealth(ctx context.Context) domain.HealthStatus
	Readiness(ctx context.Context) []domain.ServiceHealth
}

type DashboardReader interface {
	Summary(ctx context.Context) (domain.DashboardSummary, error)
	ChartsData(ctx context.Context) (domain.ChartsData, error)
	AISuggestions(ctx context.Context) []domain.Suggestion
	AITrainingStats(ctx context.Context) (domain.TrainingStats, error)
	SubmitFeedback(ctx context.Context, feedback domain.Feedback) error
	PerformanceMetrics(ctx context.Context) domain.PerformanceMetrics
	Trends(ctx context.Context) []domain.Trend
}

type ScrapingManager interface {
	Start(ctx context.Context, cmd domain.StartScrapeCommand) (*domain.ScrapeJobRecord, error)
	List(ctx context.Context, filter domain.ScrapeJobFilter) (domain.ScrapeJobPage, error)
	Get(ctx context.Context, id string) (*domain.ScrapeJobRecord, error)
	QueueCounts() domain.JobCounts
	CleanQueue(grace time.Duration, state domain.JobState) ([]int64, error)
}

// ScrapeProcessor runs one scrape end to end.
type ScrapeProcessor interface {
	Process(ctx context.Context, recordID string, queueJobID int64) error
}

type Authenticator interface {
	Register(ctx context.Context, cmd domain.RegisterCommand) (*domain.AuthSession, error)
	Login(ctx context.Context, cmd domain.LoginCommand) (*domain.AuthSession, error)
	Verify(ctx context.Context, token string) (domain.AuthClaims, error)
	Me(ctx context.Context, userID string) (domain.AuthUser, error)
	ListUsers(ctx context.Context) ([]domain.AuthUser, error)
}

type TextAnalysisService interface {
	Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.AiAnalysis, error)
	List(ctx context.Context, documentID string, limit int) ([]domain.AiAnalysis, error)
}

type EventStats interface {
	Stats() domain.ConnectionStats
}

type ProxyStatusReader interface {
	Status() []domain.ProxyState
}

// ReportExporter writes scrape jobs in the requested format and returns the
// content type and file extension used.
type ReportExporter interface {
	ExportScrapeJobs(ctx context.Context, format string, w io.Writer) (string, string, error)
}
