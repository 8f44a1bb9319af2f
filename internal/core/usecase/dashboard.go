package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/core/ports"
)

const (
	summaryCacheKey = "dashboard:summary"
	summaryCacheTTL = 30 * time.Second
)

// JobCounter is the read side of the job queue the dashboard reports on.
type JobCounter interface {
	GetJobCounts() domain.JobCounts
}

type DashboardService struct {
	users    ports.UserRepository
	analyses ports.AnalysisRepository
	feedback ports.FeedbackRepository
	queue    JobCounter
	cache    ports.CacheClient
	events   ports.EventPublisher
	now      func() time.Time
}

func NewDashboardService(
	users ports.UserRepository,
	analyses ports.AnalysisRepository,
	feedback ports.FeedbackRepository,
	queue JobCounter,
	cache ports.CacheClient,
	events ports.EventPublisher,
) *DashboardService {
	return &DashboardService{
		users:    users,
		analyses: analyses,
		feedback: feedback,
		queue:    queue,
		cache:    cache,
		events:   events,
		now:      time.Now,
	}
}

func (s *DashboardService) Summary(ctx context.Context) (domain.DashboardSummary, error) {
	if cached, ok := s.cachedSummary(ctx); ok {
		return cached, nil
	}

	userCount, err := s.users.Count(ctx)
	if err != nil {
		return domain.DashboardSummary{}, fmt.Errorf("count users: %w", err)
	}
	stats, err := s.analyses.Stats(ctx)
	if err != nil {
		return domain.DashboardSummary{}, fmt.Errorf("analysis stats: %w", err)
	}
	counts := s.jobCounts()

	summary := domain.DashboardSummary{
		Users:           userCount,
		Documents:       stats.Count,
		ProcessingQueue: counts.Waiting + counts.Active,
		Accuracy:        domain.ClampConfidence(stats.AverageConfidence),
	}
	s.storeSummary(ctx, summary)
	return summary, nil
}

func (s *DashboardService) ChartsData(context.Context) (domain.ChartsData, error) {
	counts := s.jobCounts()
	return domain.ChartsData{
		Labels: []string{
			string(domain.JobWaiting),
			string(domain.JobActive),
			string(domain.JobCompleted),
			string(domain.JobFailed),
			string(domain.JobDelayed),
		},
		Series: []int{counts.Waiting, counts.Active, counts.Completed, counts.Failed, counts.Delayed},
	}, nil
}

func (s *DashboardService) AISuggestions(context.Context) []domain.Suggestion {
	return []domain.Suggestion{}
}

func (s *DashboardService) AITrainingStats(ctx context.Context) (domain.TrainingStats, error) {
	count, err := s.feedback.Count(ctx)
	if err != nil {
		return domain.TrainingStats{}, fmt.Errorf("count feedback: %w", err)
	}
	return domain.TrainingStats{FeedbackCount: count}, nil
}

func (s *DashboardService) SubmitFeedback(ctx context.Context, feedback domain.Feedback) error {
	if strings.TrimSpace(feedback.AnalysisID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "submit feedback", errors.New("analysis_id is required"))
	}
	if feedback.Rating < 1 || feedback.Rating > 5 {
		return domain.NewError(domain.ErrInvalidInput, "submit feedback", fmt.Sprintf("rating %d outside 1..5", feedback.Rating))
	}
	feedback.ID = uuid.NewString()
	feedback.CreatedAt = s.now().UTC()

	if err := s.feedback.Create(ctx, &feedback); err != nil {
		return fmt.Errorf("store feedback: %w", err)
	}
	publishEvent(ctx, s.events, domain.EventAnalyticsUpdate, map[string]any{
		"feedbackId": feedback.ID,
		"analysisId": feedback.AnalysisID,
		"rating":     feedback.Rating,
	})
	return nil
}

// PerformanceMetrics reports runtime figures; cpu is the number of
// schedulable CPUs.
func (s *DashboardService) PerformanceMetrics(context.Context) domain.PerformanceMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return domain.PerformanceMetrics{
		CPU:        float64(runtime.GOMAXPROCS(0)),
		Memory:     mem.Alloc,
		Goroutines: runtime.NumGoroutine(),
	}
}

func (s *DashboardService) Trends(context.Context) []domain.Trend {
	return []domain.Trend{}
}

func (s *DashboardService) jobCounts() domain.JobCounts {
	if s.queue == nil {
		return domain.JobCounts{}
	}
	return s.queue.GetJobCounts()
}

func (s *DashboardService) cachedSummary(ctx context.Context) (domain.DashboardSummary, bool) {
	if s.cache == nil {
		return domain.DashboardSummary{}, false
	}
	raw, ok, err := s.cache.Get(ctx, summaryCacheKey)
	if err != nil {
		slog.Warn("dashboard_cache_read_failed", "error", err)
		return domain.DashboardSummary{}, false
	}
	if !ok {
		return domain.DashboardSummary{}, false
	}
	var summary domain.DashboardSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return domain.DashboardSummary{}, false
	}
	return summary, true
}

func (s *DashboardService) storeSummary(ctx context.Context, summary domain.DashboardSummary) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, summaryCacheKey, string(raw), summaryCacheTTL); err != nil {
		slog.Warn("dashboard_cache_write_failed", "error", err)
	}
}
