package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/core/ports"
)

const healthCheckTimeout = 3 * time.Second

// AnalyticsService answers the analytics endpoints. None of its reads can
// fail.
type AnalyticsService struct {
	startedAt time.Time
	now       func() time.Time
	events    ports.EventPublisher
	checkers  []ports.HealthChecker
}

// NewAnalyticsService measures uptime from startedAt using now; a nil now
// uses the wall clock.
func NewAnalyticsService(
	startedAt time.Time,
	now func() time.Time,
	events ports.EventPublisher,
	checkers ...ports.HealthChecker,
) *AnalyticsService {
	if now == nil {
		now = time.Now
	}
	live := make([]ports.HealthChecker, 0, len(checkers))
	for _, c := range checkers {
		if c != nil {
			live = append(live, c)
		}
	}
	return &AnalyticsService{
		startedAt: startedAt,
		now:       now,
		events:    events,
		checkers:  live,
	}
}

func (s *AnalyticsService) PredictiveInsights(context.Context) []domain.Insight {
	return []domain.Insight{}
}

func (s *AnalyticsService) RealTimeMetrics(context.Context) domain.RealTimeMetrics {
	uptime := s.now().Sub(s.startedAt).Seconds()
	return domain.RealTimeMetrics{Uptime: max(uptime, 0)}
}

func (s *AnalyticsService) SystemHealth(context.Context) domain.HealthStatus {
	return domain.HealthOK
}

// Readiness checks every dependency concurrently and broadcasts the result.
func (s *AnalyticsService) Readiness(ctx context.Context) []domain.ServiceHealth {
	out := make([]domain.ServiceHealth, len(s.checkers))
	var wg sync.WaitGroup
	for i, checker := range s.checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
			defer cancel()
			health := checker.Check(checkCtx)
			if health.Name == "" {
				health.Name = checker.Name()
			}
			out[i] = health
		}()
	}
	wg.Wait()

	publishEvent(ctx, s.events, domain.EventSystemHealth, map[string]any{
		"status":   string(domain.Overall(out)),
		"services": out,
	})
	return out
}
