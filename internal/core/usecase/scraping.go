package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/core/ports"
)

const (
	defaultScrapePageSize = 20
	maxScrapePageSize     = 100
	maxScrapeDepth        = 5
)

type ScrapingService struct {
	repo       ports.ScrapeJobRepository
	dispatcher ports.ScrapeDispatcher
	queue      ports.JobQueue
	events     ports.EventPublisher
	metrics    ScrapeMetrics
	now        func() time.Time
}

func NewScrapingService(
	repo ports.ScrapeJobRepository,
	dispatcher ports.ScrapeDispatcher,
	queue ports.JobQueue,
	events ports.EventPublisher,
	metrics ScrapeMetrics,
) *ScrapingService {
	return &ScrapingService{
		repo:       repo,
		dispatcher: dispatcher,
		queue:      queue,
		events:     events,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Start records a pending job and hands it to the dispatcher. The queue job id
// is returned on the record but persisted by the processor, which owns every
// write after dispatch.
func (s *ScrapingService) Start(ctx context.Context, cmd domain.StartScrapeCommand) (*domain.ScrapeJobRecord, error) {
	target, err := normalizeScrapeURL(cmd.URL)
	if err != nil {
		return nil, err
	}
	sourceID := strings.TrimSpace(cmd.SourceID)
	if sourceID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "start scrape", errors.New("sourceId is required"))
	}
	depth := cmd.Depth
	if depth <= 0 {
		depth = 1
	}
	if depth > maxScrapeDepth {
		return nil, domain.NewError(domain.ErrInvalidInput, "start scrape", fmt.Sprintf("depth must be at most %d", maxScrapeDepth))
	}
	createdBy := cmd.CreatedBy
	if createdBy == "" {
		createdBy = "system"
	}

	rec := &domain.ScrapeJobRecord{
		ID:        uuid.NewString(),
		URL:       target,
		SourceID:  sourceID,
		Depth:     depth,
		Status:    domain.ScrapePending,
		CreatedBy: createdBy,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create scrape job: %w", err)
	}

	queueJobID, err := s.dispatcher.Dispatch(ctx, rec)
	if err != nil {
		slog.Error("scrape_dispatch_failed", "job_id", rec.ID, "error", err)
		// No worker will ever see the record, so it must not stay pending.
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if delErr := s.repo.Delete(writeCtx, rec.ID); delErr != nil {
			slog.Error("scrape_job_rollback_failed", "job_id", rec.ID, "error", delErr)
			return nil, fmt.Errorf("dispatch scrape job: %w; remove record: %v", err, delErr)
		}
		return nil, fmt.Errorf("dispatch scrape job: %w", err)
	}
	rec.QueueJobID = queueJobID

	if s.metrics != nil {
		s.metrics.RecordScrapeStarted(dispatchMode(s.dispatcher))
	}
	publishEvent(ctx, s.events, domain.EventScrapingUpdate, scrapeEventData(rec))
	return rec, nil
}

func (s *ScrapingService) List(ctx context.Context, filter domain.ScrapeJobFilter) (domain.ScrapeJobPage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return domain.ScrapeJobPage{}, domain.NewError(domain.ErrInvalidInput, "list scrape jobs", "unknown status "+string(filter.Status))
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultScrapePageSize
	}
	filter.Limit = min(filter.Limit, maxScrapePageSize)

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.ScrapeJobPage{}, fmt.Errorf("list scrape jobs: %w", err)
	}
	if items == nil {
		items = []domain.ScrapeJobRecord{}
	}
	return domain.ScrapeJobPage{
		Items:     items,
		Total:     total,
		Page:      filter.Page,
		PageCount: (total + filter.Limit - 1) / filter.Limit,
	}, nil
}

func (s *ScrapingService) Get(ctx context.Context, id string) (*domain.ScrapeJobRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get scrape job", errors.New("id is required"))
	}
	return s.repo.GetByID(ctx, id)
}

func (s *ScrapingService) QueueCounts() domain.JobCounts {
	if s.queue == nil {
		return domain.JobCounts{}
	}
	return s.queue.GetJobCounts()
}

func (s *ScrapingService) CleanQueue(grace time.Duration, state domain.JobState) ([]int64, error) {
	if grace < 0 {
		return nil, domain.NewError(domain.ErrInvalidInput, "clean queue", "grace must not be negative")
	}
	if !state.Valid() {
		return nil, domain.NewError(domain.ErrInvalidInput, "clean queue", "unknown state "+string(state))
	}
	if s.queue == nil {
		return []int64{}, nil
	}
	removed := s.queue.Clean(grace, state)
	if removed == nil {
		removed = []int64{}
	}
	return removed, nil
}

func normalizeScrapeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "start scrape", errors.New("url is required"))
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "start scrape", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", domain.NewError(domain.ErrInvalidInput, "start scrape", "absolute http(s) url required")
	}
	return u.String(), nil
}

func dispatchMode(d ports.ScrapeDispatcher) string {
	if named, ok := d.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "unknown"
}

func scrapeEventData(rec *domain.ScrapeJobRecord) map[string]any {
	data := map[string]any{
		"jobId":    rec.ID,
		"url":      rec.URL,
		"status":   string(rec.Status),
		"progress": rec.Progress,
	}
	if rec.Error != "" {
		data["error"] = rec.Error
	}
	return data
}
