package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/core/ports"
)

const (
	progressFetched   = 25
	progressExtracted = 50
	progressStored    = 75
)

var errInterrupted = errors.New("scrape job interrupted while running")

// ScrapeProcessService runs one scrape job: fetch, extract, snapshot, analyze.
type ScrapeProcessService struct {
	repo      ports.ScrapeJobRepository
	fetcher   ports.PageFetcher
	extractor ports.PageExtractor
	storage   ports.ObjectStorage
	analysis  ports.TextAnalysisService
	queue     ports.JobQueue
	events    ports.EventPublisher
	now       func() time.Time
}

func NewScrapeProcessService(
	repo ports.ScrapeJobRepository,
	fetcher ports.PageFetcher,
	extractor ports.PageExtractor,
	storage ports.ObjectStorage,
	analysis ports.TextAnalysisService,
	queue ports.JobQueue,
	events ports.EventPublisher,
) *ScrapeProcessService {
	return &ScrapeProcessService{
		repo:      repo,
		fetcher:   fetcher,
		extractor: extractor,
		storage:   storage,
		analysis:  analysis,
		queue:     queue,
		events:    events,
		now:       time.Now,
	}
}

// Process is a no-op for jobs that already finished, so a redelivered request
// does not rerun a scrape. A job found already running was abandoned by an
// earlier attempt and is closed out as failed.
func (uc *ScrapeProcessService) Process(ctx context.Context, recordID string, queueJobID int64) error {
	rec, err := uc.repo.GetByID(ctx, recordID)
	if err != nil {
		return fmt.Errorf("fetch scrape job by id: %w", err)
	}
	if rec.Status.Terminal() {
		slog.Info("scrape_job_skipped", "job_id", rec.ID, "status", string(rec.Status))
		return nil
	}
	if rec.Status == domain.ScrapeRunning {
		slog.Warn("scrape_job_interrupted", "job_id", rec.ID, "progress", rec.Progress)
		if failErr := uc.markFailed(ctx, rec, errInterrupted); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", errInterrupted, failErr)
		}
		return errInterrupted
	}
	if queueJobID > 0 {
		rec.QueueJobID = queueJobID
	}

	if err := uc.transition(ctx, rec, domain.ScrapeRunning); err != nil {
		return fmt.Errorf("set status=running: %w", err)
	}

	if err := uc.processPipeline(ctx, rec); err != nil {
		if failErr := uc.markFailed(ctx, rec, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.transition(ctx, rec, domain.ScrapeCompleted); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}
	publishEvent(ctx, uc.events, domain.EventNotification, map[string]any{
		"level":   "success",
		"jobId":   rec.ID,
		"message": "scrape completed: " + rec.URL,
	})
	return nil
}

func (uc *ScrapeProcessService) processPipeline(ctx context.Context, rec *domain.ScrapeJobRecord) error {
	page, err := uc.fetch(ctx, rec)
	if err != nil {
		return err
	}
	if err := uc.step(ctx, rec, progressFetched); err != nil {
		return err
	}

	if err := uc.extract(ctx, page); err != nil {
		return err
	}
	if err := uc.step(ctx, rec, progressExtracted); err != nil {
		return err
	}

	key, err := uc.store(ctx, rec, page)
	if err != nil {
		return err
	}
	rec.DocumentID = rec.ID
	if err := uc.step(ctx, rec, progressStored); err != nil {
		return err
	}
	publishEvent(ctx, uc.events, domain.EventDocumentUploaded, map[string]any{
		"documentId": rec.DocumentID,
		"jobId":      rec.ID,
		"url":        page.URL,
		"title":      page.Title,
		"storageKey": key,
	})

	return uc.analyze(ctx, rec, page)
}

func (uc *ScrapeProcessService) fetch(ctx context.Context, rec *domain.ScrapeJobRecord) (*domain.ScrapedPage, error) {
	page, err := uc.fetcher.Fetch(ctx, rec.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	return page, nil
}

func (uc *ScrapeProcessService) extract(ctx context.Context, page *domain.ScrapedPage) error {
	if err := uc.extractor.Extract(ctx, page); err != nil {
		return fmt.Errorf("extract page: %w", err)
	}
	if strings.TrimSpace(page.Text) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "extract page", errors.New("empty extracted text"))
	}
	return nil
}

func (uc *ScrapeProcessService) store(ctx context.Context, rec *domain.ScrapeJobRecord, page *domain.ScrapedPage) (string, error) {
	key := snapshotKey(rec)
	if err := uc.storage.Save(ctx, key, bytes.NewReader(page.HTML)); err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return key, nil
}

func (uc *ScrapeProcessService) analyze(ctx context.Context, rec *domain.ScrapeJobRecord, page *domain.ScrapedPage) error {
	if uc.analysis == nil {
		return nil
	}
	_, err := uc.analysis.Analyze(ctx, domain.AnalyzeRequest{
		DocumentID: rec.DocumentID,
		Text:       page.Text,
		Type:       domain.AnalysisSummary,
	})
	if err != nil {
		return fmt.Errorf("analyze page: %w", err)
	}
	return nil
}

func (uc *ScrapeProcessService) step(ctx context.Context, rec *domain.ScrapeJobRecord, progress int) error {
	rec.SetProgress(progress, uc.now())
	if err := uc.repo.Update(ctx, rec); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if uc.queue != nil && rec.QueueJobID > 0 {
		if err := uc.queue.UpdateProgress(rec.QueueJobID, progress); err != nil {
			slog.Warn("queue_progress_failed", "job_id", rec.ID, "queue_job_id", rec.QueueJobID, "error", err)
		}
	}
	publishEvent(ctx, uc.events, domain.EventScrapingUpdate, scrapeEventData(rec))
	return nil
}

func (uc *ScrapeProcessService) transition(ctx context.Context, rec *domain.ScrapeJobRecord, next domain.ScrapeStatus) error {
	if err := rec.Transition(next, uc.now()); err != nil {
		return err
	}
	if err := uc.repo.Update(ctx, rec); err != nil {
		return err
	}
	publishEvent(ctx, uc.events, domain.EventScrapingUpdate, scrapeEventData(rec))
	return nil
}

func (uc *ScrapeProcessService) markFailed(ctx context.Context, rec *domain.ScrapeJobRecord, processErr error) error {
	if processErr == nil {
		return nil
	}
	rec.Error = processErr.Error()
	// The caller's context may be what failed the pipeline.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := uc.transition(writeCtx, rec, domain.ScrapeFailed); err != nil {
		return err
	}
	publishEvent(writeCtx, uc.events, domain.EventNotification, map[string]any{
		"level":   "error",
		"jobId":   rec.ID,
		"message": "scrape failed: " + rec.Error,
	})
	return nil
}

func snapshotKey(rec *domain.ScrapeJobRecord) string {
	host := "page"
	if u, err := url.Parse(rec.URL); err == nil && u.Host != "" {
		host = u.Host
	}
	return fmt.Sprintf("scrapes/%s/%s.html", rec.ID, sanitizeFilename(host))
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" {
		return "page"
	}
	return name
}
