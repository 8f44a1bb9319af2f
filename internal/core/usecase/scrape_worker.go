package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/core/ports"
)

const scrapeJobName = "scrape"

// LocalDispatcher puts scrape jobs on the in-process queue.
type LocalDispatcher struct {
	queue ports.JobQueue
	wake  chan struct{}
}

func NewLocalDispatcher(queue ports.JobQueue) *LocalDispatcher {
	return &LocalDispatcher{queue: queue, wake: make(chan struct{}, 1)}
}

func (d *LocalDispatcher) Name() string {
	return "local"
}

func (d *LocalDispatcher) Dispatch(_ context.Context, rec *domain.ScrapeJobRecord) (int64, error) {
	return d.Enqueue(rec.ID, rec.URL)
}

// Enqueue is also used by the NATS consumer, which only knows the record id
// and url.
func (d *LocalDispatcher) Enqueue(recordID, url string) (int64, error) {
	job, err := d.queue.Add(scrapeJobName, domain.ScrapeJobPayload{RecordID: recordID, URL: url})
	if err != nil {
		return 0, fmt.Errorf("enqueue scrape job: %w", err)
	}
	select {
	case d.wake <- struct{}{}:
	default:
	}
	return job.ID, nil
}

// Wake signals that a job was enqueued.
func (d *LocalDispatcher) Wake() <-chan struct{} {
	return d.wake
}

type WorkerOptions struct {
	Concurrency   int
	PollInterval  time.Duration
	JobTimeout    time.Duration
	CleanGrace    time.Duration
	CleanInterval time.Duration
	Wake          <-chan struct{}
	Metrics       WorkerMetrics
	QueueMetrics  QueueMetrics
}

// ScrapeWorker drains the in-process queue with a fixed pool of goroutines
// and periodically removes finished jobs.
type ScrapeWorker struct {
	queue     ports.JobQueue
	processor ports.ScrapeProcessor
	options   WorkerOptions
	now       func() time.Time
}

func NewScrapeWorker(queue ports.JobQueue, processor ports.ScrapeProcessor, options WorkerOptions) *ScrapeWorker {
	if options.Concurrency <= 0 {
		options.Concurrency = 2
	}
	if options.PollInterval <= 0 {
		options.PollInterval = 500 * time.Millisecond
	}
	if options.JobTimeout <= 0 {
		options.JobTimeout = 5 * time.Minute
	}
	if options.CleanGrace <= 0 {
		options.CleanGrace = time.Hour
	}
	if options.CleanInterval <= 0 {
		options.CleanInterval = time.Minute
	}
	return &ScrapeWorker{
		queue:     queue,
		processor: processor,
		options:   options,
		now:       time.Now,
	}
}

// Run blocks until ctx is cancelled and every in-flight job has returned.
func (w *ScrapeWorker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.options.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.cleanLoop(ctx)
	}()

	slog.Info("scrape_worker_started", "concurrency", w.options.Concurrency)
	wg.Wait()
	slog.Info("scrape_worker_stopped")
}

func (w *ScrapeWorker) loop(ctx context.Context) {
	timer := time.NewTimer(w.options.PollInterval)
	defer timer.Stop()
	for {
		if ctx.Err() != nil {
			return
		}
		job, ok := w.queue.Next()
		if ok {
			w.handle(ctx, job)
			continue
		}

		timer.Reset(w.options.PollInterval)
		select {
		case <-ctx.Done():
			return
		case <-w.options.Wake:
		case <-timer.C:
		}
	}
}

func (w *ScrapeWorker) handle(ctx context.Context, job domain.Job) {
	var payload domain.ScrapeJobPayload
	if err := json.Unmarshal(job.Data, &payload); err != nil || payload.RecordID == "" {
		slog.Error("scrape_job_invalid_payload", "queue_job_id", job.ID, "error", err)
		_ = w.queue.Fail(job.ID, "invalid payload")
		return
	}

	if w.options.Metrics != nil {
		w.options.Metrics.ObserveQueueLag(w.now().Sub(job.CreatedAt))
		w.options.Metrics.StartScrape()
	}
	start := time.Now()

	jobCtx, cancel := context.WithTimeout(ctx, w.options.JobTimeout)
	err := w.processor.Process(jobCtx, payload.RecordID, job.ID)
	cancel()

	if w.options.Metrics != nil {
		w.options.Metrics.FinishScrape(time.Since(start), err)
	}
	if err != nil {
		slog.Error("scrape_job_failed", "job_id", payload.RecordID, "queue_job_id", job.ID, "error", err)
		if failErr := w.queue.Fail(job.ID, err.Error()); failErr != nil {
			slog.Warn("queue_fail_failed", "queue_job_id", job.ID, "error", failErr)
		}
		return
	}
	if err := w.queue.Complete(job.ID); err != nil {
		slog.Warn("queue_complete_failed", "queue_job_id", job.ID, "error", err)
	}
}

func (w *ScrapeWorker) cleanLoop(ctx context.Context) {
	ticker := time.NewTicker(w.options.CleanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Clean()
		}
	}
}

// Clean removes finished jobs older than the grace period.
func (w *ScrapeWorker) Clean() {
	for _, state := range []domain.JobState{domain.JobCompleted, domain.JobFailed} {
		removed := w.queue.Clean(w.options.CleanGrace, state)
		if len(removed) > 0 {
			slog.Debug("queue_cleaned", "state", string(state), "removed", len(removed))
		}
		if w.options.Metrics != nil {
			w.options.Metrics.RecordCleaned(string(state), len(removed))
		}
	}
	if w.options.QueueMetrics != nil {
		w.options.QueueMetrics.SetQueueCounts(w.queue.GetJobCounts())
	}
}
