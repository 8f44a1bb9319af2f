package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/queue/memory"
)

type processorFake struct {
	mu      sync.Mutex
	calls   map[string]int64
	failFor string
	done    chan string
}

func (f *processorFake) Process(_ context.Context, recordID string, queueJobID int64) error {
	f.mu.Lock()
	f.calls[recordID] = queueJobID
	f.mu.Unlock()
	defer func() { f.done <- recordID }()
	if recordID == f.failFor {
		return errors.New("boom")
	}
	return nil
}

type workerMetricsFake struct {
	mu       sync.Mutex
	finished int
	errors   int
	cleaned  map[string]int
}

func (f *workerMetricsFake) StartScrape() {}

func (f *workerMetricsFake) FinishScrape(_ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished++
	if err != nil {
		f.errors++
	}
}

func (f *workerMetricsFake) ObserveQueueLag(time.Duration) {}

func (f *workerMetricsFake) RecordCleaned(state string, removed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleaned[state] += removed
}

func waitFor(t *testing.T, ch <-chan string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for job %d of %d", i+1, n)
		}
	}
}

func TestLocalDispatcherEnqueuesPayload(t *testing.T) {
	queue := memory.New()
	d := NewLocalDispatcher(queue)

	id, err := d.Dispatch(context.Background(), &domain.ScrapeJobRecord{ID: "job-1", URL: "https://example.com"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	job, ok := queue.Get(id)
	if !ok || job.Name != scrapeJobName || job.State != domain.JobWaiting {
		t.Fatalf("expected waiting scrape job, got %+v", job)
	}
	select {
	case <-d.Wake():
	default:
		t.Fatalf("expected wake signal after enqueue")
	}
}

func TestScrapeWorkerCompletesAndFailsQueueJobs(t *testing.T) {
	queue := memory.New()
	dispatcher := NewLocalDispatcher(queue)
	processor := &processorFake{calls: map[string]int64{}, failFor: "bad", done: make(chan string, 4)}
	metrics := &workerMetricsFake{cleaned: map[string]int{}}
	worker := NewScrapeWorker(queue, processor, WorkerOptions{
		Concurrency:  2,
		PollInterval: 10 * time.Millisecond,
		Wake:         dispatcher.Wake(),
		Metrics:      metrics,
	})

	okID, _ := dispatcher.Enqueue("good", "https://example.com/a")
	badID, _ := dispatcher.Enqueue("bad", "https://example.com/b")

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(stopped)
	}()

	waitFor(t, processor.done, 2)
	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop after cancel")
	}

	if job, _ := queue.Get(okID); job.State != domain.JobCompleted {
		t.Fatalf("expected completed queue job, got %s", job.State)
	}
	job, _ := queue.Get(badID)
	if job.State != domain.JobFailed || job.FailedReason != "boom" {
		t.Fatalf("expected failed queue job with reason, got %+v", job)
	}
	if processor.calls["good"] != okID {
		t.Fatalf("expected processor to receive queue job id %d, got %d", okID, processor.calls["good"])
	}
	if metrics.finished != 2 || metrics.errors != 1 {
		t.Fatalf("expected 2 finished and 1 error, got %d/%d", metrics.finished, metrics.errors)
	}
}

func TestScrapeWorkerFailsInvalidPayload(t *testing.T) {
	queue := memory.New()
	job, _ := queue.Add(scrapeJobName, map[string]string{"unexpected": "shape"})
	claimed, _ := queue.Next()
	worker := NewScrapeWorker(queue, &processorFake{calls: map[string]int64{}, done: make(chan string, 1)}, WorkerOptions{})

	worker.handle(context.Background(), claimed)

	got, _ := queue.Get(job.ID)
	if got.State != domain.JobFailed {
		t.Fatalf("expected failed job for invalid payload, got %s", got.State)
	}
}

func TestScrapeWorkerCleanRemovesFinishedJobs(t *testing.T) {
	queue := memory.New()
	a, _ := queue.Add(scrapeJobName, domain.ScrapeJobPayload{RecordID: "a"})
	b, _ := queue.Add(scrapeJobName, domain.ScrapeJobPayload{RecordID: "b"})
	queue.Next()
	queue.Next()
	_ = queue.Complete(a.ID)
	_ = queue.Fail(b.ID, "x")
	metrics := &workerMetricsFake{cleaned: map[string]int{}}
	worker := NewScrapeWorker(queue, nil, WorkerOptions{Metrics: metrics})
	worker.options.CleanGrace = 0

	worker.Clean()

	if queue.GetJobCounts().Total() != 0 {
		t.Fatalf("expected queue emptied, got %+v", queue.GetJobCounts())
	}
	if metrics.cleaned["completed"] != 1 || metrics.cleaned["failed"] != 1 {
		t.Fatalf("expected one cleaned per state, got %v", metrics.cleaned)
	}
}
