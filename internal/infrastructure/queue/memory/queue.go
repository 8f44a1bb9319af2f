package memory

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

// Queue is the process-local job queue. One mutex guards job state; ids come
// from an atomic counter, so allocation order matches insertion order.
type Queue struct {
	nextID atomic.Int64

	mu    sync.Mutex
	jobs  map[int64]*domain.Job
	order []int64
	now   func() time.Time
}

func New() *Queue {
	return &Queue{
		jobs: make(map[int64]*domain.Job),
		now:  time.Now,
	}
}

// Add enqueues a job. data is marshaled to JSON unless it already is raw JSON.
func (q *Queue) Add(name string, data any, opts ...domain.JobOptions) (domain.Job, error) {
	raw, err := encodeData(data)
	if err != nil {
		return domain.Job{}, domain.WrapError(domain.ErrInvalidInput, "queue add", err)
	}
	var opt domain.JobOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	job := &domain.Job{
		ID:        q.nextID.Add(1),
		Name:      name,
		Data:      raw,
		Opts:      opt,
		State:     domain.JobWaiting,
		CreatedAt: q.now().UTC(),
	}
	if opt.Delay > 0 {
		job.State = domain.JobDelayed
	}
	q.jobs[job.ID] = job
	q.order = append(q.order, job.ID)
	return snapshot(job), nil
}

func (q *Queue) GetJobs(states ...domain.JobState) []domain.Job {
	want := make(map[domain.JobState]bool, len(states))
	for _, s := range states {
		want[s] = true
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.promoteDelayedLocked()

	out := make([]domain.Job, 0)
	for _, id := range q.order {
		job := q.jobs[id]
		if want[job.State] {
			out = append(out, snapshot(job))
		}
	}
	return out
}

func (q *Queue) GetJobCounts() domain.JobCounts {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.promoteDelayedLocked()

	var counts domain.JobCounts
	for _, job := range q.jobs {
		counts.Inc(job.State)
	}
	return counts
}

// Clean removes completed or failed jobs that finished at least grace ago.
// Jobs in other states have no finish time and are never removed.
func (q *Queue) Clean(grace time.Duration, state domain.JobState) []int64 {
	if state != domain.JobCompleted && state != domain.JobFailed {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var removed []int64
	kept := q.order[:0]
	for _, id := range q.order {
		job := q.jobs[id]
		if job.State == state && job.FinishedAt != nil && now.Sub(*job.FinishedAt) >= grace {
			delete(q.jobs, id)
			removed = append(removed, id)
			continue
		}
		kept = append(kept, id)
	}
	q.order = kept
	return removed
}

// Next claims the oldest waiting job.
func (q *Queue) Next() (domain.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.promoteDelayedLocked()

	for _, id := range q.order {
		job := q.jobs[id]
		if job.State != domain.JobWaiting {
			continue
		}
		ts := q.now().UTC()
		job.State = domain.JobActive
		job.ProcessedAt = &ts
		return snapshot(job), true
	}
	return domain.Job{}, false
}

func (q *Queue) UpdateProgress(id int64, progress int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return notFound("queue update progress", id)
	}
	job.Progress = domain.ClampProgress(progress)
	return nil
}

func (q *Queue) Complete(id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return notFound("queue complete", id)
	}
	if job.Opts.RemoveOnComplete {
		q.removeLocked(id)
		return nil
	}
	ts := q.now().UTC()
	job.State = domain.JobCompleted
	job.Progress = 100
	job.FinishedAt = &ts
	return nil
}

func (q *Queue) Fail(id int64, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return notFound("queue fail", id)
	}
	ts := q.now().UTC()
	job.State = domain.JobFailed
	job.FailedReason = reason
	job.FinishedAt = &ts
	return nil
}

func (q *Queue) Remove(id int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(id)
}

func (q *Queue) Get(id int64) (domain.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.promoteDelayedLocked()

	job, ok := q.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return snapshot(job), true
}

func (q *Queue) removeLocked(id int64) bool {
	if _, ok := q.jobs[id]; !ok {
		return false
	}
	delete(q.jobs, id)
	for i, v := range q.order {
		if v == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	return true
}

func (q *Queue) promoteDelayedLocked() {
	now := q.now()
	for _, job := range q.jobs {
		if job.State == domain.JobDelayed && !now.Before(job.CreatedAt.Add(job.Opts.Delay)) {
			job.State = domain.JobWaiting
		}
	}
}

func snapshot(job *domain.Job) domain.Job {
	out := *job
	if job.Data != nil {
		out.Data = append(json.RawMessage(nil), job.Data...)
	}
	if job.ProcessedAt != nil {
		ts := *job.ProcessedAt
		out.ProcessedAt = &ts
	}
	if job.FinishedAt != nil {
		ts := *job.FinishedAt
		out.FinishedAt = &ts
	}
	return out
}

func encodeData(data any) (json.RawMessage, error) {
	switch v := data.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, fmt.Errorf("job data is not valid json")
		}
		return append(json.RawMessage(nil), v...), nil
	default:
		return json.Marshal(v)
	}
}

func notFound(op string, id int64) error {
	return domain.NewError(domain.ErrNotFound, op, fmt.Sprintf("job %d", id))
}
