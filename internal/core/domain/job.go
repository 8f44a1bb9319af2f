package domain

import (
	"encoding/json"
	"time"
)

type JobState string

const (
	JobWaiting   JobState = "waiting"
	JobActive    JobState = "active"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobDelayed   JobState = "delayed"
)

func (s JobState) Valid() bool {
	switch s {
	case JobWaiting, JobActive, JobCompleted, JobFailed, JobDelayed:
		return true
	default:
		return false
	}
}

func ParseJobStates(raw []string) ([]JobState, error) {
	out := make([]JobState, 0, len(raw))
	for _, r := range raw {
		state := JobState(r)
		if !state.Valid() {
			return nil, NewError(ErrInvalidInput, "parse job state", r)
		}
		out = append(out, state)
	}
	return out, nil
}

type JobOptions struct {
	Delay            time.Duration `json:"delay,omitempty"`
	Attempts         int           `json:"attempts,omitempty"`
	RemoveOnComplete bool          `json:"removeOnComplete,omitempty"`
}

// Job is a queue item snapshot. Callers never hold the queue's own copy.
type Job struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Data         json.RawMessage `json:"data"`
	Progress     int             `json:"progress"`
	Opts         JobOptions      `json:"opts"`
	State        JobState        `json:"state"`
	FailedReason string          `json:"failedReason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
}

type JobCounts struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Delayed   int `json:"delayed"`
}

func (c JobCounts) Total() int {
	return c.Waiting + c.Active + c.Completed + c.Failed + c.Delayed
}

func (c *JobCounts) Inc(state JobState) {
	switch state {
	case JobWaiting:
		c.Waiting++
	case JobActive:
		c.Active++
	case JobCompleted:
		c.Completed++
	case JobFailed:
		c.Failed++
	case JobDelayed:
		c.Delayed++
	}
}

// ScrapeJobPayload is the data carried by a "scrape" queue job.
type ScrapeJobPayload struct {
	RecordID string `json:"record_id"`
	URL      string `json:"url"`
}
