package domain

import (
	"fmt"
	"time"
)

type ScrapeStatus string

const (
	ScrapePending   ScrapeStatus = "pending"
	ScrapeRunning   ScrapeStatus = "running"
	ScrapeCompleted ScrapeStatus = "completed"
	ScrapeFailed    ScrapeStatus = "failed"
)

func (s ScrapeStatus) Valid() bool {
	switch s {
	case ScrapePending, ScrapeRunning, ScrapeCompleted, ScrapeFailed:
		return true
	default:
		return false
	}
}

func (s ScrapeStatus) Terminal() bool {
	return s == ScrapeCompleted || s == ScrapeFailed
}

// CanTransition reports whether s may move to next. Only forward edges exist.
func (s ScrapeStatus) CanTransition(next ScrapeStatus) bool {
	switch s {
	case ScrapePending:
		return next == ScrapeRunning
	case ScrapeRunning:
		return next == ScrapeCompleted || next == ScrapeFailed
	default:
		return false
	}
}

type ScrapeJobRecord struct {
	ID         string       `json:"id"`
	URL        string       `json:"url"`
	SourceID   string       `json:"sourceId"`
	Depth      int          `json:"depth"`
	Status     ScrapeStatus `json:"status"`
	Progress   int          `json:"progress"`
	Error      string       `json:"error,omitempty"`
	QueueJobID int64        `json:"queueJobId,omitempty"`
	DocumentID string       `json:"documentId,omitempty"`
	CreatedBy  string       `json:"createdBy"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  *time.Time   `json:"updated_at"`
}

// Transition moves the record forward and stamps UpdatedAt.
func (r *ScrapeJobRecord) Transition(next ScrapeStatus, now time.Time) error {
	if !r.Status.CanTransition(next) {
		return NewError(ErrInvalidTransition, "scrape job transition", fmt.Sprintf("%s -> %s", r.Status, next))
	}
	r.Status = next
	if next == ScrapeCompleted {
		r.Progress = 100
	}
	r.touch(now)
	return nil
}

func (r *ScrapeJobRecord) SetProgress(progress int, now time.Time) {
	r.Progress = ClampProgress(progress)
	r.touch(now)
}

func (r *ScrapeJobRecord) touch(now time.Time) {
	ts := now.UTC()
	r.UpdatedAt = &ts
}

func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

type ScrapeJobFilter struct {
	Status ScrapeStatus
	Page   int
	Limit  int
}

type ScrapeJobPage struct {
	Items     []ScrapeJobRecord `json:"items"`
	Total     int               `json:"total"`
	Page      int               `json:"page"`
	PageCount int               `json:"pageCount"`
}

// ScrapedPage is what a fetcher hands back for one URL.
type ScrapedPage struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Links     []string  `json:"links,omitempty"`
	HTML      []byte    `json:"-"`
	Proxy     string    `json:"proxy,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}
