package ports

import (
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

// CacheClient is a string key/value store. Set without ttl never expires.
type CacheClient interface {
	Connect(ctx context.Context) error
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl ...time.Duration) error
	Del(ctx context.Context, key string) error
}

// DatabaseClient is the SQL surface repositories are written against.
type DatabaseClient interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	PingContext(ctx context.Context) error
	Close() error
}

// JobQueue is the in-process work queue used by the scrape worker.
type JobQueue interface {
	Add(name string, data any, opts ...domain.JobOptions) (domain.Job, error)
	GetJobs(states ...domain.JobState) []domain.Job
	GetJobCounts() domain.JobCounts
	Clean(grace time.Duration, state domain.JobState) []int64
	Next() (domain.Job, bool)
	UpdateProgress(id int64, progress int) error
	Complete(id int64) error
	Fail(id int64, reason string) error
	Remove(id int64) bool
	Get(id int64) (domain.Job, bool)
}

type ScrapeJobRepository interface {
	Create(ctx context.Context, rec *domain.ScrapeJobRecord) error
	GetByID(ctx context.Context, id string) (*domain.ScrapeJobRecord, error)
	Update(ctx context.Context, rec *domain.ScrapeJobRecord) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter domain.ScrapeJobFilter) ([]domain.ScrapeJobRecord, int, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.UserRecord) error
	GetByID(ctx context.Context, id string) (*domain.UserRecord, error)
	GetByEmail(ctx context.Context, email string) (*domain.UserRecord, error)
	List(ctx context.Context) ([]domain.UserRecord, error)
	Count(ctx context.Context) (int, error)
}

type AnalysisRepository interface {
	Save(ctx context.Context, analysis *domain.AiAnalysis) error
	ListByDocument(ctx context.Context, documentID string, limit int) ([]domain.AiAnalysis, error)
	Stats(ctx context.Context) (domain.AnalysisStats, error)
}

type FeedbackRepository interface {
	Create(ctx context.Context, feedback *domain.Feedback) error
	Count(ctx context.Context) (int, error)
}

// TextAnalyzer turns text into an analysis record. Implementations must keep
// Confidence inside [0,1].
type TextAnalyzer interface {
	Analyze(ctx context.Context, text string, analysisType domain.AnalysisType) (domain.AiAnalysis, error)
}

// PageFetcher downloads a single URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*domain.ScrapedPage, error)
}

// PageExtractor fills title, text and links from the fetched HTML.
type PageExtractor interface {
	Extract(ctx context.Context, page *domain.ScrapedPage) error
}

// Chunker splits text into bounded chunks.
type Chunker interface {
	Split(text string) []string
}

// ObjectStorage stores scraped page snapshots.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// EventPublisher fans realtime events out to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// ScrapeDispatcher hands a pending record to whatever runs scrapes. It returns
// the local queue job id, or 0 when the job left the process.
type ScrapeDispatcher interface {
	Dispatch(ctx context.Context, rec *domain.ScrapeJobRecord) (int64, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenManager interface {
	Issue(user domain.UserRecord) (string, time.Time, error)
	Parse(token string) (domain.AuthClaims, error)
}

// HealthChecker reports the state of one dependency.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) domain.ServiceHealth
}

type ScrapeReportWriter interface {
	ContentType() string
	Write(w io.Writer, jobs []domain.ScrapeJobRecord) error
}
