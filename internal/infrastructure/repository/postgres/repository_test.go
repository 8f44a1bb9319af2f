package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

func newClientWithMock(t *testing.T) (*Client, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewClient(db), mock, func() { _ = db.Close() }
}

func TestScrapeJobGetByIDReturnsDomainNotFound(t *testing.T) {
	client, mock, done := newClientWithMock(t)
	defer done()
	repo := NewScrapeJobRepository(client)

	mock.ExpectQuery("SELECT id, url, source_id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestScrapeJobGetByIDScansNullableUpdatedAt(t *testing.T) {
	client, mock, done := newClientWithMock(t)
	defer done()
	repo := NewScrapeJobRepository(client)

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(scrapeJobColumns).
		AddRow("job-1", "https://example.com", "src", 0, "pending", 0, "", int64(7), "", "user-1", created, nil)
	mock.ExpectQuery("SELECT id, url, source_id").WithArgs("job-1").WillReturnRows(rows)

	rec, err := repo.GetByID(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != domain.ScrapePending || rec.UpdatedAt != nil || rec.QueueJobID != 7 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestScrapeJobUpdateReturnsNotFoundWhenNoRowsAffected(t *testing.T) {
	client, mock, done := newClientWithMock(t)
	defer done()
	repo := NewScrapeJobRepository(client)

	now := time.Now().UTC()
	mock.ExpectExec("UPDATE scrape_jobs SET status").
		WithArgs("running", 0, "", int64(0), "", sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &domain.ScrapeJobRecord{
		ID:        "missing",
		Status:    domain.ScrapeRunning,
		UpdatedAt: &now,
	})
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestScrapeJobDeleteRemovesRow(t *testing.T) {
	client, mock, done := newClientWithMock(t)
	defer done()
	repo := NewScrapeJobRepository(client)

	mock.ExpectExec(`DELETE FROM scrape_jobs WHERE id = \$1`).
		WithArgs("job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM scrape_jobs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "job-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(context.Background(), "missing"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestScrapeJobListAppliesStatusAndPaging(t *testing.T) {
	client, mock, done := newClientWithMock(t)
	defer done()
	repo := NewScrapeJobRepository(client)

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM scrape_jobs WHERE \(status = \$1\)`).
		WithArgs("completed").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(`SELECT id, url, .* FROM scrape_jobs WHERE \(status = \$1\) ORDER BY created_at DESC, id LIMIT 5 OFFSET 5`).
		WithArgs("completed").
		WillReturnRows(sqlmock.NewRows(scrapeJobColumns).
			AddRow("job-6", "https://example.com/6", "src", 0, "completed", 100, "", int64(0), "doc-6", "user-1", created, created))

	items, total, err := repo.List(context.Background(), domain.ScrapeJobFilter{
		Status: domain.ScrapeCompleted,
		Page:   2,
		Limit:  5,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 11 || len(items) != 1 || items[0].UpdatedAt == nil {
		t.Fatalf("unexpected page: total=%d items=%+v", total, items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUserCreateMapsUniqueViolationToConflict(t *testing.T) {
	client, mock, done := newClientWithMock(t)
	defer done()
	repo := NewUserRepository(client)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	err := repo.Create(context.Background(), &domain.UserRecord{
		ID:    "u1",
		Email: "a@example.com",
		Role:  domain.RoleUser,
	})
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUserGetByEmailNotFound(t *testing.T) {
	client, mock, done := newClientWithMock(t)
	defer done()
	repo := NewUserRepository(client)

	mock.ExpectQuery("SELECT id, email, name, role, password_hash, created_at FROM users WHERE email").
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAnalysisSaveClampsConfidence(t *testing.T) {
	client, mock, done := newClientWithMock(t)
	defer done()
	repo := NewAnalysisRepository(client)

	mock.ExpectExec("INSERT INTO ai_analyses").
		WithArgs("a1", "doc-1", "sentiment", []byte(`{}`), 1.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Save(context.Background(), &domain.AiAnalysis{
		ID:         "a1",
		DocumentID: "doc-1",
		Type:       domain.AnalysisSentiment,
		Confidence: 3,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAnalysisStats(t *testing.T) {
	client, mock, done := newClientWithMock(t)
	defer done()
	repo := NewAnalysisRepository(client)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg"}).AddRow(4, 0.25))

	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 4 || stats.AverageConfidence != 0.25 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	client, mock, done := newClientWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := client.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	client, mock, done := newClientWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := client.WithTx(context.Background(), func(*sql.Tx) error {
		return domain.NewError(domain.ErrInvalidInput, "tx", "boom")
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
