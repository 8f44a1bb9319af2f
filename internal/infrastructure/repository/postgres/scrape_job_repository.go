package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/core/ports"
)

var scrapeJobColumns = []string{
	"id", "url", "source_id", "depth", "status", "progress", "error_message",
	"queue_job_id", "document_id", "created_by", "created_at", "updated_at",
}

type ScrapeJobRepository struct {
	db ports.DatabaseClient
}

func NewScrapeJobRepository(db ports.DatabaseClient) *ScrapeJobRepository {
	return &ScrapeJobRepository{db: db}
}

func (r *ScrapeJobRepository) Create(ctx context.Context, rec *domain.ScrapeJobRecord) error {
	query, args, err := psql.Insert("scrape_jobs").
		Columns(scrapeJobColumns...).
		Values(
			rec.ID, rec.URL, rec.SourceID, rec.Depth, string(rec.Status), rec.Progress, rec.Error,
			rec.QueueJobID, rec.DocumentID, rec.CreatedBy, rec.CreatedAt, nullableTime(rec.UpdatedAt),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert scrape job: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert scrape job: %w", err)
	}
	return nil
}

func (r *ScrapeJobRepository) GetByID(ctx context.Context, id string) (*domain.ScrapeJobRecord, error) {
	query, args, err := psql.Select(scrapeJobColumns...).
		From("scrape_jobs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get scrape job: %w", err)
	}

	rec, err := scanScrapeJob(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.ErrNotFound, "get scrape job", id)
		}
		return nil, err
	}
	return &rec, nil
}

// Update persists mutable fields. Status ordering is enforced by the domain
// record before it gets here.
func (r *ScrapeJobRepository) Update(ctx context.Context, rec *domain.ScrapeJobRecord) error {
	query, args, err := psql.Update("scrape_jobs").
		Set("status", string(rec.Status)).
		Set("progress", rec.Progress).
		Set("error_message", rec.Error).
		Set("queue_job_id", rec.QueueJobID).
		Set("document_id", rec.DocumentID).
		Set("updated_at", nullableTime(rec.UpdatedAt)).
		Where(sq.Eq{"id": rec.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update scrape job: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update scrape job: %w", err)
	}
	return expectAffected(res, "update scrape job", rec.ID)
}

func (r *ScrapeJobRepository) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete("scrape_jobs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete scrape job: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete scrape job: %w", err)
	}
	return expectAffected(res, "delete scrape job", id)
}

func (r *ScrapeJobRepository) List(ctx context.Context, filter domain.ScrapeJobFilter) ([]domain.ScrapeJobRecord, int, error) {
	where := sq.And{}
	if filter.Status != "" {
		where = append(where, sq.Eq{"status": string(filter.Status)})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("scrape_jobs").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count scrape jobs: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count scrape jobs: %w", err)
	}

	builder := psql.Select(scrapeJobColumns...).
		From("scrape_jobs").
		Where(where).
		OrderBy("created_at DESC", "id")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
		if filter.Page > 1 {
			builder = builder.Offset(uint64((filter.Page - 1) * filter.Limit))
		}
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list scrape jobs: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list scrape jobs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ScrapeJobRecord, 0)
	for rows.Next() {
		rec, err := scanScrapeJob(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate scrape jobs: %w", err)
	}
	return out, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScrapeJob(row rowScanner) (domain.ScrapeJobRecord, error) {
	var (
		rec       domain.ScrapeJobRecord
		status    string
		updatedAt sql.NullTime
	)
	err := row.Scan(
		&rec.ID, &rec.URL, &rec.SourceID, &rec.Depth, &status, &rec.Progress, &rec.Error,
		&rec.QueueJobID, &rec.DocumentID, &rec.CreatedBy, &rec.CreatedAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan scrape job: %w", err)
	}
	rec.Status = domain.ScrapeStatus(status)
	rec.UpdatedAt = timePtr(updatedAt)
	return rec, nil
}
