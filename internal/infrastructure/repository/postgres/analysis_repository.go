package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/core/ports"
)

type AnalysisRepository struct {
	db ports.DatabaseClient
}

func NewAnalysisRepository(db ports.DatabaseClient) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Save(ctx context.Context, a *domain.AiAnalysis) error {
	result := a.Result
	if len(result) == 0 {
		result = json.RawMessage(`{}`)
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO ai_analyses (id, document_id, type, result, confidence, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, a.ID, a.DocumentID, string(a.Type), []byte(result), domain.ClampConfidence(a.Confidence), a.CreatedAt)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) ListByDocument(ctx context.Context, documentID string, limit int) ([]domain.AiAnalysis, error) {
	builder := psql.Select("id", "document_id", "type", "result", "confidence", "created_at").
		From("ai_analyses").
		OrderBy("created_at DESC")
	if documentID != "" {
		builder = builder.Where(sq.Eq{"document_id": documentID})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list analyses: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	out := make([]domain.AiAnalysis, 0)
	for rows.Next() {
		var (
			a       domain.AiAnalysis
			kind    string
			payload []byte
		)
		if err := rows.Scan(&a.ID, &a.DocumentID, &kind, &payload, &a.Confidence, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		a.Type = domain.AnalysisType(kind)
		a.Result = json.RawMessage(payload)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return out, nil
}

func (r *AnalysisRepository) Stats(ctx context.Context) (domain.AnalysisStats, error) {
	var stats domain.AnalysisStats
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(AVG(confidence), 0)
FROM ai_analyses
`).Scan(&stats.Count, &stats.AverageConfidence)
	if err != nil {
		return domain.AnalysisStats{}, fmt.Errorf("analysis stats: %w", err)
	}
	return stats, nil
}

type FeedbackRepository struct {
	db ports.DatabaseClient
}

func NewFeedbackRepository(db ports.DatabaseClient) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func (r *FeedbackRepository) Create(ctx context.Context, f *domain.Feedback) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO ai_feedback (id, analysis_id, user_id, rating, comment, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, f.ID, f.AnalysisID, f.UserID, f.Rating, f.Comment, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

func (r *FeedbackRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ai_feedback`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count feedback: %w", err)
	}
	return n, nil
}
