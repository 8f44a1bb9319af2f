package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/core/ports"
)

const (
	defaultAnalysesLimit = 20
	maxAnalysesLimit     = 100
)

type AnalysisService struct {
	analyzer ports.TextAnalyzer
	repo     ports.AnalysisRepository
	events   ports.EventPublisher
	metrics  AnalysisMetrics
	now      func() time.Time
}

func NewAnalysisService(
	analyzer ports.TextAnalyzer,
	repo ports.AnalysisRepository,
	events ports.EventPublisher,
	metrics AnalysisMetrics,
) *AnalysisService {
	return &AnalysisService{
		analyzer: analyzer,
		repo:     repo,
		events:   events,
		metrics:  metrics,
		now:      time.Now,
	}
}

func (s *AnalysisService) Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.AiAnalysis, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "analyze", errors.New("text is required"))
	}
	if req.Type == "" {
		req.Type = domain.AnalysisSentiment
	}
	if !req.Type.Valid() {
		return nil, domain.NewError(domain.ErrInvalidInput, "analyze", "unknown analysis type "+string(req.Type))
	}

	analysis, err := s.analyzer.Analyze(ctx, req.Text, req.Type)
	s.record(req.Type, err)
	if err != nil {
		return nil, fmt.Errorf("analyze text: %w", err)
	}

	if analysis.ID == "" {
		analysis.ID = uuid.NewString()
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = s.now().UTC()
	}
	analysis.DocumentID = req.DocumentID
	analysis.Type = req.Type
	analysis.Confidence = domain.ClampConfidence(analysis.Confidence)

	if s.repo != nil {
		if err := s.repo.Save(ctx, &analysis); err != nil {
			return nil, fmt.Errorf("save analysis: %w", err)
		}
	}

	publishEvent(ctx, s.events, domain.EventDocumentProcessed, map[string]any{
		"documentId": analysis.DocumentID,
		"analysisId": analysis.ID,
		"type":       string(analysis.Type),
		"confidence": analysis.Confidence,
	})
	return &analysis, nil
}

func (s *AnalysisService) List(ctx context.Context, documentID string, limit int) ([]domain.AiAnalysis, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list analyses", errors.New("document_id is required"))
	}
	if limit <= 0 {
		limit = defaultAnalysesLimit
	}
	limit = min(limit, maxAnalysesLimit)
	if s.repo == nil {
		return []domain.AiAnalysis{}, nil
	}
	items, err := s.repo.ListByDocument(ctx, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return items, nil
}

func (s *AnalysisService) record(analysisType domain.AnalysisType, err error) {
	if s.metrics != nil {
		s.metrics.RecordAnalysis(string(analysisType), err)
	}
}
