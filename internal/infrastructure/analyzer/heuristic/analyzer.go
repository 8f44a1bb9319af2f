package heuristic

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

// SaturationLength is the rune count at which confidence reaches 1.
const SaturationLength = 10000

// Score is the placeholder confidence: text length over SaturationLength,
// clamped to [0,1].
func Score(text string) float64 {
	return domain.ClampConfidence(float64(utf8.RuneCountInString(text)) / SaturationLength)
}

// Analyzer is a deterministic stand-in for a real model. It performs no
// inference: entity and category lists stay empty and sentiment is neutral.
type Analyzer struct {
	now   func() time.Time
	newID func() string
}

func New() *Analyzer {
	return &Analyzer{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (a *Analyzer) Analyze(_ context.Context, text string, analysisType domain.AnalysisType) (domain.AiAnalysis, error) {
	if analysisType == "" {
		analysisType = domain.AnalysisSentiment
	}
	payload, err := json.Marshal(domain.AnalysisResult{
		Entities:   []string{},
		Categories: []string{},
		Sentiment:  domain.SentimentNeutral,
	})
	if err != nil {
		return domain.AiAnalysis{}, fmt.Errorf("encode analysis result: %w", err)
	}
	return domain.AiAnalysis{
		ID:         a.newID(),
		Type:       analysisType,
		Result:     payload,
		Confidence: Score(text),
		CreatedAt:  a.now().UTC(),
	}, nil
}
