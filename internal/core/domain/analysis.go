package domain

import (
	"encoding/json"
	"time"
)

type AnalysisType string

const (
	AnalysisSentiment AnalysisType = "sentiment"
	AnalysisEntity    AnalysisType = "entity"
	AnalysisCategory  AnalysisType = "category"
	AnalysisSummary   AnalysisType = "summary"
)

func (t AnalysisType) Valid() bool {
	switch t {
	case AnalysisSentiment, AnalysisEntity, AnalysisCategory, AnalysisSummary:
		return true
	default:
		return false
	}
}

const SentimentNeutral = "neutral"

// AiAnalysis is the stored outcome of one analyzer run. Result is opaque to
// the core and decoded only at the HTTP boundary or by reports.
type AiAnalysis struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"documentId"`
	Type       AnalysisType    `json:"type"`
	Result     json.RawMessage `json:"result"`
	Confidence float64         `json:"confidence"`
	CreatedAt  time.Time       `json:"created_at"`
}

// AnalysisResult is the payload shape produced by the bundled analyzers.
type AnalysisResult struct {
	Entities       []string `json:"entities"`
	Categories     []string `json:"categories"`
	Sentiment      string   `json:"sentiment"`
	SentimentScore float64  `json:"sentiment_score"`
	Summary        string   `json:"summary,omitempty"`
}

// ClampConfidence keeps a score inside [0,1].
func ClampConfidence(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type Feedback struct {
	ID         string    `json:"id"`
	AnalysisID string    `json:"analysis_id"`
	UserID     string    `json:"user_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
