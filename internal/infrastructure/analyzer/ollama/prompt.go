package ollama

import (
	"fmt"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

func buildAnalysisPrompt(analysisType domain.AnalysisType, text string) string {
	return fmt.Sprintf(`You analyze legal documents.
Return strict JSON object with keys:
entities (array of strings), categories (array of strings), sentiment ("positive", "negative" or "neutral"),
sentiment_score (number from -1 to 1), summary (string), confidence (number from 0 to 1).
No markdown, no extra keys.

Analysis focus: %s

Document:
%s`, analysisType, text)
}
