package openai

import (
	"fmt"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

const systemPrompt = `You analyze legal documents.
Return a strict JSON object with keys:
entities (array of strings), categories (array of strings), sentiment ("positive", "negative" or "neutral"),
sentiment_score (number from -1 to 1), summary (string), confidence (number from 0 to 1).
No markdown, no extra keys.`

func buildAnalysisPrompt(analysisType domain.AnalysisType, text string) string {
	return fmt.Sprintf(`Analysis focus: %s

Document:
%s`, analysisType, text)
}
