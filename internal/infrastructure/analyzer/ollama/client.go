package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/core/ports"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/resilience"
)

type Options struct {
	Model              string
	Timeout            time.Duration
	Chunker            ports.Chunker
	ResilienceExecutor *resilience.Executor
}

// Analyzer runs text analysis against a self-hosted Ollama model.
type Analyzer struct {
	baseURL    string
	model      string
	httpClient *http.Client
	chunker    ports.Chunker
	executor   *resilience.Executor
	now        func() time.Time
}

func New(baseURL string, options Options) *Analyzer {
	model := options.Model
	if model == "" {
		model = "llama3.1"
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Analyzer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		chunker:    options.Chunker,
		executor:   options.ResilienceExecutor,
		now:        time.Now,
	}
}

type modelReply struct {
	domain.AnalysisResult
	Confidence float64 `json:"confidence"`
}

func (a *Analyzer) Analyze(ctx context.Context, text string, analysisType domain.AnalysisType) (domain.AiAnalysis, error) {
	if analysisType == "" {
		analysisType = domain.AnalysisSentiment
	}
	input := text
	if a.chunker != nil {
		if chunks := a.chunker.Split(text); len(chunks) > 0 {
			input = chunks[0]
		}
	}

	respText, err := resilience.Call(ctx, a.executor, "ollama.analyze", func(callCtx context.Context) (string, error) {
		return a.generateJSON(callCtx, buildAnalysisPrompt(analysisType, input))
	}, classifyOllamaError)
	if err != nil {
		return domain.AiAnalysis{}, wrapTemporaryIfNeeded("ollama analyze", err)
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &reply); err != nil {
		return domain.AiAnalysis{}, fmt.Errorf("parse analysis json: %w", err)
	}
	if reply.Entities == nil {
		reply.Entities = []string{}
	}
	if reply.Categories == nil {
		reply.Categories = []string{}
	}
	if reply.Sentiment == "" {
		reply.Sentiment = domain.SentimentNeutral
	}
	payload, err := json.Marshal(reply.AnalysisResult)
	if err != nil {
		return domain.AiAnalysis{}, fmt.Errorf("encode analysis result: %w", err)
	}

	return domain.AiAnalysis{
		ID:         uuid.NewString(),
		Type:       analysisType,
		Result:     payload,
		Confidence: domain.ClampConfidence(reply.Confidence),
		CreatedAt:  a.now().UTC(),
	}, nil
}

func (a *Analyzer) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  a.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	var response struct {
		Response string `json:"response"`
	}
	if err := a.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
