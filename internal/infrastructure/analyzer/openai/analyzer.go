package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
	"github.com/kirillkom/legal-dashboard/internal/core/ports"
	"github.com/kirillkom/legal-dashboard/internal/infrastructure/resilience"
)

const maxTokens = 1024

type Options struct {
	BaseURL            string
	Model              string
	Chunker            ports.Chunker
	ResilienceExecutor *resilience.Executor
}

// Analyzer asks a chat model for the same result shape the heuristic analyzer
// produces. Input is cut to the chunker's first chunk.
type Analyzer struct {
	client   *openai.Client
	model    string
	chunker  ports.Chunker
	executor *resilience.Executor
	now      func() time.Time
}

func New(apiKey string, options Options) *Analyzer {
	cfg := openai.DefaultConfig(apiKey)
	if options.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(options.BaseURL, "/")
	}
	model := options.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Analyzer{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		chunker:  options.Chunker,
		executor: options.ResilienceExecutor,
		now:      time.Now,
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
		input = headChunk(a.chunker, text)
	}

	req := openai.ChatCompletionRequest{
		Model: a.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildAnalysisPrompt(analysisType, input)},
		},
		MaxTokens: maxTokens,
	}

	content, err := resilience.Call(ctx, a.executor, "openai.analyze", func(callCtx context.Context) (string, error) {
		resp, err := a.client.CreateChatCompletion(callCtx, req)
		if err != nil {
			return "", fmt.Errorf("create chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("create chat completion: empty choices")
		}
		return resp.Choices[0].Message.Content, nil
	}, classifyOpenAIError)
	if err != nil {
		return domain.AiAnalysis{}, wrapTemporaryIfNeeded("openai analyze", err)
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(extractJSONObject(content)), &reply); err != nil {
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

func headChunk(chunker ports.Chunker, text string) string {
	chunks := chunker.Split(text)
	if len(chunks) == 0 {
		return ""
	}
	return chunks[0]
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
