package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tripnote/tripnote/internal/domain"
	"github.com/tripnote/tripnote/internal/domain/enrichment"
	"github.com/tripnote/tripnote/internal/metrics"
)

const systemPrompt = `You help search a personal travel journal. The user message is a JSON object
{"query": string, "context": [records]} with the search query and up to three records
that matched weakly. Reply with one JSON object only:
{"searchTerms": [string], "filters": {}, "suggestions": [string]}
searchTerms are short alternate keywords likely to appear in the user's records
(synonyms, places, people, dishes). Keep at most 6 terms.`

// Enricher asks an OpenAI-compatible chat model for alternate search terms.
type Enricher struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Config holds the enrichment provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// RequestsPerMinute caps outgoing calls; 0 disables the limit.
	RequestsPerMinute int
	Logger            *zap.Logger
}

// NewEnricher creates an OpenAI-compatible enrichment client.
func NewEnricher(cfg *Config) *Enricher {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute)
	}

	return &Enricher{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		limiter: limiter,
		logger:  cfg.Logger,
	}
}

// Enrich implements search.Enricher. It never waits for the rate limiter:
// over-budget calls fail fast with domain.ErrRateLimited.
func (e *Enricher) Enrich(ctx context.Context, req enrichment.Request) (enrichment.Response, error) {
	if !e.limiter.Allow() {
		metrics.EnrichmentRequestsTotal.WithLabelValues(e.model, "rate_limited").Inc()
		return enrichment.Response{}, fmt.Errorf("enrichment: %w", domain.ErrRateLimited)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return enrichment.Response{}, fmt.Errorf("marshal enrichment request: %w", err)
	}

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.2,
	})
	metrics.EnrichmentRequestDuration.WithLabelValues(e.model).Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		metrics.EnrichmentRequestsTotal.WithLabelValues(e.model, outcome).Inc()
		return enrichment.Response{}, parseAPIError(err)
	}

	metrics.EnrichmentTokensTotal.WithLabelValues(e.model).Add(float64(resp.Usage.TotalTokens))
	enrichment.UsageFromContext(ctx).Add(resp.Usage.TotalTokens)

	if len(resp.Choices) == 0 {
		metrics.EnrichmentRequestsTotal.WithLabelValues(e.model, "malformed").Inc()
		return enrichment.Response{}, fmt.Errorf("empty completion: %w", domain.ErrEnrichmentUnavailable)
	}

	out, err := decodeResponse(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.EnrichmentRequestsTotal.WithLabelValues(e.model, "malformed").Inc()
		e.logger.Debug("malformed enrichment reply",
			zap.String("content", resp.Choices[0].Message.Content), zap.Error(err))
		return enrichment.Response{}, err
	}

	metrics.EnrichmentRequestsTotal.WithLabelValues(e.model, "success").Inc()
	return out, nil
}

// decodeResponse parses the model reply, tolerating a fenced code block around the JSON.
func decodeResponse(content string) (enrichment.Response, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var out enrichment.Response
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return enrichment.Response{}, fmt.Errorf("decode enrichment reply: %v: %w", err, domain.ErrEnrichmentUnavailable)
	}
	if out.Filters == nil {
		out.Filters = map[string]any{}
	}
	if out.Suggestions == nil {
		out.Suggestions = []string{}
	}
	return out, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Enricher) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrEnrichmentUnavailable.
func parseAPIError(err error) error {
	wrap := domain.ErrEnrichmentUnavailable

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("enrichment API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("enrichment API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("enrichment API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("enrichment request failed: %v: %w", err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
