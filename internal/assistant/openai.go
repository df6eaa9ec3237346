package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/geoshield/geoshield/internal/analytics"
	apperrors "github.com/geoshield/geoshield/internal/common/errors"
	"github.com/geoshield/geoshield/internal/metrics"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

const systemPrompt = "You are a concise security analyst for a login-monitoring dashboard. " +
	"Answer the user's question using only the analytics JSON provided. " +
	"Keep answers short, factual and actionable."

// OpenAIConfig holds the live generator configuration
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string // overridable for tests
	HTTPTimeout time.Duration
}

// OpenAIGenerator answers questions via the chat-completions API.
// Unlike the intel gateway there is no sub-result decomposition: an
// unreachable or unconfigured upstream fails the whole request.
type OpenAIGenerator struct {
	config OpenAIConfig
	client *http.Client
	logger *zap.Logger
}

// NewOpenAIGenerator creates the live generator
func NewOpenAIGenerator(cfg OpenAIConfig, logger *zap.Logger) *OpenAIGenerator {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}

	return &OpenAIGenerator{
		config: cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
		logger: logger.With(zap.String("component", "assistant_openai")),
	}
}

// Mode identifies this generator as live
func (g *OpenAIGenerator) Mode() string {
	return "live"
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Answer sends the question plus the snapshot JSON to the model
func (g *OpenAIGenerator) Answer(ctx context.Context, question string, snapshot *analytics.Snapshot) (string, error) {
	start := time.Now()

	if g.config.APIKey == "" {
		metrics.RecordAssistantRequest("live", "failure", time.Since(start))
		return "", apperrors.UpstreamUnavailable("OpenAI")
	}

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return "", apperrors.Internal("failed to encode analytics snapshot", err)
	}

	payload := chatRequest{
		Model: g.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Analytics data:\n%s\n\nQuestion: %s", snapshotJSON, question)},
		},
		Temperature: 0.2,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.Internal("failed to encode assistant request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.config.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Internal("failed to build assistant request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.config.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		metrics.RecordAssistantRequest("live", "failure", time.Since(start))
		return "", apperrors.UpstreamFailure("OpenAI", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordAssistantRequest("live", "failure", time.Since(start))
		return "", apperrors.UpstreamFailure("OpenAI", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.RecordAssistantRequest("live", "failure", time.Since(start))
		g.logger.Warn("Assistant upstream error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return "", apperrors.UpstreamFailure("OpenAI",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		metrics.RecordAssistantRequest("live", "failure", time.Since(start))
		return "", apperrors.UpstreamFailure("OpenAI", err)
	}
	if len(parsed.Choices) == 0 {
		metrics.RecordAssistantRequest("live", "failure", time.Since(start))
		return "", apperrors.UpstreamFailure("OpenAI", fmt.Errorf("empty completion"))
	}

	metrics.RecordAssistantRequest("live", "success", time.Since(start))
	return parsed.Choices[0].Message.Content, nil
}
