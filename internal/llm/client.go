// Package llm provides the text completion client used by the article,
// blog-title and resume-review operations. It speaks the OpenAI chat
// completion protocol against an OpenAI-compatible endpoint (OpenRouter by
// default).
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/quickai/quickai/internal/upstream"
)

const (
	// MaxTokensCeiling caps every request regardless of what the caller asks for.
	MaxTokensCeiling = 1024
	// DefaultTemperature is used when the caller passes zero.
	DefaultTemperature float32 = 0.7
	// DefaultModel is the free OpenRouter model.
	DefaultModel = "mistralai/mistral-7b-instruct:free"
	// DefaultBaseURL is the OpenRouter OpenAI-compatible endpoint.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	providerName = "openrouter"
)

// ErrEmptyCompletion is returned when the provider answers without choices.
var ErrEmptyCompletion = errors.New("completion returned no choices")

// chatAPI is the subset of *openai.Client the client depends on.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config for the completion client.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Client sends single-turn completions.
type Client struct {
	api    chatAPI
	model  string
	logger *slog.Logger
}

// New creates a completion client.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	return &Client{
		api:    openai.NewClientWithConfig(oc),
		model:  cfg.Model,
		logger: logger,
	}
}

// ClampMaxTokens applies the ceiling. Non-positive values mean "as much as
// allowed".
func ClampMaxTokens(n int) int {
	if n <= 0 || n > MaxTokensCeiling {
		return MaxTokensCeiling
	}
	return n
}

// Complete sends prompt as a single user message at the default temperature.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return c.CompleteWithOptions(ctx, prompt, maxTokens, DefaultTemperature)
}

// CompleteWithOptions sends prompt as a single user message and returns the
// first choice's text. Any provider failure is an upstream error carrying the
// provider's message.
func (c *Client) CompleteWithOptions(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	if temperature <= 0 {
		temperature = DefaultTemperature
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   ClampMaxTokens(maxTokens),
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Warn("completion failed",
			"model", c.model,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return "", fmt.Errorf("complete: %w", toUpstreamError(err))
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("complete: %w", &upstream.Error{
			Provider: providerName,
			Message:  ErrEmptyCompletion.Error(),
			Err:      ErrEmptyCompletion,
		})
	}

	c.logger.Debug("completion finished",
		"model", c.model,
		"max_tokens", req.MaxTokens,
		"total_tokens", resp.Usage.TotalTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return resp.Choices[0].Message.Content, nil
}

func toUpstreamError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &upstream.Error{
			Provider:   providerName,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &upstream.Error{
			Provider:   providerName,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    msg,
			Err:        err,
		}
	}

	return upstream.Wrap(providerName, err)
}
