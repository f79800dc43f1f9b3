package imaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/quickai/quickai/internal/upstream"
)

const (
	// DefaultClipdropURL is the text-to-image endpoint.
	DefaultClipdropURL = "https://clipdrop-api.co/text-to-image/v1"

	clipdropProvider = "clipdrop"
	maxImageBytes    = 20 << 20
)

// ClipdropGenerator renders images from text prompts.
type ClipdropGenerator struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

// NewClipdropGenerator creates a generator. An empty endpoint uses the public API.
func NewClipdropGenerator(endpoint, apiKey string, client *http.Client, logger *slog.Logger) *ClipdropGenerator {
	if endpoint == "" {
		endpoint = DefaultClipdropURL
	}
	if client == nil {
		client = upstream.NewHTTPClient()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClipdropGenerator{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   client,
		logger:   logger,
	}
}

// Generate returns the rendered image bytes for prompt.
func (g *ClipdropGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("clipdrop: %w", ErrNotConfigured)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("prompt", prompt); err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("User-Agent", upstream.UserAgent)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("clipdrop request: %w", upstream.Wrap(clipdropProvider, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("clipdrop read: %w", upstream.Wrap(clipdropProvider, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := clipdropErrorMessage(data, resp.StatusCode)
		g.logger.Warn("image generation failed",
			"status", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("clipdrop: %w", upstream.New(clipdropProvider, resp.StatusCode, msg))
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("clipdrop: %w", &upstream.Error{
			Provider: clipdropProvider,
			Message:  ErrEmptyImage.Error(),
			Err:      ErrEmptyImage,
		})
	}

	g.logger.Debug("image generated",
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}

func clipdropErrorMessage(body []byte, status int) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) < 256 {
		return s
	}
	return http.StatusText(status)
}
