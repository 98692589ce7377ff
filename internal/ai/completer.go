package ai

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/AmeliaRose802/mailtriage/internal/logging"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// Completer produces a text completion for a prompt. Implementations
// return the raw model output without any cleanup; repairing the
// response is the caller's job.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeminiClient is a Completer backed by the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiClient creates a Gemini-backed completer. model may be
// empty, in which case DefaultModel is used.
func NewGeminiClient(ctx context.Context, apiKey, model string, logger *slog.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
		logger: logger.With(logging.Service("gemini")),
	}, nil
}

// Complete sends the prompt to the configured model and returns the
// text of the response.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("model returned an empty response")
	}

	c.logger.Debug("received completion",
		slog.String("model", c.model),
		slog.Int("response_chars", len(text)))
	return text, nil
}
