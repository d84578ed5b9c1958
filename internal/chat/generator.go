package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/arigen-tech/docsearch/pkg/logger"
)

// Generator is the black-box text generation collaborator: prompt in, reply
// out. It may fail or time out; the engine surfaces that as
// models.ErrGenerationUnavailable and leaves retries to the caller layer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OllamaGenerator generates replies through a local Ollama server.
type OllamaGenerator struct {
	endpoint   string
	model      string
	httpClient *http.Client
	logger     logger.Logger
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func NewOllamaGenerator(endpoint, model string, timeout time.Duration, log logger.Logger) *OllamaGenerator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OllamaGenerator{
		endpoint: endpoint,
		model:    model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	reqData, err := json.Marshal(ollamaRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/api/generate", bytes.NewReader(reqData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation returned status %d", resp.StatusCode)
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("generation error: %s", out.Error)
	}
	return out.Response, nil
}
