package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/jwebster45206/gptstar/pkg/chat"
)

const (
	ollamaReadyAttempts = 5
	ollamaPullTimeout   = 10 * time.Minute
)

// OllamaService talks to a self-hosted Ollama server.
type OllamaService struct {
	baseURL     string
	modelName   string
	temperature float64
	httpClient  *http.Client
	retryDelay  time.Duration
	logger      *slog.Logger
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatRequest struct {
	Model    string             `json:"model"`
	Messages []chat.ChatMessage `json:"messages"`
	Stream   bool               `json:"stream"`
	Options  ollamaOptions      `json:"options"`
}

type ollamaChatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error,omitempty"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func NewOllamaService(baseURL, modelName string, temperature float64, logger *slog.Logger) *OllamaService {
	return &OllamaService{
		baseURL:     baseURL,
		modelName:   modelName,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		retryDelay:  2 * time.Second,
		logger:      logger,
	}
}

// InitModel waits for the server and pulls the model when it is missing.
func (s *OllamaService) InitModel(ctx context.Context, modelName string) error {
	s.logger.Info("Initializing LLM model", "model", modelName, "provider", "ollama")

	models, err := s.waitForTags(ctx)
	if err != nil {
		return fmt.Errorf("ollama service is not ready: %w", err)
	}
	if slices.Contains(models, modelName) {
		s.logger.Info("Model already available", "model", modelName)
		return nil
	}

	s.logger.Info("Model not found, pulling it", "model", modelName)
	if err := s.pull(ctx, modelName); err != nil {
		return fmt.Errorf("failed to pull model %s: %w", modelName, err)
	}
	return nil
}

func (s *OllamaService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    s.modelName,
		Messages: messages,
		Options:  ollamaOptions{Temperature: s.temperature},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	raw, err := s.post(ctx, s.httpClient, "/api/chat", body)
	if err != nil {
		return nil, err
	}

	var resp ollamaChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		s.logger.Error("Failed to decode Ollama response", "error", err, "response_body", string(raw))
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", resp.Error)
	}

	message := resp.Message.Content
	if message == "" {
		message = msgNoResponse
	}
	return &chat.ChatResponse{Message: message, Model: resp.Model}, nil
}

// waitForTags polls /api/tags until the server answers, returning the
// installed model names.
func (s *OllamaService) waitForTags(ctx context.Context) ([]string, error) {
	var lastErr error
	for attempt := 1; attempt <= ollamaReadyAttempts; attempt++ {
		models, err := s.tags(ctx)
		if err == nil {
			return models, nil
		}
		lastErr = err
		s.logger.Debug("Ollama not ready yet", "error", err, "attempt", attempt)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
	return nil, fmt.Errorf("no answer after %d attempts: %w", ollamaReadyAttempts, lastErr)
}

func (s *OllamaService) tags(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status: %d", resp.StatusCode)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (s *OllamaService) pull(ctx context.Context, modelName string) error {
	body, err := json.Marshal(map[string]any{"name": modelName, "stream": false})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	// pulls outlast the chat timeout
	_, err = s.post(ctx, &http.Client{Timeout: ollamaPullTimeout}, "/api/pull", body)
	return err
}

func (s *OllamaService) post(ctx context.Context, client *http.Client, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Error("Ollama API returned error",
			"path", path,
			"status_code", resp.StatusCode,
			"response_body", string(raw))
		return nil, fmt.Errorf("API request failed with status: %d", resp.StatusCode)
	}
	return raw, nil
}
