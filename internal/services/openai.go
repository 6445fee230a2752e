package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/gptstar/pkg/chat"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIService implements LLMService for OpenAI and OpenAI-compatible
// endpoints.
type OpenAIService struct {
	client      openai.Client
	modelName   string
	temperature float64
	logger      *slog.Logger
}

// NewOpenAIService creates an OpenAI client. baseURL may be empty.
// Retries are disabled; a failed tick falls back instead.
func NewOpenAIService(apiKey, modelName, baseURL string, temperature float64, logger *slog.Logger) *OpenAIService {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIService{
		client:      openai.NewClient(opts...),
		modelName:   modelName,
		temperature: temperature,
		logger:      logger,
	}
}

func (s *OpenAIService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// Chat sends the messages as a single chat completion request.
func (s *OpenAIService) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.ChatRoleSystem:
			params = append(params, openai.SystemMessage(msg.Content))
		case chat.ChatRoleAgent:
			params = append(params, openai.AssistantMessage(msg.Content))
		default:
			params = append(params, openai.UserMessage(msg.Content))
		}
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       s.modelName,
		Messages:    params,
		Temperature: openai.Opt(s.temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	s.logger.Debug("OpenAI completion",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	content := resp.Choices[0].Message.Content
	if content == "" {
		content = msgNoResponse
	}
	return &chat.ChatResponse{Message: content, Model: resp.Model}, nil
}
