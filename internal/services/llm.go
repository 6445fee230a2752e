package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/gptstar/internal/config"
	"github.com/jwebster45206/gptstar/pkg/chat"
)

const msgNoResponse = "(no response)"

// LLMService defines the interface for interacting with a chat-completion API
type LLMService interface {
	// InitModel prepares the model on startup
	InitModel(ctx context.Context, modelName string) error

	// Chat sends the messages and returns the model's reply
	Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)
}

// NewLLMService builds the service for the configured provider.
func NewLLMService(cfg *config.Config, logger *slog.Logger) (LLMService, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return NewOpenAIService(cfg.OpenAIAPIKey, cfg.ModelName, cfg.OpenAIBaseURL, cfg.Temperature, logger), nil
	case config.ProviderAnthropic:
		return NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, cfg.Temperature, logger), nil
	case config.ProviderVenice:
		return NewVeniceService(cfg.VeniceAPIKey, cfg.ModelName, cfg.Temperature), nil
	case config.ProviderOllama:
		return NewOllamaService(cfg.OllamaURL, cfg.ModelName, cfg.Temperature, logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}
