package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderVenice    = "venice"
	ProviderOllama    = "ollama"

	// DefaultStepLoops is fifteen seconds of game time at 22 loops per second.
	DefaultStepLoops   = 22 * 15
	DefaultTickTimeout = 30 * time.Second
)

type Config struct {
	Environment string
	LogLevel    slog.Level
	HTTPPort    string // empty disables the HTTP API
	RedisURL    string // empty disables the journal

	LLMProvider     string
	ModelName       string
	Temperature     float64
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	VeniceAPIKey    string
	OllamaURL       string

	Bot Bot
}

// Bot holds the per-match settings read from the [bot] table of BOT_CONFIG.
type Bot struct {
	Actions         []string      `toml:"actions"`
	Experimental    bool          `toml:"experimental"`
	StepLoops       int           `toml:"step_loops"`
	TickTimeout     time.Duration `toml:"-"`
	RawTickTimeout  string        `toml:"tick_timeout"`
	JokeProbability float64       `toml:"joke_probability"`
	Greeting        *bool         `toml:"greeting"`
	ChatFilter      *bool         `toml:"chat_filter"`
	MaxIterations   int           `toml:"max_iterations"`
	Seed            int64         `toml:"seed"`
	Difficulty      string        `toml:"difficulty"`
}

// GreetingEnabled defaults to true when the key is absent.
func (b Bot) GreetingEnabled() bool { return b.Greeting == nil || *b.Greeting }

// ChatFilterEnabled defaults to true when the key is absent.
func (b Bot) ChatFilterEnabled() bool { return b.ChatFilter == nil || *b.ChatFilter }

type botFile struct {
	Bot Bot `toml:"bot"`
}

// Load reads .env (if present), the environment and the optional TOML bot
// file, then validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		LogLevel:        parseLogLevel(getEnv("LOG_LEVEL", "info")),
		HTTPPort:        getEnv("HTTP_PORT", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		ModelName:       getEnv("MODEL_NAME", "gpt-3.5-turbo"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		VeniceAPIKey:    getEnv("VENICE_API_KEY", ""),
		OllamaURL:       getEnv("OLLAMA_URL", "http://localhost:11434"),
	}

	temp, err := strconv.ParseFloat(getEnv("LLM_TEMPERATURE", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TEMPERATURE: %w", err)
	}
	cfg.Temperature = temp

	if cfg.OpenAIAPIKey == "" {
		if path := getEnv("OPENAI_API_KEY_FILE", ""); path != "" {
			key, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read OPENAI_API_KEY_FILE: %w", err)
			}
			cfg.OpenAIAPIKey = strings.TrimSpace(string(key))
		}
	}

	if path := getEnv("BOT_CONFIG", ""); path != "" {
		bot, err := LoadBot(path)
		if err != nil {
			return nil, err
		}
		cfg.Bot = *bot
	}
	cfg.Bot.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadBot parses the [bot] table of a TOML file.
func LoadBot(path string) (*Bot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bot config: %w", err)
	}
	var f botFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse bot config %s: %w", path, err)
	}
	if f.Bot.RawTickTimeout != "" {
		d, err := time.ParseDuration(f.Bot.RawTickTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid tick_timeout %q: %w", f.Bot.RawTickTimeout, err)
		}
		f.Bot.TickTimeout = d
	}
	return &f.Bot, nil
}

func (b *Bot) applyDefaults() {
	if b.StepLoops == 0 {
		b.StepLoops = DefaultStepLoops
	}
	if b.TickTimeout == 0 {
		b.TickTimeout = DefaultTickTimeout
	}
}

// Validate checks provider credentials and bot settings.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
			return errors.New("OPENAI_API_KEY or OPENAI_API_KEY_FILE is required for the openai provider")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return errors.New("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case ProviderVenice:
		if c.VeniceAPIKey == "" {
			return errors.New("VENICE_API_KEY is required for the venice provider")
		}
	case ProviderOllama:
		if c.OllamaURL == "" {
			return errors.New("OLLAMA_URL is required for the ollama provider")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	if c.Bot.StepLoops <= 0 {
		return fmt.Errorf("step_loops must be positive, got %d", c.Bot.StepLoops)
	}
	if c.Bot.TickTimeout <= 0 {
		return fmt.Errorf("tick_timeout must be positive, got %s", c.Bot.TickTimeout)
	}
	if c.Bot.JokeProbability < 0 || c.Bot.JokeProbability > 1 {
		return fmt.Errorf("joke_probability must be within [0, 1], got %g", c.Bot.JokeProbability)
	}
	if c.Bot.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must not be negative, got %d", c.Bot.MaxIterations)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
