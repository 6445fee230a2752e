package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENVIRONMENT", "LOG_LEVEL", "HTTP_PORT", "REDIS_URL", "LLM_PROVIDER",
		"MODEL_NAME", "LLM_TEMPERATURE", "OPENAI_API_KEY", "OPENAI_API_KEY_FILE",
		"OPENAI_BASE_URL", "ANTHROPIC_API_KEY", "VENICE_API_KEY", "OLLAMA_URL", "BOT_CONFIG",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, "gpt-3.5-turbo", cfg.ModelName)
	assert.Equal(t, 1.0, cfg.Temperature)
	assert.Equal(t, DefaultStepLoops, cfg.Bot.StepLoops)
	assert.Equal(t, 330, cfg.Bot.StepLoops)
	assert.Equal(t, DefaultTickTimeout, cfg.Bot.TickTimeout)
	assert.True(t, cfg.Bot.GreetingEnabled())
	assert.True(t, cfg.Bot.ChatFilterEnabled())
	assert.Zero(t, cfg.Bot.JokeProbability)
	assert.Empty(t, cfg.HTTPPort)
}

func TestLoad_APIKeyFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY_FILE", writeFile(t, "openai.txt", "sk-from-file\n"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-file", cfg.OpenAIAPIKey)
}

func TestLoad_MissingKey(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("LLM_PROVIDER", "anthropic")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("LLM_PROVIDER", "ollama")
	_, err = Load()
	assert.NoError(t, err, "ollama has a default URL and needs no key")
}

func TestLoad_UnknownProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "carrier-pigeon")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_BotConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("BOT_CONFIG", writeFile(t, "bot.toml", `
[bot]
actions = ["wait", "train a worker"]
experimental = true
step_loops = 100
tick_timeout = "5s"
joke_probability = 0.25
greeting = false
max_iterations = 40
seed = 7
difficulty = "hard"
`))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"wait", "train a worker"}, cfg.Bot.Actions)
	assert.True(t, cfg.Bot.Experimental)
	assert.Equal(t, 100, cfg.Bot.StepLoops)
	assert.Equal(t, 5*time.Second, cfg.Bot.TickTimeout)
	assert.Equal(t, 0.25, cfg.Bot.JokeProbability)
	assert.False(t, cfg.Bot.GreetingEnabled())
	assert.True(t, cfg.Bot.ChatFilterEnabled())
	assert.Equal(t, 40, cfg.Bot.MaxIterations)
	assert.Equal(t, int64(7), cfg.Bot.Seed)
	assert.Equal(t, "hard", cfg.Bot.Difficulty)
}

func TestLoad_InvalidBotConfig(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"probability above one", "[bot]\njoke_probability = 1.5\n"},
		{"negative step", "[bot]\nstep_loops = -1\n"},
		{"bad duration", "[bot]\ntick_timeout = \"soon\"\n"},
		{"malformed", "[bot\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("OPENAI_API_KEY", "sk-test")
			t.Setenv("BOT_CONFIG", writeFile(t, "bot.toml", tt.toml))
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("nonsense"))
}
