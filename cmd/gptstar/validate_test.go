package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jwebster45206/gptstar/pkg/actions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBotFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateCmd_Valid(t *testing.T) {
	path := writeBotFile(t, "bot.toml", `
[bot]
actions = ["wait", "train a worker", "build barracks"]
step_loops = 330
tick_timeout = "20s"
joke_probability = 0.1
difficulty = "hard"
`)
	out := execute(t, "validate", path)
	assert.Contains(t, out, "Bot config is valid!")
}

func TestBotConfigValidator(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		errs    []string
	}{
		{
			name:    "wrong extension",
			file:    "bot.json",
			content: `{}`,
			errs:    []string{"must have .toml extension"},
		},
		{
			name:    "unknown key",
			file:    "bot.toml",
			content: "[bot]\nsupply = 3\n",
			errs:    []string{"strict TOML decoding"},
		},
		{
			name: "collects every problem",
			file: "bot.toml",
			content: `
[bot]
actions = ["train a worker", "nuke", "train a worker"]
step_loops = 0
tick_timeout = "soon"
joke_probability = 2
max_iterations = -1
difficulty = "brutal"
`,
			errs: []string{
				`unknown action "nuke"`,
				`duplicate action "train a worker"`,
				`"wait" must be offered`,
				"step_loops must be positive",
				"tick_timeout:",
				"joke_probability must be within",
				"max_iterations must not be negative",
				`unknown difficulty "brutal"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &BotConfigValidator{registry: actions.DefaultRegistry()}
			err := v.validateFile(writeBotFile(t, tt.file, tt.content))
			require.Error(t, err)
			for _, want := range tt.errs {
				assert.ErrorContains(t, err, want)
			}
		})
	}
}

func TestBotConfigValidator_EmptyTableIsValid(t *testing.T) {
	v := &BotConfigValidator{registry: actions.DefaultRegistry()}
	assert.NoError(t, v.validateFile(writeBotFile(t, "bot.toml", "[bot]\n")))
}
