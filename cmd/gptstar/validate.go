package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jwebster45206/gptstar/pkg/actions"
	"github.com/jwebster45206/gptstar/pkg/game/sim"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <bot.toml>",
		Short: "Check a bot config file without starting a match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := &BotConfigValidator{registry: actions.DefaultRegistry()}
			if err := v.validateFile(args[0]); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Bot config is valid!")
			return nil
		},
	}
}

// BotConfigValidator collects every problem in a bot config instead of
// stopping at the first one.
type BotConfigValidator struct {
	registry *actions.Registry
	errors   []string
}

// botTable mirrors the [bot] table with the raw TOML types.
type botTable struct {
	Bot struct {
		Actions         []string `toml:"actions"`
		Experimental    bool     `toml:"experimental"`
		StepLoops       *int     `toml:"step_loops"`
		TickTimeout     string   `toml:"tick_timeout"`
		JokeProbability float64  `toml:"joke_probability"`
		Greeting        *bool    `toml:"greeting"`
		ChatFilter      *bool    `toml:"chat_filter"`
		MaxIterations   int      `toml:"max_iterations"`
		Seed            int64    `toml:"seed"`
		Difficulty      string   `toml:"difficulty"`
	} `toml:"bot"`
}

func (v *BotConfigValidator) validateFile(filename string) error {
	if filepath.Ext(filename) != ".toml" {
		return fmt.Errorf("bot config must have .toml extension: %s", filepath.Base(filename))
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil

	var t botTable
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&t); err != nil {
		return fmt.Errorf("file %s failed strict TOML decoding: %w", filename, err)
	}

	v.validateBot(&t)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *BotConfigValidator) validateBot(t *botTable) {
	b := t.Bot

	seen := make(map[string]bool)
	for i, name := range b.Actions {
		if _, ok := v.registry.Lookup(name); !ok {
			v.addError("actions[%d]: unknown action %q (known: %s)", i, name, strings.Join(v.registry.Names(), ", "))
		}
		if seen[name] {
			v.addError("actions[%d]: duplicate action %q", i, name)
		}
		seen[name] = true
	}
	if len(b.Actions) > 0 && !seen[actions.Wait] {
		v.addError("actions: %q must be offered so the bot can pass", actions.Wait)
	}

	if b.StepLoops != nil && *b.StepLoops <= 0 {
		v.addError("step_loops must be positive, got %d", *b.StepLoops)
	}
	if b.TickTimeout != "" {
		d, err := time.ParseDuration(b.TickTimeout)
		if err != nil {
			v.addError("tick_timeout: %v", err)
		} else if d <= 0 {
			v.addError("tick_timeout must be positive, got %s", d)
		}
	}
	if b.JokeProbability < 0 || b.JokeProbability > 1 {
		v.addError("joke_probability must be within [0, 1], got %g", b.JokeProbability)
	}
	if b.MaxIterations < 0 {
		v.addError("max_iterations must not be negative, got %d", b.MaxIterations)
	}
	if _, err := sim.ParseDifficulty(b.Difficulty); err != nil {
		v.addError("difficulty: %v", err)
	}
}

func (v *BotConfigValidator) addError(format string, args ...any) {
	v.errors = append(v.errors, "  - "+fmt.Sprintf(format, args...))
}
