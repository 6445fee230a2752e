package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/jwebster45206/gptstar/internal/agent"
	"github.com/jwebster45206/gptstar/internal/services"
	"github.com/jwebster45206/gptstar/pkg/actions"
	"github.com/jwebster45206/gptstar/pkg/game/sim"
	"github.com/jwebster45206/gptstar/pkg/state"
	"github.com/jwebster45206/gptstar/pkg/storage"
	"github.com/jwebster45206/gptstar/pkg/textfilter"
	"github.com/pelletier/go-toml/v2"
)

// Runner plays test cases in-process against one LLM service.
type Runner struct {
	LLM         services.LLMService
	Provider    string
	Model       string
	TickTimeout time.Duration
	Logger      *slog.Logger
}

// LoadTestCase reads a TOML case file.
func LoadTestCase(path string) (*TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case %s: %w", path, err)
	}
	var tc TestCase
	if err := toml.Unmarshal(data, &tc); err != nil {
		return nil, fmt.Errorf("failed to parse case %s: %w", path, err)
	}
	if tc.Iterations <= 0 {
		return nil, fmt.Errorf("case %s: iterations must be positive", path)
	}
	return &tc, nil
}

// Run plays tc and checks its expectations.
func (r *Runner) Run(ctx context.Context, tc *TestCase) (*TestResult, error) {
	start := time.Now()

	names := tc.Actions
	if len(names) == 0 {
		names = append([]string(nil), actions.CoreActions...)
		if tc.Experimental {
			names = append(names, actions.ExperimentalActions...)
		}
	}
	menu, err := actions.DefaultRegistry().Menu(names...)
	if err != nil {
		return nil, err
	}

	difficulty, err := sim.ParseDifficulty(tc.Difficulty)
	if err != nil {
		return nil, err
	}
	g := sim.New(sim.Options{Seed: tc.Seed, Difficulty: difficulty})
	journal := storage.NewMockStorage()

	a, err := agent.New(r.LLM, menu, agent.Options{
		Provider:     r.Provider,
		TickTimeout:  r.TickTimeout,
		Experimental: tc.Experimental,
		Sanitizer:    textfilter.New(true),
		Storage:      journal,
	}, r.Logger)
	if err != nil {
		return nil, err
	}

	match := state.NewMatch(r.Provider, r.Model, menu.Names())
	driver := agent.NewDriver(a, g, match, agent.DriverOptions{
		MaxIterations: tc.Iterations,
		Greeting:      true,
	}, r.Logger)
	if err := driver.Start(ctx); err != nil {
		return nil, err
	}

	records, err := journal.ListDecisions(ctx, match.ID, 0)
	if err != nil {
		return nil, err
	}

	result := &TestResult{
		Name:      tc.Name,
		MatchID:   match.ID,
		Decisions: records,
		Chat:      g.Chat(),
		Duration:  time.Since(start),
	}
	result.Failures = check(tc.Expectations, result)
	return result, nil
}

func check(exp Expectations, res *TestResult) []string {
	var failures []string

	if exp.MinDecisions != nil && len(res.Decisions) < *exp.MinDecisions {
		failures = append(failures, fmt.Sprintf("expected at least %d decisions, got %d", *exp.MinDecisions, len(res.Decisions)))
	}

	fallbacks := 0
	chosen := make(map[string]bool)
	reasoned := false
	for _, rec := range res.Decisions {
		if rec.Fallback {
			fallbacks++
			continue
		}
		chosen[rec.Action] = true
		if rec.Reasoning != "" {
			reasoned = true
		}
	}

	if exp.MaxFallbackRatio != nil && len(res.Decisions) > 0 {
		ratio := float64(fallbacks) / float64(len(res.Decisions))
		if ratio > *exp.MaxFallbackRatio {
			failures = append(failures, fmt.Sprintf("fallback ratio %.2f exceeds %.2f", ratio, *exp.MaxFallbackRatio))
		}
	}

	for _, name := range exp.ActionsUsed {
		if !chosen[name] {
			failures = append(failures, fmt.Sprintf("action %q was never chosen", name))
		}
	}

	if exp.ReasoningNotEmpty && !reasoned {
		failures = append(failures, "no decision carried reasoning")
	}

	if exp.ChatMaxLength != nil {
		if i := slices.IndexFunc(res.Chat, func(s string) bool { return len(s) > *exp.ChatMaxLength }); i >= 0 {
			failures = append(failures, fmt.Sprintf("chat line %d is %d bytes, over %d", i, len(res.Chat[i]), *exp.ChatMaxLength))
		}
	}

	return failures
}
