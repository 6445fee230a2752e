package runner

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/gptstar/pkg/decision"
)

// TestCase is one live match played against the configured model.
type TestCase struct {
	Name         string       `toml:"name"`
	Seed         int64        `toml:"seed"`
	Difficulty   string       `toml:"difficulty"`
	Experimental bool         `toml:"experimental"`
	Actions      []string     `toml:"actions"`    // empty uses the core menu
	Iterations   int          `toml:"iterations"` // ticks to play
	Expectations Expectations `toml:"expect"`
}

// Expectations are checked against the journal after the match.
type Expectations struct {
	MinDecisions      *int     `toml:"min_decisions"`
	MaxFallbackRatio  *float64 `toml:"max_fallback_ratio"`
	ActionsUsed       []string `toml:"actions_used"` // each must be chosen at least once
	ReasoningNotEmpty bool     `toml:"reasoning_not_empty"`
	ChatMaxLength     *int     `toml:"chat_max_length"`
}

// TestResult is the outcome of one case.
type TestResult struct {
	Name      string
	MatchID   uuid.UUID
	Decisions []*decision.Record
	Chat      []string
	Failures  []string
	Duration  time.Duration
}

// Passed reports whether every expectation held.
func (r *TestResult) Passed() bool { return len(r.Failures) == 0 }
