package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/gptstar/pkg/decision"
	"github.com/jwebster45206/gptstar/pkg/state"
)

// DefaultDecisionLimit is how many decisions are kept per match.
const DefaultDecisionLimit = 1000

// Storage is the match journal: match metadata plus the decision made on
// every tick.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Match operations
	SaveMatch(ctx context.Context, m *state.Match) error
	LoadMatch(ctx context.Context, id uuid.UUID) (*state.Match, error) // nil, nil when missing
	ListMatches(ctx context.Context, limit int) ([]*state.Match, error) // newest first

	// Decision operations
	AppendDecision(ctx context.Context, r *decision.Record) error
	ListDecisions(ctx context.Context, matchID uuid.UUID, limit int) ([]*decision.Record, error) // oldest first, last limit records
}
