package state

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/gptstar/pkg/game"
)

// Status of a match as seen by the driver.
type Status string

const (
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusAborted  Status = "aborted"
)

// Match is the metadata of one bot game.
type Match struct {
	ID         uuid.UUID   `json:"id"`
	Provider   string      `json:"provider"`
	Model      string      `json:"model"`
	Difficulty string      `json:"difficulty,omitempty"`
	Actions    []string    `json:"actions"`
	Status     Status      `json:"status"`
	Result     game.Result `json:"result,omitempty"`
	Iterations int         `json:"iterations"`
	GameLoop   int         `json:"game_loop"`
	Fallbacks  int         `json:"fallbacks"` // ticks that fell back to the default action
	StartedAt  time.Time   `json:"started_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

func NewMatch(provider, model string, actions []string) *Match {
	now := time.Now().UTC()
	return &Match{
		ID:        uuid.New(),
		Provider:  provider,
		Model:     model,
		Actions:   actions,
		Status:    StatusRunning,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Finish marks the match as over with the given result.
func (m *Match) Finish(status Status, result game.Result) {
	now := time.Now().UTC()
	m.Status = status
	m.Result = result
	m.UpdatedAt = now
	m.FinishedAt = &now
}

// GameTime renders the last recorded game loop as mm:ss.
func (m *Match) GameTime() string {
	return game.FormatGameTime(m.GameLoop)
}
