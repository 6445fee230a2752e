package decision

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Record is the journal entry for one tick.
type Record struct {
	ID        uuid.UUID `json:"id"`
	MatchID   uuid.UUID `json:"match_id"`
	Iteration int       `json:"iteration"`
	GameTime  string    `json:"game_time"`

	Prompt string `json:"prompt"`          // user message sent to the model
	Reply  string `json:"reply,omitempty"` // raw model reply
	Model  string `json:"model,omitempty"`

	Index     int    `json:"index"` // -1 when no index could be parsed
	Action    string `json:"action"`
	Reasoning string `json:"reasoning,omitempty"`
	// Filtered is set when the chat line had words replaced; Reasoning
	// keeps the model's wording.
	Filtered bool `json:"filtered,omitempty"`

	// Fallback is set when Action is the default action because the reply
	// could not be used. ErrorKind and Error describe why.
	Fallback  bool   `json:"fallback,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`

	// CommandError is the in-game failure of the dispatched command, if any.
	CommandError string `json:"command_error,omitempty"`

	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewRecord starts a record for a tick.
func NewRecord(matchID uuid.UUID, iteration int) *Record {
	return &Record{
		ID:        uuid.New(),
		MatchID:   matchID,
		Iteration: iteration,
		Index:     -1,
		CreatedAt: time.Now(),
	}
}

// ToJSON converts the record to JSON bytes for Redis.
func (r *Record) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a record from JSON bytes.
func FromJSON(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
