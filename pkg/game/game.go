// Package game defines the boundary between the agent and a StarCraft II
// client: what the agent can observe and which commands it can issue.
package game

import (
	"context"
	"errors"
	"fmt"
)

// LoopsPerSecond is the game speed used for "faster" (the ladder speed).
const LoopsPerSecond = 22.4

// UnitType identifies a unit or structure.
type UnitType string

const (
	SCV           UnitType = "SCV"
	Marine        UnitType = "Marine"
	CommandCenter UnitType = "CommandCenter"
	SupplyDepot   UnitType = "SupplyDepot"
	Barracks      UnitType = "Barracks"
)

// Target is where an attack order is sent.
type Target string

const (
	EnemyBase    Target = "enemy_base"
	NearestEnemy Target = "nearest_enemy"
)

// Result is the outcome of a match.
type Result string

const (
	ResultUndecided Result = ""
	ResultVictory   Result = "victory"
	ResultDefeat    Result = "defeat"
	ResultTie       Result = "tie"
)

var (
	ErrCannotAfford       = errors.New("not enough resources")
	ErrSupplyBlocked      = errors.New("supply blocked")
	ErrNoProducer         = errors.New("no idle production structure")
	ErrNoWorker           = errors.New("no worker available")
	ErrMissingRequirement = errors.New("tech requirement not met")
	ErrNoArmy             = errors.New("no army units")
	ErrGameOver           = errors.New("game is over")
)

// Snapshot is the observable state of our side at one game loop.
type Snapshot struct {
	GameLoop     int              `json:"game_loop"`
	Minerals     int              `json:"minerals"`
	Vespene      int              `json:"vespene"`
	ArmySupply   int              `json:"army_supply"`
	WorkerSupply int              `json:"worker_supply"`
	SupplyCap    int              `json:"supply_cap"`
	Structures   map[UnitType]int `json:"structures"` // completed structures
	Pending      map[UnitType]int `json:"pending"`    // queued or under construction

	EnemyUnits      int `json:"enemy_units"`      // in vision range
	EnemyStructures int `json:"enemy_structures"` // in vision range
}

// TimeFormatted renders the in-game clock as mm:ss.
func (s *Snapshot) TimeFormatted() string {
	return FormatGameTime(s.GameLoop)
}

// Count returns the number of completed structures of a type.
func (s *Snapshot) Count(t UnitType) int {
	return s.Structures[t]
}

// InProgress returns the number of units or structures of a type that are
// queued or under construction.
func (s *Snapshot) InProgress(t UnitType) int {
	return s.Pending[t]
}

// FormatGameTime converts game loops to mm:ss.
func FormatGameTime(loop int) string {
	seconds := int(float64(loop) / LoopsPerSecond)
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Game is the command surface of a running match. Commands that cannot be
// carried out return one of the sentinel errors above; callers treat those
// as a wasted tick, not a failure of the match.
type Game interface {
	// Observe returns the current state of our side.
	Observe(ctx context.Context) (*Snapshot, error)

	// Train queues units at idle producers.
	Train(ctx context.Context, unit UnitType, amount int) error

	// Build places a structure with a worker near the main base.
	Build(ctx context.Context, structure UnitType) error

	// Attack sends every army unit at the target.
	Attack(ctx context.Context, target Target) error

	// Scout sends one worker toward the enemy start location.
	Scout(ctx context.Context) error

	// DistributeWorkers rebalances workers over mineral fields.
	DistributeWorkers(ctx context.Context) error

	// SendChat writes a line to the all-chat.
	SendChat(ctx context.Context, message string) error

	// Step advances the match by the given number of game loops and
	// reports whether it is still running.
	Step(ctx context.Context, loops int) (bool, error)

	// Result reports the outcome; ResultUndecided while running.
	Result() Result
}
