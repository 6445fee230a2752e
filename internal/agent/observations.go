package agent

import (
	"github.com/jwebster45206/gptstar/pkg/game"
	"github.com/jwebster45206/gptstar/pkg/prompts"
)

// WriteObservations adds the snapshot to b in the order the model has
// always seen it. experimental adds the command center counts.
func WriteObservations(b *prompts.Builder, s *game.Snapshot, experimental bool) *prompts.Builder {
	b.AddObservation("game time", s.TimeFormatted()).
		AddObservation("minerals", s.Minerals).
		AddObservation("vespene", s.Vespene).
		AddObservation("army count", s.ArmySupply).
		AddObservation("worker count", s.WorkerSupply).
		AddObservation("supply cap", s.SupplyCap).
		AddObservation("number of supply depots", s.Count(game.SupplyDepot)).
		AddObservation("supply depots under construction", s.InProgress(game.SupplyDepot)).
		AddObservation("number of barracks", s.Count(game.Barracks)).
		AddObservation("number of barracks under construction", s.InProgress(game.Barracks))

	if experimental {
		b.AddObservation("number of command centers", s.Count(game.CommandCenter)).
			AddObservation("number of command centers under construction", s.InProgress(game.CommandCenter))
	}

	return b.AddObservation("enemy units in vision range", s.EnemyUnits).
		AddObservation("enemy structures in vision range", s.EnemyStructures)
}
