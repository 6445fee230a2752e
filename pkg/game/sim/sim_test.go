package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/jwebster45206/gptstar/pkg/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatch() *Match {
	return New(Options{Seed: 1, Difficulty: Easy})
}

func TestNew_OpeningState(t *testing.T) {
	m := newTestMatch()
	s, err := m.Observe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, s.GameLoop)
	assert.Equal(t, startingMinerals, s.Minerals)
	assert.Equal(t, startingWorkers, s.WorkerSupply)
	assert.Equal(t, 0, s.ArmySupply)
	assert.Equal(t, 15, s.SupplyCap)
	assert.Equal(t, 1, s.Count(game.CommandCenter))
	assert.Equal(t, 0, s.EnemyUnits)
	assert.Equal(t, 0, s.EnemyStructures)
	assert.Equal(t, "00:00", s.TimeFormatted())
	assert.Equal(t, game.ResultUndecided, m.Result())
}

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty("")
	require.NoError(t, err)
	assert.Equal(t, Easy, d)

	d, err = ParseDifficulty(" HARD ")
	require.NoError(t, err)
	assert.Equal(t, Hard, d)

	_, err = ParseDifficulty("cheater")
	assert.Error(t, err)
}

func TestStep_MiningIncome(t *testing.T) {
	m := newTestMatch()
	running, err := m.Step(context.Background(), 330)
	require.NoError(t, err)
	assert.True(t, running)

	s, _ := m.Observe(context.Background())
	assert.Equal(t, 330, s.GameLoop)
	// 12 workers at 0.0425 minerals per loop for 330 loops
	assert.Equal(t, 50+168, s.Minerals)
}

func TestTrain_Worker(t *testing.T) {
	ctx := context.Background()
	m := newTestMatch()

	require.NoError(t, m.Train(ctx, game.SCV, 1))

	s, _ := m.Observe(ctx)
	assert.Equal(t, 0, s.Minerals)
	assert.Equal(t, 1, s.InProgress(game.SCV))

	m.minerals = 500
	err := m.Train(ctx, game.SCV, 1)
	assert.True(t, errors.Is(err, game.ErrNoProducer), "one command center trains one SCV at a time: %v", err)

	_, err = m.Step(ctx, costs[game.SCV].loops)
	require.NoError(t, err)

	s, _ = m.Observe(ctx)
	assert.Equal(t, startingWorkers+1, s.WorkerSupply)
	assert.Equal(t, 0, s.InProgress(game.SCV))
	assert.Equal(t, 1, m.idleWorkers)

	require.NoError(t, m.DistributeWorkers(ctx))
	assert.Equal(t, 0, m.idleWorkers)
}

func TestTrain_CannotAfford(t *testing.T) {
	m := newTestMatch()
	m.minerals = 10
	err := m.Train(context.Background(), game.SCV, 1)
	assert.True(t, errors.Is(err, game.ErrCannotAfford))
}

func TestTrain_SupplyBlocked(t *testing.T) {
	m := newTestMatch()
	m.minerals = 1000
	m.workers = 15
	err := m.Train(context.Background(), game.SCV, 1)
	assert.True(t, errors.Is(err, game.ErrSupplyBlocked))
}

func TestTrain_MarineNeedsBarracks(t *testing.T) {
	m := newTestMatch()
	m.minerals = 1000
	err := m.Train(context.Background(), game.Marine, 1)
	assert.True(t, errors.Is(err, game.ErrNoProducer))

	m.structures[game.Barracks] = 2
	require.NoError(t, m.Train(context.Background(), game.Marine, 5))
	s, _ := m.Observe(context.Background())
	assert.Equal(t, 2, s.InProgress(game.Marine), "one marine per barracks")
}

func TestBuild_SupplyDepot(t *testing.T) {
	ctx := context.Background()
	m := newTestMatch()

	err := m.Build(ctx, game.SupplyDepot)
	assert.True(t, errors.Is(err, game.ErrCannotAfford))

	m.minerals = 100
	require.NoError(t, m.Build(ctx, game.SupplyDepot))
	s, _ := m.Observe(ctx)
	assert.Equal(t, 1, s.InProgress(game.SupplyDepot))
	assert.Equal(t, 0, s.Count(game.SupplyDepot))

	_, err = m.Step(ctx, costs[game.SupplyDepot].loops)
	require.NoError(t, err)

	s, _ = m.Observe(ctx)
	assert.Equal(t, 1, s.Count(game.SupplyDepot))
	assert.Equal(t, 23, s.SupplyCap)
}

func TestBuild_BarracksNeedsDepot(t *testing.T) {
	ctx := context.Background()
	m := newTestMatch()
	m.minerals = 1000

	err := m.Build(ctx, game.Barracks)
	assert.True(t, errors.Is(err, game.ErrMissingRequirement))

	m.structures[game.SupplyDepot] = 1
	assert.NoError(t, m.Build(ctx, game.Barracks))
}

func TestBuild_NoWorker(t *testing.T) {
	m := newTestMatch()
	m.minerals = 1000
	m.workers = 0
	err := m.Build(context.Background(), game.SupplyDepot)
	assert.True(t, errors.Is(err, game.ErrNoWorker))
}

func TestBuild_RejectsUnits(t *testing.T) {
	m := newTestMatch()
	m.minerals = 1000
	assert.Error(t, m.Build(context.Background(), game.Marine))
}

func TestAttack(t *testing.T) {
	ctx := context.Background()

	t.Run("no army", func(t *testing.T) {
		m := newTestMatch()
		assert.True(t, errors.Is(m.Attack(ctx, game.EnemyBase), game.ErrNoArmy))
	})

	t.Run("overwhelming army wins", func(t *testing.T) {
		m := newTestMatch()
		m.marines = 50
		require.NoError(t, m.Attack(ctx, game.EnemyBase))
		assert.Equal(t, game.ResultVictory, m.Result())

		running, err := m.Step(ctx, 10)
		require.NoError(t, err)
		assert.False(t, running)
		assert.True(t, errors.Is(m.Train(ctx, game.SCV, 1), game.ErrGameOver))
	})

	t.Run("weak army is lost", func(t *testing.T) {
		m := newTestMatch()
		m.marines = 1
		m.enemyStrength = 10
		require.NoError(t, m.Attack(ctx, game.EnemyBase))
		assert.Equal(t, game.ResultUndecided, m.Result())
		assert.Equal(t, 0, m.marines)
		assert.Less(t, m.enemyStrength, 10.0)
	})

	t.Run("defend resolves the incoming wave", func(t *testing.T) {
		m := newTestMatch()
		m.marines = 6
		m.waveSize = 3
		require.NoError(t, m.Attack(ctx, game.NearestEnemy))
		assert.Equal(t, 0, m.waveSize)
		assert.Equal(t, 5, m.marines)
	})
}

func TestWave_DestroysUndefendedBase(t *testing.T) {
	m := newTestMatch()
	m.workers = 0
	m.waveSize = 5
	m.resolveWave()
	assert.Equal(t, game.ResultDefeat, m.Result())
}

func TestWave_KillsWorkers(t *testing.T) {
	m := newTestMatch()
	m.waveSize = 2
	m.resolveWave()
	assert.Equal(t, startingWorkers-4, m.workers)
	assert.Equal(t, game.ResultUndecided, m.Result())
}

func TestWave_ArrivesAndIsVisible(t *testing.T) {
	ctx := context.Background()
	m := New(Options{Seed: 3, Difficulty: Hard})

	_, err := m.Step(ctx, profiles[Hard].firstWave)
	require.NoError(t, err)

	s, _ := m.Observe(ctx)
	assert.Greater(t, s.EnemyUnits, 0)
}

func TestScout_RevealsEnemyBase(t *testing.T) {
	ctx := context.Background()
	m := newTestMatch()

	require.NoError(t, m.Scout(ctx))
	s, _ := m.Observe(ctx)
	assert.Equal(t, m.enemyBase, s.EnemyStructures)

	_, err := m.Step(ctx, scoutLoops)
	require.NoError(t, err)
	s, _ = m.Observe(ctx)
	assert.Equal(t, 0, s.EnemyStructures)
}

func TestStep_TieAtMaxLoops(t *testing.T) {
	m := New(Options{Seed: 1, MaxLoops: 100})
	running, err := m.Step(context.Background(), 200)
	require.NoError(t, err)
	assert.False(t, running)
	assert.Equal(t, game.ResultTie, m.Result())
	assert.Equal(t, 100, m.Loop())
}

func TestStep_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := newTestMatch()
	_, err := m.Step(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSendChat(t *testing.T) {
	m := newTestMatch()
	require.NoError(t, m.SendChat(context.Background(), "glhf"))
	require.NoError(t, m.SendChat(context.Background(), "gg"))
	assert.Equal(t, []string{"glhf", "gg"}, m.Chat())
}
