// Package sim is an in-memory Terran match against a scripted opponent. It
// implements game.Game so the agent can play without a StarCraft II client.
package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"

	"github.com/jwebster45206/gptstar/pkg/game"
)

// Difficulty scales the opponent's army growth and wave timing.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty maps a config string to a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case Easy, "":
		return Easy, nil
	case Medium:
		return Medium, nil
	case Hard:
		return Hard, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

const (
	startingMinerals = 50
	startingWorkers  = 12
	maxSupply        = 200

	mineralsPerWorkerLoop = 0.0425
	workersPerBase        = 16
	oversaturationPerBase = 8

	scoutLoops    = 600
	waveLoops     = 300
	defenderBonus = 1.5
	attackMargin  = 1.2
)

type cost struct {
	minerals int
	supply   int
	loops    int
}

var costs = map[game.UnitType]cost{
	game.SCV:           {minerals: 50, supply: 1, loops: 272},
	game.Marine:        {minerals: 50, supply: 1, loops: 403},
	game.SupplyDepot:   {minerals: 100, loops: 470},
	game.Barracks:      {minerals: 150, loops: 1030},
	game.CommandCenter: {minerals: 400, loops: 1590},
}

var producers = map[game.UnitType]game.UnitType{
	game.SCV:    game.CommandCenter,
	game.Marine: game.Barracks,
}

var requirements = map[game.UnitType]game.UnitType{
	game.Barracks: game.SupplyDepot,
}

type profile struct {
	growthPerLoop float64
	waveInterval  int
	firstWave     int
}

var profiles = map[Difficulty]profile{
	Easy:   {growthPerLoop: 0.0012, waveInterval: 4000, firstWave: 6700},
	Medium: {growthPerLoop: 0.0020, waveInterval: 3200, firstWave: 5400},
	Hard:   {growthPerLoop: 0.0030, waveInterval: 2400, firstWave: 4000},
}

type job struct {
	unit      game.UnitType
	remaining int
}

// Options configures a match.
type Options struct {
	Seed       int64
	Difficulty Difficulty
	MaxLoops   int // 0 means one hour of game time
}

// Match is a running simulated game.
type Match struct {
	mu sync.Mutex

	rng     *rand.Rand
	profile profile
	maxLoop int

	loop        int
	minerals    float64
	workers     int // completed SCVs, including idle and busy ones
	idleWorkers int
	marines     int
	structures  map[game.UnitType]int
	jobs        []job
	scoutUntil  int

	enemyStrength float64
	enemyBase     int
	nextWave      int
	waveSize      int
	waveArrivesAt int

	result game.Result
	chat   []string
}

var _ game.Game = (*Match)(nil)

// New starts a match with a command center and twelve workers.
func New(opts Options) *Match {
	p, ok := profiles[opts.Difficulty]
	if !ok {
		p = profiles[Easy]
	}
	maxLoop := opts.MaxLoops
	if maxLoop <= 0 {
		maxLoop = int(3600 * game.LoopsPerSecond)
	}

	return &Match{
		rng:           rand.New(rand.NewSource(opts.Seed)),
		profile:       p,
		maxLoop:       maxLoop,
		minerals:      startingMinerals,
		workers:       startingWorkers,
		structures:    map[game.UnitType]int{game.CommandCenter: 1},
		enemyStrength: 2,
		enemyBase:     4,
		nextWave:      p.firstWave,
	}
}

// Chat returns every line sent to the all-chat so far.
func (m *Match) Chat() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.chat))
	copy(out, m.chat)
	return out
}

// Loop returns the current game loop.
func (m *Match) Loop() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loop
}

// Observe implements game.Game.
func (m *Match) Observe(ctx context.Context) (*game.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	structures := make(map[game.UnitType]int, len(m.structures))
	for k, v := range m.structures {
		structures[k] = v
	}
	pending := make(map[game.UnitType]int)
	for _, j := range m.jobs {
		pending[j.unit]++
	}

	s := &game.Snapshot{
		GameLoop:     m.loop,
		Minerals:     int(m.minerals),
		ArmySupply:   m.marines,
		WorkerSupply: m.workers,
		SupplyCap:    m.supplyCap(),
		Structures:   structures,
		Pending:      pending,
	}
	if m.waveSize > 0 {
		s.EnemyUnits = m.waveSize
	}
	if m.scouting() {
		s.EnemyUnits += int(m.enemyStrength)
		s.EnemyStructures = m.enemyBase
	}
	return s, nil
}

// Train implements game.Game. It trains as many of amount as it can and
// only fails when none could be queued.
func (m *Match) Train(ctx context.Context, unit game.UnitType, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.result != game.ResultUndecided {
		return game.ErrGameOver
	}
	producer, ok := producers[unit]
	if !ok {
		return fmt.Errorf("cannot train %s", unit)
	}

	trained := 0
	var lastErr error
	for i := 0; i < amount; i++ {
		if m.queued(unit) >= m.structures[producer] {
			lastErr = game.ErrNoProducer
			break
		}
		if err := m.spend(unit); err != nil {
			lastErr = err
			break
		}
		m.jobs = append(m.jobs, job{unit: unit, remaining: costs[unit].loops})
		trained++
	}
	if trained == 0 && lastErr != nil {
		return fmt.Errorf("train %s: %w", unit, lastErr)
	}
	return nil
}

// Build implements game.Game.
func (m *Match) Build(ctx context.Context, structure game.UnitType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.result != game.ResultUndecided {
		return game.ErrGameOver
	}
	if _, ok := costs[structure]; !ok || producers[structure] != "" {
		return fmt.Errorf("cannot build %s", structure)
	}
	if req, ok := requirements[structure]; ok && m.structures[req] == 0 {
		return fmt.Errorf("build %s: %w (%s)", structure, game.ErrMissingRequirement, req)
	}
	if m.availableWorkers() == 0 {
		return fmt.Errorf("build %s: %w", structure, game.ErrNoWorker)
	}
	if err := m.spend(structure); err != nil {
		return fmt.Errorf("build %s: %w", structure, err)
	}
	m.jobs = append(m.jobs, job{unit: structure, remaining: costs[structure].loops})
	return nil
}

// Attack implements game.Game.
func (m *Match) Attack(ctx context.Context, target game.Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.result != game.ResultUndecided {
		return game.ErrGameOver
	}
	if m.marines == 0 {
		return game.ErrNoArmy
	}

	switch target {
	case game.EnemyBase:
		ours := float64(m.marines)
		if ours > m.enemyStrength*attackMargin {
			m.result = game.ResultVictory
			return nil
		}
		m.enemyStrength = math.Max(0, m.enemyStrength-ours*0.5)
		m.marines = 0
	case game.NearestEnemy:
		if m.waveSize == 0 {
			return nil
		}
		m.resolveWave()
	default:
		return fmt.Errorf("unknown target %q", target)
	}
	return nil
}

// Scout implements game.Game.
func (m *Match) Scout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.result != game.ResultUndecided {
		return game.ErrGameOver
	}
	if m.scouting() {
		return nil
	}
	if m.availableWorkers() == 0 {
		return game.ErrNoWorker
	}
	m.scoutUntil = m.loop + scoutLoops
	return nil
}

// DistributeWorkers implements game.Game. Newly trained workers stay idle
// until distributed.
func (m *Match) DistributeWorkers(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idleWorkers = 0
	return nil
}

// SendChat implements game.Game.
func (m *Match) SendChat(ctx context.Context, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chat = append(m.chat, message)
	return nil
}

// Result implements game.Game.
func (m *Match) Result() game.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

// Step implements game.Game.
func (m *Match) Step(ctx context.Context, loops int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := 0; i < loops && m.result == game.ResultUndecided; i++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		m.tick()
	}
	return m.result == game.ResultUndecided, nil
}

func (m *Match) tick() {
	m.loop++
	m.minerals += m.income()
	m.enemyStrength += m.profile.growthPerLoop * (1 + m.rng.Float64())

	remaining := m.jobs[:0]
	for _, j := range m.jobs {
		j.remaining--
		if j.remaining > 0 {
			remaining = append(remaining, j)
			continue
		}
		switch j.unit {
		case game.SCV:
			m.workers++
			m.idleWorkers++
		case game.Marine:
			m.marines++
		default:
			m.structures[j.unit]++
		}
	}
	m.jobs = remaining

	if m.loop == m.nextWave {
		m.waveSize = int(m.enemyStrength/2) + 1
		m.waveArrivesAt = m.loop + waveLoops
	}
	if m.waveSize > 0 && m.loop >= m.waveArrivesAt {
		m.resolveWave()
	}

	if m.loop >= m.maxLoop && m.result == game.ResultUndecided {
		m.result = game.ResultTie
	}
}

// resolveWave fights the incoming wave at home.
func (m *Match) resolveWave() {
	defense := float64(m.marines) * defenderBonus
	wave := m.waveSize
	m.waveSize = 0
	m.nextWave = m.loop + m.profile.waveInterval
	m.enemyStrength = math.Max(0, m.enemyStrength-float64(wave)/2)

	if defense >= float64(wave) {
		m.marines -= wave / 3
		return
	}

	m.marines = 0
	lost := min(m.workers, wave*2)
	m.workers -= lost
	m.idleWorkers = min(m.idleWorkers, m.workers)
	if wave >= 2*(m.workers+1) {
		m.structures[game.CommandCenter]--
		if m.structures[game.CommandCenter] <= 0 {
			m.structures[game.CommandCenter] = 0
			m.result = game.ResultDefeat
		}
	}
}

func (m *Match) income() float64 {
	mining := m.workers - m.idleWorkers - m.busyWorkers()
	if mining <= 0 {
		return 0
	}
	bases := m.structures[game.CommandCenter]
	optimal := min(mining, workersPerBase*bases)
	extra := min(mining-optimal, oversaturationPerBase*bases)
	return (float64(optimal) + 0.5*float64(extra)) * mineralsPerWorkerLoop
}

func (m *Match) spend(unit game.UnitType) error {
	c := costs[unit]
	if int(m.minerals) < c.minerals {
		return game.ErrCannotAfford
	}
	if c.supply > 0 && m.supplyUsed()+c.supply > m.supplyCap() {
		return game.ErrSupplyBlocked
	}
	m.minerals -= float64(c.minerals)
	return nil
}

func (m *Match) supplyCap() int {
	capacity := 15*m.structures[game.CommandCenter] + 8*m.structures[game.SupplyDepot]
	return min(capacity, maxSupply)
}

func (m *Match) supplyUsed() int {
	used := m.workers + m.marines
	for _, j := range m.jobs {
		used += costs[j.unit].supply
	}
	return used
}

func (m *Match) queued(unit game.UnitType) int {
	n := 0
	for _, j := range m.jobs {
		if j.unit == unit {
			n++
		}
	}
	return n
}

// busyWorkers counts workers that are constructing or scouting.
func (m *Match) busyWorkers() int {
	busy := 0
	for _, j := range m.jobs {
		if producers[j.unit] == "" {
			busy++
		}
	}
	if m.scouting() {
		busy++
	}
	return busy
}

func (m *Match) availableWorkers() int {
	return max(0, m.workers-m.busyWorkers())
}

func (m *Match) scouting() bool {
	return m.loop < m.scoutUntil
}
