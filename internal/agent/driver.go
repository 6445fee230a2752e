package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/jwebster45206/gptstar/pkg/game"
	"github.com/jwebster45206/gptstar/pkg/prompts"
	"github.com/jwebster45206/gptstar/pkg/state"
)

// DefaultStepLoops is fifteen seconds of game time between decisions.
const DefaultStepLoops = 22 * 15

// DriverOptions configures the match loop.
type DriverOptions struct {
	StepLoops       int
	MaxIterations   int // 0 runs until the match ends
	Greeting        bool
	JokeProbability float64
	Rand            func() float64 // defaults to math/rand
}

// Status is a point-in-time view of a driver.
type Status struct {
	MatchID   string      `json:"match_id"`
	Running   bool        `json:"running"`
	Iteration int         `json:"iteration"`
	GameTime  string      `json:"game_time"`
	Result    game.Result `json:"result,omitempty"`
}

// Driver plays one match: it advances the game and asks the agent for a
// decision every StepLoops game loops.
type Driver struct {
	agent *Agent
	game  game.Game
	opts  DriverOptions
	log   *slog.Logger

	mu      sync.Mutex
	match   *state.Match
	running bool
	cancel  context.CancelFunc
}

func NewDriver(a *Agent, g game.Game, match *state.Match, opts DriverOptions, log *slog.Logger) *Driver {
	if opts.StepLoops <= 0 {
		opts.StepLoops = DefaultStepLoops
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	return &Driver{
		agent: a,
		game:  g,
		match: match,
		opts:  opts,
		log:   log.With("match_id", match.ID.String()),
	}
}

// Match returns a copy of the match metadata.
func (d *Driver) Match() state.Match {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.match
}

// Status reports progress for health checks.
func (d *Driver) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		MatchID:   d.match.ID.String(),
		Running:   d.running,
		Iteration: d.match.Iterations,
		GameTime:  d.match.GameTime(),
		Result:    d.match.Result,
	}
}

// Start plays the match until it ends, MaxIterations is reached, ctx is
// cancelled or Stop is called. It returns an error only when the game
// itself fails.
func (d *Driver) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		cancel()
		return errors.New("driver already running")
	}
	d.running = true
	d.cancel = cancel
	d.mu.Unlock()
	defer cancel()

	d.log.Info("Match starting", "provider", d.match.Provider, "model", d.match.Model, "actions", d.match.Actions)
	d.save(ctx)
	if pub := d.agent.opts.Publisher; pub != nil {
		m := d.Match()
		if err := pub.PublishMatchStarted(ctx, &m); err != nil {
			d.log.Warn("Failed to publish match start", "error", err)
		}
	}

	status, err := d.loop(ctx)
	d.finish(ctx, status)
	return err
}

// Stop asks a running driver to end after the current tick.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log.Info("Driver stop requested")
	if d.cancel != nil {
		d.cancel()
	}
}

func (d *Driver) loop(ctx context.Context) (state.Status, error) {
	for iteration := 0; ; iteration++ {
		if ctx.Err() != nil {
			return state.StatusAborted, nil
		}
		if d.opts.MaxIterations > 0 && iteration >= d.opts.MaxIterations {
			d.log.Info("Iteration limit reached", "max_iterations", d.opts.MaxIterations)
			return state.StatusAborted, nil
		}

		if iteration == 0 && d.opts.Greeting {
			d.agent.Say(ctx, d.game, d.match.ID, prompts.Greeting)
		}
		if d.opts.JokeProbability > 0 && d.opts.Rand() < d.opts.JokeProbability {
			d.joke(ctx)
		}
		if err := d.game.DistributeWorkers(ctx); err != nil {
			d.log.Warn("Failed to distribute workers", "error", err)
		}

		rec, err := d.agent.Tick(ctx, d.game, d.match.ID, iteration)
		if err != nil {
			if ctx.Err() != nil {
				return state.StatusAborted, nil
			}
			return state.StatusAborted, fmt.Errorf("tick %d: %w", iteration, err)
		}

		running, err := d.game.Step(ctx, d.opts.StepLoops)
		if err != nil {
			if ctx.Err() != nil {
				return state.StatusAborted, nil
			}
			return state.StatusAborted, fmt.Errorf("failed to step game: %w", err)
		}

		d.mu.Lock()
		d.match.Iterations = iteration + 1
		if rec.Fallback {
			d.match.Fallbacks++
		}
		if snap, err := d.game.Observe(ctx); err == nil {
			d.match.GameLoop = snap.GameLoop
		}
		d.mu.Unlock()
		d.save(ctx)

		if !running {
			return state.StatusFinished, nil
		}
	}
}

func (d *Driver) joke(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, d.agent.opts.TickTimeout)
	defer cancel()

	resp, err := d.agent.llm.Chat(ctx, prompts.JokeMessages())
	if err != nil {
		d.log.Warn("Joke request failed", "error", err)
		return
	}
	if resp == nil {
		d.log.Warn("Joke request returned no response")
		return
	}
	d.agent.Say(ctx, d.game, d.match.ID, resp.Message)
}

func (d *Driver) finish(ctx context.Context, status state.Status) {
	// The journal write must survive a cancelled match.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	d.mu.Lock()
	d.match.Finish(status, d.game.Result())
	d.running = false
	m := *d.match
	d.mu.Unlock()

	d.log.Info("Match over",
		"status", m.Status,
		"result", m.Result,
		"iterations", m.Iterations,
		"fallbacks", m.Fallbacks,
		"game_time", m.GameTime())

	d.save(ctx)
	if pub := d.agent.opts.Publisher; pub != nil {
		if err := pub.PublishMatchFinished(ctx, &m); err != nil {
			d.log.Warn("Failed to publish match end", "error", err)
		}
	}
}

func (d *Driver) save(ctx context.Context) {
	store := d.agent.opts.Storage
	if store == nil {
		return
	}
	m := d.Match()
	if err := store.SaveMatch(ctx, &m); err != nil {
		d.log.Error("Failed to save match", "error", err)
	}
}
