// Package agent runs the decision loop: observe the game, ask the model for
// an action, dispatch it and tell the chat why.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/gptstar/internal/services"
	"github.com/jwebster45206/gptstar/pkg/actions"
	"github.com/jwebster45206/gptstar/pkg/decision"
	"github.com/jwebster45206/gptstar/pkg/game"
	"github.com/jwebster45206/gptstar/pkg/prompts"
	"github.com/jwebster45206/gptstar/pkg/state"
	"github.com/jwebster45206/gptstar/pkg/storage"
	"github.com/jwebster45206/gptstar/pkg/textfilter"
)

// DefaultTickTimeout bounds one completion call.
const DefaultTickTimeout = 30 * time.Second

// Publisher receives live match events. events.Broadcaster implements it.
type Publisher interface {
	PublishMatchStarted(ctx context.Context, m *state.Match) error
	PublishDecision(ctx context.Context, rec *decision.Record) error
	PublishChat(ctx context.Context, matchID uuid.UUID, message string) error
	PublishMatchFinished(ctx context.Context, m *state.Match) error
}

// Options configures an Agent. Storage and Publisher are optional.
type Options struct {
	Provider     string
	TickTimeout  time.Duration
	Experimental bool
	Sanitizer    *textfilter.Sanitizer
	Storage      storage.Storage
	Publisher    Publisher
}

// Agent makes one decision per tick.
type Agent struct {
	llm       services.LLMService
	menu      *actions.Menu
	fallback  actions.Action
	opts      Options
	sanitizer *textfilter.Sanitizer
	log       *slog.Logger
}

// New creates an agent for the given menu. The menu's "wait" entry is the
// fallback; a menu without one falls back to doing nothing.
func New(llm services.LLMService, menu *actions.Menu, opts Options, log *slog.Logger) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("agent requires an LLM service")
	}
	if menu == nil || menu.Len() == 0 {
		return nil, errors.New("agent requires a non-empty action menu")
	}
	if opts.TickTimeout <= 0 {
		opts.TickTimeout = DefaultTickTimeout
	}
	if opts.Provider == "" {
		opts.Provider = "llm"
	}

	fallback, ok := menu.Find(actions.Wait)
	if !ok {
		fallback = actions.Action{
			Name:    actions.Wait,
			Command: actions.CommandFunc(func(context.Context, game.Game) error { return nil }),
		}
	}

	sanitizer := opts.Sanitizer
	if sanitizer == nil {
		sanitizer = textfilter.New(true)
	}

	return &Agent{
		llm:       llm,
		menu:      menu,
		fallback:  fallback,
		opts:      opts,
		sanitizer: sanitizer,
		log:       log,
	}, nil
}

// Menu returns the actions offered each tick.
func (a *Agent) Menu() *actions.Menu {
	return a.menu
}

// Prompt builds the messages for a snapshot.
func (a *Agent) Prompt(s *game.Snapshot) *prompts.Builder {
	b := WriteObservations(prompts.New(), s, a.opts.Experimental)
	return a.menu.WritePrompt(b)
}

// Tick runs one decision against g. Parse, index and transport failures
// fall back to the default action and are reported on the record, not as an
// error. Only a failure to observe the game is returned.
func (a *Agent) Tick(ctx context.Context, g game.Game, matchID uuid.UUID, iteration int) (*decision.Record, error) {
	start := time.Now()
	log := a.log.With("match_id", matchID.String(), "iteration", iteration)

	snap, err := g.Observe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to observe game: %w", err)
	}

	b := a.Prompt(snap)
	rec := decision.NewRecord(matchID, iteration)
	rec.GameTime = snap.TimeFormatted()
	rec.Prompt = b.UserContent()
	log.Debug("Prompt", "content", rec.Prompt)

	action, err := a.decide(ctx, b, rec)
	if err != nil {
		if !decision.IsRecoverable(err) {
			return nil, err
		}
		log.Warn("Falling back to default action", "error_kind", decision.Kind(err), "error", err)
		rec.Fallback = true
		rec.ErrorKind = decision.Kind(err)
		rec.Error = err.Error()
		action = a.fallback
	}
	rec.Action = action.Name

	if err := action.Command.Execute(ctx, g); err != nil {
		log.Info("Command failed", "action", action.Name, "error", err)
		rec.CommandError = err.Error()
	}

	if !rec.Fallback && rec.Reasoning != "" {
		rec.Filtered = a.sanitizer.Flagged(rec.Reasoning)
		a.Say(ctx, g, matchID, rec.Reasoning)
	}

	rec.DurationMS = time.Since(start).Milliseconds()
	log.Info("Tick decided",
		"game_time", rec.GameTime,
		"action", rec.Action,
		"index", rec.Index,
		"fallback", rec.Fallback,
		"duration_ms", rec.DurationMS)

	a.record(ctx, rec)
	return rec, nil
}

// decide asks the model and resolves its answer against the menu. The
// record is filled in as far as the pipeline got.
func (a *Agent) decide(ctx context.Context, b *prompts.Builder, rec *decision.Record) (actions.Action, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.opts.TickTimeout)
	defer cancel()

	resp, err := a.llm.Chat(callCtx, b.Build())
	if err != nil {
		return actions.Action{}, &decision.TransportError{Provider: a.opts.Provider, Err: err}
	}
	if resp == nil {
		return actions.Action{}, &decision.TransportError{Provider: a.opts.Provider, Err: errors.New("empty response")}
	}
	rec.Reply = resp.Message
	rec.Model = resp.Model

	answer, err := decision.Parse(resp.Message)
	if err != nil {
		return actions.Action{}, err
	}
	rec.Index = answer.Index
	rec.Reasoning = answer.Reasoning

	return a.menu.Resolve(answer.Index)
}

// Say sanitizes a line and sends it to the game chat. Failures are logged.
func (a *Agent) Say(ctx context.Context, g game.Game, matchID uuid.UUID, text string) {
	msg := a.sanitizer.Clean(text)
	if msg == "" {
		return
	}
	if err := g.SendChat(ctx, msg); err != nil {
		a.log.Warn("Failed to send chat", "match_id", matchID.String(), "error", err)
		return
	}
	if a.opts.Publisher != nil {
		if err := a.opts.Publisher.PublishChat(ctx, matchID, msg); err != nil {
			a.log.Warn("Failed to publish chat", "match_id", matchID.String(), "error", err)
		}
	}
}

// record journals and broadcasts a decision. Failures are logged only.
func (a *Agent) record(ctx context.Context, rec *decision.Record) {
	if a.opts.Storage != nil {
		if err := a.opts.Storage.AppendDecision(ctx, rec); err != nil {
			a.log.Error("Failed to journal decision", "match_id", rec.MatchID.String(), "error", err)
		}
	}
	if a.opts.Publisher != nil {
		if err := a.opts.Publisher.PublishDecision(ctx, rec); err != nil {
			a.log.Warn("Failed to publish decision", "match_id", rec.MatchID.String(), "error", err)
		}
	}
}
