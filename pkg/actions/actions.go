// Package actions maps the numbered menu offered to the model onto game
// commands.
package actions

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jwebster45206/gptstar/pkg/decision"
	"github.com/jwebster45206/gptstar/pkg/game"
	"github.com/jwebster45206/gptstar/pkg/prompts"
)

// Action names offered to the model.
const (
	Wait             = "wait"
	TrainWorker      = "train a worker"
	BuildSupplyDepot = "build supply depot"
	BuildBarracks    = "build barracks"
	AttackEnemyBase  = "attack enemy base"

	TrainMarines = "train marines"
	Expand       = "expand to a new base"
	ScoutEnemy   = "scout enemy base"
	Defend       = "defend against enemy attack"
)

// MarineBatch caps how many marines one "train marines" command queues.
const MarineBatch = 5

// CoreActions is the default menu, in prompt order.
var CoreActions = []string{Wait, TrainWorker, BuildSupplyDepot, BuildBarracks, AttackEnemyBase}

// ExperimentalActions are appended to the menu when experimental mode is on.
var ExperimentalActions = []string{TrainMarines, Expand, ScoutEnemy, Defend}

// Command is something the bot can do in the game.
type Command interface {
	Execute(ctx context.Context, g game.Game) error
}

// CommandFunc adapts a function to Command.
type CommandFunc func(ctx context.Context, g game.Game) error

func (f CommandFunc) Execute(ctx context.Context, g game.Game) error {
	return f(ctx, g)
}

// Action is a named command as listed in a menu.
type Action struct {
	Name    string
	Command Command
}

// Registry holds every command the bot knows by name.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds or replaces the command for name.
func (r *Registry) Register(name string, cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = cmd
}

func (r *Registry) Lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Menu builds an ordered menu from registered names.
func (r *Registry) Menu(names ...string) (*Menu, error) {
	m := &Menu{}
	for _, name := range names {
		cmd, ok := r.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown action %q", name)
		}
		m.Add(name, cmd)
	}
	return m, nil
}

// DefaultRegistry returns a registry with the core and experimental actions.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Wait, CommandFunc(func(context.Context, game.Game) error { return nil }))
	r.Register(TrainWorker, CommandFunc(func(ctx context.Context, g game.Game) error {
		return g.Train(ctx, game.SCV, 1)
	}))
	r.Register(BuildSupplyDepot, build(game.SupplyDepot))
	r.Register(BuildBarracks, build(game.Barracks))
	r.Register(AttackEnemyBase, attack(game.EnemyBase))

	r.Register(TrainMarines, CommandFunc(func(ctx context.Context, g game.Game) error {
		return g.Train(ctx, game.Marine, MarineBatch)
	}))
	r.Register(Expand, build(game.CommandCenter))
	r.Register(ScoutEnemy, CommandFunc(func(ctx context.Context, g game.Game) error {
		return g.Scout(ctx)
	}))
	r.Register(Defend, attack(game.NearestEnemy))
	return r
}

func build(structure game.UnitType) Command {
	return CommandFunc(func(ctx context.Context, g game.Game) error {
		return g.Build(ctx, structure)
	})
}

func attack(target game.Target) Command {
	return CommandFunc(func(ctx context.Context, g game.Game) error {
		return g.Attack(ctx, target)
	})
}

// Menu is the ordered list of actions offered for one decision.
type Menu struct {
	actions []Action
}

func (m *Menu) Add(name string, cmd Command) {
	m.actions = append(m.actions, Action{Name: name, Command: cmd})
}

func (m *Menu) Len() int { return len(m.actions) }

func (m *Menu) Names() []string {
	names := make([]string, len(m.actions))
	for i, a := range m.actions {
		names[i] = a.Name
	}
	return names
}

// Find returns the action with the given name.
func (m *Menu) Find(name string) (Action, bool) {
	for _, a := range m.actions {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}

// Resolve returns the action at index.
func (m *Menu) Resolve(index int) (Action, error) {
	if index < 0 || index >= len(m.actions) {
		return Action{}, &decision.IndexError{Index: index, Size: len(m.actions)}
	}
	return m.actions[index], nil
}

// WritePrompt lists every action on b in menu order.
func (m *Menu) WritePrompt(b *prompts.Builder) *prompts.Builder {
	for _, a := range m.actions {
		b.AddAction(a.Name)
	}
	return b
}
