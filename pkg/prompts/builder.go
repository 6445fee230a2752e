package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/gptstar/pkg/chat"
)

// Builder accumulates the observation block and the numbered action block
// for one tick. Create a new Builder every tick; the action counter only
// ever increments.
type Builder struct {
	observations strings.Builder
	actions      strings.Builder
	actionCount  int
}

// New creates an empty prompt builder.
func New() *Builder {
	b := &Builder{}
	b.observations.WriteString(observationsHeader)
	b.actions.WriteString(actionsHeader)
	return b
}

// AddObservation appends "<name> is <value>, " to the observation block.
// Values are rendered with their natural textual form.
func (b *Builder) AddObservation(name string, value any) *Builder {
	b.observations.WriteString(name + " is " + fmt.Sprint(value) + ", ")
	return b
}

// AddAction appends "<n>) <name>. " to the action block, where n is the
// zero-based position of the action.
func (b *Builder) AddAction(name string) *Builder {
	fmt.Fprintf(&b.actions, "%d) %s. ", b.actionCount, name)
	b.actionCount++
	return b
}

// ActionCount returns the number of actions added so far.
func (b *Builder) ActionCount() int {
	return b.actionCount
}

// UserContent returns the user message body: the observation block without
// its trailing separator, a period, then the action block.
func (b *Builder) UserContent() string {
	return strings.TrimRight(b.observations.String(), ", ") + ". " + b.actions.String()
}

// Build returns the API-ready system and user messages. It does not mutate
// the builder.
func (b *Builder) Build() []chat.ChatMessage {
	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: SystemPrompt},
		{Role: chat.ChatRoleUser, Content: b.UserContent()},
	}
}
