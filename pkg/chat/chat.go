package chat

import "strings"

// ChatResponse is the text reply returned by an LLM provider.
type ChatResponse struct {
	Message string `json:"message,omitempty"`
	Model   string `json:"model,omitempty"`
}

const (
	ChatRoleUser   = "user"      // Observations, actions, jokes
	ChatRoleAgent  = "assistant" // Model replies
	ChatRoleSystem = "system"    // Persona and answer format
)

// ChatMessage represents a single chat message in the conversation.
// The shape matches the OpenAI-compatible chat APIs and is used to structure
// messages sent to every provider.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// SplitSystem extracts and joins all system messages into a single system
// prompt and returns the remaining messages in order. Providers without a
// system role in the message list (Anthropic) use it.
func SplitSystem(messages []ChatMessage) (string, []ChatMessage) {
	var systemParts []string
	var rest []ChatMessage

	for _, msg := range messages {
		if msg.Role == ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			rest = append(rest, msg)
		}
	}

	return strings.Join(systemParts, "\n\n"), rest
}
