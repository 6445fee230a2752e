package prompts

import "github.com/jwebster45206/gptstar/pkg/chat"

// SystemPrompt sets the persona and the answer format. The parser in
// pkg/decision relies on the format it asks for, so keep the wording stable.
const SystemPrompt = "You are GPTStar, a professional StarCraft II player. " +
	"Your assistant gives you a detailed list of features about " +
	"the game they can see on your screen. They then give you a " +
	"list of numbered actions you can currently do. You answer " +
	"with the number of the action you choose followed by a short " +
	"phrase explaining your reasoning."

// Greeting is sent to the all-chat on the first iteration of a match.
const Greeting = "Hey ! I am GPTStar, a StarCraft II player powered by ChatGPT. Good luck and have fun !"

// JokePrompt asks the model for a line of banter.
const JokePrompt = "Make a StarCraft II joke"

const (
	observationsHeader = "Observations : "
	actionsHeader      = "Possible Actions :"
)

// JokeMessages returns the single-message request used for banter.
func JokeMessages() []chat.ChatMessage {
	return []chat.ChatMessage{
		{Role: chat.ChatRoleUser, Content: JokePrompt},
	}
}
