package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/gptstar/pkg/chat"
)

// MockLLMAPI is a mock implementation of LLMService for testing
type MockLLMAPI struct {
	InitModelFunc func(ctx context.Context, modelName string) error
	ChatFunc      func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)

	// Track calls for testing
	InitModelCalls []string
	ChatCalls      [][]chat.ChatMessage

	replies []string
	mu      sync.Mutex // protects all fields above
}

// NewMockLLMAPI creates a mock that answers with replies in order, then
// repeats the last one. With no replies it answers "0".
func NewMockLLMAPI(replies ...string) *MockLLMAPI {
	return &MockLLMAPI{replies: replies}
}

// InitModel mocks model initialization
func (m *MockLLMAPI) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitModelCalls = append(m.InitModelCalls, modelName)
	if m.InitModelFunc != nil {
		return m.InitModelFunc(ctx, modelName)
	}
	return nil
}

// Chat mocks a completion call
func (m *MockLLMAPI) Chat(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	m.mu.Lock()
	m.ChatCalls = append(m.ChatCalls, messages)
	fn := m.ChatFunc
	reply := "0"
	if len(m.replies) > 0 {
		reply = m.replies[0]
		if len(m.replies) > 1 {
			m.replies = m.replies[1:]
		}
	}
	m.mu.Unlock()

	// ChatFunc may block on ctx, so it runs unlocked.
	if fn != nil {
		return fn(ctx, messages)
	}
	return &chat.ChatResponse{Message: reply, Model: "mock"}, nil
}

// SetChatError sets up the mock to return an error on Chat
func (m *MockLLMAPI) SetChatError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
		return nil, err
	}
}

// Calls returns a copy of the recorded Chat calls
func (m *MockLLMAPI) Calls() [][]chat.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]chat.ChatMessage, len(m.ChatCalls))
	copy(out, m.ChatCalls)
	return out
}
