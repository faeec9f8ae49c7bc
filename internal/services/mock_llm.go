package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/choice-engine/pkg/chat"
	"github.com/jwebster45206/choice-engine/pkg/lang"
)

// MockLLMAPI is a mock implementation of LLMService and SpeechService for testing
type MockLLMAPI struct {
	ChatFunc   func(ctx context.Context, apiKey string, messages []chat.ChatMessage, opts chat.Options) (*chat.ChatResponse, error)
	SpeechFunc func(ctx context.Context, apiKey string, text string, voice lang.Voice) ([]byte, error)

	NeedsCredential bool

	// Track calls for testing
	ChatCalls   []ChatCall
	SpeechCalls []SpeechCall

	mu sync.Mutex // protects all fields above
}

type ChatCall struct {
	APIKey   string
	Messages []chat.ChatMessage
	Options  chat.Options
}

type SpeechCall struct {
	APIKey string
	Text   string
	Voice  lang.Voice
}

// MockReply is the default reply: a complete scene with four options.
const MockReply = "Mock story text.\n\n1. First\n2. Second\n3. Third\n4. Fourth"

// NewMockLLMAPI creates a new mock LLM service that requires a credential
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		NeedsCredential: true,
		ChatCalls:       make([]ChatCall, 0),
		SpeechCalls:     make([]SpeechCall, 0),
	}
}

func (m *MockLLMAPI) Name() string { return "mock" }

func (m *MockLLMAPI) RequiresCredential() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.NeedsCredential
}

// Chat mocks a completion request
func (m *MockLLMAPI) Chat(ctx context.Context, apiKey string, messages []chat.ChatMessage, opts chat.Options) (*chat.ChatResponse, error) {
	m.mu.Lock()
	m.ChatCalls = append(m.ChatCalls, ChatCall{APIKey: apiKey, Messages: messages, Options: opts})
	fn := m.ChatFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, apiKey, messages, opts)
	}

	// Default behavior - a well-formed scene
	return &chat.ChatResponse{Message: MockReply}, nil
}

// Speech mocks speech synthesis
func (m *MockLLMAPI) Speech(ctx context.Context, apiKey string, text string, voice lang.Voice) ([]byte, error) {
	m.mu.Lock()
	m.SpeechCalls = append(m.SpeechCalls, SpeechCall{APIKey: apiKey, Text: text, Voice: voice})
	fn := m.SpeechFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, apiKey, text, voice)
	}
	return []byte("ID3mock"), nil
}

// SetChatError sets up the mock to return an error on Chat
func (m *MockLLMAPI) SetChatError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, apiKey string, messages []chat.ChatMessage, opts chat.Options) (*chat.ChatResponse, error) {
		return nil, err
	}
}

// SetChatReply sets up the mock to return a fixed reply on Chat
func (m *MockLLMAPI) SetChatReply(reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, apiKey string, messages []chat.ChatMessage, opts chat.Options) (*chat.ChatResponse, error) {
		return &chat.ChatResponse{Message: reply}, nil
	}
}

// SetSpeechError sets up the mock to return an error on Speech
func (m *MockLLMAPI) SetSpeechError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SpeechFunc = func(ctx context.Context, apiKey string, text string, voice lang.Voice) ([]byte, error) {
		return nil, err
	}
}

// Reset clears all call tracking
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatCalls = make([]ChatCall, 0)
	m.SpeechCalls = make([]SpeechCall, 0)
}

// GetCalls returns a copy of the call tracking data in a thread-safe way
func (m *MockLLMAPI) GetCalls() ([]ChatCall, []SpeechCall) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chatCalls := make([]ChatCall, len(m.ChatCalls))
	copy(chatCalls, m.ChatCalls)

	speechCalls := make([]SpeechCall, len(m.SpeechCalls))
	copy(speechCalls, m.SpeechCalls)

	return chatCalls, speechCalls
}
