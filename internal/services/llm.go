package services

import (
	"context"

	"github.com/jwebster45206/choice-engine/pkg/chat"
	"github.com/jwebster45206/choice-engine/pkg/lang"
)

// LLMService defines the interface for a chat completion backend
type LLMService interface {
	// Name identifies the provider in logs and metrics
	Name() string

	// RequiresCredential reports whether Chat needs an API key
	RequiresCredential() bool

	// Chat sends one completion request. apiKey is empty for providers
	// that do not require a credential.
	Chat(ctx context.Context, apiKey string, messages []chat.ChatMessage, opts chat.Options) (*chat.ChatResponse, error)
}

// SpeechService turns cleaned text into encoded audio
type SpeechService interface {
	Speech(ctx context.Context, apiKey string, text string, voice lang.Voice) ([]byte, error)
}

// ModelInitializer is implemented by backends that must prepare a model
// before the first request.
type ModelInitializer interface {
	InitModel(ctx context.Context) error
}
