package chat

import "fmt"

const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // Narrator turns replayed as history
	ChatRoleSystem = "system"    // Instructions
)

// ChatMessage is a single role-tagged message sent to a generation backend.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatResponse is a backend's reply. Token counts are zero when the
// backend did not report usage.
type ChatResponse struct {
	Message          string `json:"message"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
}

// Options are the sampling settings for one completion call.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// Validate checks that a message sequence can be sent to a backend.
func Validate(messages []ChatMessage) error {
	if len(messages) == 0 {
		return fmt.Errorf("no messages to send")
	}
	for i, m := range messages {
		switch m.Role {
		case ChatRoleUser, ChatRoleAgent, ChatRoleSystem:
		default:
			return fmt.Errorf("message %d has unknown role %q", i, m.Role)
		}
		if m.Content == "" {
			return fmt.Errorf("message %d is empty", i)
		}
	}
	return nil
}

// SystemAndRest splits a leading system message from the remainder.
// Backends that take the system instruction out of band use it.
func SystemAndRest(messages []ChatMessage) (string, []ChatMessage) {
	if len(messages) > 0 && messages[0].Role == ChatRoleSystem {
		return messages[0].Content, messages[1:]
	}
	return "", messages
}
