package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/choice-engine/pkg/chat"
	"github.com/jwebster45206/choice-engine/pkg/genre"
	"github.com/jwebster45206/choice-engine/pkg/lang"
	"github.com/jwebster45206/choice-engine/pkg/story"
)

// Builder constructs chat messages for opening and continuation requests
// using a fluent interface. Build methods are total: callers validate the
// session (non-empty genres, a chosen option) before getting here.
type Builder struct {
	lang         lang.Code
	genres       []string
	customPrompt string
	history      []story.Segment
	choice       string
	messages     []chat.ChatMessage
}

// New creates a builder for the given language. Unsupported codes use the
// default language templates.
func New(code lang.Code) *Builder {
	return &Builder{
		lang:     code.OrDefault(),
		messages: make([]chat.ChatMessage, 0),
	}
}

// WithGenres sets the genre identifiers for an opening request.
func (b *Builder) WithGenres(genres []string) *Builder {
	b.genres = genres
	return b
}

// WithCustomPrompt sets the optional player-supplied setting.
func (b *Builder) WithCustomPrompt(customPrompt string) *Builder {
	b.customPrompt = strings.TrimSpace(customPrompt)
	return b
}

// WithHistory sets the story so far for a continuation request.
func (b *Builder) WithHistory(history []story.Segment) *Builder {
	b.history = history
	return b
}

// WithChoice sets the option the player just picked.
func (b *Builder) WithChoice(option string) *Builder {
	b.choice = option
	return b
}

// BuildOpening returns the system and user messages for the first scene.
func (b *Builder) BuildOpening() []chat.ChatMessage {
	t := For(b.lang)
	b.messages = make([]chat.ChatMessage, 0, 2)

	// 1. System prompt
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: t.OpeningSystem,
	})

	// 2. Scene request
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(t.OpeningScene, genre.Join(b.genres, b.lang)))
	if b.customPrompt != "" {
		sb.WriteString(fmt.Sprintf(t.OpeningSetting, b.customPrompt))
	}
	sb.WriteString(t.OpeningRules)
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleUser,
		Content: sb.String(),
	})

	return b.messages
}

// BuildContinuation returns the system prompt, one assistant message per
// history segment, and the player's choice as the final user message.
func (b *Builder) BuildContinuation() []chat.ChatMessage {
	t := For(b.lang)
	b.messages = make([]chat.ChatMessage, 0, len(b.history)+2)

	// 1. System prompt
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: t.ContinueSystem,
	})

	// 2. Story so far
	for _, seg := range b.history {
		content := seg.Text
		if seg.SelectedOption != "" {
			content += "\n\n" + t.PlayerChose + seg.SelectedOption
		}
		b.messages = append(b.messages, chat.ChatMessage{
			Role:    chat.ChatRoleAgent,
			Content: content,
		})
	}

	// 3. Choice
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleUser,
		Content: fmt.Sprintf(t.IChoose, b.choice),
	})

	return b.messages
}

// Default sampling settings for generation requests.
const (
	DefaultTemperature  float32 = 0.7
	DefaultMaxTokens            = 500
	TranslatedMaxTokens         = 600
)

// Sampling returns the completion settings for a language. Languages other
// than the default get a larger token budget.
func Sampling(code lang.Code) chat.Options {
	opts := chat.Options{Temperature: DefaultTemperature, MaxTokens: DefaultMaxTokens}
	if code.OrDefault() != lang.Default {
		opts.MaxTokens = TranslatedMaxTokens
	}
	return opts
}
