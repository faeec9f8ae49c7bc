// Package story holds the conversation model shared by the parser, prompt
// builder, turn engine and gateway.
package story

import (
	"errors"
	"slices"
	"strings"
)

// MaxOptions is the number of choices every generation round asks for.
const MaxOptions = 4

var (
	ErrEmptyHistory  = errors.New("conversation has no segments")
	ErrAlreadyChosen = errors.New("an option was already chosen for this segment")
)

// Result is the structured output of one generation round.
type Result struct {
	StoryText string   `json:"story_text"`
	Options   []string `json:"options"`
}

// Degenerate reports a usable but incomplete result: fewer than MaxOptions
// options or no story text.
func (r Result) Degenerate() bool {
	return len(r.Options) < MaxOptions || strings.TrimSpace(r.StoryText) == ""
}

// Segment is one generation round in a conversation.
type Segment struct {
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	SelectedOption string   `json:"selected_option,omitempty"`
}

// HasOption reports whether option is one of the segment's choices.
func (s Segment) HasOption(option string) bool {
	return slices.Contains(s.Options, option)
}

// Conversation is the append-only history of a story.
type Conversation struct {
	History []Segment `json:"history"`
}

// Append adds a new segment built from r.
func (c *Conversation) Append(r Result) Segment {
	seg := Segment{
		Text:    r.StoryText,
		Options: slices.Clone(r.Options),
	}
	c.History = append(c.History, seg)
	return seg
}

// Last returns the most recent segment, or nil for an empty conversation.
func (c *Conversation) Last() *Segment {
	if len(c.History) == 0 {
		return nil
	}
	return &c.History[len(c.History)-1]
}

// Choose records option on the last segment. The write happens once;
// choosing the same option again is allowed so a failed turn can be retried.
func (c *Conversation) Choose(option string) error {
	last := c.Last()
	if last == nil {
		return ErrEmptyHistory
	}
	if last.SelectedOption != "" && last.SelectedOption != option {
		return ErrAlreadyChosen
	}
	last.SelectedOption = option
	return nil
}

// CurrentOptions returns a copy of the latest segment's options.
func (c *Conversation) CurrentOptions() []string {
	last := c.Last()
	if last == nil {
		return []string{}
	}
	return slices.Clone(last.Options)
}

// Transcript folds the history into display text. Each segment contributes
// its text followed, when chosen, by "\n\n> option\n\n".
func (c *Conversation) Transcript() string {
	var b strings.Builder
	for _, seg := range c.History {
		b.WriteString(seg.Text)
		if seg.SelectedOption != "" {
			b.WriteString("\n\n> ")
			b.WriteString(seg.SelectedOption)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// Clone returns a deep copy.
func (c *Conversation) Clone() Conversation {
	out := Conversation{History: make([]Segment, len(c.History))}
	for i, seg := range c.History {
		seg.Options = slices.Clone(seg.Options)
		out.History[i] = seg
	}
	return out
}

// Reset discards the whole history.
func (c *Conversation) Reset() {
	c.History = nil
}
