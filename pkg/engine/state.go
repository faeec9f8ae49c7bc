package engine

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jwebster45206/choice-engine/pkg/lang"
	"github.com/jwebster45206/choice-engine/pkg/story"
)

// State is the turn engine's position in a story.
type State int

const (
	// Idle means no game is active.
	Idle State = iota
	// AwaitingGeneration means a request is in flight.
	AwaitingGeneration
	// AwaitingChoice means a segment is ready and its options are shown.
	AwaitingChoice
)

var stateNames = map[State]string{
	Idle:               "idle",
	AwaitingGeneration: "awaiting_generation",
	AwaitingChoice:     "awaiting_choice",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	n, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown state %d", int(s))
	}
	return []byte(n), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for k, v := range stateNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", string(b))
}

// Settings is the session configuration. It survives resets.
type Settings struct {
	Genres       []string  `json:"genres"`
	CustomPrompt string    `json:"custom_prompt,omitempty"`
	Language     lang.Code `json:"language"`
}

func (s Settings) normalize() Settings {
	return Settings{
		Genres:       slices.Clone(s.Genres),
		CustomPrompt: strings.TrimSpace(s.CustomPrompt),
		Language:     s.Language.OrDefault(),
	}
}

// Snapshot is a point-in-time, serializable copy of an engine.
type Snapshot struct {
	State              State           `json:"state"`
	Settings           Settings        `json:"settings"`
	History            []story.Segment `json:"history"`
	Transcript         string          `json:"transcript"`
	CurrentOptions     []string        `json:"current_options"`
	Epoch              uint64          `json:"epoch"`
	Revision           uint64          `json:"revision"`
	UpdatedAt          time.Time       `json:"updated_at"`
	NeedsConfiguration bool            `json:"needs_configuration"`
	LastError          string          `json:"last_error,omitempty"`
}
