package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jwebster45206/choice-engine/pkg/chat"
	"github.com/jwebster45206/choice-engine/pkg/genre"
	"github.com/jwebster45206/choice-engine/pkg/lang"
	"github.com/jwebster45206/choice-engine/pkg/prompts"
)

// OfflineService is a canned LLMService for development and demos. It
// reads the same prompts a real backend would and answers in the numbered
// format the parser expects.
type OfflineService struct {
	delay  time.Duration
	logger *slog.Logger
}

type cannedScene struct {
	text    string
	custom  string // format taking the custom prompt
	options [4]string
}

var openingScenes = map[string]cannedScene{
	"scifi": {
		text:   "Alarms drag you out of cryo-sleep. Red emergency light floods the bay, and the ship's computer reports that every other pod failed. The vessel is falling toward a planet no chart has a name for.",
		custom: "You come to aboard %s. The air tastes thin and every panel is blinking amber. A terminal scrolls one line over and over: LIFE SUPPORT RESERVES 3 HOURS.",
		options: [4]string{
			"Pull the ship's logs to learn what went wrong",
			"Attempt a manual override of navigation",
			"Broadcast a signal to any nearby system",
			"Prepare an escape pod",
		},
	},
	"fantasy": {
		text:   "The book on the lectern glows faintly. When your fingertips touch the cover, runes crawl across the open page as though an invisible hand were writing, and a voice speaks inside your head: the wall between worlds is failing, and it has chosen you.",
		custom: "You arrive in %s as a stranger. The villagers murmur that their ruler is cursed and the sun no longer sets. Only the Moonshadow Crystal, they say, can end it.",
		options: [4]string{
			"Keep reading the glowing book",
			"Ask the village elder for counsel",
			"Ignore the omens and travel on",
			"Study the runes until they make sense",
		},
	},
	"horror": {
		text:   "Nobody has lived in the house on the hill for forty years. People in town talk about lights in the upper windows and neighbors who went missing. You came to see for yourself, and now the front door has locked behind you.",
		custom: "The abandoned %s groans around you like something breathing. Night has fallen, and every door you came through is now locked.",
		options: [4]string{
			"Search for another way out",
			"Call out to whoever else might be here",
			"Break a window and climb through",
			"Explore deeper into the house",
		},
	},
	"": {
		text:   "A stained map has come into your hands. It marks a treasure somewhere past the edge of the known world, and the stories say it is watched by old guardians and older traps.",
		custom: "Your journey starts in %s, where people whisper about a treasure nobody has found in centuries.",
		options: [4]string{
			"Gather supplies and set out",
			"Find a guide who knows the land",
			"Research the treasure's history",
			"Show the map to allies you trust",
		},
	},
}

type cannedTurn struct {
	keywords []string
	scene    cannedScene
}

// first match wins; the last entry is the fallback
var continuations = []cannedTurn{
	{[]string{"log", "research"}, cannedScene{
		text: "What you find changes everything. The failure was no accident; someone arranged it. Buried in the records is a message never meant to be read: they know what we found, trust nobody.",
		options: [4]string{
			"Look for proof of sabotage",
			"Work out who \"they\" are",
			"Search for survivors who know more",
			"Secure your position before anything else",
		},
	}},
	{[]string{"override", "break"}, cannedScene{
		text: "Nothing responds the way it should. Controls that ought to obey stay locked, and as you fight them you catch a reflection in the glass. Something is moving behind you.",
		options: [4]string{
			"Spin around",
			"Act unaware while reaching for a weapon",
			"Watch the reflection more closely",
			"Ask who is there",
		},
	}},
	{[]string{"signal", "call"}, cannedScene{
		text: "An answer crackles back, but not the one you hoped for. Through the static a voice says to stop transmitting, that something is hunting, and to wait for coordinates. Then the channel goes dead.",
		options: [4]string{
			"Do as told and shut down everything non-essential",
			"Try to reach the voice again",
			"Ready defenses in case something comes",
			"Keep broadcasting anyway",
		},
	}},
	{[]string{"prepare", "gather"}, cannedScene{
		text: "Among the supplies you find a journal that belongs to nobody you know. The last entry is short: if you are reading this, I failed, and the artifact must never reach home.",
		options: [4]string{
			"Find out what the artifact is",
			"Look for the journal's owner",
			"Continue preparing, more carefully now",
			"Check whether the artifact is nearby",
		},
	}},
	{[]string{"explore", "search"}, cannedScene{
		text: "Further in, the dark shows signs of someone passing recently. Strange marks lead to a sealed door you had not noticed, and its surface is warm, as if something behind it is running.",
		options: [4]string{
			"Try to open the sealed door",
			"Follow the marks the other way",
			"Examine the marks up close",
			"Hide and watch who comes back",
		},
	}},
	{nil, cannedScene{
		text: "Your choice takes you somewhere you did not expect. The situation shifts around you, and you sense that the truth is still hidden, waiting for careful choices to bring it out.",
		options: [4]string{
			"Stop and rethink what you know",
			"Look for details you missed",
			"Move on with more caution",
			"Try a completely different approach",
		},
	}},
}

// NewOfflineService creates an offline generator that waits delay before
// answering, to keep loading states visible.
func NewOfflineService(delay time.Duration, logger *slog.Logger) *OfflineService {
	return &OfflineService{delay: delay, logger: logger}
}

func (s *OfflineService) Name() string { return "offline" }

func (s *OfflineService) RequiresCredential() bool { return false }

// Chat answers an opening request when the conversation has no narrator
// turns, otherwise a continuation keyed on the chosen option.
func (s *OfflineService) Chat(ctx context.Context, _ string, messages []chat.ChatMessage, _ chat.Options) (*chat.ChatResponse, error) {
	if err := chat.Validate(messages); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, classify(ctx.Err())
		case <-time.After(s.delay):
		}
	}

	last := messages[len(messages)-1].Content
	opening := true
	for _, m := range messages {
		if m.Role == chat.ChatRoleAgent {
			opening = false
			break
		}
	}

	var out string
	if opening {
		out = s.opening(last)
	} else {
		out = s.continuation(last)
	}
	return &chat.ChatResponse{Message: out}, nil
}

func (s *OfflineService) opening(request string) string {
	scene := openingScenes[detectGenre(request)]
	if custom, ok := prompts.ExtractCustomPrompt(request); ok && custom != "" {
		return render(fmt.Sprintf(scene.custom, custom), scene.options)
	}
	return render(scene.text, scene.options)
}

func (s *OfflineService) continuation(request string) string {
	option, ok := prompts.ExtractChoice(request)
	if !ok {
		option = request
	}
	option = strings.ToLower(option)
	for _, c := range continuations {
		if c.keywords == nil {
			return render(c.scene.text, c.scene.options)
		}
		for _, k := range c.keywords {
			if strings.Contains(option, k) {
				s.logger.Debug("Offline continuation matched", "keyword", k)
				return render(c.scene.text, c.scene.options)
			}
		}
	}
	return ""
}

// detectGenre finds the first canned genre named in the request in any
// supported language.
func detectGenre(request string) string {
	request = strings.ToLower(request)
	for _, id := range []string{"scifi", "fantasy", "horror"} {
		for _, l := range lang.Supported {
			if strings.Contains(request, strings.ToLower(genre.LocalName(id, l.Code))) {
				return id
			}
		}
	}
	return ""
}

func render(text string, options [4]string) string {
	var sb strings.Builder
	sb.WriteString(text)
	sb.WriteString("\n\n")
	for i, o := range options {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, o)
	}
	return sb.String()
}
