package prompts

import (
	"strings"
	"testing"

	"github.com/jwebster45206/choice-engine/pkg/chat"
	"github.com/jwebster45206/choice-engine/pkg/lang"
	"github.com/jwebster45206/choice-engine/pkg/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOpening(t *testing.T) {
	tests := []struct {
		name         string
		code         lang.Code
		genres       []string
		customPrompt string
		wantUser     string
	}{
		{
			name:     "english without setting",
			code:     lang.English,
			genres:   []string{"scifi"},
			wantUser: `Create the opening scene of a science fiction text adventure game. The response should include a descriptive opening paragraph and then exactly 4 numbered options (1. 2. 3. 4.) for what the player can do next. Do NOT use headings like "Options:" or similar.`,
		},
		{
			name:         "english with setting",
			code:         lang.English,
			genres:       []string{"fantasy", "horror"},
			customPrompt: "  a haunted lighthouse ",
			wantUser:     `Create the opening scene of a fantasy/horror text adventure game set in or involving "a haunted lighthouse". The response should include a descriptive opening paragraph and then exactly 4 numbered options (1. 2. 3. 4.) for what the player can do next. Do NOT use headings like "Options:" or similar.`,
		},
		{
			name:     "german",
			code:     lang.German,
			genres:   []string{"adventure"},
			wantUser: `Erstelle die Eröffnungsszene eines Abenteuer Text-Adventure-Spiels. Die Antwort sollte einen beschreibenden Eröffnungsabsatz und dann genau 4 nummerierte Optionen (1. 2. 3. 4.) enthalten, was der Spieler als nächstes tun kann. Verwende KEINE Überschriften wie "Optionen:" oder ähnliches.`,
		},
		{
			name:     "unsupported falls back to english",
			code:     lang.Code("it"),
			genres:   []string{"mystery"},
			wantUser: `Create the opening scene of a mystery text adventure game. The response should include a descriptive opening paragraph and then exactly 4 numbered options (1. 2. 3. 4.) for what the player can do next. Do NOT use headings like "Options:" or similar.`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := New(tt.code).WithGenres(tt.genres).WithCustomPrompt(tt.customPrompt).BuildOpening()
			require.Len(t, msgs, 2)
			assert.Equal(t, chat.ChatRoleSystem, msgs[0].Role)
			assert.Equal(t, For(tt.code).OpeningSystem, msgs[0].Content)
			assert.Equal(t, chat.ChatRoleUser, msgs[1].Role)
			assert.Equal(t, tt.wantUser, msgs[1].Content)
		})
	}
}

func TestBuildContinuation(t *testing.T) {
	history := []story.Segment{
		{Text: "You wake.", Options: []string{"Stand", "Sleep", "Shout", "Wait"}, SelectedOption: "Stand"},
		{Text: "You stand.", Options: []string{"Walk", "Run", "Sit", "Look"}, SelectedOption: "Run"},
	}

	msgs := New(lang.English).WithHistory(history).WithChoice("Run").BuildContinuation()
	require.Len(t, msgs, 4)
	assert.Equal(t, chat.ChatMessage{Role: chat.ChatRoleSystem, Content: For(lang.English).ContinueSystem}, msgs[0])
	assert.Equal(t, chat.ChatMessage{Role: chat.ChatRoleAgent, Content: "You wake.\n\nThe player chose: Stand"}, msgs[1])
	assert.Equal(t, chat.ChatMessage{Role: chat.ChatRoleAgent, Content: "You stand.\n\nThe player chose: Run"}, msgs[2])
	assert.Equal(t, chat.ChatMessage{Role: chat.ChatRoleUser, Content: `I choose: "Run"`}, msgs[3])
}

func TestBuildContinuationUnchosenSegment(t *testing.T) {
	history := []story.Segment{{Text: "Alone.", Options: []string{"A"}}}
	msgs := New(lang.French).WithHistory(history).WithChoice("A").BuildContinuation()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Alone.", msgs[1].Content)
	assert.Equal(t, `Je choisis: "A"`, msgs[2].Content)
}

func TestChooseIdiomPerLanguage(t *testing.T) {
	tests := map[lang.Code]string{
		lang.English: `I choose: "X"`,
		lang.German:  `Ich wähle: "X"`,
		lang.Spanish: `Elijo: "X"`,
		lang.French:  `Je choisis: "X"`,
	}
	for code, want := range tests {
		t.Run(string(code), func(t *testing.T) {
			msgs := New(code).WithChoice("X").BuildContinuation()
			assert.Equal(t, want, msgs[len(msgs)-1].Content)
		})
	}
}

func TestEveryLanguageHasCompleteTemplates(t *testing.T) {
	for _, l := range lang.Supported {
		t.Run(string(l.Code), func(t *testing.T) {
			tpl, ok := templates[l.Code]
			require.True(t, ok)
			assert.NotEmpty(t, tpl.OpeningSystem)
			assert.Contains(t, tpl.OpeningScene, "%s")
			assert.Contains(t, tpl.OpeningSetting, "%s")
			assert.Contains(t, tpl.OpeningRules, "4")
			assert.Contains(t, tpl.ContinueSystem, "4")
			assert.NotEmpty(t, tpl.PlayerChose)
			assert.Contains(t, tpl.IChoose, "%s")
		})
	}
}

func TestPromptsAskForFourOptionsWithoutHeaders(t *testing.T) {
	for _, l := range lang.Supported {
		t.Run(string(l.Code), func(t *testing.T) {
			opening := New(l.Code).WithGenres([]string{"scifi"}).BuildOpening()
			joined := opening[0].Content + opening[1].Content
			assert.True(t, strings.Contains(joined, "4"))
			assert.True(t, strings.Contains(opening[1].Content, "1. 2. 3. 4."))
		})
	}
}

func TestSampling(t *testing.T) {
	assert.Equal(t, chat.Options{Temperature: 0.7, MaxTokens: 500}, Sampling(lang.English))
	assert.Equal(t, chat.Options{Temperature: 0.7, MaxTokens: 600}, Sampling(lang.Japanese))
	assert.Equal(t, chat.Options{Temperature: 0.7, MaxTokens: 500}, Sampling(lang.Code("")))
}
