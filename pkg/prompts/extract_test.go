package prompts

import (
	"testing"

	"github.com/jwebster45206/choice-engine/pkg/lang"
	"github.com/jwebster45206/choice-engine/pkg/story"
	"github.com/stretchr/testify/assert"
)

func TestExtractChoiceRoundTrip(t *testing.T) {
	for _, l := range lang.Supported {
		t.Run(string(l.Code), func(t *testing.T) {
			msgs := New(l.Code).
				WithHistory([]story.Segment{{Text: "A door.", Options: []string{"Open it"}, SelectedOption: "Open it"}}).
				WithChoice(`Say "hello" twice`).
				BuildContinuation()

			got, ok := ExtractChoice(msgs[len(msgs)-1].Content)
			assert.True(t, ok)
			assert.Equal(t, `Say "hello" twice`, got)
		})
	}
}

func TestExtractChoiceNoMatch(t *testing.T) {
	_, ok := ExtractChoice("tell me a story")
	assert.False(t, ok)
}

func TestExtractCustomPrompt(t *testing.T) {
	tests := []struct {
		name   string
		code   lang.Code
		custom string
		want   string
		wantOK bool
	}{
		{"english", lang.English, "a derelict station", "a derelict station", true},
		{"german", lang.German, "Berlin 1920", "Berlin 1920", true},
		{"russian", lang.Russian, "Луна", "Луна", true},
		{"none", lang.English, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := New(tt.code).WithGenres([]string{"scifi"}).WithCustomPrompt(tt.custom).BuildOpening()
			got, ok := ExtractCustomPrompt(msgs[1].Content)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
