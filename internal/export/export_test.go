package export

import (
	"bytes"
	"testing"

	"github.com/jwebster45206/choice-engine/pkg/engine"
	"github.com/jwebster45206/choice-engine/pkg/lang"
	"github.com/jwebster45206/choice-engine/pkg/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() engine.Snapshot {
	conv := story.Conversation{History: []story.Segment{
		{Text: "The airlock hisses.\n\nStars wheel past.", Options: []string{"Wait", "Go"}, SelectedOption: "Go"},
		{Text: "You drift into the void.", Options: []string{"Swim", "Call"}},
	}}
	return engine.Snapshot{
		Settings:   engine.Settings{Genres: []string{"scifi"}, Language: lang.English},
		History:    conv.History,
		Transcript: conv.Transcript(),
	}
}

func TestTranscriptText(t *testing.T) {
	got := TranscriptText(sampleSnapshot())
	assert.Equal(t, "The airlock hisses.\n\nStars wheel past.\n\n> Go\n\nYou drift into the void.", got)
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		snap engine.Snapshot
		want string
	}{
		{"english genre", sampleSnapshot(), "Science Fiction"},
		{"no genres", engine.Snapshot{}, "Story"},
		{"spanish", engine.Snapshot{Settings: engine.Settings{Genres: []string{"fantasy"}, Language: lang.Spanish}}, "Fantasía"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.snap))
		})
	}
}

func TestTranscriptPDF(t *testing.T) {
	data, err := TranscriptPDF("Science Fiction", sampleSnapshot())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Contains(t, string(data), "%%EOF")
}

func TestTranscriptPDFEmptyStory(t *testing.T) {
	data, err := TranscriptPDF("Story", engine.Snapshot{})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestParagraphs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, paragraphs("a\n\n\n\n  b  \n\n"))
	assert.Nil(t, paragraphs("   "))
}
