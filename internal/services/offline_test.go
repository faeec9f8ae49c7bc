package services

import (
	"context"
	"testing"
	"time"

	"github.com/jwebster45206/choice-engine/internal/credentials"
	"github.com/jwebster45206/choice-engine/pkg/lang"
	"github.com/jwebster45206/choice-engine/pkg/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfflineService_Opening(t *testing.T) {
	tests := []struct {
		name       string
		genres     []string
		custom     string
		code       lang.Code
		wantPrefix string
		wantOption string
	}{
		{"scifi", []string{"scifi"}, "", lang.English, "Alarms drag you", "Prepare an escape pod"},
		{"scifi custom", []string{"scifi"}, "the Meridian", lang.English, "You come to aboard the Meridian.", "Prepare an escape pod"},
		{"fantasy in spanish", []string{"fantasy"}, "", lang.Spanish, "The book on the lectern", "Keep reading the glowing book"},
		{"horror custom in german", []string{"horror"}, "Sanatorium", lang.German, "The abandoned Sanatorium", "Search for another way out"},
		{"default", []string{"mystery"}, "", lang.English, "A stained map", "Gather supplies and set out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := NewGateway(NewOfflineService(0, testLogger()), credentials.Chain{}, testLogger())
			res, err := gw.GenerateOpening(context.Background(), tt.genres, tt.custom, tt.code)
			require.NoError(t, err)
			assert.False(t, res.Degenerate())
			assert.Len(t, res.Options, 4)
			assert.Contains(t, res.StoryText, tt.wantPrefix)
			assert.Contains(t, res.Options, tt.wantOption)
		})
	}
}

func TestOfflineService_Continuation(t *testing.T) {
	tests := []struct {
		option     string
		wantOption string
	}{
		{"Pull the ship's logs to learn what went wrong", "Look for proof of sabotage"},
		{"Attempt a manual override of navigation", "Spin around"},
		{"Broadcast a signal to any nearby system", "Try to reach the voice again"},
		{"Gather supplies and set out", "Find out what the artifact is"},
		{"Explore deeper into the house", "Try to open the sealed door"},
		{"Sing a song", "Try a completely different approach"},
	}
	for _, tt := range tests {
		t.Run(tt.option, func(t *testing.T) {
			gw := NewGateway(NewOfflineService(0, testLogger()), credentials.Chain{}, testLogger())
			history := []story.Segment{{Text: "Before.", Options: []string{tt.option}, SelectedOption: tt.option}}
			res, err := gw.GenerateContinuation(context.Background(), history, tt.option, lang.English)
			require.NoError(t, err)
			assert.Len(t, res.Options, 4)
			assert.Contains(t, res.Options, tt.wantOption)
		})
	}
}

func TestOfflineService_DelayHonorsContext(t *testing.T) {
	svc := NewOfflineService(time.Minute, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := NewGateway(svc, credentials.Chain{}, testLogger())
	_, err := gw.GenerateOpening(ctx, []string{"scifi"}, "", lang.English)
	assert.True(t, story.IsTransport(err))
}
