package main

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/internal/handlers"
	"github.com/jwebster45206/choice-engine/pkg/engine"
	"github.com/jwebster45206/choice-engine/pkg/genre"
	"github.com/jwebster45206/choice-engine/pkg/lang"
	"github.com/jwebster45206/choice-engine/pkg/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestUI(t *testing.T) ConsoleUI {
	t.Helper()
	api, _ := newTestAPI(t, "sk-test")
	m := NewConsoleUI(api, nil, nil, genre.Catalog, lang.Supported)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(ConsoleUI)
}

func update(t *testing.T, m ConsoleUI, msg tea.Msg) (ConsoleUI, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(ConsoleUI), cmd
}

func TestGenreModal_SelectionAndLanguage(t *testing.T) {
	m := newTestUI(t)
	assert.Equal(t, modeGenres, m.mode)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = update(t, m, runes("x"))
	assert.Equal(t, []string{genre.Catalog[0].ID, genre.Catalog[2].ID}, m.selectedGenres())

	m, _ = update(t, m, runes("x"))
	assert.Equal(t, []string{genre.Catalog[0].ID}, m.selectedGenres())

	assert.Equal(t, lang.English, m.currentLanguage())
	m, _ = update(t, m, runes("l"))
	assert.Equal(t, lang.Supported[1].Code, m.currentLanguage())
	for range lang.Supported[1:] {
		m, _ = update(t, m, runes("l"))
	}
	assert.Equal(t, lang.English, m.currentLanguage())
}

func TestGenreModal_RequiresGenre(t *testing.T) {
	m := newTestUI(t)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, modeGenres, m.mode)
	assert.Contains(t, m.status, "at least one genre")
}

func TestPlayThrough(t *testing.T) {
	m := newTestUI(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.loading)
	msg := m.startStory(handlers.SettingsRequest{Genres: m.selectedGenres()})()
	m, _ = update(t, m, msg)
	require.NoError(t, m.err)
	assert.Equal(t, modePlaying, m.mode)
	require.NotNil(t, m.session)
	assert.Equal(t, engine.AwaitingChoice, m.session.State)

	m, cmd := update(t, m, runes("2"))
	require.NotNil(t, cmd)
	assert.True(t, m.loading)
	m, _ = update(t, m, m.chooseOption("Second")())
	assert.False(t, m.loading)
	assert.Len(t, m.session.History, 2)
	assert.Contains(t, m.viewport.View(), "> Second")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.choiceCursor)

	var copied string
	m.copy = func(s string) error { copied = s; return nil }
	m, cmd = update(t, m, runes("c"))
	m, _ = update(t, m, cmd())
	assert.Contains(t, copied, "> Second")
	assert.Contains(t, m.status, "copied")

	m, _ = update(t, m, runes("r"))
	m, _ = update(t, m, m.reset()())
	assert.Equal(t, modeGenres, m.mode)
	assert.Equal(t, engine.Idle, m.session.State)
}

func TestNeedsKeyOpensKeyModal(t *testing.T) {
	m := newTestUI(t)
	m.mode = modePlaying
	m.session = &handlers.SessionResponse{ID: uuid.New()}

	retried := false
	m, _ = update(t, m, sessionMsg{
		op:    "choose",
		err:   &APIError{Status: http.StatusPreconditionRequired, Message: story.ErrNotConfigured.Error(), NeedsConfiguration: true},
		retry: func() tea.Cmd { retried = true; return nil },
	})
	assert.Equal(t, modeAPIKey, m.mode)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, modeAPIKey, m.mode, "empty key is ignored")

	m, _ = update(t, m, runes("sk-new"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, modePlaying, m.mode)
	assert.True(t, retried)
	assert.Equal(t, "sk-new", m.api.key)
}

func TestChooseFailureShowsRetryHint(t *testing.T) {
	m := newTestUI(t)
	m.mode = modePlaying
	m, _ = update(t, m, sessionMsg{op: "choose", err: errors.New("API returned status 502: upstream")})
	assert.Error(t, m.err)
	assert.Contains(t, m.viewport.View(), "retry")
}

func TestQuitModal(t *testing.T) {
	m := newTestUI(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, m.showQuitModal)
	assert.Contains(t, m.View(), "Quit?")

	m, _ = update(t, m, runes("n"))
	assert.False(t, m.showQuitModal)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	_, cmd := update(t, m, runes("y"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestRenderStory(t *testing.T) {
	session := &handlers.SessionResponse{Snapshot: engine.Snapshot{
		State: engine.AwaitingChoice,
		History: []story.Segment{
			{Text: "A door creaks.", Options: []string{"Open", "Leave"}, SelectedOption: "Open"},
			{Text: "Darkness.", Options: []string{"Light a match", "Wait"}},
		},
		CurrentOptions: []string{"Light a match", "Wait"},
	}}

	out := renderStory(session, 1, 60, false, 0, nil)
	assert.Contains(t, out, "A door creaks.")
	assert.Contains(t, out, "> Open")
	assert.Contains(t, out, "1. Light a match")
	assert.Contains(t, out, "▶ 2. Wait")

	loading := renderStory(session, 0, 60, true, 3, nil)
	assert.NotContains(t, loading, "1. Light a match")
	assert.True(t, strings.Contains(loading, "█") || strings.Contains(loading, "░"))
}
