package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/choice-engine/internal/audio"
	"github.com/jwebster45206/choice-engine/internal/handlers"
	"github.com/jwebster45206/choice-engine/internal/prefs"
	"github.com/jwebster45206/choice-engine/pkg/engine"
	"github.com/jwebster45206/choice-engine/pkg/genre"
	"github.com/jwebster45206/choice-engine/pkg/lang"
	"github.com/muesli/reflow/wordwrap"
)

type mode int

const (
	modeGenres mode = iota
	modeAPIKey
	modePlaying
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	api   *APIClient
	prefs *prefs.Store
	slot  *audio.Slot
	copy  func(string) error

	genres    []genre.Genre
	languages []lang.Language

	mode          mode
	returnMode    mode
	showQuitModal bool

	// genre modal
	cursor        int
	selected      map[string]bool
	language      int
	prompt        textarea.Model
	promptFocused bool

	// key modal
	keyInput textinput.Model
	retry    func() tea.Cmd

	session      *handlers.SessionResponse
	choiceCursor int
	viewport     viewport.Model
	ready        bool
	width        int
	height       int
	loading      bool
	progressTick int
	status       string
	err          error
}

type sessionMsg struct {
	op       string
	response *handlers.SessionResponse
	err      error
	retry    func() tea.Cmd
}

type speechMsg struct {
	id   string
	data []byte
	err  error
}

type copiedMsg struct {
	err error
}

type statusMsg string

type progressTickMsg struct{}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	storyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	choiceMadeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	panelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(3).
			PaddingRight(3)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(api *APIClient, store *prefs.Store, slot *audio.Slot, genres []genre.Genre, languages []lang.Language) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = "Optional: describe the story you want..."
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	ti := textinput.New()
	ti.Placeholder = "sk-..."
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 200
	ti.Width = 50

	vp := viewport.New(50, 20)
	vp.MouseWheelEnabled = true

	m := ConsoleUI{
		api:       api,
		prefs:     store,
		slot:      slot,
		copy:      clipboard.WriteAll,
		genres:    genres,
		languages: languages,
		mode:      modeGenres,
		selected:  make(map[string]bool),
		prompt:    ta,
		keyInput:  ti,
		viewport:  vp,
	}

	if store != nil {
		ctx := context.Background()
		if ids, err := store.LastGenres(ctx); err == nil {
			for _, id := range ids {
				m.selected[id] = true
			}
		}
		if code, err := store.Language(ctx); err == nil {
			m.language = m.languageIndex(code)
		}
		if key, ok, err := store.APIKey(ctx); err == nil && ok {
			api.SetKey(key)
		}
	}
	return m
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 6
		m.viewport.Height = msg.Height - 10
		m.prompt.SetWidth(min(60, msg.Width-10))
		m.ready = true
		m.refreshStory()
		return m, nil

	case sessionMsg:
		return m.handleSession(msg)

	case speechMsg:
		if msg.err != nil {
			m.status = errorStyle.Render("Speech failed: " + msg.err.Error())
			return m, nil
		}
		if m.slot != nil {
			m.slot.Play(context.Background(), msg.id, msg.data)
			m.status = "Playing narration..."
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.status = errorStyle.Render("Copy failed: " + msg.err.Error())
		} else {
			m.status = "Transcript copied to clipboard."
		}
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.refreshStory()
			return m, progressTick()
		}
		return m, nil
	}

	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	switch m.mode {
	case modeGenres:
		return m.updateGenreModal(msg)
	case modeAPIKey:
		return m.updateKeyModal(msg)
	default:
		return m.updatePlaying(msg)
	}
}

func (m ConsoleUI) handleSession(msg sessionMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil && msg.response != nil {
		m.session = msg.response
	}
	if msg.err != nil {
		if needsKey(msg.err) {
			m.returnMode = m.mode
			m.mode = modeAPIKey
			m.retry = msg.retry
			m.keyInput.Reset()
			m.keyInput.Focus()
			m.err = nil
			return m, textinput.Blink
		}
		if msg.op == "start" {
			m.mode = modeGenres
			m.status = errorStyle.Render("Could not start: " + msg.err.Error())
			return m, nil
		}
		m.err = msg.err
		m.refreshStory()
		return m, nil
	}

	m.err = nil
	m.session = msg.response
	m.choiceCursor = 0
	if msg.op == "reset" {
		m.mode = modeGenres
		m.status = "Story reset. Pick genres to begin again."
		return m, nil
	}
	if m.session.State == engine.AwaitingChoice {
		m.mode = modePlaying
	}
	m.refreshStory()
	return m, nil
}

func (m ConsoleUI) updateGenreModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		if m.promptFocused {
			m.prompt, cmd = m.prompt.Update(msg)
		}
		return m, cmd
	}
	if m.loading {
		if key.Type == tea.KeyCtrlC {
			m.showQuitModal = true
		}
		return m, nil
	}

	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.showQuitModal = true
		return m, nil
	case tea.KeyTab:
		m.promptFocused = !m.promptFocused
		if m.promptFocused {
			return m, m.prompt.Focus()
		}
		m.prompt.Blur()
		return m, nil
	case tea.KeyEnter:
		return m.begin()
	}

	if m.promptFocused {
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.genres)-1 {
			m.cursor++
		}
	case " ", "x":
		if len(m.genres) > 0 {
			id := m.genres[m.cursor].ID
			m.selected[id] = !m.selected[id]
		}
	case "l":
		if len(m.languages) > 0 {
			m.language = (m.language + 1) % len(m.languages)
		}
	}
	return m, nil
}

// begin starts a story with the modal's selection.
func (m ConsoleUI) begin() (tea.Model, tea.Cmd) {
	ids := m.selectedGenres()
	if len(ids) == 0 {
		m.status = errorStyle.Render("Select at least one genre.")
		return m, nil
	}
	req := handlers.SettingsRequest{
		Genres:       ids,
		CustomPrompt: strings.TrimSpace(m.prompt.Value()),
		Language:     string(m.currentLanguage()),
	}
	if m.prefs != nil {
		ctx := context.Background()
		_ = m.prefs.SetLastGenres(ctx, ids)
		_ = m.prefs.SetLanguage(ctx, m.currentLanguage())
	}

	m.loading = true
	m.progressTick = 0
	m.status = ""
	m.mode = modePlaying
	m.refreshStory()
	return m, tea.Batch(m.startStory(req), progressTick())
}

func (m ConsoleUI) updateKeyModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEsc:
			m.mode = m.returnMode
			m.status = "No key saved. Set one with the API or restart with a key."
			return m, nil
		case tea.KeyEnter:
			key := strings.TrimSpace(m.keyInput.Value())
			if key == "" {
				return m, nil
			}
			m.api.SetKey(key)
			if m.prefs != nil {
				if err := m.prefs.SetAPIKey(context.Background(), key); err != nil {
					m.status = errorStyle.Render("Key not saved: " + err.Error())
				}
			}
			m.mode = m.returnMode
			if m.mode == modeGenres {
				m.mode = modePlaying
			}
			if m.retry == nil {
				return m, nil
			}
			m.loading = true
			m.progressTick = 0
			retry := m.retry
			m.retry = nil
			m.refreshStory()
			return m, tea.Batch(m.acknowledge(), retry(), progressTick())
		}
	}

	var cmd tea.Cmd
	m.keyInput, cmd = m.keyInput.Update(msg)
	return m, cmd
}

func (m ConsoleUI) updatePlaying(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.showQuitModal = true
		return m, nil
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	if m.loading || m.session == nil {
		return m, nil
	}

	options := m.session.CurrentOptions
	switch s := key.String(); s {
	case "1", "2", "3", "4":
		idx := int(s[0] - '1')
		if idx < len(options) {
			return m.choose(options[idx])
		}
	case "up", "k":
		if m.choiceCursor > 0 {
			m.choiceCursor--
			m.refreshStory()
		}
	case "down", "j":
		if m.choiceCursor < len(options)-1 {
			m.choiceCursor++
			m.refreshStory()
		}
	case "enter":
		if m.choiceCursor < len(options) {
			return m.choose(options[m.choiceCursor])
		}
	case "r":
		if m.slot != nil {
			m.slot.Stop()
		}
		m.loading = true
		return m, m.reset()
	case "s":
		if n := len(m.session.History); n > 0 {
			m.status = "Fetching narration..."
			return m, m.speak(n - 1)
		}
	case "c":
		return m, m.copyTranscript()
	}
	return m, nil
}

func (m ConsoleUI) choose(option string) (tea.Model, tea.Cmd) {
	if m.slot != nil {
		m.slot.Stop()
	}
	m.loading = true
	m.progressTick = 0
	m.status = ""
	m.err = nil
	m.refreshStory()
	return m, tea.Batch(m.chooseOption(option), progressTick())
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEnter:
		return m, tea.Quit
	}
	switch key.String() {
	case "y", "Y":
		return m, tea.Quit
	case "n", "N", "esc":
		m.showQuitModal = false
	}
	return m, nil
}

func (m ConsoleUI) selectedGenres() []string {
	var ids []string
	for _, g := range m.genres {
		if m.selected[g.ID] {
			ids = append(ids, g.ID)
		}
	}
	return ids
}

func (m ConsoleUI) currentLanguage() lang.Code {
	if m.language < len(m.languages) {
		return m.languages[m.language].Code
	}
	return lang.Default
}

func (m ConsoleUI) languageIndex(code lang.Code) int {
	for i, l := range m.languages {
		if l.Code == code {
			return i
		}
	}
	return 0
}

// refreshStory rebuilds the story viewport for the current width.
func (m *ConsoleUI) refreshStory() {
	m.viewport.SetContent(renderStory(m.session, m.choiceCursor, m.viewport.Width, m.loading, m.progressTick, m.err))
	m.viewport.GotoBottom()
}

func renderStory(session *handlers.SessionResponse, cursor, width int, loading bool, tick int, err error) string {
	if width < 20 {
		width = 20
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("CHOICE ENGINE") + "\n\n")

	if session != nil {
		for _, seg := range session.History {
			b.WriteString(storyStyle.Render(wordwrap.String(seg.Text, width)) + "\n\n")
			if seg.SelectedOption != "" {
				b.WriteString(choiceMadeStyle.Render(wordwrap.String("> "+seg.SelectedOption, width)) + "\n\n")
			}
		}
	}

	if loading {
		b.WriteString(loadingStyle.Render("The story unfolds...") + "\n")
		b.WriteString(renderProgressBar(width, tick) + "\n")
		return b.String()
	}
	if err != nil {
		b.WriteString(errorStyle.Render("Error: "+err.Error()) + "\n")
		b.WriteString(promptStyle.Render("Pick the same option again to retry.") + "\n\n")
	}

	if session != nil && session.State == engine.AwaitingChoice {
		b.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n")
		for i, opt := range session.CurrentOptions {
			line := wordwrap.String(fmt.Sprintf("%d. %s", i+1, opt), width-2)
			if i == cursor {
				b.WriteString(modalSelectedItemStyle.Render("▶ "+line) + "\n")
			} else {
				b.WriteString(modalItemStyle.Render("  "+line) + "\n")
			}
		}
	}
	return b.String()
}

// renderProgressBar draws an animated bar for in-flight generations.
func renderProgressBar(width, tick int) string {
	usable := width
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := tick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		switch {
		case i < filled:
			bar.WriteString("█")
		case i == filled && frame%4 < 2:
			bar.WriteString("▓")
		default:
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

func (m ConsoleUI) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	if m.showQuitModal {
		return m.renderModal("Quit?", "Are you sure you want to quit your story?\n\n"+
			promptStyle.Render("Press Y to quit, N to continue"))
	}

	switch m.mode {
	case modeGenres:
		return m.renderGenreModal()
	case modeAPIKey:
		return m.renderModal("API Key Required",
			"The story backend needs a provider key.\nIt is saved locally for next time.\n\n"+
				m.keyInput.View()+"\n\n"+
				promptStyle.Render("Enter to save, Esc to cancel"))
	}

	help := promptStyle.Render("1-4/↑↓+Enter choose • r reset • s speak • c copy • Esc quit")
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		"",
		m.status,
		help,
	))
}

func (m ConsoleUI) renderGenreModal() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Choose Your Story"))
	content.WriteString("\n\n")

	for i, g := range m.genres {
		mark := "[ ]"
		if m.selected[g.ID] {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s", mark, g.Name)
		if i == m.cursor && !m.promptFocused {
			content.WriteString(modalSelectedItemStyle.Render("▶ " + line))
		} else {
			content.WriteString(modalItemStyle.Render("  " + line))
		}
		content.WriteString("\n")
	}

	content.WriteString("\n")
	if m.language < len(m.languages) {
		l := m.languages[m.language]
		content.WriteString(fmt.Sprintf("Language: %s %s\n\n", l.Flag, l.NativeName))
	}
	content.WriteString(m.prompt.View())
	content.WriteString("\n\n")
	if m.loading {
		content.WriteString(loadingStyle.Render("Setting up your story..."))
	} else {
		content.WriteString(promptStyle.Render("↑/↓ move • Space toggle • l language • Tab custom prompt • Enter start"))
	}
	if m.status != "" {
		content.WriteString("\n" + m.status)
	}
	return m.place(modalStyle.Width(70).Render(content.String()))
}

func (m ConsoleUI) renderModal(title, body string) string {
	content := modalTitleStyle.Render(title) + "\n\n" + body
	return m.place(modalStyle.Width(60).Render(content))
}

func (m ConsoleUI) place(modal string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) startStory(req handlers.SettingsRequest) tea.Cmd {
	var cmd func() tea.Cmd
	session := m.session
	cmd = func() tea.Cmd {
		return func() tea.Msg {
			ctx := context.Background()
			if session == nil {
				created, err := m.api.CreateSession(ctx, req)
				if err != nil {
					return sessionMsg{op: "start", err: err}
				}
				session = created
			}
			resp, err := m.api.Start(ctx, session.ID, &req)
			if err != nil {
				resp = session
			}
			return sessionMsg{op: "start", response: resp, err: err, retry: cmd}
		}
	}
	return cmd()
}

func (m ConsoleUI) chooseOption(option string) tea.Cmd {
	id := m.session.ID
	var cmd func() tea.Cmd
	cmd = func() tea.Cmd {
		return func() tea.Msg {
			ctx := context.Background()
			resp, err := m.api.Choose(ctx, id, option)
			if err != nil {
				// show the server's view, including the pending choice
				resp, _ = m.api.Session(ctx, id)
			}
			return sessionMsg{op: "choose", response: resp, err: err, retry: cmd}
		}
	}
	return cmd()
}

func (m ConsoleUI) reset() tea.Cmd {
	id := m.session.ID
	return func() tea.Msg {
		resp, err := m.api.Reset(context.Background(), id)
		return sessionMsg{op: "reset", response: resp, err: err}
	}
}

func (m ConsoleUI) acknowledge() tea.Cmd {
	if m.session == nil {
		return nil
	}
	id := m.session.ID
	return func() tea.Msg {
		if _, err := m.api.Acknowledge(context.Background(), id); err != nil {
			return statusMsg(errorStyle.Render("Acknowledge failed: " + err.Error()))
		}
		return nil
	}
}

func (m ConsoleUI) speak(segment int) tea.Cmd {
	id := m.session.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		data, err := m.api.Speech(ctx, id, segment)
		return speechMsg{id: fmt.Sprintf("%s/%d", id, segment), data: data, err: err}
	}
}

func (m ConsoleUI) copyTranscript() tea.Cmd {
	id := m.session.ID
	write := m.copy
	return func() tea.Msg {
		text, err := m.api.Transcript(context.Background(), id)
		if err != nil {
			return copiedMsg{err: err}
		}
		return copiedMsg{err: write(text)}
	}
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
