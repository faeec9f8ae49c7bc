package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/choice-engine/internal/audio"
	"github.com/jwebster45206/choice-engine/internal/prefs"
)

type ConsoleConfig struct {
	APIBaseURL string
	PrefsPath  string
	Player     string
	Timeout    time.Duration
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		PrefsPath:  os.Getenv("PREFS_PATH"),
		Player:     getEnv("AUDIO_PLAYER", audio.DefaultPlayer.Command),
		// generations can be slow on local models
		Timeout: 2 * time.Minute,
	}

	api := NewAPIClient(cfg.APIBaseURL, &http.Client{Timeout: cfg.Timeout})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := api.Health(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Could not connect to API (%v). Please ensure the API is running.\nTry: docker-compose up -d\n", err)
		os.Exit(1)
	}

	genres, err := api.Genres(ctx)
	if err != nil || len(genres) == 0 {
		fmt.Fprintf(os.Stderr, "Failed to list genres: %v\n", err)
		os.Exit(1)
	}
	languages, err := api.Languages(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list languages: %v\n", err)
		os.Exit(1)
	}

	store := openPrefs(cfg.PrefsPath)
	if store != nil {
		defer store.Close()
	}

	player := audio.DefaultPlayer
	player.Command = cfg.Player
	slot := audio.NewSlot(player)
	defer slot.Stop()

	p := tea.NewProgram(NewConsoleUI(api, store, slot, genres, languages),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	slot.OnError = func(id string, err error) {
		p.Send(statusMsg(errorStyle.Render("Playback failed: " + err.Error())))
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// openPrefs opens the preference store. The console runs without saved
// preferences if it cannot be opened.
func openPrefs(path string) *prefs.Store {
	if path == "" {
		var err error
		if path, err = prefs.DefaultPath(); err != nil {
			fmt.Fprintf(os.Stderr, "Preferences disabled: %v\n", err)
			return nil
		}
	}
	store, err := prefs.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Preferences disabled: %v\n", err)
		return nil
	}
	return store
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
