// Package engine runs the turn-taking state machine of a single story.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jwebster45206/choice-engine/pkg/lang"
	"github.com/jwebster45206/choice-engine/pkg/story"
)

// Generator produces story segments. The model gateway implements it.
type Generator interface {
	// Configured reports whether a usable backend credential is available.
	Configured(ctx context.Context) bool
	GenerateOpening(ctx context.Context, genres []string, customPrompt string, code lang.Code) (story.Result, error)
	GenerateContinuation(ctx context.Context, history []story.Segment, option string, code lang.Code) (story.Result, error)
}

// Engine owns one conversation. All methods are safe for concurrent use.
// At most one generation is in flight; the lock is not held while the
// generator runs, so readers and ResetGame never block on the backend.
type Engine struct {
	mu sync.Mutex

	gen Generator
	log *slog.Logger
	now func() time.Time

	settings    Settings
	conv        story.Conversation
	state       State
	epoch       uint64
	revision    uint64
	updatedAt   time.Time
	needsConfig bool
	lastErr     string
}

// New creates an idle engine.
func New(gen Generator, settings Settings, logger *slog.Logger) *Engine {
	return &Engine{
		gen:       gen,
		log:       logger,
		now:       time.Now,
		settings:  settings.normalize(),
		state:     Idle,
		updatedAt: time.Now(),
	}
}

// Restore rebuilds an engine from a snapshot. A snapshot taken mid-request
// comes back waiting for a choice, or idle if it had no history; the
// request that was in flight is not resumed.
func Restore(gen Generator, snap Snapshot, logger *slog.Logger) *Engine {
	conv := story.Conversation{History: snap.History}

	e := New(gen, snap.Settings, logger)
	e.conv = conv.Clone()
	e.epoch = snap.Epoch
	e.revision = snap.Revision
	e.updatedAt = snap.UpdatedAt
	e.needsConfig = snap.NeedsConfiguration
	e.lastErr = snap.LastError

	e.state = Idle
	if len(e.conv.History) > 0 && snap.State != Idle {
		e.state = AwaitingChoice
	}
	return e
}

// StartGame generates the opening scene. It is only valid while idle.
func (e *Engine) StartGame(ctx context.Context, settings Settings) error {
	e.mu.Lock()
	switch e.state {
	case AwaitingGeneration:
		e.mu.Unlock()
		return ErrBusy
	case AwaitingChoice:
		e.mu.Unlock()
		return ErrAlreadyStarted
	}

	e.settings = settings.normalize()
	s := e.settings
	if len(s.Genres) == 0 {
		e.mu.Unlock()
		return ErrNoGenres
	}
	if !e.gen.Configured(ctx) {
		e.raise(story.ErrNotConfigured)
		e.mu.Unlock()
		return fmt.Errorf("start game: %w", story.ErrNotConfigured)
	}

	e.state = AwaitingGeneration
	e.clearSignal()
	epoch := e.epoch
	e.mu.Unlock()

	e.log.Debug("Generating opening scene",
		"epoch", epoch,
		"genres", s.Genres,
		"language", s.Language)

	res, err := e.gen.GenerateOpening(ctx, s.Genres, s.CustomPrompt, s.Language)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.epoch != epoch {
		e.log.Info("Discarding stale opening scene", "issued_epoch", epoch, "current_epoch", e.epoch)
		return ErrStale
	}
	if err != nil {
		e.state = Idle
		e.raise(err)
		e.log.Warn("Opening scene failed", "error", err, "epoch", epoch)
		return fmt.Errorf("start game: %w", err)
	}

	e.conv.Reset()
	e.accept(res)
	e.log.Info("Game started", "epoch", epoch, "revision", e.revision, "options", len(res.Options))
	return nil
}

// SelectOption records the player's choice on the latest segment and
// generates the next one. It is only valid while awaiting a choice.
func (e *Engine) SelectOption(ctx context.Context, option string) error {
	e.mu.Lock()
	switch e.state {
	case Idle:
		e.mu.Unlock()
		return ErrNotPlaying
	case AwaitingGeneration:
		e.mu.Unlock()
		return ErrBusy
	}

	last := e.conv.Last()
	if !last.HasOption(option) {
		e.log.Warn("Rejected option not offered in current segment",
			"option", option,
			"offered", last.Options)
		e.mu.Unlock()
		return ErrUnknownOption
	}
	if !e.gen.Configured(ctx) {
		e.raise(story.ErrNotConfigured)
		e.mu.Unlock()
		return fmt.Errorf("select option: %w", story.ErrNotConfigured)
	}
	if err := e.conv.Choose(option); err != nil {
		e.mu.Unlock()
		if errors.Is(err, story.ErrAlreadyChosen) {
			return ErrChoiceLocked
		}
		return err
	}

	e.state = AwaitingGeneration
	e.clearSignal()
	epoch := e.epoch
	history := e.conv.Clone().History
	code := e.settings.Language
	e.mu.Unlock()

	e.log.Debug("Generating continuation",
		"epoch", epoch,
		"option", option,
		"segments", len(history))

	res, err := e.gen.GenerateContinuation(ctx, history, option, code)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.epoch != epoch {
		e.log.Info("Discarding stale continuation", "issued_epoch", epoch, "current_epoch", e.epoch)
		return ErrStale
	}
	if err != nil {
		e.state = AwaitingChoice
		e.raise(err)
		e.log.Warn("Continuation failed", "error", err, "epoch", epoch, "option", option)
		return fmt.Errorf("select option: %w", err)
	}

	e.accept(res)
	e.log.Info("Turn completed", "epoch", epoch, "revision", e.revision, "segments", len(e.conv.History))
	return nil
}

// ResetGame discards the story and returns to idle. Any request still in
// flight finishes against the old epoch and is dropped.
func (e *Engine) ResetGame() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.conv.Reset()
	e.state = Idle
	e.epoch++
	e.clearSignal()
	e.bump()
	e.log.Info("Game reset", "epoch", e.epoch)
}

// UpdateSettings replaces the session configuration. Genres and custom
// prompt take effect on the next StartGame; language on the next request.
func (e *Engine) UpdateSettings(s Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = s.normalize()
}

// Settings returns the current session configuration.
func (e *Engine) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings.normalize()
}

// AcknowledgeConfiguration clears the needs-configuration signal once the
// caller has prompted for a credential.
func (e *Engine) AcknowledgeConfiguration() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearSignal()
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns a deep copy of the engine's observable state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	conv := e.conv.Clone()
	history := conv.History
	if history == nil {
		history = []story.Segment{}
	}
	return Snapshot{
		State:              e.state,
		Settings:           e.settings.normalize(),
		History:            history,
		Transcript:         conv.Transcript(),
		CurrentOptions:     conv.CurrentOptions(),
		Epoch:              e.epoch,
		Revision:           e.revision,
		UpdatedAt:          e.updatedAt,
		NeedsConfiguration: e.needsConfig,
		LastError:          e.lastErr,
	}
}

// accept appends a generated segment. Callers hold e.mu.
func (e *Engine) accept(res story.Result) {
	if res.Degenerate() {
		e.log.Warn("Generated segment is incomplete",
			"options", len(res.Options),
			"story_chars", len(res.StoryText))
	}
	e.conv.Append(res)
	e.state = AwaitingChoice
	e.bump()
}

func (e *Engine) bump() {
	e.revision++
	e.updatedAt = e.now()
}

func (e *Engine) raise(err error) {
	e.needsConfig = true
	e.lastErr = err.Error()
}

func (e *Engine) clearSignal() {
	e.needsConfig = false
	e.lastErr = ""
}
