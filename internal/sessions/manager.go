// Package sessions keeps one turn engine per story session and persists
// it between requests.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/internal/audio"
	"github.com/jwebster45206/choice-engine/internal/events"
	"github.com/jwebster45206/choice-engine/internal/logger"
	"github.com/jwebster45206/choice-engine/internal/metrics"
	"github.com/jwebster45206/choice-engine/pkg/engine"
	"github.com/jwebster45206/choice-engine/pkg/genre"
	"github.com/jwebster45206/choice-engine/pkg/lang"
	"github.com/jwebster45206/choice-engine/pkg/storage"
	"github.com/jwebster45206/choice-engine/pkg/textfilter"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrSegmentOutOfRange = errors.New("segment index out of range")
	ErrNothingToSpeak    = errors.New("no text or segment given")
)

// Generator is the model gateway as the manager sees it.
type Generator interface {
	engine.Generator
	SynthesizeSpeech(ctx context.Context, text string, code lang.Code) ([]byte, error)
}

// Options tune a Manager.
type Options struct {
	// AudioCacheSize bounds each session's speech cache.
	AudioCacheSize int
	// TurnTimeout bounds one generation. Turns are detached from the
	// caller's cancellation so a dropped connection does not fail them.
	TurnTimeout time.Duration
	// Owner identifies this replica on turn locks.
	Owner string
}

// turnLockMargin keeps a turn lock alive past TurnTimeout so the holder can
// persist its result before another replica may take over.
const turnLockMargin = 15 * time.Second

type session struct {
	engine *engine.Engine
	audio  *audio.Cache
}

// Manager owns the in-memory engines of this replica. Redis holds the
// authoritative snapshot; a replica that falls behind reloads it.
type Manager struct {
	gen    Generator
	store  storage.Storage
	events events.Publisher
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

// NewManager creates a session manager.
func NewManager(gen Generator, store storage.Storage, pub events.Publisher, opts Options, logger *slog.Logger) *Manager {
	if opts.AudioCacheSize < 1 {
		opts.AudioCacheSize = 16
	}
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = 60 * time.Second
	}
	if opts.Owner == "" {
		opts.Owner = uuid.NewString()
	}
	return &Manager{
		gen:      gen,
		store:    store,
		events:   pub,
		opts:     opts,
		logger:   logger,
		sessions: make(map[uuid.UUID]*session),
	}
}

// Create starts a new idle session.
func (m *Manager) Create(ctx context.Context, settings engine.Settings) (uuid.UUID, engine.Snapshot, error) {
	if err := validateSettings(settings); err != nil {
		return uuid.Nil, engine.Snapshot{}, err
	}

	id := uuid.New()
	s, err := m.newSession(engine.New(m.gen, settings, m.sessionLogger(id)))
	if err != nil {
		return uuid.Nil, engine.Snapshot{}, err
	}

	snap := s.engine.Snapshot()
	if err := m.store.SaveSession(ctx, id, &snap); err != nil {
		return uuid.Nil, engine.Snapshot{}, fmt.Errorf("create session: %w", err)
	}
	m.put(id, s)

	m.logger.Info("Session created", "session_id", id, "genres", snap.Settings.Genres, "language", snap.Settings.Language)
	return id, snap, nil
}

// Get returns the current snapshot of a session.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (engine.Snapshot, error) {
	s, err := m.get(ctx, id)
	if err != nil {
		return engine.Snapshot{}, err
	}
	return s.engine.Snapshot(), nil
}

// UpdateSettings replaces a session's configuration.
func (m *Manager) UpdateSettings(ctx context.Context, id uuid.UUID, settings engine.Settings) (engine.Snapshot, error) {
	if err := validateSettings(settings); err != nil {
		return engine.Snapshot{}, err
	}
	s, err := m.get(ctx, id)
	if err != nil {
		return engine.Snapshot{}, err
	}
	s.engine.UpdateSettings(settings)
	return m.save(ctx, id, s)
}

// Delete removes a session everywhere.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	metrics.SetActiveSessions(len(m.sessions))
	m.mu.Unlock()

	if ok {
		s.engine.ResetGame()
		s.audio.Clear()
	}
	if err := m.store.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	m.logger.Info("Session deleted", "session_id", id)
	return nil
}

// Start generates the opening scene. A nil settings keeps the session's
// current configuration.
func (m *Manager) Start(ctx context.Context, id uuid.UUID, settings *engine.Settings) (engine.Snapshot, error) {
	s, err := m.get(ctx, id)
	if err != nil {
		return engine.Snapshot{}, err
	}
	next := s.engine.Settings()
	if settings != nil {
		if err := validateSettings(*settings); err != nil {
			return engine.Snapshot{}, err
		}
		next = *settings
	}

	return m.turn(ctx, id, s, "start", func(turnCtx context.Context) error {
		if s.engine.State() == engine.Idle && len(next.Genres) > 0 {
			m.publish(func(c context.Context) error {
				return m.events.PublishTurnStarted(c, id, events.TurnOpening, "")
			})
		}
		return s.engine.StartGame(turnCtx, next)
	})
}

// Choose records option and generates the next scene.
func (m *Manager) Choose(ctx context.Context, id uuid.UUID, option string) (engine.Snapshot, error) {
	s, err := m.get(ctx, id)
	if err != nil {
		return engine.Snapshot{}, err
	}

	return m.turn(ctx, id, s, "choose", func(turnCtx context.Context) error {
		if opensChoice(s.engine.Snapshot(), option) {
			m.publish(func(c context.Context) error {
				return m.events.PublishTurnStarted(c, id, events.TurnContinuation, option)
			})
		}
		return s.engine.SelectOption(turnCtx, option)
	})
}

// Reset discards the story, keeps settings, and drops cached audio.
func (m *Manager) Reset(ctx context.Context, id uuid.UUID) (engine.Snapshot, error) {
	s, err := m.get(ctx, id)
	if err != nil {
		return engine.Snapshot{}, err
	}
	s.engine.ResetGame()
	s.audio.Clear()

	snap, err := m.save(ctx, id, s)
	if err != nil {
		metrics.ObserveTurn("reset", "stale")
		return snap, err
	}
	metrics.ObserveTurn("reset", "ok")
	m.publish(func(c context.Context) error {
		return m.events.PublishSessionReset(c, id, snap.Revision)
	})
	return snap, nil
}

// AcknowledgeConfiguration clears the needs-configuration signal.
func (m *Manager) AcknowledgeConfiguration(ctx context.Context, id uuid.UUID) (engine.Snapshot, error) {
	s, err := m.get(ctx, id)
	if err != nil {
		return engine.Snapshot{}, err
	}
	s.engine.AcknowledgeConfiguration()
	return m.save(ctx, id, s)
}

// Speech returns audio for text, or for the story text of history segment
// index when text is empty. Clips are cached per session.
func (m *Manager) Speech(ctx context.Context, id uuid.UUID, text string, segment *int) ([]byte, error) {
	s, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	snap := s.engine.Snapshot()

	if text == "" {
		if segment == nil {
			return nil, ErrNothingToSpeak
		}
		if *segment < 0 || *segment >= len(snap.History) {
			return nil, ErrSegmentOutOfRange
		}
		text = snap.History[*segment].Text
	}

	code := snap.Settings.Language
	key := audio.KeyFor(code.Voice(), textfilter.CleanForSpeech(text))
	if data, ok := s.audio.Get(key); ok {
		metrics.ObserveSpeechCache(true)
		return data, nil
	}
	metrics.ObserveSpeechCache(false)

	data, err := m.gen.SynthesizeSpeech(ctx, text, code)
	if err != nil {
		return nil, err
	}
	s.audio.Put(key, data)
	return data, nil
}

// PruneIdle drops in-memory sessions not updated within maxIdle. Their
// snapshots stay in storage until the TTL removes them.
func (m *Manager) PruneIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	for id, s := range m.sessions {
		snap := s.engine.Snapshot()
		if snap.State != engine.AwaitingGeneration && snap.UpdatedAt.Before(cutoff) {
			s.audio.Clear()
			delete(m.sessions, id)
			pruned++
		}
	}
	metrics.SetActiveSessions(len(m.sessions))
	return pruned
}

// turn runs one generation under the cross-replica lock and persists the
// outcome.
func (m *Manager) turn(ctx context.Context, id uuid.UUID, s *session, op string, run func(context.Context) error) (engine.Snapshot, error) {
	ok, err := m.store.AcquireTurnLock(ctx, id, m.opts.Owner, m.opts.TurnTimeout+turnLockMargin)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		metrics.ObserveTurn(op, "busy")
		return s.engine.Snapshot(), engine.ErrBusy
	}
	defer func() {
		// released even if the caller went away
		if err := m.store.ReleaseTurnLock(context.WithoutCancel(ctx), id, m.opts.Owner); err != nil {
			m.logger.Warn("Failed to release turn lock", "session_id", id, "error", err)
		}
	}()

	turnCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.TurnTimeout)
	defer cancel()

	runErr := run(turnCtx)

	if errors.Is(runErr, engine.ErrStale) {
		metrics.ObserveTurn(op, "stale")
		return s.engine.Snapshot(), runErr
	}
	if rejected(runErr) {
		metrics.ObserveTurn(op, "rejected")
		return s.engine.Snapshot(), runErr
	}

	snap, err := m.save(ctx, id, s)
	if err != nil {
		// reset or advanced on another replica while this turn ran
		metrics.ObserveTurn(op, "stale")
		return snap, err
	}
	if runErr != nil {
		metrics.ObserveTurn(op, "failed")
		m.publish(func(c context.Context) error {
			return m.events.PublishTurnFailed(c, id, runErr.Error(), snap.NeedsConfiguration)
		})
		return snap, runErr
	}

	metrics.ObserveTurn(op, "ok")
	m.publish(func(c context.Context) error {
		return m.events.PublishTurnCompleted(c, id, snap.Revision, snap.CurrentOptions)
	})
	return snap, nil
}

// opensChoice reports whether choosing option will reach the model.
func opensChoice(snap engine.Snapshot, option string) bool {
	if snap.State != engine.AwaitingChoice || !slices.Contains(snap.CurrentOptions, option) {
		return false
	}
	last := snap.History[len(snap.History)-1]
	return last.SelectedOption == "" || last.SelectedOption == option
}

// rejected reports engine errors raised before any generation started.
func rejected(err error) bool {
	for _, target := range []error{
		engine.ErrBusy,
		engine.ErrAlreadyStarted,
		engine.ErrNotPlaying,
		engine.ErrNoGenres,
		engine.ErrUnknownOption,
		engine.ErrChoiceLocked,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (m *Manager) get(ctx context.Context, id uuid.UUID) (*session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()

	stored, err := m.store.LoadSession(ctx, id)
	if err != nil {
		if ok {
			m.logger.Warn("Using in-memory session, storage unavailable", "session_id", id, "error", err)
			return s, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if stored == nil {
		if ok {
			// expired or deleted elsewhere
			m.evict(id)
		}
		return nil, ErrNotFound
	}

	if ok {
		local := s.engine.Snapshot()
		if local.State == engine.AwaitingGeneration || storage.Supersedes(&local, stored) {
			return s, nil
		}
		m.logger.Debug("Reloading session updated by another replica",
			"session_id", id,
			"local_epoch", local.Epoch,
			"stored_epoch", stored.Epoch,
			"local_revision", local.Revision,
			"stored_revision", stored.Revision)
	}

	fresh, err := m.newSession(engine.Restore(m.gen, *stored, m.sessionLogger(id)))
	if err != nil {
		return nil, err
	}
	if ok {
		s.audio.Clear()
	}
	return m.put(id, fresh), nil
}

func (m *Manager) newSession(e *engine.Engine) (*session, error) {
	cache, err := audio.NewCache(m.opts.AudioCacheSize, nil)
	if err != nil {
		return nil, fmt.Errorf("create audio cache: %w", err)
	}
	return &session{engine: e, audio: cache}, nil
}

func (m *Manager) put(id uuid.UUID, s *session) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = s
	metrics.SetActiveSessions(len(m.sessions))
	return s
}

func (m *Manager) evict(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.audio.Clear()
		delete(m.sessions, id)
	}
	metrics.SetActiveSessions(len(m.sessions))
}

// save persists the current snapshot. Storage failures are logged and this
// replica keeps serving from memory. When storage already holds a newer
// snapshot the local engine is dropped, the stored one is returned, and the
// error is engine.ErrStale.
func (m *Manager) save(ctx context.Context, id uuid.UUID, s *session) (engine.Snapshot, error) {
	ctx = context.WithoutCancel(ctx)
	snap := s.engine.Snapshot()
	err := m.store.SaveSession(ctx, id, &snap)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, storage.ErrStaleSnapshot) {
		m.logger.Error("Failed to persist session", "session_id", id, "error", err)
		return snap, nil
	}

	m.logger.Info("Discarding local session state superseded in storage",
		"session_id", id,
		"epoch", snap.Epoch,
		"revision", snap.Revision)
	m.evict(id)
	fresh, getErr := m.get(ctx, id)
	if getErr != nil {
		return snap, fmt.Errorf("%w: %w", engine.ErrStale, getErr)
	}
	return fresh.engine.Snapshot(), engine.ErrStale
}

func (m *Manager) publish(fn func(context.Context) error) {
	if m.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		m.logger.Warn("Failed to publish session event", "error", err)
	}
}

func (m *Manager) sessionLogger(id uuid.UUID) *slog.Logger {
	return logger.WithSession(m.logger, id.String())
}

func validateSettings(s engine.Settings) error {
	if len(s.Genres) > 0 {
		if err := genre.Validate(s.Genres); err != nil {
			return &ValidationError{Err: err}
		}
	}
	if s.Language != "" && !lang.IsSupported(s.Language) {
		return &ValidationError{Err: fmt.Errorf("unsupported language %q", s.Language)}
	}
	return nil
}

// ValidationError wraps a rejected settings value.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }
