package sessions

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/internal/credentials"
	"github.com/jwebster45206/choice-engine/internal/events"
	"github.com/jwebster45206/choice-engine/internal/services"
	"github.com/jwebster45206/choice-engine/pkg/engine"
	"github.com/jwebster45206/choice-engine/pkg/lang"
	"github.com/jwebster45206/choice-engine/pkg/storage"
	"github.com/jwebster45206/choice-engine/pkg/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	Type events.EventType
	ID   uuid.UUID
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) add(t events.EventType, id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: t, ID: id})
	return nil
}

func (p *recordingPublisher) PublishTurnStarted(_ context.Context, id uuid.UUID, _ string, _ string) error {
	return p.add(events.EventTypeTurnStarted, id)
}

func (p *recordingPublisher) PublishTurnCompleted(_ context.Context, id uuid.UUID, _ uint64, _ []string) error {
	return p.add(events.EventTypeTurnCompleted, id)
}

func (p *recordingPublisher) PublishTurnFailed(_ context.Context, id uuid.UUID, _ string, _ bool) error {
	return p.add(events.EventTypeTurnFailed, id)
}

func (p *recordingPublisher) PublishSessionReset(_ context.Context, id uuid.UUID, _ uint64) error {
	return p.add(events.EventTypeSessionReset, id)
}

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	llm     *services.MockLLMAPI
	store   *storage.MockStorage
	pub     *recordingPublisher
	manager *Manager
}

func newFixture(t *testing.T, key string) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	llm := services.NewMockLLMAPI()
	gw := services.NewGateway(llm, credentials.Chain{Default: key}, logger).
		WithSpeech(llm, credentials.Chain{Default: key})
	store := storage.NewMockStorage()
	pub := &recordingPublisher{}
	return &fixture{
		llm:     llm,
		store:   store,
		pub:     pub,
		manager: NewManager(gw, store, pub, Options{AudioCacheSize: 4, TurnTimeout: 5 * time.Second, Owner: "test"}, logger),
	}
}

func TestManager_CreateValidates(t *testing.T) {
	f := newFixture(t, "k")
	ctx := context.Background()

	_, _, err := f.manager.Create(ctx, engine.Settings{Genres: []string{"western"}})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, _, err = f.manager.Create(ctx, engine.Settings{Language: "xx"})
	assert.True(t, errors.As(err, &verr))

	id, snap, err := f.manager.Create(ctx, engine.Settings{Genres: []string{"scifi"}, Language: lang.Spanish})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, engine.Idle, snap.State)
	assert.Equal(t, 1, f.store.SessionCount())
}

func TestManager_FullTurnCycle(t *testing.T) {
	f := newFixture(t, "k")
	ctx := context.Background()

	id, _, err := f.manager.Create(ctx, engine.Settings{Genres: []string{"fantasy"}})
	require.NoError(t, err)

	snap, err := f.manager.Start(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.AwaitingChoice, snap.State)
	assert.Equal(t, []string{"First", "Second", "Third", "Fourth"}, snap.CurrentOptions)

	snap, err = f.manager.Choose(ctx, id, "Second")
	require.NoError(t, err)
	assert.Len(t, snap.History, 2)
	assert.Equal(t, "Second", snap.History[0].SelectedOption)

	stored, err := f.store.LoadSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, snap.Revision, stored.Revision)

	snap, err = f.manager.Reset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, engine.Idle, snap.State)
	assert.Equal(t, []string{"fantasy"}, snap.Settings.Genres)

	assert.Equal(t, []events.EventType{
		events.EventTypeTurnStarted, events.EventTypeTurnCompleted,
		events.EventTypeTurnStarted, events.EventTypeTurnCompleted,
		events.EventTypeSessionReset,
	}, f.pub.types())
}

func TestManager_NotConfigured(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	id, _, err := f.manager.Create(ctx, engine.Settings{Genres: []string{"horror"}})
	require.NoError(t, err)

	snap, err := f.manager.Start(ctx, id, nil)
	assert.ErrorIs(t, err, story.ErrNotConfigured)
	assert.True(t, snap.NeedsConfiguration)
	assert.Equal(t, engine.Idle, snap.State)
	assert.Contains(t, f.pub.types(), events.EventTypeTurnFailed)

	snap, err = f.manager.AcknowledgeConfiguration(ctx, id)
	require.NoError(t, err)
	assert.False(t, snap.NeedsConfiguration)

	// a per-request key fixes it without restarting the session
	snap, err = f.manager.Start(credentials.WithKey(ctx, "sk-live"), id, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.AwaitingChoice, snap.State)
}

func TestManager_RejectedTurnsDoNotPublishFailure(t *testing.T) {
	f := newFixture(t, "k")
	ctx := context.Background()

	id, _, err := f.manager.Create(ctx, engine.Settings{Genres: []string{"scifi"}})
	require.NoError(t, err)

	_, err = f.manager.Choose(ctx, id, "anything")
	assert.ErrorIs(t, err, engine.ErrNotPlaying)

	_, err = f.manager.Start(ctx, id, nil)
	require.NoError(t, err)
	_, err = f.manager.Choose(ctx, id, "not offered")
	assert.ErrorIs(t, err, engine.ErrUnknownOption)

	assert.NotContains(t, f.pub.types(), events.EventTypeTurnFailed)
}

func TestManager_TurnLockHeldElsewhere(t *testing.T) {
	f := newFixture(t, "k")
	ctx := context.Background()

	id, _, err := f.manager.Create(ctx, engine.Settings{Genres: []string{"scifi"}})
	require.NoError(t, err)
	f.store.HoldLock(id, "other-replica")

	_, err = f.manager.Start(ctx, id, nil)
	assert.ErrorIs(t, err, engine.ErrBusy)

	chatCalls, _ := f.llm.GetCalls()
	assert.Empty(t, chatCalls)
}

func TestManager_StartWithNewSettings(t *testing.T) {
	f := newFixture(t, "k")
	ctx := context.Background()

	id, _, err := f.manager.Create(ctx, engine.Settings{})
	require.NoError(t, err)

	_, err = f.manager.Start(ctx, id, nil)
	assert.ErrorIs(t, err, engine.ErrNoGenres)
	assert.Empty(t, f.pub.types(), "a refused start announces nothing")

	snap, err := f.manager.Start(ctx, id, &engine.Settings{Genres: []string{"mystery"}, Language: lang.Japanese})
	require.NoError(t, err)
	assert.Equal(t, lang.Japanese, snap.Settings.Language)
	assert.Equal(t, []events.EventType{events.EventTypeTurnStarted, events.EventTypeTurnCompleted}, f.pub.types())
	assert.Equal(t, 5*time.Second+turnLockMargin, f.store.LockTTL(id))
}

func TestManager_NotFound(t *testing.T) {
	f := newFixture(t, "k")
	_, err := f.manager.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_LoadsFromStorageOnMiss(t *testing.T) {
	f := newFixture(t, "k")
	ctx := context.Background()

	id, _, err := f.manager.Create(ctx, engine.Settings{Genres: []string{"scifi"}})
	require.NoError(t, err)
	_, err = f.manager.Start(ctx, id, nil)
	require.NoError(t, err)

	// a second replica sharing the same storage
	other := NewManager(f.manager.gen, f.store, f.pub, Options{Owner: "other"}, f.manager.logger)
	snap, err := other.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, engine.AwaitingChoice, snap.State)

	_, err = other.Choose(ctx, id, "First")
	require.NoError(t, err)

	// the first replica notices it fell behind
	snap, err = f.manager.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, snap.History, 2)
}

func TestManager_DeleteAndPrune(t *testing.T) {
	f := newFixture(t, "k")
	ctx := context.Background()

	id, _, err := f.manager.Create(ctx, engine.Settings{Genres: []string{"scifi"}})
	require.NoError(t, err)
	require.NoError(t, f.manager.Delete(ctx, id))
	_, err = f.manager.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = f.manager.Create(ctx, engine.Settings{Genres: []string{"scifi"}})
	require.NoError(t, err)
	assert.Equal(t, 0, f.manager.PruneIdle(time.Hour))
	assert.Equal(t, 1, f.manager.PruneIdle(-time.Hour))
}

func TestManager_SpeechIsCachedPerSession(t *testing.T) {
	f := newFixture(t, "k")
	ctx := context.Background()

	id, _, err := f.manager.Create(ctx, engine.Settings{Genres: []string{"scifi"}, Language: lang.German})
	require.NoError(t, err)
	_, err = f.manager.Start(ctx, id, nil)
	require.NoError(t, err)

	seg := 0
	audio1, err := f.manager.Speech(ctx, id, "", &seg)
	require.NoError(t, err)
	audio2, err := f.manager.Speech(ctx, id, "Mock story text.", nil)
	require.NoError(t, err)
	assert.Equal(t, audio1, audio2)

	_, speechCalls := f.llm.GetCalls()
	require.Len(t, speechCalls, 1)
	assert.Equal(t, lang.Voice("echo"), speechCalls[0].Voice)

	// reset clears the cache
	_, err = f.manager.Reset(ctx, id)
	require.NoError(t, err)
	_, err = f.manager.Speech(ctx, id, "Mock story text.", nil)
	require.NoError(t, err)
	_, speechCalls = f.llm.GetCalls()
	assert.Len(t, speechCalls, 2)
}

func TestManager_SpeechErrors(t *testing.T) {
	f := newFixture(t, "k")
	ctx := context.Background()

	id, _, err := f.manager.Create(ctx, engine.Settings{Genres: []string{"scifi"}})
	require.NoError(t, err)

	_, err = f.manager.Speech(ctx, id, "", nil)
	assert.ErrorIs(t, err, ErrNothingToSpeak)

	seg := 3
	_, err = f.manager.Speech(ctx, id, "", &seg)
	assert.ErrorIs(t, err, ErrSegmentOutOfRange)

	_, err = f.manager.Speech(ctx, id, "**", nil)
	assert.ErrorIs(t, err, story.ErrInputTooShort)
}
