package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroadcaster(t *testing.T) *Broadcaster {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewBroadcaster(client, logger)
}

func receive(t *testing.T, ch <-chan *redis.Message) Event {
	t.Helper()
	select {
	case msg := <-ch:
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBroadcaster_PublishesToSessionChannel(t *testing.T) {
	b := newTestBroadcaster(t)
	ctx := context.Background()
	id := uuid.New()

	sub := b.Subscribe(ctx, id)
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)
	ch := sub.Channel()

	require.NoError(t, b.PublishTurnStarted(ctx, id, TurnContinuation, "Open the door"))
	ev := receive(t, ch)
	assert.Equal(t, EventTypeTurnStarted, ev.Type)
	assert.Equal(t, id.String(), ev.SessionID)
	assert.Equal(t, "Open the door", ev.Data["option"])

	require.NoError(t, b.PublishTurnCompleted(ctx, id, 4, []string{"a", "b"}))
	ev = receive(t, ch)
	assert.Equal(t, EventTypeTurnCompleted, ev.Type)
	assert.EqualValues(t, 4, ev.Data["revision"])

	require.NoError(t, b.PublishTurnFailed(ctx, id, "backend is not configured", true))
	ev = receive(t, ch)
	assert.Equal(t, EventTypeTurnFailed, ev.Type)
	assert.Equal(t, true, ev.Data["needs_configuration"])

	require.NoError(t, b.PublishSessionReset(ctx, id, 5))
	ev = receive(t, ch)
	assert.Equal(t, EventTypeSessionReset, ev.Type)
}

func TestBroadcaster_OtherSessionsDoNotReceive(t *testing.T) {
	b := newTestBroadcaster(t)
	ctx := context.Background()
	mine, other := uuid.New(), uuid.New()

	sub := b.Subscribe(ctx, mine)
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, b.PublishSessionReset(ctx, other, 1))

	select {
	case msg := <-sub.Channel():
		t.Fatalf("unexpected message %q", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChannel(t *testing.T) {
	id := uuid.MustParse("6f1c2f9e-8d2b-4d7a-9d61-0c3b1e4a5f70")
	assert.Equal(t, "session-events:6f1c2f9e-8d2b-4d7a-9d61-0c3b1e4a5f70", Channel(id))
}
