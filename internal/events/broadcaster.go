// Package events publishes session lifecycle events over Redis pub/sub so
// any API replica can stream them to clients.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeTurnStarted   EventType = "turn.started"
	EventTypeTurnCompleted EventType = "turn.completed"
	EventTypeTurnFailed    EventType = "turn.failed"
	EventTypeSessionReset  EventType = "session.reset"
)

// Turn kinds carried on turn.started.
const (
	TurnOpening      = "opening"
	TurnContinuation = "continuation"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType              `json:"type"`
	SessionID string                 `json:"session_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Publisher is the subset of Broadcaster the session manager uses.
type Publisher interface {
	PublishTurnStarted(ctx context.Context, sessionID uuid.UUID, kind string, option string) error
	PublishTurnCompleted(ctx context.Context, sessionID uuid.UUID, revision uint64, options []string) error
	PublishTurnFailed(ctx context.Context, sessionID uuid.UUID, errorMsg string, needsConfiguration bool) error
	PublishSessionReset(ctx context.Context, sessionID uuid.UUID, revision uint64) error
}

// Channel returns the pub/sub channel for a session.
func Channel(sessionID uuid.UUID) string {
	return fmt.Sprintf("session-events:%s", sessionID.String())
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Subscribe opens a subscription to one session's events. The caller
// closes it.
func (b *Broadcaster) Subscribe(ctx context.Context, sessionID uuid.UUID) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, Channel(sessionID))
}

// PublishTurnStarted publishes a turn.started event
func (b *Broadcaster) PublishTurnStarted(ctx context.Context, sessionID uuid.UUID, kind string, option string) error {
	data := map[string]interface{}{
		"kind": kind,
	}
	if option != "" {
		data["option"] = option
	}
	return b.publish(ctx, sessionID, Event{Type: EventTypeTurnStarted, Data: data})
}

// PublishTurnCompleted publishes a turn.completed event
func (b *Broadcaster) PublishTurnCompleted(ctx context.Context, sessionID uuid.UUID, revision uint64, options []string) error {
	return b.publish(ctx, sessionID, Event{
		Type: EventTypeTurnCompleted,
		Data: map[string]interface{}{
			"revision": revision,
			"options":  options,
		},
	})
}

// PublishTurnFailed publishes a turn.failed event
func (b *Broadcaster) PublishTurnFailed(ctx context.Context, sessionID uuid.UUID, errorMsg string, needsConfiguration bool) error {
	return b.publish(ctx, sessionID, Event{
		Type: EventTypeTurnFailed,
		Data: map[string]interface{}{
			"error":               errorMsg,
			"needs_configuration": needsConfiguration,
		},
	})
}

// PublishSessionReset publishes a session.reset event
func (b *Broadcaster) PublishSessionReset(ctx context.Context, sessionID uuid.UUID, revision uint64) error {
	return b.publish(ctx, sessionID, Event{
		Type: EventTypeSessionReset,
		Data: map[string]interface{}{
			"revision": revision,
		},
	})
}

// publish publishes an event to the session-specific channel
func (b *Broadcaster) publish(ctx context.Context, sessionID uuid.UUID, event Event) error {
	event.SessionID = sessionID.String()
	channel := Channel(sessionID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type)

	return nil
}
