package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/pkg/engine"
	"github.com/jwebster45206/choice-engine/pkg/storage"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	lockKeyPrefix    = "session-lock:"
)

// releaseLock deletes the lock only if the caller still owns it
var releaseLock = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// saveSession writes a snapshot hash unless the stored one is newer: a
// later epoch, or the same epoch with a higher revision. It returns 0 when
// the write was refused.
var saveSession = redis.NewScript(`
	local cur = redis.call("hmget", KEYS[1], "epoch", "revision")
	if cur[1] then
		local epoch, revision = tonumber(cur[1]), tonumber(cur[2])
		local newEpoch, newRevision = tonumber(ARGV[2]), tonumber(ARGV[3])
		if epoch > newEpoch or (epoch == newEpoch and revision > newRevision) then
			return 0
		end
	end
	redis.call("hset", KEYS[1], "data", ARGV[1], "epoch", ARGV[2], "revision", ARGV[3])
	if tonumber(ARGV[4]) > 0 then
		redis.call("pexpire", KEYS[1], ARGV[4])
	end
	return 1
`)

// RedisStorage implements the Storage interface using Redis
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL may be a
// redis:// URL or a bare host:port. Sessions expire ttl after their last
// save.
func NewRedisStorage(redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisStorage, error) {
	opts := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		opts = parsed
	}
	return NewRedisStorageWithClient(redis.NewClient(opts), ttl, logger), nil
}

// NewRedisStorageWithClient wraps an existing client.
func NewRedisStorageWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStorage {
	return &RedisStorage{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Client exposes the underlying client for pub/sub.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Session operations

func (r *RedisStorage) SaveSession(ctx context.Context, id uuid.UUID, snap *engine.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		r.logger.Error("Failed to marshal session", "session_id", id, "error", err)
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	keys := []string{sessionKeyPrefix + id.String()}
	saved, err := saveSession.Run(ctx, r.client, keys, data, snap.Epoch, snap.Revision, r.ttl.Milliseconds()).Int()
	if err != nil {
		r.logger.Error("Failed to save session", "session_id", id, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	if saved == 0 {
		r.logger.Info("Refused to overwrite newer session",
			"session_id", id,
			"epoch", snap.Epoch,
			"revision", snap.Revision)
		return storage.ErrStaleSnapshot
	}
	return nil
}

func (r *RedisStorage) LoadSession(ctx context.Context, id uuid.UUID) (*engine.Snapshot, error) {
	data, err := r.client.HGet(ctx, sessionKeyPrefix+id.String(), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("Session not found", "session_id", id)
			return nil, nil
		}
		r.logger.Error("Failed to load session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		r.logger.Error("Failed to unmarshal session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &snap, nil
}

func (r *RedisStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+id.String()).Err(); err != nil {
		r.logger.Error("Failed to delete session", "session_id", id, "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Turn locks

func (r *RedisStorage) AcquireTurnLock(ctx context.Context, id uuid.UUID, owner string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, lockKeyPrefix+id.String(), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire turn lock: %w", err)
	}
	return ok, nil
}

func (r *RedisStorage) ReleaseTurnLock(ctx context.Context, id uuid.UUID, owner string) error {
	if err := releaseLock.Run(ctx, r.client, []string{lockKeyPrefix + id.String()}, owner).Err(); err != nil {
		r.logger.Error("Failed to release turn lock", "session_id", id, "error", err)
		return fmt.Errorf("failed to release turn lock: %w", err)
	}
	return nil
}
