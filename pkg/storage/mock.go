package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/pkg/engine"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID][]byte
	locks     map[uuid.UUID]string
	lockTTLs  map[uuid.UUID]time.Duration
	pingError error
	saveError error

	SaveCalls int
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		sessions: make(map[uuid.UUID][]byte),
		locks:    make(map[uuid.UUID]string),
		lockTTLs: make(map[uuid.UUID]time.Duration),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail on SaveSession
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveSession stores a JSON copy so later mutation of snap is not visible.
// Like Redis, it refuses to replace a newer snapshot.
func (m *MockStorage) SaveSession(ctx context.Context, id uuid.UUID, snap *engine.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.saveError != nil {
		return m.saveError
	}
	if data, ok := m.sessions[id]; ok {
		var stored engine.Snapshot
		if err := json.Unmarshal(data, &stored); err != nil {
			return err
		}
		if !Supersedes(snap, &stored) {
			return ErrStaleSnapshot
		}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	m.sessions[id] = data
	return nil
}

// LoadSession returns nil, nil for unknown sessions
func (m *MockStorage) LoadSession(ctx context.Context, id uuid.UUID) (*engine.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// DeleteSession removes a session
func (m *MockStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// AcquireTurnLock mocks SetNX semantics. Locks never expire; the TTL is
// only recorded.
func (m *MockStorage) AcquireTurnLock(ctx context.Context, id uuid.UUID, owner string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[id]; held {
		return false, nil
	}
	m.locks[id] = owner
	m.lockTTLs[id] = ttl
	return true, nil
}

// LockTTL returns the TTL of the last lock acquired for id
func (m *MockStorage) LockTTL(id uuid.UUID) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lockTTLs[id]
}

// ReleaseTurnLock only releases a lock held by owner
func (m *MockStorage) ReleaseTurnLock(ctx context.Context, id uuid.UUID, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[id] == owner {
		delete(m.locks, id)
	}
	return nil
}

// HoldLock marks a session as locked by another owner
func (m *MockStorage) HoldLock(id uuid.UUID, owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[id] = owner
}

// SessionCount returns the number of stored sessions
func (m *MockStorage) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
