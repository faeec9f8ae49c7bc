package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/pkg/engine"
)

// ErrStaleSnapshot is returned by SaveSession when the stored snapshot is
// newer: a later epoch, or the same epoch with a higher revision.
var ErrStaleSnapshot = errors.New("stored session is newer than the snapshot")

// Storage defines the persistence operations for story sessions
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Session snapshots. SaveSession never replaces a newer snapshot.
	// LoadSession returns nil, nil when the session does not exist or has
	// expired.
	SaveSession(ctx context.Context, id uuid.UUID, snap *engine.Snapshot) error
	LoadSession(ctx context.Context, id uuid.UUID) (*engine.Snapshot, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// Turn locks serialize generation for a session across replicas. The
	// lock expires after ttl so a crashed holder cannot block a session.
	// Release only succeeds for the owner that acquired the lock.
	AcquireTurnLock(ctx context.Context, id uuid.UUID, owner string, ttl time.Duration) (bool, error)
	ReleaseTurnLock(ctx context.Context, id uuid.UUID, owner string) error
}

// Supersedes reports whether a snapshot may replace stored.
func Supersedes(snap, stored *engine.Snapshot) bool {
	if stored == nil {
		return true
	}
	if snap.Epoch != stored.Epoch {
		return snap.Epoch > stored.Epoch
	}
	return snap.Revision >= stored.Revision
}
