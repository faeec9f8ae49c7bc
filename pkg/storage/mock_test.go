package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/pkg/engine"
	"github.com/jwebster45206/choice-engine/pkg/lang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStorage_SaveLoadDelete(t *testing.T) {
	m := NewMockStorage()
	ctx := context.Background()
	id := uuid.New()

	snap := &engine.Snapshot{
		State:    engine.Idle,
		Settings: engine.Settings{Genres: []string{"scifi"}, Language: lang.French},
		Revision: 3,
	}
	require.NoError(t, m.SaveSession(ctx, id, snap))
	snap.Revision = 99

	loaded, err := m.LoadSession(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, uint64(3), loaded.Revision)
	assert.Equal(t, lang.French, loaded.Settings.Language)

	require.NoError(t, m.DeleteSession(ctx, id))
	loaded, err = m.LoadSession(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMockStorage_TurnLock(t *testing.T) {
	m := NewMockStorage()
	ctx := context.Background()
	id := uuid.New()

	ok, err := m.AcquireTurnLock(ctx, id, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = m.AcquireTurnLock(ctx, id, "b", time.Minute)
	assert.False(t, ok)

	require.NoError(t, m.ReleaseTurnLock(ctx, id, "b"))
	ok, _ = m.AcquireTurnLock(ctx, id, "b", time.Minute)
	assert.False(t, ok, "non-owner release must not free the lock")

	require.NoError(t, m.ReleaseTurnLock(ctx, id, "a"))
	ok, _ = m.AcquireTurnLock(ctx, id, "b", 90*time.Second)
	assert.True(t, ok)
	assert.Equal(t, 90*time.Second, m.LockTTL(id))
}

func TestSupersedes(t *testing.T) {
	tests := []struct {
		name   string
		snap   engine.Snapshot
		stored *engine.Snapshot
		want   bool
	}{
		{"nothing stored", engine.Snapshot{}, nil, true},
		{"higher revision", engine.Snapshot{Epoch: 1, Revision: 5}, &engine.Snapshot{Epoch: 1, Revision: 4}, true},
		{"same revision", engine.Snapshot{Epoch: 1, Revision: 4}, &engine.Snapshot{Epoch: 1, Revision: 4}, true},
		{"lower revision", engine.Snapshot{Epoch: 1, Revision: 3}, &engine.Snapshot{Epoch: 1, Revision: 4}, false},
		{"later epoch", engine.Snapshot{Epoch: 2, Revision: 1}, &engine.Snapshot{Epoch: 1, Revision: 9}, true},
		{"earlier epoch with higher revision", engine.Snapshot{Epoch: 1, Revision: 6}, &engine.Snapshot{Epoch: 2, Revision: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := tt.snap
			assert.Equal(t, tt.want, Supersedes(&snap, tt.stored))
		})
	}
}

func TestMockStorage_RejectsOlderSnapshot(t *testing.T) {
	m := NewMockStorage()
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, m.SaveSession(ctx, id, &engine.Snapshot{Epoch: 1, Revision: 4}))
	err := m.SaveSession(ctx, id, &engine.Snapshot{Epoch: 0, Revision: 4})
	assert.ErrorIs(t, err, ErrStaleSnapshot)

	loaded, err := m.LoadSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), loaded.Epoch)
}
