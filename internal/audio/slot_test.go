package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingPlayer plays until cancelled or released.
type blockingPlayer struct {
	mu      sync.Mutex
	started []string
	stopped []string
	release chan struct{}
	err     error
}

func newBlockingPlayer() *blockingPlayer {
	return &blockingPlayer{release: make(chan struct{})}
}

func (p *blockingPlayer) Play(ctx context.Context, data []byte) error {
	p.mu.Lock()
	p.started = append(p.started, string(data))
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		p.mu.Lock()
		p.stopped = append(p.stopped, string(data))
		p.mu.Unlock()
		return ctx.Err()
	case <-p.release:
		return p.err
	}
}

func (p *blockingPlayer) snapshot() ([]string, []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.started...), append([]string(nil), p.stopped...)
}

func TestSlot_PlayStopsCurrentFirst(t *testing.T) {
	p := newBlockingPlayer()
	s := NewSlot(p)

	s.Play(context.Background(), "seg-1", []byte("one"))
	assert.Equal(t, "seg-1", s.Current())

	s.Play(context.Background(), "seg-2", []byte("two"))
	assert.Equal(t, "seg-2", s.Current())

	require.Eventually(t, func() bool {
		started, _ := p.snapshot()
		return len(started) == 2
	}, time.Second, 5*time.Millisecond)

	_, stopped := p.snapshot()
	assert.Equal(t, []string{"one"}, stopped)

	s.Stop()
	assert.Equal(t, "", s.Current())
	_, stopped = p.snapshot()
	assert.Equal(t, []string{"one", "two"}, stopped)
}

func TestSlot_ClearsWhenClipEnds(t *testing.T) {
	p := newBlockingPlayer()
	s := NewSlot(p)

	s.Play(context.Background(), "seg-1", []byte("one"))
	close(p.release)

	require.Eventually(t, func() bool { return s.Current() == "" }, time.Second, 5*time.Millisecond)
}

func TestSlot_ReportsPlayerErrors(t *testing.T) {
	p := newBlockingPlayer()
	p.err = errors.New("no audio device")
	s := NewSlot(p)

	var mu sync.Mutex
	var gotID string
	s.OnError = func(id string, err error) {
		mu.Lock()
		defer mu.Unlock()
		gotID = id
	}

	s.Play(context.Background(), "seg-9", []byte("x"))
	close(p.release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return gotID == "seg-9"
	}, time.Second, 5*time.Millisecond)
}

func TestSlot_StopWhenIdle(t *testing.T) {
	s := NewSlot(newBlockingPlayer())
	s.Stop()
	assert.Equal(t, "", s.Current())
}

func TestExecPlayer_MissingCommand(t *testing.T) {
	p := ExecPlayer{Command: "definitely-not-a-real-player-binary"}
	err := p.Play(context.Background(), []byte("x"))
	assert.Error(t, err)
}
