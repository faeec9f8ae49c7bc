package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
)

// Player renders one clip. Play blocks until the clip ends or ctx is done.
type Player interface {
	Play(ctx context.Context, data []byte) error
}

// ExecPlayer pipes mp3 data into an external decoder such as mpg123.
type ExecPlayer struct {
	Command string
	Args    []string
}

// DefaultPlayer reads mp3 from stdin quietly.
var DefaultPlayer = ExecPlayer{Command: "mpg123", Args: []string{"-q", "-"}}

// Play runs the command with data on stdin. Cancelling ctx kills it.
func (p ExecPlayer) Play(ctx context.Context, data []byte) error {
	cmd := exec.CommandContext(ctx, p.Command, p.Args...)
	cmd.Stdin = bytes.NewReader(data)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w", p.Command, err)
	}
	return nil
}

// Slot plays at most one clip at a time. Starting a clip stops the
// current one first.
type Slot struct {
	player Player

	// OnError receives playback failures other than cancellation.
	OnError func(id string, err error)

	op sync.Mutex // serializes Play and Stop

	mu      sync.Mutex
	current string
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSlot creates an idle slot.
func NewSlot(player Player) *Slot {
	return &Slot{player: player}
}

// Play stops whatever is playing and starts data under id. It returns
// once the new clip has started.
func (s *Slot) Play(ctx context.Context, id string, data []byte) {
	s.op.Lock()
	defer s.op.Unlock()

	s.stop()

	playCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.current = id
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		err := s.player.Play(playCtx, data)
		if err != nil && !errors.Is(err, context.Canceled) && s.OnError != nil {
			s.OnError(id, err)
		}

		s.mu.Lock()
		if s.done == done {
			s.current = ""
			s.cancel = nil
			s.done = nil
		}
		s.mu.Unlock()
	}()
}

// Stop halts playback and waits for the player to return.
func (s *Slot) Stop() {
	s.op.Lock()
	defer s.op.Unlock()
	s.stop()
}

// Current returns the id being played, or "" when idle.
func (s *Slot) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Slot) stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.current = ""
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
