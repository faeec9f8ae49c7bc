package runner

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventTimeout is the max time to wait for expected events after a step
const EventTimeout = 30 * time.Second

// EventWatcher reads event names from a session's SSE stream.
type EventWatcher struct {
	ctx    context.Context
	cancel context.CancelFunc
	events chan string
}

// WatchEvents connects to the session event stream and returns once the
// server has confirmed the subscription.
func WatchEvents(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID) (*EventWatcher, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	url := fmt.Sprintf("%s/v1/events/sessions/%s", baseURL, sessionID.String())
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create events request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream outlives any client-wide timeout.
	streamClient := &http.Client{Transport: client.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect to event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("event stream returned %d", resp.StatusCode)
	}

	w := &EventWatcher{
		ctx:    streamCtx,
		cancel: cancel,
		events: make(chan string, 32),
	}
	go w.read(resp)

	select {
	case name, ok := <-w.events:
		if !ok || name != "connected" {
			w.Close()
			return nil, fmt.Errorf("expected connected event, got %q", name)
		}
	case <-time.After(EventTimeout):
		w.Close()
		return nil, fmt.Errorf("timeout waiting for event stream confirmation")
	}
	return w, nil
}

func (w *EventWatcher) read(resp *http.Response) {
	defer func() { _ = resp.Body.Close() }()
	defer close(w.events)

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		name, ok := strings.CutPrefix(line, "event: ")
		if !ok {
			continue
		}
		select {
		case w.events <- name:
		case <-w.ctx.Done():
			return
		}
	}
}

// WaitFor blocks until every expected event has arrived in order. Other
// events in between are ignored.
func (w *EventWatcher) WaitFor(ctx context.Context, expected []string) error {
	timeout := time.After(EventTimeout)
	next := 0
	var seen []string

	for next < len(expected) {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for event %q: %w (seen %v)", expected[next], ctx.Err(), seen)
		case <-timeout:
			return fmt.Errorf("timeout waiting for event %q (seen %v)", expected[next], seen)
		case name, ok := <-w.events:
			if !ok {
				return fmt.Errorf("event stream closed before %q (seen %v)", expected[next], seen)
			}
			seen = append(seen, name)
			if name == expected[next] {
				next++
			}
		}
	}
	return nil
}

// Close disconnects from the stream.
func (w *EventWatcher) Close() {
	w.cancel()
}
