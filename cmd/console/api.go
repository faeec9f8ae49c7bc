package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/internal/credentials"
	"github.com/jwebster45206/choice-engine/internal/handlers"
	"github.com/jwebster45206/choice-engine/pkg/genre"
	"github.com/jwebster45206/choice-engine/pkg/lang"
)

// APIError is a non-2xx response from the story API.
type APIError struct {
	Status             int
	Message            string
	NeedsConfiguration bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.Status, e.Message)
}

// needsKey reports whether err asks the player for a provider key.
func needsKey(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.NeedsConfiguration || apiErr.Status == http.StatusPreconditionRequired)
}

// APIClient talks to the choice-engine HTTP API.
type APIClient struct {
	baseURL string
	client  *http.Client
	key     string
}

func NewAPIClient(baseURL string, client *http.Client) *APIClient {
	return &APIClient{baseURL: baseURL, client: client}
}

// SetKey sets the provider key sent with every request.
func (c *APIClient) SetKey(key string) {
	c.key = key
}

func (c *APIClient) Health(ctx context.Context) error {
	var out handlers.HealthResponse
	return c.do(ctx, http.MethodGet, "/health", nil, &out)
}

func (c *APIClient) Genres(ctx context.Context) ([]genre.Genre, error) {
	var out struct {
		Genres []genre.Genre `json:"genres"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/genres", nil, &out); err != nil {
		return nil, err
	}
	return out.Genres, nil
}

func (c *APIClient) Languages(ctx context.Context) ([]lang.Language, error) {
	var out struct {
		Languages []lang.Language `json:"languages"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/languages", nil, &out); err != nil {
		return nil, err
	}
	return out.Languages, nil
}

func (c *APIClient) CreateSession(ctx context.Context, req handlers.SettingsRequest) (*handlers.SessionResponse, error) {
	var out handlers.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) Start(ctx context.Context, id uuid.UUID, req *handlers.SettingsRequest) (*handlers.SessionResponse, error) {
	var body interface{}
	if req != nil {
		body = req
	}
	return c.sessionCall(ctx, http.MethodPost, id, "/start", body)
}

func (c *APIClient) Choose(ctx context.Context, id uuid.UUID, option string) (*handlers.SessionResponse, error) {
	return c.sessionCall(ctx, http.MethodPost, id, "/choose", handlers.ChooseRequest{Option: option})
}

func (c *APIClient) Reset(ctx context.Context, id uuid.UUID) (*handlers.SessionResponse, error) {
	return c.sessionCall(ctx, http.MethodPost, id, "/reset", nil)
}

func (c *APIClient) Acknowledge(ctx context.Context, id uuid.UUID) (*handlers.SessionResponse, error) {
	return c.sessionCall(ctx, http.MethodPost, id, "/acknowledge", nil)
}

func (c *APIClient) Session(ctx context.Context, id uuid.UUID) (*handlers.SessionResponse, error) {
	return c.sessionCall(ctx, http.MethodGet, id, "", nil)
}

// Speech fetches mp3 audio for one history segment.
func (c *APIClient) Speech(ctx context.Context, id uuid.UUID, segment int) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodPost, fmt.Sprintf("/v1/sessions/%s/speech", id), handlers.SpeechRequest{Segment: &segment})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return io.ReadAll(resp.Body)
}

// Transcript fetches the plain-text transcript.
func (c *APIClient) Transcript(ctx context.Context, id uuid.UUID) (string, error) {
	resp, err := c.send(ctx, http.MethodGet, fmt.Sprintf("/v1/sessions/%s/transcript?format=text", id), nil)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(body), nil
}

func (c *APIClient) sessionCall(ctx context.Context, method string, id uuid.UUID, suffix string, body interface{}) (*handlers.SessionResponse, error) {
	var out handlers.SessionResponse
	if err := c.do(ctx, method, fmt.Sprintf("/v1/sessions/%s%s", id, suffix), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// send performs a request and converts non-2xx responses into *APIError.
func (c *APIClient) send(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.key != "" {
		req.Header.Set(credentials.Header, c.key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	raw, _ := io.ReadAll(resp.Body)
	var errorResp handlers.ErrorResponse
	if err := json.Unmarshal(raw, &errorResp); err != nil || errorResp.Error == "" {
		return nil, &APIError{Status: resp.StatusCode, Message: string(raw)}
	}
	return nil, &APIError{
		Status:             resp.StatusCode,
		Message:            errorResp.Error,
		NeedsConfiguration: errorResp.NeedsConfiguration,
	}
}
