package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/choice-engine/internal/export"
	"github.com/jwebster45206/choice-engine/pkg/engine"
	"github.com/jwebster45206/choice-engine/pkg/lang"
)

// SessionManager is the session layer as the HTTP API uses it.
type SessionManager interface {
	Create(ctx context.Context, settings engine.Settings) (uuid.UUID, engine.Snapshot, error)
	Get(ctx context.Context, id uuid.UUID) (engine.Snapshot, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, settings engine.Settings) (engine.Snapshot, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Start(ctx context.Context, id uuid.UUID, settings *engine.Settings) (engine.Snapshot, error)
	Choose(ctx context.Context, id uuid.UUID, option string) (engine.Snapshot, error)
	Reset(ctx context.Context, id uuid.UUID) (engine.Snapshot, error)
	AcknowledgeConfiguration(ctx context.Context, id uuid.UUID) (engine.Snapshot, error)
	Speech(ctx context.Context, id uuid.UUID, text string, segment *int) ([]byte, error)
}

// SettingsRequest is the body of create, patch and start.
type SettingsRequest struct {
	Genres       []string `json:"genres"`
	CustomPrompt string   `json:"custom_prompt,omitempty"`
	Language     string   `json:"language,omitempty"`
}

func (r SettingsRequest) settings() engine.Settings {
	return engine.Settings{
		Genres:       r.Genres,
		CustomPrompt: r.CustomPrompt,
		Language:     requestLanguage(r.Language),
	}
}

// requestLanguage reduces a tag like "pt-BR" to its base code. Unsupported
// codes pass through so validation can reject them.
func requestLanguage(tag string) lang.Code {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return ""
	}
	base, _, _ := strings.Cut(strings.ReplaceAll(tag, "_", "-"), "-")
	return lang.Code(base)
}

// ChooseRequest is the body of POST /v1/sessions/{id}/choose.
type ChooseRequest struct {
	Option string `json:"option"`
}

// SpeechRequest asks for audio of free text or of one history segment.
type SpeechRequest struct {
	Text    string `json:"text,omitempty"`
	Segment *int   `json:"segment,omitempty"`
}

// SessionResponse is a snapshot with its session ID.
type SessionResponse struct {
	ID uuid.UUID `json:"id"`
	engine.Snapshot
}

type SessionsHandler struct {
	sessions SessionManager
	logger   *slog.Logger
}

func NewSessionsHandler(sessions SessionManager, logger *slog.Logger) *SessionsHandler {
	return &SessionsHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// ServeHTTP handles HTTP requests for story sessions
// Routes:
// POST   /v1/sessions                     - Create a session
// GET    /v1/sessions/{id}                - Read a session
// PATCH  /v1/sessions/{id}                - Update settings
// DELETE /v1/sessions/{id}                - Delete a session
// POST   /v1/sessions/{id}/start          - Generate the opening scene
// POST   /v1/sessions/{id}/choose         - Pick an option
// POST   /v1/sessions/{id}/reset          - Discard the story
// POST   /v1/sessions/{id}/acknowledge    - Clear the needs-configuration signal
// POST   /v1/sessions/{id}/speech         - Synthesize audio
// GET    /v1/sessions/{id}/transcript     - Download the transcript (?format=text|pdf)
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			writeErrorMessage(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported at /v1/sessions.")
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) > 2 {
		writeErrorMessage(w, h.logger, http.StatusNotFound, "Not found")
		return
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", parts[0], "error", err)
		writeErrorMessage(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.respond(w, id, http.StatusOK)(h.sessions.Get(r.Context(), id))
		case http.MethodPatch:
			h.handlePatch(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			writeErrorMessage(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, PATCH, DELETE")
		}
		return
	}

	action := parts[1]
	want := http.MethodPost
	if action == "transcript" {
		want = http.MethodGet
	}
	if r.Method != want {
		writeErrorMessage(w, h.logger, http.StatusMethodNotAllowed, fmt.Sprintf("Method not allowed. Only %s is supported.", want))
		return
	}

	switch action {
	case "start":
		h.handleStart(w, r, id)
	case "choose":
		h.handleChoose(w, r, id)
	case "reset":
		h.respond(w, id, http.StatusOK)(h.sessions.Reset(r.Context(), id))
	case "acknowledge":
		h.respond(w, id, http.StatusOK)(h.sessions.AcknowledgeConfiguration(r.Context(), id))
	case "speech":
		h.handleSpeech(w, r, id)
	case "transcript":
		h.handleTranscript(w, r, id)
	default:
		writeErrorMessage(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *SessionsHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if _, err := decodeBody(r, &req); err != nil {
		h.logger.Warn("Invalid create session body", "error", err)
		writeErrorMessage(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'genres', 'custom_prompt' and 'language'.")
		return
	}

	id, snap, err := h.sessions.Create(r.Context(), req.settings())
	h.respond(w, id, http.StatusCreated)(snap, err)
}

func (h *SessionsHandler) handlePatch(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req SettingsRequest
	if ok, err := decodeBody(r, &req); err != nil || !ok {
		writeErrorMessage(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON settings.")
		return
	}
	h.respond(w, id, http.StatusOK)(h.sessions.UpdateSettings(r.Context(), id, req.settings()))
}

func (h *SessionsHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionsHandler) handleStart(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req SettingsRequest
	ok, err := decodeBody(r, &req)
	if err != nil {
		writeErrorMessage(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON settings or no body.")
		return
	}
	var settings *engine.Settings
	if ok {
		s := req.settings()
		settings = &s
	}
	h.respond(w, id, http.StatusOK)(h.sessions.Start(r.Context(), id, settings))
}

func (h *SessionsHandler) handleChoose(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req ChooseRequest
	if ok, err := decodeBody(r, &req); err != nil || !ok || strings.TrimSpace(req.Option) == "" {
		writeErrorMessage(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'option' field.")
		return
	}
	h.respond(w, id, http.StatusOK)(h.sessions.Choose(r.Context(), id, req.Option))
}

func (h *SessionsHandler) handleSpeech(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req SpeechRequest
	if ok, err := decodeBody(r, &req); err != nil || !ok {
		writeErrorMessage(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'text' or 'segment'.")
		return
	}

	audio, err := h.sessions.Speech(r.Context(), id, req.Text, req.Segment)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", fmt.Sprint(len(audio)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		h.logger.Warn("Failed to write audio", "session_id", id, "error", err)
	}
}

func (h *SessionsHandler) handleTranscript(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	snap, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var (
		body        []byte
		contentType string
		filename    string
	)
	switch format := r.URL.Query().Get("format"); format {
	case "", "text":
		body = []byte(export.TranscriptText(snap))
		contentType = "text/plain; charset=utf-8"
		filename = "story.txt"
	case "pdf":
		body, err = export.TranscriptPDF(export.Title(snap), snap)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		contentType = "application/pdf"
		filename = "story.pdf"
	default:
		writeErrorMessage(w, h.logger, http.StatusBadRequest, fmt.Sprintf("Unsupported format %q. Use text or pdf.", format))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.Warn("Failed to write transcript", "session_id", id, "error", err)
	}
}

// respond writes a snapshot on success and the mapped error otherwise.
func (h *SessionsHandler) respond(w http.ResponseWriter, id uuid.UUID, status int) func(engine.Snapshot, error) {
	return func(snap engine.Snapshot, err error) {
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, h.logger, status, SessionResponse{ID: id, Snapshot: snap})
	}
}

// decodeBody decodes a JSON body into v. It reports false for an empty body.
func decodeBody(r *http.Request, v interface{}) (bool, error) {
	if r.Body == nil {
		return false, nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
