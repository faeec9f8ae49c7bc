package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/choice-engine/internal/sessions"
	"github.com/jwebster45206/choice-engine/pkg/engine"
	"github.com/jwebster45206/choice-engine/pkg/story"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error              string `json:"error"`
	NeedsConfiguration bool   `json:"needs_configuration,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err, "status", status)
	}
}

func writeErrorMessage(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// writeError maps a domain error onto its HTTP status.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}

	switch {
	case status == http.StatusPreconditionRequired:
		resp.NeedsConfiguration = true
	case status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusGatewayTimeout:
		logger.Error("Request failed", "error", err)
		resp.Error = "Internal server error"
	}
	writeJSON(w, logger, status, resp)
}

func statusFor(err error) int {
	var verr *sessions.ValidationError
	switch {
	case errors.Is(err, story.ErrNotConfigured):
		return http.StatusPreconditionRequired
	case story.IsUpstream(err):
		return http.StatusBadGateway
	case story.IsTransport(err):
		return http.StatusGatewayTimeout
	case errors.Is(err, sessions.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &verr),
		errors.Is(err, engine.ErrUnknownOption),
		errors.Is(err, engine.ErrNoGenres),
		errors.Is(err, story.ErrInputTooShort),
		errors.Is(err, sessions.ErrSegmentOutOfRange),
		errors.Is(err, sessions.ErrNothingToSpeak):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrBusy),
		errors.Is(err, engine.ErrChoiceLocked),
		errors.Is(err, engine.ErrAlreadyStarted),
		errors.Is(err, engine.ErrNotPlaying),
		errors.Is(err, engine.ErrStale):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
