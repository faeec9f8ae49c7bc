package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/choice-engine/pkg/storage"
)

// ProviderStatus reports the generation backend for health checks.
type ProviderStatus interface {
	Provider() string
	Configured(ctx context.Context) bool
	SpeechConfigured(ctx context.Context) bool
}

type HealthResponse struct {
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Service    string                 `json:"service"`
	Components map[string]interface{} `json:"components"`
}

type HealthHandler struct {
	storage  storage.Storage
	provider ProviderStatus
	logger   *slog.Logger
}

func NewHealthHandler(storage storage.Storage, provider ProviderStatus, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage:  storage,
		provider: provider,
		logger:   logger,
	}
}

// ServeHTTP reports storage reachability and the backend in use. A missing
// server credential is reported but does not degrade the service; clients
// may still supply their own.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]interface{})
	overallStatus := "healthy"

	if err := h.storage.Ping(ctx); err != nil {
		h.logger.Warn("Storage health check failed", "error", err)
		components["storage"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["storage"] = "healthy"
	}

	components["provider"] = map[string]interface{}{
		"name":       h.provider.Provider(),
		"configured": h.provider.Configured(ctx),
		"speech":     h.provider.SpeechConfigured(ctx),
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, statusCode, HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "choice-engine",
		Components: components,
	})
}
