package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/choice-engine/pkg/genre"
	"github.com/jwebster45206/choice-engine/pkg/lang"
)

// CatalogHandler serves the static genre and language lists.
// Routes:
// GET /v1/genres
// GET /v1/languages
type CatalogHandler struct {
	logger *slog.Logger
}

func NewCatalogHandler(logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{logger: logger}
}

func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorMessage(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	switch r.URL.Path {
	case "/v1/genres":
		writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{"genres": genre.Catalog})
	case "/v1/languages":
		writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
			"languages": lang.Supported,
			"default":   lang.Default,
		})
	default:
		writeErrorMessage(w, h.logger, http.StatusNotFound, "Not found")
	}
}
