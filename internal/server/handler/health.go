package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	backend   string
	startedAt time.Time
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler that reports the active storage
// backend and process uptime.
func NewHealthHandler(backend string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		backend:   backend,
		startedAt: time.Now().UTC(),
		logger:    logger,
	}
}

// HealthCheck responds with a simple JSON status indicating the server is alive.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"storage":        h.backend,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
