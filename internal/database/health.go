package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db      pinger
	timeout time.Duration
	logger  *logging.Logger
}

// NewHealthHandler builds probes around db. A nil db makes readiness always pass.
func NewHealthHandler(db *sql.DB, logger *logging.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	h := &HealthHandler{timeout: 2 * time.Second, logger: logger}
	if db != nil {
		h.db = db
	}
	return h
}

// Live handles GET /health.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, "ok")
}

// Ready handles GET /ready by pinging the database.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeStatus(w, http.StatusOK, "ok")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		writeStatus(w, http.StatusServiceUnavailable, "unavailable")
		return
	}
	writeStatus(w, http.StatusOK, "ok")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
