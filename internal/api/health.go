package api

import (
	"errors"
	"net/http"

	"github.com/goalchat/goalchat/internal/docstore"
	"github.com/goalchat/goalchat/internal/log"
)

// Health serves the liveness and readiness probes. The probes bypass the
// auth and rate-limit middleware so orchestrators can always reach them.
type Health struct {
	db     docstore.DB
	logger log.Logger
}

// NewHealth creates the probe handler.
func NewHealth(db docstore.DB, logger log.Logger) *Health {
	return &Health{db: db, logger: logger}
}

type healthResponse struct {
	Status string `json:"status"`
}

// Live implements GET /health: the process is up.
func (h *Health) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, healthResponse{Status: "ok"})
}

// Ready implements GET /ready: the document store answers. A not-found
// on the probe path is a healthy answer; only transport failures count.
func (h *Health) Ready(w http.ResponseWriter, r *http.Request) {
	_, err := h.db.Get(r.Context(), "healthz/probe")
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		h.logger.Warn("readiness probe failed", "error", err)
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, healthResponse{Status: "ready"})
}
