package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/goalchat/goalchat/internal/log"
)

// errorBody is the single error shape every endpoint returns.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON encodes v into a buffer before touching the ResponseWriter so
// an encoding failure can still produce a clean 500 instead of a
// half-written body.
func writeJSON(w http.ResponseWriter, logger log.Logger, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		logger.Error("encoding response", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// writeError sends a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}
