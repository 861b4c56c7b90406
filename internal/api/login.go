package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/goalchat/goalchat/internal/auth"
	"github.com/goalchat/goalchat/internal/docstore"
	"github.com/goalchat/goalchat/internal/log"
)

// Login exchanges a verified provider profile for a signed API token,
// provisioning the user document on first sign-in. The OAuth dance
// happens upstream; by the time this endpoint is called the profile is
// already trusted.
type Login struct {
	db     docstore.DB
	signer *auth.Signer
	logger log.Logger
}

// NewLogin creates the login handler.
func NewLogin(db docstore.DB, signer *auth.Signer, logger log.Logger) *Login {
	return &Login{db: db, signer: signer, logger: logger}
}

type loginRequest struct {
	// ID is the provider's stable account ID, not the mutable subject
	// claim.
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type loginResponse struct {
	Token string     `json:"token"`
	User  *auth.User `json:"user"`
}

// Handle implements POST /api/auth/login.
func (h *Login) Handle(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	user, err := auth.EnsureUser(r.Context(), h.db, req.ID, req.Email, req.Name)
	if err != nil {
		h.logger.Error("provisioning user", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, loginResponse{
		Token: h.signer.Sign(user.ID),
		User:  user,
	})
}
