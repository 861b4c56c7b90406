package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/goalchat/goalchat/internal/auth"
	"github.com/goalchat/goalchat/internal/conversation"
	"github.com/goalchat/goalchat/internal/log"
)

// Conversations serves the conversation and message routes. Every
// operation is scoped to the authenticated caller; a conversation owned
// by someone else is indistinguishable from one that does not exist.
type Conversations struct {
	store  *conversation.Store
	logger log.Logger
}

// NewConversations creates the conversations handler.
func NewConversations(store *conversation.Store, logger log.Logger) *Conversations {
	return &Conversations{store: store, logger: logger}
}

type createConversationRequest struct {
	Title string `json:"title"`
}

type appendMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type conversationListResponse struct {
	Conversations []*conversation.Conversation `json:"conversations"`
}

type messageListResponse struct {
	Messages []*conversation.Message `json:"messages"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// List implements GET /api/conversations.
func (h *Conversations) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	convs, err := h.store.List(r.Context(), uid)
	if err != nil {
		h.writeStoreError(w, err, "listing conversations")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, conversationListResponse{Conversations: convs})
}

// Create implements POST /api/conversations.
func (h *Conversations) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	conv, err := h.store.Create(r.Context(), uid, req.Title)
	if err != nil {
		h.writeStoreError(w, err, "creating conversation")
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, conv)
}

// Get implements GET /api/conversations/{id}.
func (h *Conversations) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conv, err := h.store.Get(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err, "getting conversation")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, conv)
}

// Delete implements DELETE /api/conversations/{id}.
func (h *Conversations) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.store.Delete(r.Context(), uid, r.PathValue("id")); err != nil {
		h.writeStoreError(w, err, "deleting conversation")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, successResponse{Success: true})
}

// Messages implements GET /api/conversations/{id}/messages.
func (h *Conversations) Messages(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	msgs, err := h.store.Messages(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err, "listing messages")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, messageListResponse{Messages: msgs})
}

// Append implements POST /api/conversations/{id}/messages.
func (h *Conversations) Append(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req appendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	msg, err := h.store.Append(r.Context(), uid, r.PathValue("id"), conversation.Role(req.Role), req.Content)
	if err != nil {
		h.writeStoreError(w, err, "appending message")
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, msg)
}

// writeStoreError maps store errors to the wire taxonomy: validation to
// 400, missing conversation to 404, everything else to a generic 500
// with the real cause logged server-side only.
func (h *Conversations) writeStoreError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, conversation.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, conversation.ErrNotFound):
		writeError(w, http.StatusNotFound, "Conversation not found")
	default:
		h.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
