package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/goalchat/goalchat/internal/gemini"
	"github.com/goalchat/goalchat/internal/log"
)

// Generator produces a model reply for a conversation history. Satisfied
// by *gemini.Client; tests substitute a stub.
type Generator interface {
	Chat(ctx context.Context, contents []gemini.Content, systemInstruction string) (string, error)
}

// Chat proxies text generation to the model backend. It persists
// nothing; callers store the exchange through the messages endpoint.
type Chat struct {
	generator Generator
	logger    log.Logger
}

// NewChat creates the chat handler. A nil generator means no API key is
// configured and every request fails cleanly.
func NewChat(generator Generator, logger log.Logger) *Chat {
	return &Chat{generator: generator, logger: logger}
}

type chatRequest struct {
	Contents          []gemini.Content `json:"contents"`
	SystemInstruction string           `json:"systemInstruction,omitempty"`
}

type chatResponse struct {
	Content string `json:"content"`
}

// Handle implements POST /api/chat.
func (h *Chat) Handle(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Contents) == 0 {
		writeError(w, http.StatusBadRequest, "Contents must not be empty")
		return
	}

	if h.generator == nil {
		h.logger.Warn("chat requested but no generator configured")
		writeError(w, http.StatusInternalServerError, "Chat is not configured")
		return
	}

	text, err := h.generator.Chat(r.Context(), req.Contents, req.SystemInstruction)
	if err != nil {
		h.logger.Error("generating reply", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, chatResponse{Content: text})
}
