package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/easeaico/serenia/internal/chat"
	"github.com/easeaico/serenia/internal/storage"
)

// ChatHandler handles chat endpoints.
type ChatHandler struct {
	chat ChatService
}

// Send handles POST /v1/chat
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.chat.HandleMessage(r.Context(), req)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrMissingUser):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, storage.ErrConversationOwner):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		slog.Error("chat turn failed", "user_id", req.UserID, "conversation_id", req.ConversationID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
