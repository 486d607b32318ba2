package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/easeaico/serenia/internal/conversation"
	"github.com/easeaico/serenia/internal/severity"
	"github.com/easeaico/serenia/internal/storage"
	"github.com/easeaico/serenia/internal/types"
)

// ConversationHandler serves persisted history and live context.
type ConversationHandler struct {
	history HistoryStore
	tracker *conversation.Tracker
}

type historyMessage struct {
	ID              int64                  `json:"id"`
	Role            string                 `json:"role"`
	Content         string                 `json:"content"`
	Timestamp       time.Time              `json:"timestamp"`
	Emotion         *string                `json:"emotion"`
	AnxietySeverity *severity.AnxietyLevel `json:"anxiety_severity"`
	CrisisDetected  *bool                  `json:"crisis_detected"`
}

type historyStats struct {
	types.Conversation
	EmotionTrajectory []string                `json:"emotion_trajectory,omitempty"`
	AnxietyTrajectory []severity.AnxietyLevel `json:"anxiety_trajectory,omitempty"`
	EmotionImproving  *bool                   `json:"emotion_improving,omitempty"`
	AnxietyImproving  *bool                   `json:"anxiety_improving,omitempty"`
}

type historyResponse struct {
	Conversation  historyStats     `json:"conversation"`
	Messages      []historyMessage `json:"messages"`
	TotalMessages int              `json:"total_messages"`
}

// History handles GET /v1/conversations/{id}/history
func (h *ConversationHandler) History(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	conv, err := h.history.GetConversation(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		slog.Error("failed to load conversation", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	messages, err := h.history.ConversationHistory(r.Context(), id)
	if err != nil {
		slog.Error("failed to load history", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	resp := historyResponse{
		Conversation:  historyStats{Conversation: *conv},
		Messages:      make([]historyMessage, 0, len(messages)),
		TotalMessages: len(messages),
	}
	if live, err := h.tracker.Get(id); err == nil {
		stats := live.Stats()
		resp.Conversation.EmotionTrajectory = stats.EmotionTrajectory
		resp.Conversation.AnxietyTrajectory = stats.AnxietyTrajectory
		resp.Conversation.EmotionImproving = stats.EmotionImproving
		resp.Conversation.AnxietyImproving = stats.AnxietyImproving
	}
	for _, msg := range messages {
		resp.Messages = append(resp.Messages, toHistoryMessage(msg))
	}

	writeJSON(w, http.StatusOK, resp)
}

// toHistoryMessage exposes signal fields on user messages only.
func toHistoryMessage(msg types.Message) historyMessage {
	out := historyMessage{
		ID:        msg.ID,
		Role:      msg.Role,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}
	if msg.Role == conversation.RoleUser {
		if msg.Emotion != "" {
			label := msg.Emotion
			out.Emotion = &label
		}
		level := msg.AnxietySeverity
		crisis := msg.CrisisDetected
		out.AnxietySeverity = &level
		out.CrisisDetected = &crisis
	}
	return out
}

type contextResponse struct {
	conversation.Stats
	Summary     string              `json:"summary"`
	RecentTurns []conversation.Turn `json:"recent_turns"`
}

// Context handles GET /v1/conversations/{id}/context
func (h *ConversationHandler) Context(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	live, err := h.tracker.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "no live context for conversation")
		return
	}

	writeJSON(w, http.StatusOK, contextResponse{
		Stats:       live.Stats(),
		Summary:     live.Summary(),
		RecentTurns: live.RecentTurns(0),
	})
}

// DeleteContext handles DELETE /v1/conversations/{id}/context
func (h *ConversationHandler) DeleteContext(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.tracker.Delete(id); errors.Is(err, conversation.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no live context for conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation context deleted successfully"})
}
