// Package handler exposes the chat, conversation, insight and crisis endpoints over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"

	"github.com/easeaico/serenia/internal/analytics"
	"github.com/easeaico/serenia/internal/chat"
	"github.com/easeaico/serenia/internal/conversation"
	"github.com/easeaico/serenia/internal/severity"
	"github.com/easeaico/serenia/internal/types"
)

// ChatService handles chat turns.
type ChatService interface {
	HandleMessage(ctx context.Context, req chat.Request) (*chat.Result, error)
}

// HistoryStore reads persisted conversations.
type HistoryStore interface {
	GetConversation(ctx context.Context, id string) (*types.Conversation, error)
	ConversationHistory(ctx context.Context, conversationID string) ([]types.Message, error)
}

// Analytics computes user reports.
type Analytics interface {
	MoodTrend(ctx context.Context, userID string, period analytics.Period) (*analytics.TrendReport, error)
	AnxietyPatterns(ctx context.Context, userID string, days int) (*analytics.AnxietyReport, error)
	GenerateInsights(ctx context.Context, userID, period string) (*analytics.Insights, error)
	Summary(ctx context.Context, userID string) (*analytics.Summary, error)
	Progress(ctx context.Context, userID string) (*analytics.Progress, error)
}

// Pinger reports dependency health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Container holds the router's dependencies.
type Container struct {
	Chat      ChatService
	History   HistoryStore
	Tracker   *conversation.Tracker
	Analytics Analytics
	Resources severity.Resources
	// Crisis and Anxiety are the process-wide scorers; nil builds defaults.
	Crisis  *severity.CrisisScorer
	Anxiety *severity.AnxietyScorer
	// Health is optional; when set, /health pings it.
	Health Pinger
}

// NewRouter creates the API router with all endpoints.
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()
	r.Use(recoverMiddleware)

	chatHandler := &ChatHandler{chat: c.Chat}
	convHandler := &ConversationHandler{history: c.History, tracker: c.Tracker}
	insightHandler := &InsightHandler{analytics: c.Analytics}
	crisisHandler := NewCrisisHandler(c.Resources, c.Crisis, c.Anxiety)

	r.HandleFunc("/health", healthHandler(c.Health)).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/chat", chatHandler.Send).Methods(http.MethodPost)

	v1.HandleFunc("/conversations/{id}/history", convHandler.History).Methods(http.MethodGet)
	v1.HandleFunc("/conversations/{id}/context", convHandler.Context).Methods(http.MethodGet)
	v1.HandleFunc("/conversations/{id}/context", convHandler.DeleteContext).Methods(http.MethodDelete)

	v1.HandleFunc("/insights/{userId}/mood-trends", insightHandler.MoodTrends).Methods(http.MethodGet)
	v1.HandleFunc("/insights/{userId}/anxiety-patterns", insightHandler.AnxietyPatterns).Methods(http.MethodGet)
	v1.HandleFunc("/insights/{userId}/insights", insightHandler.Insights).Methods(http.MethodGet)
	v1.HandleFunc("/insights/{userId}/summary", insightHandler.Summary).Methods(http.MethodGet)
	v1.HandleFunc("/insights/{userId}/progress", insightHandler.Progress).Methods(http.MethodGet)

	v1.HandleFunc("/crisis/resources", crisisHandler.Resources).Methods(http.MethodGet)
	v1.HandleFunc("/crisis/assess", crisisHandler.Assess).Methods(http.MethodPost)

	return r
}

func healthHandler(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				slog.Warn("health check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// recoverMiddleware turns a handler panic into a logged 500.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("handler panic", "method", r.Method, "path", r.URL.Path, "error", err, "stack", string(debug.Stack()))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("request done", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
