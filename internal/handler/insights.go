package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/easeaico/serenia/internal/analytics"
)

// InsightHandler serves analytics reports.
type InsightHandler struct {
	analytics Analytics
}

// MoodTrends handles GET /v1/insights/{userId}/mood-trends?period=week|month|year
func (h *InsightHandler) MoodTrends(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	period, err := analytics.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.analytics.MoodTrend(r.Context(), userID, period)
	if err != nil {
		h.fail(w, "mood trends", userID, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		UserID string `json:"user_id"`
		*analytics.TrendReport
	}{userID, report})
}

// AnxietyPatterns handles GET /v1/insights/{userId}/anxiety-patterns?days=30
func (h *InsightHandler) AnxietyPatterns(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	report, err := h.analytics.AnxietyPatterns(r.Context(), userID, days)
	if err != nil {
		h.fail(w, "anxiety patterns", userID, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		UserID string `json:"user_id"`
		*analytics.AnxietyReport
	}{userID, report})
}

// Insights handles GET /v1/insights/{userId}/insights?period=weekly|monthly
func (h *InsightHandler) Insights(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	insights, err := h.analytics.GenerateInsights(r.Context(), userID, r.URL.Query().Get("period"))
	if err != nil {
		h.fail(w, "insights", userID, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		UserID string `json:"user_id"`
		*analytics.Insights
	}{userID, insights})
}

// Summary handles GET /v1/insights/{userId}/summary
func (h *InsightHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	summary, err := h.analytics.Summary(r.Context(), userID)
	if err != nil {
		h.fail(w, "summary", userID, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Progress handles GET /v1/insights/{userId}/progress
func (h *InsightHandler) Progress(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	progress, err := h.analytics.Progress(r.Context(), userID)
	if err != nil {
		h.fail(w, "progress", userID, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *InsightHandler) fail(w http.ResponseWriter, report, userID string, err error) {
	if errors.Is(err, analytics.ErrInvalidPeriod) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	slog.Error("failed to build report", "report", report, "user_id", userID, "error", err)
	writeError(w, http.StatusInternalServerError, "failed to build "+report)
}
