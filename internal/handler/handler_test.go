package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/easeaico/serenia/internal/analytics"
	"github.com/easeaico/serenia/internal/chat"
	"github.com/easeaico/serenia/internal/conversation"
	"github.com/easeaico/serenia/internal/severity"
	"github.com/easeaico/serenia/internal/storage"
	"github.com/easeaico/serenia/internal/types"
)

type fakeChat struct {
	result *chat.Result
	err    error
	got    chat.Request
	panic  bool
}

func (f *fakeChat) HandleMessage(_ context.Context, req chat.Request) (*chat.Result, error) {
	if f.panic {
		panic("boom")
	}
	f.got = req
	return f.result, f.err
}

type fakeHistory struct {
	conv     *types.Conversation
	messages []types.Message
	err      error
}

func (f *fakeHistory) GetConversation(_ context.Context, id string) (*types.Conversation, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.conv == nil || f.conv.ID != id {
		return nil, storage.ErrNotFound
	}
	return f.conv, nil
}

func (f *fakeHistory) ConversationHistory(context.Context, string) ([]types.Message, error) {
	return f.messages, nil
}

type fakeAnalytics struct {
	days   int
	period analytics.Period
	err    error
}

func (f *fakeAnalytics) MoodTrend(_ context.Context, _ string, period analytics.Period) (*analytics.TrendReport, error) {
	f.period = period
	return &analytics.TrendReport{Period: period, Trend: analytics.TrendStable}, f.err
}

func (f *fakeAnalytics) AnxietyPatterns(_ context.Context, _ string, days int) (*analytics.AnxietyReport, error) {
	f.days = days
	return &analytics.AnxietyReport{PeriodDays: days}, f.err
}

func (f *fakeAnalytics) GenerateInsights(_ context.Context, _ string, period string) (*analytics.Insights, error) {
	if _, err := analytics.ParseInsightPeriod(period); err != nil {
		return nil, err
	}
	return &analytics.Insights{Period: period}, f.err
}

func (f *fakeAnalytics) Summary(_ context.Context, userID string) (*analytics.Summary, error) {
	return &analytics.Summary{UserID: userID}, f.err
}

func (f *fakeAnalytics) Progress(_ context.Context, userID string) (*analytics.Progress, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &analytics.Progress{UserID: userID, Status: analytics.TrendStable}, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

var (
	_ ChatService  = (*fakeChat)(nil)
	_ HistoryStore = (*fakeHistory)(nil)
	_ Analytics    = (*fakeAnalytics)(nil)
	_ Pinger       = fakePinger{}
)

type fixture struct {
	chat      *fakeChat
	history   *fakeHistory
	analytics *fakeAnalytics
	tracker   *conversation.Tracker
	router    http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		chat:      &fakeChat{},
		history:   &fakeHistory{},
		analytics: &fakeAnalytics{},
		tracker:   conversation.NewTracker(),
	}
	f.router = NewRouter(&Container{
		Chat:      f.chat,
		History:   f.history,
		Tracker:   f.tracker,
		Analytics: f.analytics,
	})
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("expected json body, got %v", err)
	}
	return out
}

func TestChatSend(t *testing.T) {
	f := newFixture()
	f.chat.result = &chat.Result{ConversationID: "c1", Reply: "I'm here."}

	rec := f.do(t, http.MethodPost, "/v1/chat", `{"user_id":"u1","message":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["response"] != "I'm here." || body["conversation_id"] != "c1" {
		t.Fatalf("unexpected body: %v", body)
	}
	if f.chat.got.UserID != "u1" || f.chat.got.Message != "hello" {
		t.Fatalf("unexpected request: %#v", f.chat.got)
	}
}

func TestChatSendErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"empty message", `{"user_id":"u1"}`, chat.ErrEmptyMessage, http.StatusBadRequest},
		{"missing user", `{"message":"hi"}`, chat.ErrMissingUser, http.StatusBadRequest},
		{"owner", `{"user_id":"u1","message":"hi"}`, storage.ErrConversationOwner, http.StatusForbidden},
		{"store down", `{"user_id":"u1","message":"hi"}`, errors.New("db down"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture()
			f.chat.err = c.err
			rec := f.do(t, http.MethodPost, "/v1/chat", c.body)
			if rec.Code != c.want {
				t.Fatalf("expected %d, got %d", c.want, rec.Code)
			}
			if _, ok := decode(t, rec)["error"]; !ok {
				t.Fatalf("expected error field")
			}
		})
	}
}

func TestPanicRecovered(t *testing.T) {
	f := newFixture()
	f.chat.panic = true

	rec := f.do(t, http.MethodPost, "/v1/chat", `{"user_id":"u1","message":"hi"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHistoryUserSignalsOnly(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)
	f.history.conv = &types.Conversation{ID: "c1", UserID: "u1", MessageCount: 2}
	f.history.messages = []types.Message{
		{ID: 1, Role: "user", Content: "I'm nervous", Timestamp: now, Emotion: "nervousness", AnxietySeverity: severity.AnxietyMild},
		{ID: 2, Role: "assistant", Content: "I'm here", Timestamp: now},
	}
	f.tracker.GetOrCreate("c1", "u1").AddTurn(conversation.RoleUser, "I'm nervous", nil, nil, nil)

	rec := f.do(t, http.MethodGet, "/v1/conversations/c1/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["total_messages"].(float64) != 2 {
		t.Fatalf("expected 2 messages, got %v", body["total_messages"])
	}
	messages := body["messages"].([]any)
	user := messages[0].(map[string]any)
	reply := messages[1].(map[string]any)
	if user["emotion"] != "nervousness" || user["anxiety_severity"] != "mild" || user["crisis_detected"] != false {
		t.Fatalf("unexpected user message: %v", user)
	}
	if reply["emotion"] != nil || reply["anxiety_severity"] != nil || reply["crisis_detected"] != nil {
		t.Fatalf("expected null signals on assistant message, got %v", reply)
	}
	conv := body["conversation"].(map[string]any)
	if conv["conversation_id"] != "c1" {
		t.Fatalf("unexpected conversation: %v", conv)
	}
}

func TestHistoryNotFound(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/v1/conversations/missing/history", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestContextLifecycle(t *testing.T) {
	f := newFixture()
	f.tracker.GetOrCreate("c1", "u1").AddTurn(conversation.RoleUser, "hello", nil, nil, nil)

	rec := f.do(t, http.MethodGet, "/v1/conversations/c1/context", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["user_id"] != "u1" || body["message_count"].(float64) != 1 {
		t.Fatalf("unexpected context: %v", body)
	}
	if _, ok := body["summary"]; !ok {
		t.Fatalf("expected summary")
	}

	rec = f.do(t, http.MethodDelete, "/v1/conversations/c1/context", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.tracker.Len() != 0 {
		t.Fatalf("expected context to be removed")
	}

	rec = f.do(t, http.MethodDelete, "/v1/conversations/c1/context", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/v1/conversations/c1/context", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestMoodTrendsPeriod(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/v1/insights/u1/mood-trends", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.analytics.period != analytics.PeriodWeek {
		t.Fatalf("expected default week, got %s", f.analytics.period)
	}
	if decode(t, rec)["user_id"] != "u1" {
		t.Fatalf("expected user id in body")
	}

	rec = f.do(t, http.MethodGet, "/v1/insights/u1/mood-trends?period=decade", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAnxietyPatternsDays(t *testing.T) {
	f := newFixture()

	if rec := f.do(t, http.MethodGet, "/v1/insights/u1/anxiety-patterns", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.analytics.days != 30 {
		t.Fatalf("expected default 30 days, got %d", f.analytics.days)
	}
	if rec := f.do(t, http.MethodGet, "/v1/insights/u1/anxiety-patterns?days=14", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.analytics.days != 14 {
		t.Fatalf("expected 14 days, got %d", f.analytics.days)
	}
	for _, bad := range []string{"0", "-3", "abc"} {
		rec := f.do(t, http.MethodGet, "/v1/insights/u1/anxiety-patterns?days="+bad, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("days=%s: expected 400, got %d", bad, rec.Code)
		}
	}
}

func TestInsightsInvalidPeriod(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/v1/insights/u1/insights?period=daily", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestProgressFailure(t *testing.T) {
	f := newFixture()
	f.analytics.err = errors.New("db down")
	rec := f.do(t, http.MethodGet, "/v1/insights/u1/progress", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestSummary(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/v1/insights/u1/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decode(t, rec)["user_id"] != "u1" {
		t.Fatalf("expected user id in summary")
	}
}

func TestCrisisResources(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/v1/crisis/resources", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	hotline := body["hotline"].(map[string]any)
	if hotline["number"] != "988" {
		t.Fatalf("expected default 988 hotline, got %v", hotline)
	}
	if len(body["safety_plan"].([]any)) != 6 {
		t.Fatalf("expected 6 safety plan steps")
	}
}

func TestCrisisAssess(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/v1/crisis/assess", `{"text":"I feel hopeless and worthless"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	crisis := decode(t, rec)["crisis"].(map[string]any)
	if crisis["severity"] != "medium" || crisis["crisis_detected"] != true {
		t.Fatalf("unexpected crisis signal: %v", crisis)
	}

	rec = f.do(t, http.MethodPost, "/v1/crisis/assess", `{"text":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCrisisAssessUsesSharedScorer(t *testing.T) {
	local := severity.NewResources("112", "85258", "https://example.org/chat")
	router := NewRouter(&Container{
		Tracker:   conversation.NewTracker(),
		Resources: local,
		Crisis:    severity.NewCrisisScorer(local),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/crisis/assess", strings.NewReader(`{"text":"I feel hopeless"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	crisis := decode(t, rec)["crisis"].(map[string]any)
	hotline := crisis["resources"].(map[string]any)["hotline"].(map[string]any)
	if hotline["number"] != "112" {
		t.Fatalf("expected shared scorer resources, got %v", hotline)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture()
	if rec := f.do(t, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	router := NewRouter(&Container{Tracker: conversation.NewTracker(), Health: fakePinger{err: errors.New("down")}})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
