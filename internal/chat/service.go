// Package chat runs one conversational turn: scoring, recall, reply and persistence.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/easeaico/serenia/internal/agent"
	"github.com/easeaico/serenia/internal/conversation"
	"github.com/easeaico/serenia/internal/emotion"
	"github.com/easeaico/serenia/internal/prompt"
	"github.com/easeaico/serenia/internal/severity"
	"github.com/easeaico/serenia/internal/storage"
	"github.com/easeaico/serenia/internal/types"
)

var (
	ErrEmptyMessage = errors.New("message cannot be empty")
	ErrMissingUser  = errors.New("user id is required")
)

// Store persists conversations and turns.
type Store interface {
	EnsureConversation(ctx context.Context, id, userID string) (*types.Conversation, error)
	SaveTurn(ctx context.Context, userMsg *types.Message, userEmbedding []float32, reply *types.Message, update storage.StatsUpdate) error
}

// Recaller finds related past messages and returns the query embedding.
type Recaller interface {
	Recall(ctx context.Context, userID, text string) ([]types.RetrievedMessage, []float32, error)
}

// CacheInvalidator drops a user's cached reports.
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID string) error
}

// Request is one incoming user message.
type Request struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// Result is the outcome of one turn.
type Result struct {
	ConversationID     string                 `json:"conversation_id"`
	Reply              string                 `json:"response"`
	Timestamp          time.Time              `json:"timestamp"`
	Emotion            *emotion.Result        `json:"emotion"`
	Anxiety            severity.AnxietySignal `json:"anxiety"`
	Crisis             severity.CrisisSignal  `json:"crisis"`
	SafetyPlan         []string               `json:"safety_plan,omitempty"`
	Recommendations    []string               `json:"recommendations,omitempty"`
	ContextSummary     string                 `json:"context_summary"`
	ReadyForReflection bool                   `json:"ready_for_reflection"`
}

// Service orchestrates chat turns. Turns of the same conversation are
// serialized through the tracker; different conversations run in parallel.
type Service struct {
	store     Store
	tracker   *conversation.Tracker
	responder agent.Responder
	crisis    *severity.CrisisScorer
	anxiety   *severity.AnxietyScorer
	resources severity.Resources

	classifier emotion.Classifier
	recaller   Recaller
	cache      CacheInvalidator
	now        func() time.Time
	newID      func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClassifier enables emotion classification.
func WithClassifier(c emotion.Classifier) Option {
	return func(s *Service) { s.classifier = c }
}

// WithRecaller enables recall of related past messages.
func WithRecaller(r Recaller) Option {
	return func(s *Service) { s.recaller = r }
}

// WithCacheInvalidator drops cached reports after each saved turn.
func WithCacheInvalidator(c CacheInvalidator) Option {
	return func(s *Service) { s.cache = c }
}

// WithResources overrides the crisis contacts.
func WithResources(r severity.Resources) Option {
	return func(s *Service) { s.resources = r }
}

// WithScorers shares process-wide scorers. A nil scorer keeps the default.
func WithScorers(crisis *severity.CrisisScorer, anxiety *severity.AnxietyScorer) Option {
	return func(s *Service) {
		s.crisis = crisis
		s.anxiety = anxiety
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides conversation id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a Service. A nil responder falls back to fixed replies.
func NewService(store Store, tracker *conversation.Tracker, responder agent.Responder, opts ...Option) *Service {
	s := &Service{
		store:     store,
		tracker:   tracker,
		responder: responder,
		resources: severity.DefaultResources(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.responder == nil {
		s.responder = agent.Fallback{}
	}
	if s.crisis == nil {
		s.crisis = severity.NewCrisisScorer(s.resources)
	}
	if s.anxiety == nil {
		s.anxiety = severity.NewAnxietyScorer()
	}
	return s
}

// HandleMessage runs one turn for req.
func (s *Service) HandleMessage(ctx context.Context, req Request) (*Result, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if req.UserID == "" {
		return nil, ErrMissingUser
	}
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = s.newID()
	}

	if _, err := s.store.EnsureConversation(ctx, conversationID, req.UserID); err != nil {
		return nil, fmt.Errorf("failed to ensure conversation: %w", err)
	}

	var result *Result
	err := s.tracker.Do(conversationID, req.UserID, func(c *conversation.Context) error {
		var err error
		result, err = s.turn(ctx, c, req.UserID, message)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) turn(ctx context.Context, c *conversation.Context, userID, message string) (*Result, error) {
	emo := s.classify(ctx, message)
	crisis := s.scoreCrisis(message)
	anxiety := s.anxiety.Score(message, emotion.AnxietyScore(emo))

	var (
		recalled  []types.RetrievedMessage
		embedding []float32
	)
	if s.recaller != nil {
		var err error
		recalled, embedding, err = s.recaller.Recall(ctx, userID, message)
		if err != nil {
			slog.Warn("recall failed", "conversation_id", c.ID(), "error", err)
		}
	}

	in := prompt.BuildContext{
		UserMessage: message,
		Emotion:     emo,
		Anxiety:     &anxiety,
		Crisis:      &crisis,
		History:     c.RecentTurns(0),
		Recalled:    recalled,
		Resources:   s.resources,
	}
	reply, err := s.responder.Respond(ctx, in)
	if err != nil {
		slog.Warn("reply generation failed, using fallback", "conversation_id", c.ID(), "error", err)
		reply = agent.FallbackReply(&crisis, &anxiety, s.resources)
	}

	now := s.now()
	userMsg := newUserMessage(c.ID(), message, now, emo, anxiety, crisis)
	replyMsg := &types.Message{
		ConversationID: c.ID(),
		Role:           conversation.RoleAssistant,
		Content:        reply,
		Timestamp:      now,
	}
	update := storage.StatsUpdate{
		MessageDelta:    2,
		DominantEmotion: dominantEmotion(c.EmotionTrajectory(), emo),
		AnxietyLevel:    anxiety.Severity.String(),
		CrisisDetected:  crisis.Detected,
	}
	if err := s.store.SaveTurn(ctx, userMsg, embedding, replyMsg, update); err != nil {
		return nil, fmt.Errorf("failed to save turn: %w", err)
	}

	c.AddTurn(conversation.RoleUser, message, emo, &anxiety, &crisis)
	c.AddTurn(conversation.RoleAssistant, reply, nil, nil, nil)

	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, userID); err != nil {
			slog.Warn("failed to invalidate report cache", "user_id", userID, "error", err)
		}
	}

	result := &Result{
		ConversationID:     c.ID(),
		Reply:              reply,
		Timestamp:          now,
		Emotion:            emo,
		Anxiety:            anxiety,
		Crisis:             crisis,
		ContextSummary:     c.Summary(),
		ReadyForReflection: c.ReadyForReflection(),
	}
	if crisis.Detected {
		result.SafetyPlan = severity.SafetyPlan()
	}
	if anxiety.Detected {
		result.Recommendations = severity.AnxietyRecommendations(anxiety.Severity)
	}
	return result, nil
}

// classify returns nil when no classifier is configured or it fails.
func (s *Service) classify(ctx context.Context, message string) *emotion.Result {
	if s.classifier == nil {
		return nil
	}
	result, err := s.classifier.Classify(ctx, message)
	if err != nil {
		slog.Warn("emotion classification failed", "error", err)
		return nil
	}
	return result
}

// scoreCrisis substitutes the precautionary signal if scoring panics.
func (s *Service) scoreCrisis(message string) (signal severity.CrisisSignal) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("crisis scoring failed, assuming risk", "panic", r)
			signal = s.crisis.Precautionary()
		}
	}()
	return s.crisis.Score(message)
}

func newUserMessage(conversationID, content string, ts time.Time, emo *emotion.Result, anxiety severity.AnxietySignal, crisis severity.CrisisSignal) *types.Message {
	msg := &types.Message{
		ConversationID:    conversationID,
		Role:              conversation.RoleUser,
		Content:           content,
		Timestamp:         ts,
		AnxietyDetected:   anxiety.Detected,
		AnxietySeverity:   anxiety.Severity,
		AnxietyConfidence: &anxiety.Confidence,
		CrisisDetected:    crisis.Detected,
		CrisisSeverity:    crisis.Severity,
		CrisisKeywords:    crisis.Keywords,
	}
	if emo != nil {
		msg.Emotion = emo.PrimaryLabel
		msg.EmotionConfidence = &emo.Confidence
		msg.EmotionDetails = emo.AllScores
	}
	return msg
}

// dominantEmotion is the most frequent label across previous turns and the
// current one; ties go to the earliest.
func dominantEmotion(previous []string, current *emotion.Result) string {
	labels := previous
	if current != nil {
		labels = append(append([]string{}, previous...), current.PrimaryLabel)
	}
	counts := make(map[string]int, len(labels))
	best, bestCount := "", 0
	for _, label := range labels {
		counts[label]++
	}
	for _, label := range labels {
		if counts[label] > bestCount {
			best, bestCount = label, counts[label]
		}
	}
	return best
}
