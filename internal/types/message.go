package types

import (
	"time"

	"github.com/easeaico/serenia/internal/severity"
)

// Message is a persisted chat message with the signals scored for it.
// Signal fields are only populated for user messages.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`

	// Emotion is empty when no classification was available.
	Emotion           string             `json:"emotion,omitempty"`
	EmotionConfidence *float64           `json:"emotion_confidence,omitempty"`
	EmotionDetails    map[string]float64 `json:"emotion_details,omitempty"`

	AnxietyDetected   bool                  `json:"anxiety_detected"`
	AnxietySeverity   severity.AnxietyLevel `json:"anxiety_severity"`
	AnxietyConfidence *float64              `json:"anxiety_confidence,omitempty"`

	CrisisDetected bool                 `json:"crisis_detected"`
	CrisisSeverity severity.CrisisLevel `json:"crisis_severity"`
	CrisisKeywords []string             `json:"crisis_keywords,omitempty"`
}

// Conversation is the persisted per-conversation aggregate.
type Conversation struct {
	ID                  string    `json:"conversation_id"`
	UserID              string    `json:"user_id"`
	MessageCount        int       `json:"message_count"`
	DominantEmotion     string    `json:"dominant_emotion,omitempty"`
	AverageAnxietyLevel string    `json:"average_anxiety_level,omitempty"` // latest scored severity
	CrisisDetected      bool      `json:"crisis_detected"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// RetrievedMessage is a past message recalled by vector similarity.
type RetrievedMessage struct {
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	Similarity float64   `json:"similarity"`
}

// MessageQuery filters a user's persisted messages for analytics.
type MessageQuery struct {
	UserID string
	Start  time.Time
	End    time.Time
	// Role defaults to user messages when empty.
	Role           string
	RequireEmotion bool
	AnxietyOnly    bool
}
