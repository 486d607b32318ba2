package storage

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/easeaico/serenia/internal/severity"
	"github.com/easeaico/serenia/internal/types"
)

// EmbeddingDimensions is the width of messages.embedding.
const EmbeddingDimensions = 768

type userModel struct {
	ID         string `gorm:"primaryKey"`
	CreatedAt  time.Time
	LastActive time.Time
}

func (userModel) TableName() string {
	return "users"
}

type conversationModel struct {
	ID                  string `gorm:"primaryKey"`
	UserID              string `gorm:"index;not null"`
	MessageCount        int
	DominantEmotion     *string
	AverageAnxietyLevel *string
	CrisisDetected      bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (conversationModel) TableName() string {
	return "conversations"
}

// messageModel maps to the messages table.
type messageModel struct {
	ID                int64     `gorm:"primaryKey"`
	ConversationID    string    `gorm:"index;not null"`
	Role              string    `gorm:"not null"`
	Content           string    `gorm:"type:text;not null"`
	Timestamp         time.Time `gorm:"index"`
	Emotion           *string
	EmotionConfidence *float64
	// EmotionDetails keeps every classifier score as JSONB.
	EmotionDetails    json.RawMessage `gorm:"type:jsonb"`
	AnxietyDetected   bool
	AnxietySeverity   *string
	AnxietyConfidence *float64
	CrisisDetected    bool
	CrisisSeverity    *string
	CrisisKeywords    json.RawMessage  `gorm:"type:jsonb"`
	Embedding         *pgvector.Vector `gorm:"type:vector(768)"`
}

func (messageModel) TableName() string {
	return "messages"
}

// Models lists the tables managed by Migrate.
func Models() []any {
	return []any{&userModel{}, &conversationModel{}, &messageModel{}}
}

func messageToModel(msg *types.Message, embedding []float32) (messageModel, error) {
	record := messageModel{
		ConversationID:    msg.ConversationID,
		Role:              msg.Role,
		Content:           msg.Content,
		Timestamp:         msg.Timestamp,
		EmotionConfidence: msg.EmotionConfidence,
		AnxietyDetected:   msg.AnxietyDetected,
		AnxietyConfidence: msg.AnxietyConfidence,
		CrisisDetected:    msg.CrisisDetected,
	}
	if msg.Emotion != "" {
		record.Emotion = &msg.Emotion
	}

	// Only user messages carry signal labels.
	if msg.Role == "user" {
		anxiety := msg.AnxietySeverity.String()
		record.AnxietySeverity = &anxiety
		if msg.CrisisDetected {
			crisis := msg.CrisisSeverity.String()
			record.CrisisSeverity = &crisis
		}
	}

	var err error
	if len(msg.EmotionDetails) > 0 {
		if record.EmotionDetails, err = marshalJSON(msg.EmotionDetails); err != nil {
			return messageModel{}, err
		}
	}
	if len(msg.CrisisKeywords) > 0 {
		if record.CrisisKeywords, err = marshalJSON(msg.CrisisKeywords); err != nil {
			return messageModel{}, err
		}
	}
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		record.Embedding = &v
	}
	return record, nil
}

func messageFromModel(model messageModel) types.Message {
	msg := types.Message{
		ID:                model.ID,
		ConversationID:    model.ConversationID,
		Role:              model.Role,
		Content:           model.Content,
		Timestamp:         model.Timestamp,
		EmotionConfidence: model.EmotionConfidence,
		AnxietyDetected:   model.AnxietyDetected,
		AnxietyConfidence: model.AnxietyConfidence,
		CrisisDetected:    model.CrisisDetected,
	}
	if model.Emotion != nil {
		msg.Emotion = *model.Emotion
	}
	if model.AnxietySeverity != nil {
		msg.AnxietySeverity = severity.ParseAnxietyLevel(*model.AnxietySeverity)
	}
	if model.CrisisSeverity != nil {
		msg.CrisisSeverity = severity.ParseCrisisLevel(*model.CrisisSeverity)
	}
	if err := unmarshalJSON(model.EmotionDetails, &msg.EmotionDetails); err != nil {
		slog.Warn("failed to decode emotion details", "message_id", model.ID, "error", err)
		msg.EmotionDetails = nil
	}
	if err := unmarshalJSON(model.CrisisKeywords, &msg.CrisisKeywords); err != nil {
		slog.Warn("failed to decode crisis keywords", "message_id", model.ID, "error", err)
		msg.CrisisKeywords = nil
	}
	return msg
}

func conversationFromModel(model conversationModel) types.Conversation {
	conv := types.Conversation{
		ID:             model.ID,
		UserID:         model.UserID,
		MessageCount:   model.MessageCount,
		CrisisDetected: model.CrisisDetected,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
	if model.DominantEmotion != nil {
		conv.DominantEmotion = *model.DominantEmotion
	}
	if model.AverageAnxietyLevel != nil {
		conv.AverageAnxietyLevel = *model.AverageAnxietyLevel
	}
	return conv
}

// marshalJSON encodes a value into JSONB, returning nil for empty values.
func marshalJSON(value any) (json.RawMessage, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return json.RawMessage(raw), nil
}

// unmarshalJSON decodes JSONB into the provided target.
func unmarshalJSON(data json.RawMessage, target any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}
