package storage

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/easeaico/serenia/internal/types"
)

// messageColumns leaves out the embedding, which readers never need.
const messageColumns = "messages.id, messages.conversation_id, messages.role, messages.content, messages.timestamp, " +
	"messages.emotion, messages.emotion_confidence, messages.emotion_details, " +
	"messages.anxiety_detected, messages.anxiety_severity, messages.anxiety_confidence, " +
	"messages.crisis_detected, messages.crisis_severity, messages.crisis_keywords"

// SaveMessage inserts msg and sets its ID. embedding may be nil.
func (s *Store) SaveMessage(ctx context.Context, msg *types.Message, embedding []float32) error {
	return saveMessage(s.db.WithContext(ctx), msg, embedding)
}

func saveMessage(db *gorm.DB, msg *types.Message, embedding []float32) error {
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}
	record, err := messageToModel(msg, embedding)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if err := db.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	msg.ID = record.ID
	return nil
}

// SaveTurn persists a user message, the assistant reply and the conversation
// stats update in one transaction.
func (s *Store) SaveTurn(ctx context.Context, userMsg *types.Message, userEmbedding []float32, reply *types.Message, update StatsUpdate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveMessage(tx, userMsg, userEmbedding); err != nil {
			return err
		}
		if err := saveMessage(tx, reply, nil); err != nil {
			return err
		}
		return updateConversationStats(tx, userMsg.ConversationID, update)
	})
}

// ConversationHistory returns every message of a conversation, oldest first.
func (s *Store) ConversationHistory(ctx context.Context, conversationID string) ([]types.Message, error) {
	var records []messageModel
	if err := s.db.WithContext(ctx).
		Select(messageColumns).
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query conversation history: %w", err)
	}
	return messagesFromModels(records), nil
}

// QueryUserMessages returns a user's messages within [Start, End], oldest first.
func (s *Store) QueryUserMessages(ctx context.Context, q types.MessageQuery) ([]types.Message, error) {
	role := q.Role
	if role == "" {
		role = "user"
	}

	query := s.db.WithContext(ctx).
		Model(&messageModel{}).
		Select(messageColumns).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.user_id = ?", q.UserID).
		Where("messages.role = ?", role).
		Where("messages.timestamp >= ? AND messages.timestamp <= ?", q.Start, q.End)
	if q.RequireEmotion {
		query = query.Where("messages.emotion IS NOT NULL")
	}
	if q.AnxietyOnly {
		query = query.Where("messages.anxiety_detected = ?", true)
	}

	var records []messageModel
	if err := query.Order("messages.timestamp ASC").Order("messages.id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query user messages: %w", err)
	}
	return messagesFromModels(records), nil
}

// SearchSimilarMessages recalls a user's past messages by cosine similarity.
func (s *Store) SearchSimilarMessages(ctx context.Context, userID string, embedding []float32, topK int, threshold float64) ([]types.RetrievedMessage, error) {
	if len(embedding) == 0 || topK <= 0 {
		return nil, nil
	}

	query := `
		SELECT m.role, m.content, m.timestamp AS created_at, 1 - (m.embedding <=> $1) AS similarity
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.user_id = $2
		  AND m.embedding IS NOT NULL
		  AND 1 - (m.embedding <=> $1) > $3
		ORDER BY similarity DESC
		LIMIT $4`

	vector := pgvector.NewVector(embedding)
	var results []types.RetrievedMessage
	if err := s.db.WithContext(ctx).
		Raw(query, vector, userID, threshold, topK).
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to search similar messages: %w", err)
	}
	return results, nil
}

func messagesFromModels(records []messageModel) []types.Message {
	results := make([]types.Message, 0, len(records))
	for _, record := range records {
		results = append(results, messageFromModel(record))
	}
	return results
}
