package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easeaico/serenia/internal/types"
)

// StatsUpdate is applied to a conversation after each chat turn.
type StatsUpdate struct {
	MessageDelta    int
	DominantEmotion string
	AnxietyLevel    string
	// CrisisDetected only ever sets the flag; it is never cleared.
	CrisisDetected bool
}

// EnsureConversation creates the user and conversation rows if missing and
// returns the conversation.
func (s *Store) EnsureConversation(ctx context.Context, id, userID string) (*types.Conversation, error) {
	var record conversationModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		user := userModel{ID: userID, LastActive: now}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{"last_active": now}),
		}).Create(&user).Error; err != nil {
			return fmt.Errorf("failed to upsert user: %w", err)
		}

		conv := conversationModel{ID: id, UserID: userID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&conv).Error; err != nil {
			return fmt.Errorf("failed to insert conversation: %w", err)
		}
		if err := tx.Where("id = ?", id).First(&record).Error; err != nil {
			return fmt.Errorf("failed to load conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if record.UserID != userID {
		return nil, ErrConversationOwner
	}
	conv := conversationFromModel(record)
	return &conv, nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*types.Conversation, error) {
	var record conversationModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	conv := conversationFromModel(record)
	return &conv, nil
}

// UpdateConversationStats applies update to the conversation with id.
func (s *Store) UpdateConversationStats(ctx context.Context, id string, update StatsUpdate) error {
	return updateConversationStats(s.db.WithContext(ctx), id, update)
}

func updateConversationStats(db *gorm.DB, id string, update StatsUpdate) error {
	updates := map[string]any{
		"message_count": gorm.Expr("message_count + ?", update.MessageDelta),
		"updated_at":    time.Now(),
	}
	if update.DominantEmotion != "" {
		updates["dominant_emotion"] = update.DominantEmotion
	}
	if update.AnxietyLevel != "" {
		updates["average_anxiety_level"] = update.AnxietyLevel
	}
	if update.CrisisDetected {
		updates["crisis_detected"] = true
	}

	result := db.Model(&conversationModel{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update conversation stats: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
