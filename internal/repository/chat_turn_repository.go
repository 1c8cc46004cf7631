package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"animalcare-rag/internal/model"
)

type ChatTurnRepository struct {
	db *gorm.DB
}

func NewChatTurnRepository(db *gorm.DB) *ChatTurnRepository {
	return &ChatTurnRepository{db: db}
}

func (r *ChatTurnRepository) Create(ctx context.Context, turn *model.ChatTurn) error {
	if err := r.db.WithContext(ctx).Create(turn).Error; err != nil {
		return fmt.Errorf("create chat turn failed: %w", err)
	}
	return nil
}

// ListBySessionID returns the turns of a session in creation order.
// Rows sharing a timestamp keep insertion order through the primary key.
func (r *ChatTurnRepository) ListBySessionID(ctx context.Context, sessionID string) ([]model.ChatTurn, error) {
	var turns []model.ChatTurn
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("list chat turns failed: %w", err)
	}
	return turns, nil
}
