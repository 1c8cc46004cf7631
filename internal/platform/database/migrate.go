package database

import (
	"fmt"

	"gorm.io/gorm"

	"animalcare-rag/internal/model"
)

// Migrate creates or updates the record store tables.
// DocumentChunk is always migrated; it is only written when the gorm vector index is selected.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Document{}, &model.ChatTurn{}, &model.DocumentChunk{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}
