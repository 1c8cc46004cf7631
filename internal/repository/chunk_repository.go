package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"animalcare-rag/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) CreateBatch(ctx context.Context, chunks []model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&chunks, 100).Error; err != nil {
		return fmt.Errorf("create document chunks batch failed: %w", err)
	}
	return nil
}

// ListAll returns every stored chunk ordered by id.
func (r *ChunkRepository) ListAll(ctx context.Context) ([]model.DocumentChunk, error) {
	var chunks []model.DocumentChunk
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list document chunks failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) CountByDocumentID(ctx context.Context, documentID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.DocumentChunk{}).Where("document_id = ?", documentID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count document chunks failed: %w", err)
	}
	return n, nil
}

func (r *ChunkRepository) DeleteByDocumentID(ctx context.Context, documentID uint) error {
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&model.DocumentChunk{}).Error; err != nil {
		return fmt.Errorf("delete document chunks by document failed: %w", err)
	}
	return nil
}
