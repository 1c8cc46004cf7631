package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"animalcare-rag/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	if doc.Status == "" {
		doc.Status = model.DocumentStatusPending
	}
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

// MarkIndexed flips a pending document to indexed and stores its extracted text.
func (r *DocumentRepository) MarkIndexed(ctx context.Context, id uint, content string) error {
	res := r.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":  model.DocumentStatusIndexed,
		"content": content,
	})
	if res.Error != nil {
		return fmt.Errorf("mark document indexed failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("mark document indexed failed: document %d not found", id)
	}
	return nil
}

// List returns every document, newest first.
func (r *DocumentRepository) List(ctx context.Context) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.WithContext(ctx).Omit("content").Order("upload_timestamp DESC").Order("id DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

// ListWithContent returns every document including extracted text, oldest first.
func (r *DocumentRepository) ListWithContent(ctx context.Context) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Document{}, id).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}
