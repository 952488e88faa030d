package repository

import (
	"fmt"

	"gorm.io/gorm"

	"docflow/internal/model"
)

type FailedChunkRepository struct {
	db *gorm.DB
}

func NewFailedChunkRepository(db *gorm.DB) *FailedChunkRepository {
	return &FailedChunkRepository{db: db}
}

// Create is append-only: every failure is its own row, even for the same
// chunk index across re-ingestions.
func (r *FailedChunkRepository) Create(failed *model.FailedChunk) error {
	if err := r.db.Create(failed).Error; err != nil {
		return fmt.Errorf("create failed chunk failed: %w", err)
	}
	return nil
}

func (r *FailedChunkRepository) ListByDocumentID(documentID string) ([]model.FailedChunk, error) {
	var failures []model.FailedChunk
	if err := r.db.Where("document_id = ?", documentID).Order("created_at ASC").Find(&failures).Error; err != nil {
		return nil, fmt.Errorf("list failed chunks failed: %w", err)
	}
	return failures, nil
}
