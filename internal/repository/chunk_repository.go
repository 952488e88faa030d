package repository

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docflow/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// chunkConflict overwrites the existing row at the same
// (document_id, chunk_index), so re-ingestion never duplicates rows.
var chunkConflict = clause.OnConflict{
	Columns: []clause.Column{{Name: "document_id"}, {Name: "chunk_index"}},
	DoUpdates: clause.AssignmentColumns([]string{
		"chunk_text", "embedding", "metadata", "status", "updated_at",
	}),
}

// SaveAll writes a document's chunk set inside one transaction so a document
// is never left half-populated behind a terminal status.
func (r *ChunkRepository) SaveAll(chunks []model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for i := range chunks {
			if err := tx.Clauses(chunkConflict).Create(&chunks[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save chunk set failed: %w", err)
	}
	return nil
}

func (r *ChunkRepository) ListByDocumentID(documentID string) ([]model.DocumentChunk, error) {
	var chunks []model.DocumentChunk
	if err := r.db.Where("document_id = ?", documentID).Order("chunk_index ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) CountByDocumentID(documentID string) (int, error) {
	var count int64
	if err := r.db.Model(&model.DocumentChunk{}).Where("document_id = ?", documentID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count chunks failed: %w", err)
	}
	return int(count), nil
}

func (r *ChunkRepository) DeleteByDocumentID(documentID string) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.DocumentChunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks by document failed: %w", err)
	}
	return nil
}
