package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docflow/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Upsert inserts the document or, when the source key already exists, updates
// only the mutable fields. DocumentID, SourceKey, TenantID and UserID are
// fixed at first ingestion and never overwritten.
func (r *DocumentRepository) Upsert(doc *model.Document) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "source_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"document_name", "status", "sync_job_id", "chunk_count",
			"error_message", "project_id", "thread_id", "updated_at",
		}),
	}).Create(doc).Error
	if err != nil {
		return fmt.Errorf("upsert document failed: %w", err)
	}
	return nil
}

// UpdateStatus moves a document through its lifecycle. syncJobID is only
// written when non-empty and chunkCount only when non-negative, matching the
// coalescing update the status writer needs mid-pipeline.
func (r *DocumentRepository) UpdateStatus(documentID, status, syncJobID, errorMessage string, chunkCount int) error {
	updates := map[string]interface{}{
		"status":        status,
		"error_message": errorMessage,
	}
	if syncJobID != "" {
		updates["sync_job_id"] = syncJobID
	}
	if chunkCount >= 0 {
		updates["chunk_count"] = chunkCount
	}

	res := r.db.Model(&model.Document{}).Where("document_id = ?", documentID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update document status failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update document status: document %s not found", documentID)
	}
	return nil
}

func (r *DocumentRepository) GetByID(documentID string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("document_id = ?", documentID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) GetBySourceKey(sourceKey string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("source_key = ?", sourceKey).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document by source key failed: %w", err)
	}
	return &doc, nil
}

// List returns documents matching the given filters; empty filter values are
// ignored. Results are newest first, capped at limit.
func (r *DocumentRepository) List(status, tenantID, userID string, limit int) ([]model.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	q := r.db.Model(&model.Document{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if tenantID != "" {
		q = q.Where("tenant_id = ?", tenantID)
	}
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}

	var docs []model.Document
	if err := q.Order("created_at DESC").Limit(limit).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) Delete(documentID string) error {
	res := r.db.Where("document_id = ?", documentID).Delete(&model.Document{})
	if res.Error != nil {
		return fmt.Errorf("delete document failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete document: document %s not found", documentID)
	}
	return nil
}
