package repository

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docflow/internal/model"
)

type MetadataRepository struct {
	db *gorm.DB
}

func NewMetadataRepository(db *gorm.DB) *MetadataRepository {
	return &MetadataRepository{db: db}
}

// UpsertAll writes extended metadata records keyed by (document_id, key);
// re-ingestion replaces values in place.
func (r *MetadataRepository) UpsertAll(records []model.Metadata) error {
	if len(records) == 0 {
		return nil
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}, {Name: "metadata_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"metadata_value"}),
	}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("upsert metadata failed: %w", err)
	}
	return nil
}

func (r *MetadataRepository) ListByDocumentID(documentID string) ([]model.Metadata, error) {
	var records []model.Metadata
	if err := r.db.Where("document_id = ?", documentID).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list metadata failed: %w", err)
	}
	return records, nil
}
