package repository

import (
	"fmt"

	"gorm.io/gorm"

	"docflow/internal/model"
)

type QueryRepository struct {
	db *gorm.DB
}

func NewQueryRepository(db *gorm.DB) *QueryRepository {
	return &QueryRepository{db: db}
}

// SaveQuery records one search invocation and all of its ranked results in a
// single transaction. Both tables are append-only.
func (r *QueryRepository) SaveQuery(record *model.QueryRecord, results []model.QueryResult) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		if len(results) > 0 {
			if err := tx.Create(&results).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save query failed: %w", err)
	}
	return nil
}

func (r *QueryRepository) ListRecent(tenantID, userID string, limit int) ([]model.QueryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	q := r.db.Model(&model.QueryRecord{})
	if tenantID != "" {
		q = q.Where("tenant_id = ?", tenantID)
	}
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}

	var records []model.QueryRecord
	if err := q.Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list query history failed: %w", err)
	}
	return records, nil
}
