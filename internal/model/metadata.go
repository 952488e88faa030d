package model

import "time"

// Metadata is one extended key/value pair attached to a document, beyond the
// fixed tenant/user/project/thread fields.
type Metadata struct {
	MetadataID    string    `gorm:"primaryKey;size:36" json:"metadata_id"`
	DocumentID    string    `gorm:"size:36;not null;uniqueIndex:uniq_document_metadata,priority:1;index" json:"document_id"`
	MetadataKey   string    `gorm:"size:256;not null;uniqueIndex:uniq_document_metadata,priority:2" json:"metadata_key"`
	MetadataValue string    `gorm:"type:text" json:"metadata_value"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Metadata) TableName() string {
	return "metadata"
}
