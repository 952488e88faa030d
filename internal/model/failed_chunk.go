package model

import "time"

// FailedChunk records a single chunk that could not be embedded or stored,
// so ingestion of the rest of the document proceeds past it.
type FailedChunk struct {
	FailureID   string    `gorm:"primaryKey;size:36" json:"failure_id"`
	DocumentID  string    `gorm:"size:36;not null;index" json:"document_id"`
	ChunkIndex  int       `json:"chunk_index"`
	ChunkText   string    `gorm:"type:text" json:"chunk_text"`
	ErrorReason string    `gorm:"type:text" json:"error_reason"`
	CreatedAt   time.Time `json:"created_at"`
}
