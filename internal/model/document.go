package model

import "time"

// Document status lifecycle. A document enters "processing" on the first
// ingestion attempt and always ends in "completed" or "failed"; terminal
// states are only re-entered by a new ingestion request for the same source.
const (
	DocStatusNotStarted = "not-started"
	DocStatusProcessing = "processing"
	DocStatusCompleted  = "completed"
	DocStatusFailed     = "failed"
)

// Document tracks one ingested source object through the pipeline.
// DocumentID is assigned once and never changes; re-ingestion of the same
// SourceKey reuses the existing row.
type Document struct {
	DocumentID   string    `gorm:"primaryKey;size:36" json:"document_id"`
	DocumentName string    `gorm:"size:512;not null" json:"document_name"`
	SourceKey    string    `gorm:"size:512;not null;uniqueIndex" json:"source_key"`
	Status       string    `gorm:"size:32;not null;default:not-started;index" json:"status"`
	SyncJobID    string    `gorm:"size:128" json:"sync_job_id,omitempty"`
	ChunkCount   int       `gorm:"not null;default:0" json:"chunk_count"`
	ErrorMessage string    `gorm:"type:text" json:"error_message,omitempty"`
	TenantID     string    `gorm:"size:128;not null;index:idx_documents_tenant_user" json:"tenant_id"`
	UserID       string    `gorm:"size:128;not null;index:idx_documents_tenant_user" json:"user_id"`
	ProjectID    string    `gorm:"size:128" json:"project_id,omitempty"`
	ThreadID     string    `gorm:"size:128" json:"thread_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Chunks       []DocumentChunk `gorm:"foreignKey:DocumentID;references:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
	Metadata     []Metadata      `gorm:"foreignKey:DocumentID;references:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
	FailedChunks []FailedChunk   `gorm:"foreignKey:DocumentID;references:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (d *Document) Terminal() bool {
	return d.Status == DocStatusCompleted || d.Status == DocStatusFailed
}
