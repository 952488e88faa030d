package model

import "time"

// QueryRecord is one search invocation, kept for analytics and auditing.
type QueryRecord struct {
	QueryID         string    `gorm:"primaryKey;size:36" json:"query_id"`
	QueryText       string    `gorm:"type:text;not null" json:"query_text"`
	TenantID        string    `gorm:"size:128;index:idx_query_history_tenant_user" json:"tenant_id,omitempty"`
	UserID          string    `gorm:"size:128;index:idx_query_history_tenant_user" json:"user_id,omitempty"`
	TopK            int       `gorm:"not null;default:5" json:"top_k"`
	ExecutionTimeMs int       `json:"execution_time_ms"`
	ResultCount     int       `json:"result_count"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`

	Results []QueryResult `gorm:"foreignKey:QueryID;references:QueryID;constraint:OnDelete:CASCADE" json:"-"`
}

func (QueryRecord) TableName() string {
	return "query_history"
}

// QueryResult is one ranked hit of a query. ChunkText is a snapshot taken at
// query time so the audit trail survives document deletion; DocumentID is a
// plain reference with no cascade back to documents.
type QueryResult struct {
	ResultID        string    `gorm:"primaryKey;size:36" json:"result_id"`
	QueryID         string    `gorm:"size:36;not null;index" json:"query_id"`
	DocumentID      string    `gorm:"size:36;index" json:"document_id,omitempty"`
	ChunkID         string    `gorm:"size:36" json:"chunk_id,omitempty"`
	ChunkIndex      int       `json:"chunk_index"`
	ChunkText       string    `gorm:"type:text;not null" json:"chunk_text"`
	SimilarityScore float64   `gorm:"not null;index" json:"similarity_score"`
	ResultRank      int       `gorm:"not null" json:"result_rank"`
	SourceLocation  string    `gorm:"size:512" json:"source_location,omitempty"`
	Metadata        string    `gorm:"type:text" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}
