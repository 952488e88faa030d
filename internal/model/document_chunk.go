package model

import (
	"encoding/json"
	"time"
)

const (
	ChunkStatusStored = "stored"
	ChunkStatusFailed = "failed"
)

// DocumentChunk holds one embedded text segment of a document.
// Embedding is stored as a JSON array of float32 for portability; Metadata is
// a JSON object holding the open key/value map attached at ingestion time.
// (document_id, chunk_index) is unique, so re-ingestion updates in place.
type DocumentChunk struct {
	ChunkID    string    `gorm:"primaryKey;size:36" json:"chunk_id"`
	DocumentID string    `gorm:"size:36;not null;uniqueIndex:uniq_document_chunk,priority:1;index" json:"document_id"`
	ChunkIndex int       `gorm:"not null;uniqueIndex:uniq_document_chunk,priority:2" json:"chunk_index"`
	ChunkText  string    `gorm:"type:text;not null" json:"chunk_text"`
	Embedding  string    `gorm:"type:mediumtext" json:"-"`
	Metadata   string    `gorm:"type:text" json:"-"`
	Status     string    `gorm:"size:32;not null;default:stored;index" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (c *DocumentChunk) EmbeddingVector() []float32 {
	if c.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(c.Embedding), &v)
	return v
}

// SetEmbedding stores the embedding as JSON.
func (c *DocumentChunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}

// MetadataMap returns the parsed metadata map; nil on parse error.
func (c *DocumentChunk) MetadataMap() map[string]string {
	if c.Metadata == "" {
		return nil
	}
	var m map[string]string
	_ = json.Unmarshal([]byte(c.Metadata), &m)
	return m
}

// SetMetadata stores the open metadata map as JSON.
func (c *DocumentChunk) SetMetadata(m map[string]string) {
	if len(m) == 0 {
		c.Metadata = "{}"
		return
	}
	b, _ := json.Marshal(m)
	c.Metadata = string(b)
}
