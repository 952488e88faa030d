package app

import (
	"context"

	"docflow/internal/cache"
	"docflow/internal/kb"
	"docflow/internal/model"
)

// Store interfaces are defined here, on the consumer side, so the services
// can be exercised against fakes. The repository package satisfies them.

type DocumentStore interface {
	Upsert(doc *model.Document) error
	UpdateStatus(documentID, status, syncJobID, errorMessage string, chunkCount int) error
	GetByID(documentID string) (*model.Document, error)
	GetBySourceKey(sourceKey string) (*model.Document, error)
	List(status, tenantID, userID string, limit int) ([]model.Document, error)
	Delete(documentID string) error
}

type ChunkStore interface {
	SaveAll(chunks []model.DocumentChunk) error
	ListByDocumentID(documentID string) ([]model.DocumentChunk, error)
	CountByDocumentID(documentID string) (int, error)
	DeleteByDocumentID(documentID string) error
}

type MetadataStore interface {
	UpsertAll(records []model.Metadata) error
	ListByDocumentID(documentID string) ([]model.Metadata, error)
}

type FailedChunkStore interface {
	Create(failed *model.FailedChunk) error
	ListByDocumentID(documentID string) ([]model.FailedChunk, error)
}

type QueryStore interface {
	SaveQuery(record *model.QueryRecord, results []model.QueryResult) error
	ListRecent(tenantID, userID string, limit int) ([]model.QueryRecord, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type SyncClient interface {
	StartSync(ctx context.Context, sourceRef string) (string, error)
	SyncStatus(ctx context.Context, jobID string) (kb.SyncState, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, input kb.RetrieveInput) ([]kb.Result, error)
}

type StatusCache interface {
	Get(ctx context.Context, key string) (*cache.StatusReport, bool, error)
	Set(ctx context.Context, key string, report cache.StatusReport) error
	Invalidate(ctx context.Context, keys ...string) error
}
