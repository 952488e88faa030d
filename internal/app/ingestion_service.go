package app

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docflow/internal/cache"
	"docflow/internal/chunk"
	"docflow/internal/extract"
	"docflow/internal/kb"
	"docflow/internal/model"
)

// IngestSettings tune the pipeline; zero values fall back to the production
// defaults.
type IngestSettings struct {
	MaxChunkWords int
	OverlapWords  int
	EmbedFanout   int
	PollInterval  time.Duration
	PollTimeout   time.Duration
}

func (s *IngestSettings) applyDefaults() {
	if s.MaxChunkWords <= 0 {
		s.MaxChunkWords = 300
	}
	if s.OverlapWords < 0 {
		s.OverlapWords = 0
	}
	if s.EmbedFanout <= 0 {
		s.EmbedFanout = 4
	}
	if s.PollInterval <= 0 {
		s.PollInterval = 5 * time.Second
	}
	if s.PollTimeout <= 0 {
		s.PollTimeout = 120 * time.Second
	}
}

// IngestionService drives a source object through extract -> chunk -> embed
// -> persist -> sync, moving the document's status through
// processing -> completed|failed. Per-chunk embedding failures are recorded
// and skipped; only zero stored chunks or a sync failure fails the document.
type IngestionService struct {
	docs        DocumentStore
	chunks      ChunkStore
	metadata    MetadataStore
	failures    FailedChunkStore
	embedder    Embedder
	sync        SyncClient
	statusCache StatusCache
	locks       *keyedLock
	settings    IngestSettings
}

func NewIngestionService(
	docs DocumentStore,
	chunks ChunkStore,
	metadata MetadataStore,
	failures FailedChunkStore,
	embedder Embedder,
	syncClient SyncClient,
	statusCache StatusCache,
	settings IngestSettings,
) (*IngestionService, error) {
	settings.applyDefaults()
	// Reject bad chunk parameters at construction, before any document hits
	// the pipeline.
	if _, err := chunk.Split("probe", settings.MaxChunkWords, settings.OverlapWords); err != nil {
		return nil, err
	}
	return &IngestionService{
		docs:        docs,
		chunks:      chunks,
		metadata:    metadata,
		failures:    failures,
		embedder:    embedder,
		sync:        syncClient,
		statusCache: statusCache,
		locks:       newKeyedLock(),
		settings:    settings,
	}, nil
}

// IngestInput identifies one source object and its tenant context. Content
// holds the raw object bytes; Extra carries open metadata beyond the fixed
// identity fields.
type IngestInput struct {
	SourceBucket string
	SourceKey    string
	Name         string
	Content      []byte
	TenantID     string
	UserID       string
	ProjectID    string
	ThreadID     string
	Extra        map[string]string
}

// IngestResult summarizes one completed ingestion attempt.
type IngestResult struct {
	DocumentID  string `json:"document_id"`
	Status      string `json:"status"`
	ChunkCount  int    `json:"chunk_count"`
	FailedCount int    `json:"failed_count"`
	SyncJobID   string `json:"sync_job_id,omitempty"`
}

// Ingest runs the full pipeline for one document. A concurrent call for the
// same source key returns ErrIngestInProgress. Whatever happens, a document
// this method touched never stays in "processing": every exit path resolves
// it to a terminal state or hands it to the next attempt.
func (s *IngestionService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if strings.TrimSpace(input.SourceKey) == "" ||
		strings.TrimSpace(input.TenantID) == "" ||
		strings.TrimSpace(input.UserID) == "" {
		return nil, fmt.Errorf("%w: source_key, tenant_id and user_id are required", ErrInvalidInput)
	}

	if !s.locks.tryAcquire(input.SourceKey) {
		return nil, ErrIngestInProgress
	}
	defer s.locks.release(input.SourceKey)

	doc, err := s.trackDocument(input)
	if err != nil {
		return nil, err
	}

	text, err := extract.Text(input.SourceKey, bytes.NewReader(input.Content))
	if err != nil {
		s.failDocument(doc, "", err.Error())
		return nil, err
	}
	if text == "" {
		s.failDocument(doc, "", ErrNoExtractableText.Error())
		return nil, ErrNoExtractableText
	}

	pieces, err := chunk.Split(text, s.settings.MaxChunkWords, s.settings.OverlapWords)
	if err != nil {
		s.failDocument(doc, "", err.Error())
		return nil, err
	}

	stored, failedCount := s.embedChunks(ctx, doc, pieces, input.Extra)
	if len(stored) == 0 {
		reason := fmt.Sprintf("all %d chunks failed embedding", len(pieces))
		s.failDocument(doc, "", reason)
		return nil, fmt.Errorf("%w: %s", ErrAllChunksFailed, reason)
	}

	if err := s.saveChunkSet(stored); err != nil {
		s.failDocument(doc, "", "store chunk set failed: "+err.Error())
		return nil, err
	}
	s.updateStatus(doc, model.DocStatusProcessing, "", "", len(stored))

	jobID, err := s.sync.StartSync(ctx, input.SourceKey)
	if err != nil {
		s.failDocument(doc, "", "start knowledge base sync failed: "+err.Error())
		return nil, err
	}
	s.updateStatus(doc, model.DocStatusProcessing, jobID, "", -1)

	if err := s.awaitSync(ctx, doc, jobID); err != nil {
		return nil, err
	}

	s.updateStatus(doc, model.DocStatusCompleted, jobID, "", len(stored))
	log.Printf("document %s ingested: %d chunks stored, %d failed, sync job %s",
		doc.DocumentID, len(stored), failedCount, jobID)

	return &IngestResult{
		DocumentID:  doc.DocumentID,
		Status:      model.DocStatusCompleted,
		ChunkCount:  len(stored),
		FailedCount: failedCount,
		SyncJobID:   jobID,
	}, nil
}

// trackDocument upserts the document row in "processing" and persists the
// extended metadata. A known source key keeps its document id; only new
// sources get a fresh UUID.
func (s *IngestionService) trackDocument(input IngestInput) (*model.Document, error) {
	docID := ""
	if existing, err := s.docs.GetBySourceKey(input.SourceKey); err != nil {
		return nil, err
	} else if existing != nil {
		docID = existing.DocumentID
	}
	if docID == "" {
		docID = uuid.NewString()
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = path.Base(input.SourceKey)
	}

	doc := &model.Document{
		DocumentID:   docID,
		DocumentName: name,
		SourceKey:    input.SourceKey,
		Status:       model.DocStatusProcessing,
		TenantID:     input.TenantID,
		UserID:       input.UserID,
		ProjectID:    input.ProjectID,
		ThreadID:     input.ThreadID,
	}
	if err := s.docs.Upsert(doc); err != nil {
		return nil, err
	}
	s.invalidateStatus(doc)

	if len(input.Extra) > 0 {
		records := make([]model.Metadata, 0, len(input.Extra))
		for k, v := range input.Extra {
			records = append(records, model.Metadata{
				MetadataID:    uuid.NewString(),
				DocumentID:    docID,
				MetadataKey:   k,
				MetadataValue: v,
			})
		}
		if err := s.metadata.UpsertAll(records); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

type embedOutcome struct {
	index int
	vec   []float32
	err   error
}

// embedChunks embeds every piece with a bounded concurrent fan-out. Failures
// become FailedChunk rows and are skipped; the survivors come back as chunk
// models ready to store, in index order.
func (s *IngestionService) embedChunks(ctx context.Context, doc *model.Document, pieces []string, extra map[string]string) ([]model.DocumentChunk, int) {
	outcomes := make([]embedOutcome, len(pieces))
	sem := make(chan struct{}, s.settings.EmbedFanout)
	var wg sync.WaitGroup

	for i := range pieces {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			vec, err := s.embedder.Embed(ctx, pieces[idx])
			outcomes[idx] = embedOutcome{index: idx, vec: vec, err: err}
		}(i)
	}
	wg.Wait()

	var stored []model.DocumentChunk
	failedCount := 0
	for _, out := range outcomes {
		if out.err != nil {
			failedCount++
			failure := &model.FailedChunk{
				FailureID:   uuid.NewString(),
				DocumentID:  doc.DocumentID,
				ChunkIndex:  out.index,
				ChunkText:   pieces[out.index],
				ErrorReason: out.err.Error(),
			}
			if err := s.failures.Create(failure); err != nil {
				log.Printf("record failed chunk %d of document %s failed: %v", out.index, doc.DocumentID, err)
			}
			continue
		}

		c := model.DocumentChunk{
			ChunkID:    uuid.NewString(),
			DocumentID: doc.DocumentID,
			ChunkIndex: out.index,
			ChunkText:  pieces[out.index],
			Status:     model.ChunkStatusStored,
		}
		c.SetEmbedding(out.vec)
		c.SetMetadata(extra)
		stored = append(stored, c)
	}
	return stored, failedCount
}

// saveChunkSet writes the chunk set, retrying the transaction once before
// giving up.
func (s *IngestionService) saveChunkSet(chunks []model.DocumentChunk) error {
	if err := s.chunks.SaveAll(chunks); err != nil {
		log.Printf("save chunk set failed, retrying once: %v", err)
		return s.chunks.SaveAll(chunks)
	}
	return nil
}

// awaitSync polls the sync job to a terminal state within the configured
// budget. Timeout, cancellation and job failure all resolve the document to
// "failed" with the reason preserved.
func (s *IngestionService) awaitSync(ctx context.Context, doc *model.Document, jobID string) error {
	var last kb.SyncState
	err := pollUntil(ctx, s.settings.PollInterval, s.settings.PollTimeout, func(ctx context.Context) (bool, error) {
		state, err := s.sync.SyncStatus(ctx, jobID)
		if err != nil {
			// A flaky status check is not terminal; keep polling.
			log.Printf("sync status check for job %s failed: %v", jobID, err)
			return false, nil
		}
		last = state
		return state.Status.Terminal(), nil
	})

	switch {
	case err != nil:
		reason := "knowledge base sync polling timed out"
		if ctx.Err() != nil {
			reason = "knowledge base sync polling cancelled: " + ctx.Err().Error()
		}
		s.failDocument(doc, jobID, reason)
		return fmt.Errorf("%w: job %s", ErrSyncTimeout, jobID)
	case last.Status == kb.JobFailed:
		reason := last.FailureReason
		if reason == "" {
			reason = "knowledge base sync job failed"
		}
		s.failDocument(doc, jobID, reason)
		return fmt.Errorf("sync job %s failed: %s", jobID, reason)
	default:
		return nil
	}
}

func (s *IngestionService) failDocument(doc *model.Document, jobID, reason string) {
	s.updateStatus(doc, model.DocStatusFailed, jobID, reason, -1)
}

func (s *IngestionService) updateStatus(doc *model.Document, status, jobID, errorMessage string, chunkCount int) {
	if err := s.docs.UpdateStatus(doc.DocumentID, status, jobID, errorMessage, chunkCount); err != nil {
		log.Printf("update status of document %s to %s failed: %v", doc.DocumentID, status, err)
		return
	}
	doc.Status = status
	s.invalidateStatus(doc)
}

func (s *IngestionService) invalidateStatus(doc *model.Document) {
	if s.statusCache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.statusCache.Invalidate(ctx, doc.DocumentID, doc.SourceKey); err != nil {
		log.Printf("invalidate status cache for document %s failed: %v", doc.DocumentID, err)
	}
}

// GetStatus answers a status poll by document id or source key, serving from
// the cache when it can.
func (s *IngestionService) GetStatus(ctx context.Context, key string) (*cache.StatusReport, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: document id or source key required", ErrInvalidInput)
	}

	if s.statusCache != nil {
		if report, ok, err := s.statusCache.Get(ctx, key); err != nil {
			log.Printf("status cache read for %q failed: %v", key, err)
		} else if ok {
			return report, nil
		}
	}

	doc, err := s.docs.GetByID(key)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		if doc, err = s.docs.GetBySourceKey(key); err != nil {
			return nil, err
		}
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	report := cache.StatusReport{
		DocumentID:   doc.DocumentID,
		Status:       doc.Status,
		ChunkCount:   doc.ChunkCount,
		ErrorMessage: doc.ErrorMessage,
	}
	if s.statusCache != nil {
		if err := s.statusCache.Set(ctx, key, report); err != nil {
			log.Printf("status cache write for %q failed: %v", key, err)
		}
	}
	return &report, nil
}

// DocumentDetail pairs a document with its extended metadata records.
type DocumentDetail struct {
	Document model.Document   `json:"document"`
	Metadata []model.Metadata `json:"metadata,omitempty"`
}

// GetDocument returns one document with its metadata records.
func (s *IngestionService) GetDocument(documentID string) (*DocumentDetail, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, fmt.Errorf("%w: document id required", ErrInvalidInput)
	}
	doc, err := s.docs.GetByID(documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	records, err := s.metadata.ListByDocumentID(doc.DocumentID)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{Document: *doc, Metadata: records}, nil
}

// ListDocuments returns tracked documents matching the optional filters.
func (s *IngestionService) ListDocuments(status, tenantID, userID string, limit int) ([]model.Document, error) {
	return s.docs.List(status, tenantID, userID, limit)
}

// ListChunks returns the stored chunks of a document, in index order.
func (s *IngestionService) ListChunks(documentID string) ([]model.DocumentChunk, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, fmt.Errorf("%w: document id required", ErrInvalidInput)
	}
	return s.chunks.ListByDocumentID(documentID)
}

// DeleteDocument removes a document and its stored chunks. Failed-chunk rows
// stay behind as an audit trail. A delete racing an active ingest of the same
// source is rejected.
func (s *IngestionService) DeleteDocument(documentID string) error {
	if strings.TrimSpace(documentID) == "" {
		return fmt.Errorf("%w: document id required", ErrInvalidInput)
	}
	doc, err := s.docs.GetByID(documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	if !s.locks.tryAcquire(doc.SourceKey) {
		return ErrIngestInProgress
	}
	defer s.locks.release(doc.SourceKey)

	if err := s.chunks.DeleteByDocumentID(doc.DocumentID); err != nil {
		return err
	}
	if err := s.docs.Delete(doc.DocumentID); err != nil {
		return err
	}
	s.invalidateStatus(doc)
	return nil
}

// ListFailures returns the recorded per-chunk failures of a document.
func (s *IngestionService) ListFailures(documentID string) ([]model.FailedChunk, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, fmt.Errorf("%w: document id required", ErrInvalidInput)
	}
	return s.failures.ListByDocumentID(documentID)
}
