package app

import (
	"context"
	"sync"

	"docflow/internal/cache"
	"docflow/internal/kb"
	"docflow/internal/model"
)

// In-memory fakes mirroring the store contracts, including the upsert
// semantics the dedup guarantees rest on.

type fakeDocumentStore struct {
	mu   sync.Mutex
	docs map[string]*model.Document // by document id
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: make(map[string]*model.Document)}
}

func (f *fakeDocumentStore) Upsert(doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.docs[doc.DocumentID]; ok {
		existing.DocumentName = doc.DocumentName
		existing.Status = doc.Status
		existing.ProjectID = doc.ProjectID
		existing.ThreadID = doc.ThreadID
		return nil
	}
	cp := *doc
	f.docs[doc.DocumentID] = &cp
	return nil
}

func (f *fakeDocumentStore) UpdateStatus(documentID, status, syncJobID, errorMessage string, chunkCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok {
		return ErrDocumentNotFound
	}
	doc.Status = status
	doc.ErrorMessage = errorMessage
	if syncJobID != "" {
		doc.SyncJobID = syncJobID
	}
	if chunkCount >= 0 {
		doc.ChunkCount = chunkCount
	}
	return nil
}

func (f *fakeDocumentStore) GetByID(documentID string) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[documentID]; ok {
		cp := *doc
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeDocumentStore) GetBySourceKey(sourceKey string) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, doc := range f.docs {
		if doc.SourceKey == sourceKey {
			cp := *doc
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeDocumentStore) List(status, tenantID, userID string, limit int) ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Document
	for _, doc := range f.docs {
		if status != "" && doc.Status != status {
			continue
		}
		if tenantID != "" && doc.TenantID != tenantID {
			continue
		}
		if userID != "" && doc.UserID != userID {
			continue
		}
		out = append(out, *doc)
	}
	return out, nil
}

func (f *fakeDocumentStore) Delete(documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[documentID]; !ok {
		return ErrDocumentNotFound
	}
	delete(f.docs, documentID)
	return nil
}

type fakeChunkStore struct {
	mu      sync.Mutex
	rows    map[string]map[int]model.DocumentChunk // document id -> chunk index -> row
	saveErr []error                                // consumed per SaveAll call
}

func newFakeChunkStore() *fakeChunkStore {
	return &fakeChunkStore{rows: make(map[string]map[int]model.DocumentChunk)}
}

func (f *fakeChunkStore) SaveAll(chunks []model.DocumentChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saveErr) > 0 {
		err := f.saveErr[0]
		f.saveErr = f.saveErr[1:]
		if err != nil {
			return err
		}
	}
	for _, c := range chunks {
		byIndex, ok := f.rows[c.DocumentID]
		if !ok {
			byIndex = make(map[int]model.DocumentChunk)
			f.rows[c.DocumentID] = byIndex
		}
		if prev, exists := byIndex[c.ChunkIndex]; exists {
			// conflict update keeps the original primary key
			c.ChunkID = prev.ChunkID
		}
		byIndex[c.ChunkIndex] = c
	}
	return nil
}

func (f *fakeChunkStore) ListByDocumentID(documentID string) ([]model.DocumentChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byIndex := f.rows[documentID]
	out := make([]model.DocumentChunk, 0, len(byIndex))
	for i := 0; i < len(byIndex)*2; i++ {
		if c, ok := byIndex[i]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChunkStore) CountByDocumentID(documentID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[documentID]), nil
}

func (f *fakeChunkStore) DeleteByDocumentID(documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, documentID)
	return nil
}

type fakeMetadataStore struct {
	mu   sync.Mutex
	rows map[string]map[string]string // document id -> key -> value
}

func newFakeMetadataStore() *fakeMetadataStore {
	return &fakeMetadataStore{rows: make(map[string]map[string]string)}
}

func (f *fakeMetadataStore) UpsertAll(records []model.Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range records {
		byKey, ok := f.rows[rec.DocumentID]
		if !ok {
			byKey = make(map[string]string)
			f.rows[rec.DocumentID] = byKey
		}
		byKey[rec.MetadataKey] = rec.MetadataValue
	}
	return nil
}

func (f *fakeMetadataStore) ListByDocumentID(documentID string) ([]model.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Metadata
	for k, v := range f.rows[documentID] {
		out = append(out, model.Metadata{DocumentID: documentID, MetadataKey: k, MetadataValue: v})
	}
	return out, nil
}

type fakeFailedChunkStore struct {
	mu   sync.Mutex
	rows []model.FailedChunk
}

func (f *fakeFailedChunkStore) Create(failed *model.FailedChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *failed)
	return nil
}

func (f *fakeFailedChunkStore) ListByDocumentID(documentID string) ([]model.FailedChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.FailedChunk
	for _, r := range f.rows {
		if r.DocumentID == documentID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeQueryStore struct {
	mu      sync.Mutex
	records []model.QueryRecord
	results [][]model.QueryResult
}

func (f *fakeQueryStore) SaveQuery(record *model.QueryRecord, results []model.QueryResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *record)
	f.results = append(f.results, results)
	return nil
}

func (f *fakeQueryStore) ListRecent(tenantID, userID string, limit int) ([]model.QueryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.QueryRecord
	for i := len(f.records) - 1; i >= 0; i-- {
		rec := f.records[i]
		if tenantID != "" && rec.TenantID != tenantID {
			continue
		}
		if userID != "" && rec.UserID != userID {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeEmbedder struct {
	fn func(text string) ([]float32, error)
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.fn != nil {
		return f.fn(text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeSyncClient struct {
	mu       sync.Mutex
	startErr error
	states   []kb.SyncState // consumed per SyncStatus call, last repeated
	started  []string
}

func (f *fakeSyncClient) StartSync(_ context.Context, sourceRef string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = append(f.started, sourceRef)
	return "job-1", nil
}

func (f *fakeSyncClient) SyncStatus(_ context.Context, _ string) (kb.SyncState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.states) == 0 {
		return kb.SyncState{Status: kb.JobRunning}, nil
	}
	state := f.states[0]
	if len(f.states) > 1 {
		f.states = f.states[1:]
	}
	return state, nil
}

type fakeRetriever struct {
	results []kb.Result
	err     error
	lastIn  kb.RetrieveInput
}

func (f *fakeRetriever) Retrieve(_ context.Context, input kb.RetrieveInput) ([]kb.Result, error) {
	f.lastIn = input
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeStatusCache struct {
	mu      sync.Mutex
	entries map[string]cache.StatusReport
}

func newFakeStatusCache() *fakeStatusCache {
	return &fakeStatusCache{entries: make(map[string]cache.StatusReport)}
}

func (f *fakeStatusCache) Get(_ context.Context, key string) (*cache.StatusReport, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if report, ok := f.entries[key]; ok {
		cp := report
		return &cp, true, nil
	}
	return nil, false, nil
}

func (f *fakeStatusCache) Set(_ context.Context, key string, report cache.StatusReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = report
	return nil
}

func (f *fakeStatusCache) Invalidate(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.entries, k)
	}
	return nil
}
