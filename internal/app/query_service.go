package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docflow/internal/kb"
	"docflow/internal/model"
)

const defaultTopK = 5

// QueryService embeds a query, runs filtered retrieval against the external
// knowledge base, and records the invocation plus its ranked results.
type QueryService struct {
	queries   QueryStore
	embedder  Embedder
	retriever Retriever
}

func NewQueryService(queries QueryStore, embedder Embedder, retriever Retriever) *QueryService {
	return &QueryService{
		queries:   queries,
		embedder:  embedder,
		retriever: retriever,
	}
}

type QueryInput struct {
	Text    string
	TopK    int
	Filters kb.Filters
}

// QueryHit is one ranked result. Rank is 1-based and follows the retrieval
// service's order; no re-sorting happens locally, so ties keep their stable
// input order.
type QueryHit struct {
	Rank           int               `json:"rank"`
	Score          float64           `json:"score"`
	DocumentID     string            `json:"document_id,omitempty"`
	ChunkID        string            `json:"chunk_id,omitempty"`
	ChunkIndex     int               `json:"chunk_index"`
	ChunkText      string            `json:"chunk_text"`
	SourceLocation string            `json:"source_location,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type QueryOutput struct {
	QueryID         string     `json:"query_id"`
	Hits            []QueryHit `json:"hits"`
	ExecutionTimeMs int        `json:"execution_time_ms"`
}

func (s *QueryService) Query(ctx context.Context, input QueryInput) (*QueryOutput, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: query text is required", ErrInvalidInput)
	}
	topK := input.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	start := time.Now()

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	results, err := s.retriever.Retrieve(ctx, kb.RetrieveInput{
		Vector:  vec,
		TopK:    topK,
		Filters: input.Filters,
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge base retrieve failed: %w", err)
	}
	if len(results) > topK {
		results = results[:topK]
	}

	elapsed := int(time.Since(start).Milliseconds())
	queryID := uuid.NewString()

	record := &model.QueryRecord{
		QueryID:         queryID,
		QueryText:       text,
		TenantID:        input.Filters.TenantID,
		UserID:          input.Filters.UserID,
		TopK:            topK,
		ExecutionTimeMs: elapsed,
		ResultCount:     len(results),
	}

	hits := make([]QueryHit, len(results))
	rows := make([]model.QueryResult, len(results))
	for i, res := range results {
		rank := i + 1
		hits[i] = QueryHit{
			Rank:           rank,
			Score:          res.Score,
			DocumentID:     res.DocumentID,
			ChunkID:        res.ChunkID,
			ChunkIndex:     res.ChunkIndex,
			ChunkText:      res.ChunkText,
			SourceLocation: res.SourceLocation,
			Metadata:       res.Metadata,
		}
		rows[i] = model.QueryResult{
			ResultID:        uuid.NewString(),
			QueryID:         queryID,
			DocumentID:      res.DocumentID,
			ChunkID:         res.ChunkID,
			ChunkIndex:      res.ChunkIndex,
			ChunkText:       res.ChunkText,
			SimilarityScore: res.Score,
			ResultRank:      rank,
			SourceLocation:  res.SourceLocation,
			Metadata:        marshalMetadata(res.Metadata),
		}
	}

	if err := s.queries.SaveQuery(record, rows); err != nil {
		return nil, err
	}

	return &QueryOutput{
		QueryID:         queryID,
		Hits:            hits,
		ExecutionTimeMs: elapsed,
	}, nil
}

// History returns recent query invocations for the given scope, newest first.
func (s *QueryService) History(tenantID, userID string, limit int) ([]model.QueryRecord, error) {
	return s.queries.ListRecent(tenantID, userID, limit)
}

func marshalMetadata(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}
