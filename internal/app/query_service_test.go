package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/kb"
)

func kbResults(n int) []kb.Result {
	out := make([]kb.Result, n)
	for i := range out {
		out[i] = kb.Result{
			DocumentID: "doc-1",
			ChunkID:    "chunk-" + string(rune('a'+i)),
			ChunkIndex: i,
			ChunkText:  "chunk text",
			Score:      1.0 - float64(i)*0.1,
			Metadata:   map[string]string{"category": "finance"},
		}
	}
	return out
}

func TestQueryRanksResultsInServiceOrder(t *testing.T) {
	queries := &fakeQueryStore{}
	retriever := &fakeRetriever{results: []kb.Result{
		{ChunkID: "c1", Score: 0.4},
		{ChunkID: "c2", Score: 0.9}, // service order wins, no local re-sort
		{ChunkID: "c3", Score: 0.9},
	}}
	svc := NewQueryService(queries, &fakeEmbedder{}, retriever)

	out, err := svc.Query(context.Background(), QueryInput{Text: "quarterly revenue", TopK: 3})
	require.NoError(t, err)

	require.Len(t, out.Hits, 3)
	for i, hit := range out.Hits {
		assert.Equal(t, i+1, hit.Rank)
	}
	assert.Equal(t, "c1", out.Hits[0].ChunkID)
	assert.Equal(t, "c2", out.Hits[1].ChunkID)
	assert.Equal(t, "c3", out.Hits[2].ChunkID)
}

func TestQueryTruncatesToTopK(t *testing.T) {
	queries := &fakeQueryStore{}
	retriever := &fakeRetriever{results: kbResults(8)}
	svc := NewQueryService(queries, &fakeEmbedder{}, retriever)

	out, err := svc.Query(context.Background(), QueryInput{Text: "quarterly revenue", TopK: 3})
	require.NoError(t, err)
	assert.Len(t, out.Hits, 3)
	assert.Equal(t, 3, retriever.lastIn.TopK)
}

func TestQueryDefaultsTopK(t *testing.T) {
	queries := &fakeQueryStore{}
	retriever := &fakeRetriever{results: kbResults(2)}
	svc := NewQueryService(queries, &fakeEmbedder{}, retriever)

	_, err := svc.Query(context.Background(), QueryInput{Text: "quarterly revenue"})
	require.NoError(t, err)
	assert.Equal(t, defaultTopK, retriever.lastIn.TopK)
}

func TestQueryForwardsFilters(t *testing.T) {
	queries := &fakeQueryStore{}
	retriever := &fakeRetriever{results: kbResults(1)}
	svc := NewQueryService(queries, &fakeEmbedder{}, retriever)

	filters := kb.Filters{
		TenantID:    "tenant-1",
		UserID:      "user-1",
		ProjectID:   "project-1",
		DocumentIDs: []string{"doc-1", "doc-2"},
	}
	_, err := svc.Query(context.Background(), QueryInput{Text: "quarterly revenue", Filters: filters})
	require.NoError(t, err)
	assert.Equal(t, filters, retriever.lastIn.Filters)
}

func TestQueryPersistsRecordAndResults(t *testing.T) {
	queries := &fakeQueryStore{}
	retriever := &fakeRetriever{results: kbResults(2)}
	svc := NewQueryService(queries, &fakeEmbedder{}, retriever)

	out, err := svc.Query(context.Background(), QueryInput{
		Text:    "  quarterly revenue  ",
		TopK:    2,
		Filters: kb.Filters{TenantID: "tenant-1", UserID: "user-1"},
	})
	require.NoError(t, err)

	require.Len(t, queries.records, 1)
	record := queries.records[0]
	assert.Equal(t, out.QueryID, record.QueryID)
	assert.Equal(t, "quarterly revenue", record.QueryText)
	assert.Equal(t, "tenant-1", record.TenantID)
	assert.Equal(t, "user-1", record.UserID)
	assert.Equal(t, 2, record.ResultCount)

	require.Len(t, queries.results, 1)
	rows := queries.results[0]
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].ResultRank)
	assert.Equal(t, 2, rows[1].ResultRank)
	assert.Equal(t, out.QueryID, rows[0].QueryID)
	assert.Equal(t, "chunk text", rows[0].ChunkText)
	assert.JSONEq(t, `{"category":"finance"}`, rows[0].Metadata)
}

func TestHistoryReturnsNewestFirst(t *testing.T) {
	queries := &fakeQueryStore{}
	retriever := &fakeRetriever{results: kbResults(1)}
	svc := NewQueryService(queries, &fakeEmbedder{}, retriever)

	_, err := svc.Query(context.Background(), QueryInput{Text: "first question"})
	require.NoError(t, err)
	_, err = svc.Query(context.Background(), QueryInput{Text: "second question"})
	require.NoError(t, err)

	records, err := svc.History("", "", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "second question", records[0].QueryText)
	assert.Equal(t, "first question", records[1].QueryText)

	limited, err := svc.History("", "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestQueryRejectsEmptyText(t *testing.T) {
	svc := NewQueryService(&fakeQueryStore{}, &fakeEmbedder{}, &fakeRetriever{})

	_, err := svc.Query(context.Background(), QueryInput{Text: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestQueryPropagatesRetrieveError(t *testing.T) {
	queries := &fakeQueryStore{}
	retriever := &fakeRetriever{err: errors.New("knowledge base unreachable")}
	svc := NewQueryService(queries, &fakeEmbedder{}, retriever)

	_, err := svc.Query(context.Background(), QueryInput{Text: "quarterly revenue"})
	require.Error(t, err)
	assert.Empty(t, queries.records)
}

func TestQueryPropagatesEmbedError(t *testing.T) {
	embedder := &fakeEmbedder{fn: func(string) ([]float32, error) {
		return nil, errors.New("embedding backend unavailable")
	}}
	svc := NewQueryService(&fakeQueryStore{}, embedder, &fakeRetriever{})

	_, err := svc.Query(context.Background(), QueryInput{Text: "quarterly revenue"})
	assert.Error(t, err)
}
