package app

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrIngestInProgress  = errors.New("ingestion already in progress for this source")
	ErrNoExtractableText = errors.New("source contains no extractable text")
	ErrAllChunksFailed   = errors.New("all chunks failed embedding")
	ErrSyncTimeout       = errors.New("knowledge base sync did not reach a terminal state in time")
)
