// Package kb is the client for the external managed knowledge base: it starts
// sync jobs over stored chunks, reports their status, and runs filtered
// similarity retrieval. The service is polled, never pushed.
package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// JobStatus is the lifecycle of a sync job as reported by the service.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// SyncState is one poll observation of a job.
type SyncState struct {
	Status        JobStatus `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
	DocumentCount int       `json:"document_count,omitempty"`
}

// Filters are forwarded verbatim to the retrieval service; empty fields are
// omitted from the request.
type Filters struct {
	TenantID    string   `json:"tenant_id,omitempty"`
	UserID      string   `json:"user_id,omitempty"`
	ProjectID   string   `json:"project_id,omitempty"`
	ThreadID    string   `json:"thread_id,omitempty"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// RetrieveInput is one similarity search request.
type RetrieveInput struct {
	Vector  []float32 `json:"vector"`
	TopK    int       `json:"top_k"`
	Filters Filters   `json:"filters"`
}

// Result is one retrieval hit, in the order the service returned it.
type Result struct {
	DocumentID     string            `json:"document_id"`
	ChunkID        string            `json:"chunk_id"`
	ChunkIndex     int               `json:"chunk_index"`
	ChunkText      string            `json:"chunk_text"`
	Score          float64           `json:"score"`
	SourceLocation string            `json:"source_location"`
	Metadata       map[string]string `json:"metadata"`
}

// ClientConfig holds connection settings for the knowledge-base service.
type ClientConfig struct {
	BaseURL          string
	APIKey           string
	KnowledgeBaseID  string
	DataSourceID     string
	StartSyncRetries int
	RetryBase        time.Duration
	HTTPTimeout      time.Duration
}

type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.StartSyncRetries <= 0 {
		cfg.StartSyncRetries = 8
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// StartSync asks the service to ingest the given source into the vector
// index and returns the job id. The service rejects overlapping jobs with a
// conflict; those are retried with exponential backoff and jitter.
func (c *Client) StartSync(ctx context.Context, sourceRef string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.StartSyncRetries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.RetryBase*(1<<(attempt-1)) + time.Duration(rand.Int63n(int64(c.cfg.RetryBase)))
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("start sync cancelled: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		jobID, err := c.startSyncOnce(ctx, sourceRef)
		if err == nil {
			return jobID, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", fmt.Errorf("start sync cancelled: %w", ctx.Err())
		}
	}
	return "", fmt.Errorf("start sync failed after %d attempts: %w", c.cfg.StartSyncRetries, lastErr)
}

func (c *Client) startSyncOnce(ctx context.Context, sourceRef string) (string, error) {
	body, err := json.Marshal(map[string]string{"source_ref": sourceRef})
	if err != nil {
		return "", fmt.Errorf("marshal sync request failed: %w", err)
	}

	url := fmt.Sprintf("%s/knowledge-bases/%s/data-sources/%s/sync-jobs",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.KnowledgeBaseID, c.cfg.DataSourceID)
	raw, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", err
	}

	var parsed struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse sync response failed: %w", err)
	}
	if parsed.JobID == "" {
		return "", fmt.Errorf("sync response missing job id")
	}
	return parsed.JobID, nil
}

// SyncStatus fetches the current state of a sync job.
func (c *Client) SyncStatus(ctx context.Context, jobID string) (SyncState, error) {
	url := fmt.Sprintf("%s/knowledge-bases/%s/data-sources/%s/sync-jobs/%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.KnowledgeBaseID, c.cfg.DataSourceID, jobID)
	raw, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return SyncState{}, err
	}

	var state SyncState
	if err := json.Unmarshal(raw, &state); err != nil {
		return SyncState{}, fmt.Errorf("parse sync status failed: %w", err)
	}
	switch state.Status {
	case JobPending, JobRunning, JobSucceeded, JobFailed:
		return state, nil
	default:
		return SyncState{}, fmt.Errorf("unknown sync job status %q", state.Status)
	}
}

// Retrieve runs a filtered similarity search. Results come back in the
// service's own order; the caller assigns ranks without re-sorting.
func (c *Client) Retrieve(ctx context.Context, input RetrieveInput) ([]Result, error) {
	if len(input.Vector) == 0 {
		return nil, fmt.Errorf("retrieve vector is empty")
	}
	if input.TopK <= 0 {
		return nil, fmt.Errorf("retrieve top_k must be positive, got %d", input.TopK)
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal retrieve request failed: %w", err)
	}

	url := fmt.Sprintf("%s/knowledge-bases/%s/retrieve",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.KnowledgeBaseID)
	raw, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Results []Result `json:"results"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse retrieve response failed: %w", err)
	}
	return parsed.Results, nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build kb request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kb request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read kb response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("kb response status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
