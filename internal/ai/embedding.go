// Package ai wraps the external embedding service behind an OpenAI-compatible
// HTTP client. Transient failures are retried with exponential backoff; every
// failure that escapes surfaces as a *ServiceError so callers can contain it
// per chunk instead of aborting a whole document.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ServiceError marks an embedding-service failure, distinguishable with
// errors.As for the per-chunk retry/record policy.
type ServiceError struct {
	StatusCode int // 0 on transport errors
	Reason     string
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("embedding service error (status %d): %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("embedding service error: %s", e.Reason)
}

// EmbeddingConfig holds API settings for the embedding endpoint.
type EmbeddingConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Dimension   int
	MaxRetries  int
	RetryBase   time.Duration
	HTTPTimeout time.Duration
}

type EmbeddingClient struct {
	cfg        EmbeddingConfig
	httpClient *http.Client
}

func NewEmbeddingClient(cfg EmbeddingConfig) *EmbeddingClient {
	if cfg.Dimension <= 0 {
		cfg.Dimension = 1536
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &EmbeddingClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Dimension reports the fixed vector length this client enforces.
func (c *EmbeddingClient) Dimension() int {
	return c.cfg.Dimension
}

// Embed returns the embedding vector for the given text. Network errors and
// retryable statuses are attempted up to MaxRetries times with exponential
// backoff; context cancellation stops the attempts immediately.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("embedding input is empty")
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.RetryBase * (1 << (attempt - 1))
			select {
			case <-ctx.Done():
				return nil, &ServiceError{Reason: ctx.Err().Error()}
			case <-time.After(backoff):
			}
		}

		vec, err := c.embedOnce(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		var se *ServiceError
		if errors.As(err, &se) && !retryable(se.StatusCode) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, &ServiceError{Reason: ctx.Err().Error()}
		}
	}
	return nil, lastErr
}

func (c *EmbeddingClient) embedOnce(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]interface{}{
		"model": c.cfg.Model,
		"input": text,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request failed: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build embedding request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{Reason: "read embedding response failed: " + err.Error()}
	}
	if resp.StatusCode >= 300 {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Reason: string(raw)}
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ServiceError{Reason: "parse embedding json failed: " + err.Error()}
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, &ServiceError{Reason: "empty embedding in response"}
	}
	vec := parsed.Data[0].Embedding
	if len(vec) != c.cfg.Dimension {
		return nil, &ServiceError{Reason: fmt.Sprintf("embedding dimension mismatch: got %d, want %d", len(vec), c.cfg.Dimension)}
	}
	return vec, nil
}

// retryable reports whether a response status is worth another attempt.
// Transport errors carry status 0 and are always retried.
func retryable(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= 500
}
