// Package source fetches raw document bytes from the external object store.
// The pipeline only needs a byte stream and the stable key string; the store
// itself stays a black box behind a bucket/key GET.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type ObjectStore struct {
	baseURL    string
	httpClient *http.Client
}

func NewObjectStore(baseURL string, timeout time.Duration) *ObjectStore {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ObjectStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the content of bucket/key. The caller owns closing the body.
func (s *ObjectStore) Fetch(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("object reference requires bucket and key")
	}

	target := s.baseURL + "/" + url.PathEscape(bucket) + "/" + escapeKey(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build object request failed: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch object %s/%s failed: %w", bucket, key, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("fetch object %s/%s status %d: %s", bucket, key, resp.StatusCode, string(raw))
	}
	return resp.Body, nil
}

// escapeKey escapes each path segment while keeping the separators, since
// object keys routinely contain slashes.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
