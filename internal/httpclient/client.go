// Package httpclient provides the HTTP plumbing shared by datasources and URL validation:
// a retrying, per-host rate limited Transport and a small GET helper on top of it.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the default overall timeout of a Client.Get call, retries included
	DefaultTimeout = 5 * time.Minute

	// MaxResponseSize is the maximum allowed response size (100MB)
	MaxResponseSize = 100 * 1024 * 1024

	// UserAgent is the user agent string for HTTP requests
	UserAgent = "tools-index/1.0"

	acceptHeader = "application/json, text/html;q=0.9, */*;q=0.8"
)

// Client is an interface for HTTP operations
type Client interface {
	// Get performs an HTTP GET request and returns the response body
	Get(ctx context.Context, url string) ([]byte, error)
	// GetRange fetches length bytes of url starting at offset with a range request
	GetRange(ctx context.Context, url string, offset, length int64) ([]byte, error)
}

// DefaultClient is the default HTTP client implementation
type DefaultClient struct {
	client *http.Client
}

// NewHTTPClient returns an *http.Client sending every request through rt.
// Redirects are followed by the returned client; each hop goes through rt again.
func NewHTTPClient(rt http.RoundTripper, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: rt,
		Timeout:   timeout,
	}
}

// NewDefaultClient creates a Client on top of rt with the given timeout.
// If timeout is 0, uses DefaultTimeout
func NewDefaultClient(rt http.RoundTripper, timeout time.Duration) Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &DefaultClient{client: NewHTTPClient(rt, timeout)}
}

// Get performs an HTTP GET request
func (c *DefaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	return c.get(ctx, url, http.StatusOK, nil)
}

// GetRange performs an HTTP GET request for a byte range of url.
// Servers that ignore the Range header are reported as an HTTPError.
func (c *DefaultClient) GetRange(ctx context.Context, url string, offset, length int64) ([]byte, error) {
	if offset < 0 || length <= 0 {
		return nil, fmt.Errorf("invalid range %d+%d", offset, length)
	}
	if length > MaxResponseSize {
		return nil, fmt.Errorf("range length %d bytes exceeds maximum allowed size of %d bytes", length, MaxResponseSize)
	}
	return c.get(ctx, url, http.StatusPartialContent, func(req *http.Request) {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+length-1))
	})
}

func (c *DefaultClient) get(ctx context.Context, url string, wantStatus int, prepare func(*http.Request)) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", acceptHeader)
	if prepare != nil {
		prepare(req)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != wantStatus {
		return nil, NewHTTPError(resp.StatusCode, url, resp.Status)
	}

	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes (%.2f MB)",
			resp.ContentLength, MaxResponseSize, float64(MaxResponseSize)/(1024*1024))
	}

	// +1 to detect if limit exceeded
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes (%.2f MB)",
			MaxResponseSize, float64(MaxResponseSize)/(1024*1024))
	}

	return body, nil
}
