package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// HTTPRangeSource is a byte-range source backed by an HTTP server that
// honors Range requests (spec.md §4.1: "HTTP range server"). It issues one
// outstanding request at a time per Read call; the underlying http.Client is
// safe for concurrent use by the caller, but the core never relies on that.
type HTTPRangeSource struct {
	url    string
	client *http.Client
}

// OpenHTTPRange wraps url as a Source, using client for requests. If client
// is nil, http.DefaultClient is used.
func OpenHTTPRange(url string, client *http.Client) *HTTPRangeSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRangeSource{url: url, client: client}
}

func (s *HTTPRangeSource) Read(ctx context.Context, offset, length uint64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("source: build request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+length-1))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source: unexpected status %s", resp.Status)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(resp.Body, buf); err != nil {
		return nil, fmt.Errorf("source: short read: %w", err)
	}
	return buf, nil
}

func (s *HTTPRangeSource) Size(ctx context.Context) (uint64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("source: build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("source: http request: %w", err)
	}
	defer resp.Body.Close()

	length := resp.Header.Get("Content-Length")
	if length == "" {
		return 0, fmt.Errorf("source: server did not return Content-Length")
	}
	size, err := strconv.ParseUint(strings.TrimSpace(length), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("source: parse Content-Length: %w", err)
	}
	return size, nil
}

func (s *HTTPRangeSource) Close() error { return nil }
