package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
	apperrors "github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/errors"
)

// maxBodyBytes bounds how much of a catalogue response is read.
const maxBodyBytes = 64 << 20

// StatusError reports a non-2xx answer from the catalogue endpoint.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	return target == apperrors.ErrSourceUnavailable
}

// Temporary reports whether retrying could help: server errors and rate
// limiting, not client errors.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout
}

// HTTPSource reads the catalogue with one GET request.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTP returns a source for url. A zero timeout leaves the request
// bounded only by the caller's context.
func NewHTTP(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Name() string {
	return s.url
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]frame.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: s.url, StatusCode: resp.StatusCode}
	}
	return Decode(io.LimitReader(resp.Body, maxBodyBytes))
}
