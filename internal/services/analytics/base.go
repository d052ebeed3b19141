package analytics

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	xhttp "StockSense/pkg/http"
)

// ErrNotConfigured is returned when a client has no base URL.
var ErrNotConfigured = errors.New("analytics client not configured")

// BaseOption configures HTTPServiceBase.
type BaseOption func(*HTTPServiceBase)

// HTTPServiceBase is the shared GET+JSON plumbing of the remote source clients.
type HTTPServiceBase struct {
	baseURL  string
	client   *xhttp.Client
	headers  map[string]string
	backoff  time.Duration
	attempts int
}

// NewHTTPServiceBase builds a client rooted at baseURL with a per-request timeout.
func NewHTTPServiceBase(baseURL string, timeout time.Duration, opts ...BaseOption) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b := &HTTPServiceBase{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
		headers:  map[string]string{"Accept": "application/json"},
		backoff:  100 * time.Millisecond,
		attempts: 1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithBearerToken sends an Authorization: Bearer header. Empty tokens are ignored.
func WithBearerToken(token string) BaseOption {
	return func(b *HTTPServiceBase) {
		if token != "" {
			b.headers["Authorization"] = "Bearer " + token
		}
	}
}

// WithHeader sets a header sent on every request.
func WithHeader(key, value string) BaseOption {
	return func(b *HTTPServiceBase) {
		if value != "" {
			b.headers[key] = value
		}
	}
}

// WithRetry sets the total number of attempts and the first backoff step.
func WithRetry(attempts int, backoff time.Duration) BaseOption {
	return func(b *HTTPServiceBase) {
		if attempts > 0 {
			b.attempts = attempts
		}
		if backoff > 0 {
			b.backoff = backoff
		}
	}
}

// GetJSON issues GET baseURL+path with the query and decodes the JSON body into dest.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, query url.Values, dest interface{}) error {
	if b.baseURL == "" {
		return ErrNotConfigured
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         b.baseURL + path,
		Headers:     b.headers,
		QueryParams: query,
	}, dest)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	return nil
}

// GetJSONWithRetry retries transient failures with exponential backoff.
// Decode failures and 4xx statuses (other than 429) are returned immediately.
func (b *HTTPServiceBase) GetJSONWithRetry(ctx context.Context, path string, query url.Values, dest interface{}) error {
	var err error
	wait := b.backoff
	for attempt := 1; attempt <= b.attempts; attempt++ {
		err = b.GetJSON(ctx, path, query, dest)
		if err == nil || !retryable(err) || attempt == b.attempts {
			return err
		}
		select {
		case <-time.After(wait):
			wait *= 2
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		}
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, xhttp.ErrDecodeResponse) || errors.Is(err, ErrNotConfigured) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *xhttp.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return true
}
