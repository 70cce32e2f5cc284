// Package httpclient wraps a single outbound HTTP call with a per-attempt
// timeout, a bounded retry loop, and capped exponential backoff.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultTimeout        = 15 * time.Second
	defaultMaxRetries     = 3
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 8 * time.Second
)

// defaultRetryableStatus is the set of response codes worth another attempt.
var defaultRetryableStatus = map[int]bool{
	http.StatusTooManyRequests:    true,
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

// StatusError reports a non-2xx response. Callers can inspect StatusCode to
// distinguish provider-side rejection from transport failure.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

type Options struct {
	Timeout         time.Duration
	MaxRetries      int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	RetryableStatus map[int]bool
	Verbose         bool
}

type Client struct {
	http            *http.Client
	timeout         time.Duration
	maxRetries      int
	initialBackoff  time.Duration
	maxBackoff      time.Duration
	retryableStatus map[int]bool
	verbose         bool
}

// New constructs a Client. Zero-valued options fall back to defaults; the
// per-attempt timeout lives in the request context, not in http.Client, so
// the same underlying transport can serve callers with different budgets.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.RetryableStatus == nil {
		opts.RetryableStatus = defaultRetryableStatus
	}
	return &Client{
		http:            &http.Client{},
		timeout:         opts.Timeout,
		maxRetries:      opts.MaxRetries,
		initialBackoff:  opts.InitialBackoff,
		maxBackoff:      opts.MaxBackoff,
		retryableStatus: opts.RetryableStatus,
		verbose:         opts.Verbose,
	}
}

// Get performs a GET with retry and returns the response body on success.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, headers, nil)
}

// Post performs a POST with retry. The payload is replayed on every attempt.
func (c *Client) Post(ctx context.Context, url string, headers map[string]string, payload []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, url, headers, payload)
}

// attemptOutcome classifies one completed attempt so the retry loop stays a
// plain bounded iteration instead of error-type spaghetti.
type attemptOutcome int

const (
	attemptSuccess attemptOutcome = iota
	attemptRetryable
	attemptFatal
)

func (c *Client) do(ctx context.Context, method, url string, headers map[string]string, payload []byte) ([]byte, error) {
	var lastErr error
	backoff := c.initialBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		body, outcome, err := c.attempt(ctx, method, url, headers, payload, attempt)
		switch outcome {
		case attemptSuccess:
			return body, nil
		case attemptFatal:
			return nil, err
		}
		lastErr = err

		// Don't wait after the last attempt
		if attempt == c.maxRetries {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) attempt(ctx context.Context, method, url string, headers map[string]string, payload []byte, attempt int) ([]byte, attemptOutcome, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, url, reqBody)
	if err != nil {
		return nil, attemptFatal, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		// Transport failures, including the per-attempt timeout, are retryable.
		c.logAttempt(url, attempt, 0, time.Since(start), err)
		return nil, attemptRetryable, fmt.Errorf("http %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.logAttempt(url, attempt, resp.StatusCode, time.Since(start), err)
	if err != nil {
		return nil, attemptRetryable, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, attemptSuccess, nil
	}
	statusErr := &StatusError{StatusCode: resp.StatusCode, URL: url}
	if c.retryableStatus[resp.StatusCode] {
		return nil, attemptRetryable, statusErr
	}
	return nil, attemptFatal, statusErr
}

func (c *Client) logAttempt(url string, attempt, status int, latency time.Duration, err error) {
	if !c.verbose {
		return
	}
	if err != nil {
		slog.Warn("request attempt failed", "url", url, "attempt", attempt, "latency", latency, "error", err)
		return
	}
	slog.Info("request attempt", "url", url, "attempt", attempt, "status", status, "latency", latency)
}
