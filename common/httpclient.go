package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
)

// HttpClient is an interface for HTTP operations with optional retry logic.
// This allows mocking or custom transport layers in testing.
type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
	RetryWithExponentialBackoff(operation func() (interface{}, error)) (interface{}, error)
	SetBackOffForTest(b backoff.BackOff)
}

// HTTPError is a custom error that captures unexpected status codes and response bodies.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unexpected status code: %d, message: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.StatusCode, string(e.Body))
}

// NewHTTPError builds an HTTPError, lifting the "message" field out of a JSON
// error body when the server sent one.
func NewHTTPError(statusCode int, body []byte) *HTTPError {
	httpErr := &HTTPError{StatusCode: statusCode, Body: body}
	var payload struct {
		Message string `json:"message"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		httpErr.Message = payload.Message
	}
	return httpErr
}

// IsStatus reports whether err is an HTTPError with the given status code.
func IsStatus(err error, statusCode int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == statusCode
}

// userAgentRoundTripper is a custom RoundTripper that adds a User-Agent header.
type userAgentRoundTripper struct {
	Wrapped   http.RoundTripper
	UserAgent string
}

func (rt *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone request to avoid mutating the original
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", rt.UserAgent)
	return rt.Wrapped.RoundTrip(clone)
}

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// requestIDRoundTripper stamps every outgoing request with a correlation id
// unless the caller already set one.
type requestIDRoundTripper struct {
	Wrapped http.RoundTripper
}

func (rt *requestIDRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(RequestIDHeader) != "" {
		return rt.Wrapped.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set(RequestIDHeader, uuid.NewString())
	return rt.Wrapped.RoundTrip(clone)
}

// Implementation of HttpClient that wraps a standard *http.Client with retry logic.
type httpClient struct {
	client      *http.Client
	maxAttempts int
	newBackOff  func() backoff.BackOff
}

// Exponential backoff constants
const (
	defaultTimeout     = 10 * time.Second
	defaultMaxAttempts = 5
	baseDelay          = 1 * time.Second
	maxDelay           = 32 * time.Second
)

// Option customises the client built by NewHRHttpClient.
type Option func(*httpClient)

// WithTimeout overrides the default 10s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(h *httpClient) {
		if d > 0 {
			h.client.Timeout = d
		}
	}
}

// WithMaxAttempts bounds RetryWithExponentialBackoff to n attempts in total.
func WithMaxAttempts(n int) Option {
	return func(h *httpClient) {
		if n > 0 {
			h.maxAttempts = n
		}
	}
}

// NewHRHttpClient returns a new HttpClient with a default 10s timeout, a custom
// User-Agent and a request id on every call.
func NewHRHttpClient(userAgent string, base *http.Client, opts ...Option) HttpClient {
	if base.Transport == nil {
		base.Transport = http.DefaultTransport
	}
	base.Transport = &userAgentRoundTripper{
		Wrapped:   &requestIDRoundTripper{Wrapped: base.Transport},
		UserAgent: userAgent,
	}
	base.Timeout = defaultTimeout

	h := &httpClient{
		client:      base,
		maxAttempts: defaultMaxAttempts,
		newBackOff:  defaultBackOff,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseDelay
	b.MaxInterval = maxDelay
	b.MaxElapsedTime = 0
	return b
}

// Implementation of the interface:

func (h *httpClient) Do(req *http.Request) (*http.Response, error) {
	return h.client.Do(req)
}

// RetryWithExponentialBackoff attempts the given operation() multiple times if
// we encounter a retryable HTTPError (5xx gateway/availability statuses).
// Any other error stops the loop immediately.
func (h *httpClient) RetryWithExponentialBackoff(operation func() (interface{}, error)) (interface{}, error) {
	var result interface{}

	op := func() error {
		var err error
		if result, err = operation(); err == nil {
			return nil
		}
		if isRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithMaxRetries(h.newBackOff(), uint64(h.maxAttempts-1))
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return result, nil
}

func isRetryable(err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	switch httpErr.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (h *httpClient) SetBackOffForTest(b backoff.BackOff) {
	h.newBackOff = func() backoff.BackOff { return b }
}
