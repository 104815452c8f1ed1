package hr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/guarzo/hrapi/common"
	"github.com/guarzo/hrapi/common/model"
	"github.com/guarzo/hrapi/modules/auth"
)

// Fetcher is the authenticated transport, normally an *auth.Fetcher.
type Fetcher interface {
	Do(ctx context.Context, req auth.Request) (*http.Response, error)
}

// HrClient defines the lower-level HTTP operations against the HR API.
// Every call goes through the session-guarded Fetcher and every successful
// body is unwrapped from the {data, message} envelope into out (which may be nil).
type HrClient interface {
	GetJSON(ctx context.Context, endpoint string, params map[string]string, out interface{}) error
	PostJSON(ctx context.Context, endpoint string, payload, out interface{}) error
	PutJSON(ctx context.Context, endpoint string, payload, out interface{}) error
	DeleteJSON(ctx context.Context, endpoint string, out interface{}) error
	DoRequest(ctx context.Context, method, endpoint string, params map[string]string, body io.Reader) ([]byte, error)
}

type hrClient struct {
	fetcher    Fetcher
	httpClient common.HttpClient
}

// Some metrics counters
var (
	totalCalls   int64
	successCount int64
	failCount    int64
)

// NewHrClient creates an HrClient. httpClient supplies the retry policy for GETs.
func NewHrClient(fetcher Fetcher, httpClient common.HttpClient) HrClient {
	return &hrClient{
		fetcher:    fetcher,
		httpClient: httpClient,
	}
}

// GetJSON retrieves an envelope and decodes its data into out. Transient
// 5xx failures are retried.
func (c *hrClient) GetJSON(ctx context.Context, endpoint string, params map[string]string, out interface{}) error {
	operation := func() (interface{}, error) {
		return c.DoRequest(ctx, http.MethodGet, endpoint, params, nil)
	}
	result, err := c.httpClient.RetryWithExponentialBackoff(operation)
	if err != nil {
		return err
	}
	return decodeEnvelope(result.([]byte), out)
}

func (c *hrClient) PostJSON(ctx context.Context, endpoint string, payload, out interface{}) error {
	return c.sendJSON(ctx, http.MethodPost, endpoint, payload, out)
}

func (c *hrClient) PutJSON(ctx context.Context, endpoint string, payload, out interface{}) error {
	return c.sendJSON(ctx, http.MethodPut, endpoint, payload, out)
}

func (c *hrClient) DeleteJSON(ctx context.Context, endpoint string, out interface{}) error {
	data, err := c.DoRequest(ctx, http.MethodDelete, endpoint, nil, nil)
	if err != nil {
		return err
	}
	return decodeEnvelope(data, out)
}

func (c *hrClient) sendJSON(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	data, err := c.DoRequest(ctx, method, endpoint, nil, body)
	if err != nil {
		return err
	}
	return decodeEnvelope(data, out)
}

// DoRequest performs the request and returns the raw body of a 2xx response.
// Any other status becomes a *common.HTTPError.
func (c *hrClient) DoRequest(ctx context.Context, method, endpoint string, params map[string]string, body io.Reader) ([]byte, error) {
	target, err := buildURL(endpoint, params)
	if err != nil {
		return nil, err
	}

	resp, err := c.fetcher.Do(ctx, auth.Request{Method: method, URL: target, Body: body})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	atomic.AddInt64(&totalCalls, 1)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		atomic.AddInt64(&failCount, 1)
		log.Debug().Str("method", method).Str("url", target).Int("status", resp.StatusCode).Msg("hr api request failed")
		httpErr := common.NewHTTPError(resp.StatusCode, data)
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %w", common.ErrNotAuthenticated, httpErr)
		}
		return nil, httpErr
	}
	atomic.AddInt64(&successCount, 1)
	return data, nil
}

// Stats returns the request counters since process start.
func Stats() (total, success, failed int64) {
	return atomic.LoadInt64(&totalCalls), atomic.LoadInt64(&successCount), atomic.LoadInt64(&failCount)
}

// buildURL appends params to the endpoint. The Fetcher resolves it against the base URL.
func buildURL(endpoint string, params map[string]string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// decodeEnvelope unwraps {data, message}. Empty bodies are accepted.
func decodeEnvelope(data []byte, out interface{}) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	env := model.Envelope[json.RawMessage]{}
	if err := model.JSONUnmarshal(data, &env); err != nil {
		return common.Wrapf(err, "failed to decode response")
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := model.JSONUnmarshal(env.Data, out); err != nil {
		return common.Wrapf(err, "failed to decode %s data", fmt.Sprintf("%T", out))
	}
	return nil
}
