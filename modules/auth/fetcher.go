package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/guarzo/hrapi/common"
	"github.com/guarzo/hrapi/modules/session"
)

const (
	// LoginRoute is where the user is sent when the session cannot be recovered.
	LoginRoute = "/login"
	// SessionExpiredNotice is the message shown to the user in that case.
	SessionExpiredNotice = "Your session has expired. Please login again."
)

// SessionExpiredHandler surfaces the blocking notice and sends the user to
// the login route. It runs after the session has been cleared and before the
// failing call returns.
type SessionExpiredHandler interface {
	SessionExpired(ctx context.Context, loginRoute string)
}

// SessionExpiredFunc adapts a plain function to SessionExpiredHandler.
type SessionExpiredFunc func(ctx context.Context, loginRoute string)

func (f SessionExpiredFunc) SessionExpired(ctx context.Context, loginRoute string) {
	f(ctx, loginRoute)
}

// logExpired is the default handler.
var logExpired = SessionExpiredFunc(func(_ context.Context, loginRoute string) {
	log.Warn().Str("redirect", loginRoute).Msg(SessionExpiredNotice)
})

// Request describes one call made through the Fetcher. Everything is
// optional; the zero value is a GET of the base URL.
type Request struct {
	Method string
	// URL is absolute, or a path resolved against the Fetcher's base URL.
	URL    string
	Header http.Header
	Body   io.Reader
}

type fetchState int

const (
	stateInitial fetchState = iota
	stateRefreshing
	stateRetry
	stateDone
)

func (s fetchState) String() string {
	switch s {
	case stateInitial:
		return "initial"
	case stateRefreshing:
		return "refreshing"
	case stateRetry:
		return "retry"
	case stateDone:
		return "done"
	}
	return "unknown"
}

// Fetcher issues requests with the stored bearer token and, on a 401,
// refreshes the session once and retries once.
type Fetcher struct {
	baseURL   string
	client    common.HttpClient
	auth      common.AuthClient
	session   *session.Manager
	onExpired SessionExpiredHandler

	// refreshes are shared between concurrent callers
	refreshes singleflight.Group
}

// NewFetcher wires the wrapper. onExpired may be nil, in which case the
// notice is only logged.
func NewFetcher(baseURL string, httpClient common.HttpClient, authClient common.AuthClient, sess *session.Manager, onExpired SessionExpiredHandler) *Fetcher {
	if onExpired == nil {
		onExpired = logExpired
	}
	return &Fetcher{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    httpClient,
		auth:      authClient,
		session:   sess,
		onExpired: onExpired,
	}
}

// Do performs req and returns the response of the original attempt or of the
// single retry that follows a successful refresh. The caller closes the body.
//
// When the refresh fails the session is cleared, the SessionExpiredHandler
// runs and Do returns an error wrapping common.ErrSessionExpired with no
// response.
func (f *Fetcher) Do(ctx context.Context, req Request) (*http.Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	urlStr := f.resolve(req.URL)

	// read the entire body so we can retry
	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		body = b
	}

	tok, err := f.session.Token(ctx)
	if err != nil {
		return nil, err
	}
	access := tok.AccessToken

	var resp *http.Response
	state := stateInitial
	for state != stateDone {
		logger := log.Debug().Str("state", state.String()).Str("method", method).Str("url", urlStr)
		switch state {
		case stateInitial:
			logger.Msg("sending request")
			resp, err = f.send(ctx, method, urlStr, req.Header, body, access)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode == http.StatusUnauthorized && tok.RefreshToken != "" {
				discard(resp)
				state = stateRefreshing
			} else {
				state = stateDone
			}

		case stateRefreshing:
			logger.Msg("access token rejected, refreshing session")
			fresh, err := f.refresh(ctx, access)
			if err != nil {
				return nil, err
			}
			access = fresh.AccessToken
			state = stateRetry

		case stateRetry:
			logger.Msg("retrying with refreshed token")
			resp, err = f.send(ctx, method, urlStr, req.Header, body, access)
			if err != nil {
				return nil, err
			}
			state = stateDone
		}
	}
	return resp, nil
}

// errSessionGone means a concurrent caller already expired the session.
var errSessionGone = errors.New("session already cleared")

// refreshFailure marks errors that must expire the session, as opposed to
// local store errors.
type refreshFailure struct {
	err error
}

func (e *refreshFailure) Error() string { return e.err.Error() }
func (e *refreshFailure) Unwrap() error { return e.err }

// refresh runs one refresh cycle shared by every caller currently waiting on
// a 401. rejected is the access token the server just refused: if the store
// already holds a different one, another caller rotated it and no new
// refresh is needed. If the store holds no refresh token any more, another
// caller's refresh failed and the session is already expired.
//
// The shared cycle runs detached from ctx; ctx only bounds how long this
// caller waits for it.
func (f *Fetcher) refresh(ctx context.Context, rejected string) (*oauth2.Token, error) {
	detached := context.WithoutCancel(ctx)
	ch := f.refreshes.DoChan("refresh", func() (interface{}, error) {
		current, err := f.session.Token(detached)
		if err != nil {
			return nil, err
		}
		if current.AccessToken != "" && current.AccessToken != rejected {
			return current, nil
		}
		if current.RefreshToken == "" {
			return nil, errSessionGone
		}

		tok, err := f.exchange(detached, current.RefreshToken)
		if err != nil {
			f.expire(detached, err)
			return nil, err
		}
		if err := f.session.Save(detached, tok); err != nil {
			return nil, err
		}
		return tok, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Shared {
		log.Debug().Msg("joined in-flight session refresh")
	}
	if res.Err != nil {
		var failure *refreshFailure
		if errors.As(res.Err, &failure) || errors.Is(res.Err, errSessionGone) {
			return nil, fmt.Errorf("%w: %w", common.ErrSessionExpired, res.Err)
		}
		return nil, res.Err
	}
	return res.Val.(*oauth2.Token), nil
}

// exchange calls the refresh endpoint. Every way it can fail is a refreshFailure.
func (f *Fetcher) exchange(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	tok, err := f.auth.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, &refreshFailure{err: err}
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, &refreshFailure{err: fmt.Errorf("refresh response missing access token: %w", common.ErrMalformedResponse)}
	}
	return tok, nil
}

// expire wipes the session and notifies the user.
func (f *Fetcher) expire(ctx context.Context, cause error) {
	log.Warn().Err(cause).Msg("session refresh failed, clearing session")
	if err := f.session.Clear(ctx); err != nil {
		log.Err(err).Msg("failed to clear session")
	}
	f.onExpired.SessionExpired(ctx, LoginRoute)
}

func (f *Fetcher) send(ctx context.Context, method, urlStr string, header http.Header, body []byte, access string) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, urlStr, rdr)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if access != "" {
		(&oauth2.Token{AccessToken: access}).SetAuthHeader(req)
	} else {
		req.Header.Set("Authorization", "")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	return resp, nil
}

func (f *Fetcher) resolve(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	if target != "" && !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	return f.baseURL + target
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
