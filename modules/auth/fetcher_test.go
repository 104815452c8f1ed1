package auth_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/guarzo/hrapi/common"
	"github.com/guarzo/hrapi/modules/auth"
	"github.com/guarzo/hrapi/modules/session"
)

type mockAuth struct {
	refreshFunc func(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	calls       atomic.Int32
}

func (m *mockAuth) Login(ctx context.Context, email, password string) (*oauth2.Token, error) {
	return nil, errors.New("not implemented")
}
func (m *mockAuth) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	m.calls.Add(1)
	return m.refreshFunc(ctx, refreshToken)
}
func (m *mockAuth) Logout(ctx context.Context, accessToken string) error { return nil }

type expiredRecorder struct {
	mu     sync.Mutex
	routes []string
}

func (e *expiredRecorder) SessionExpired(_ context.Context, loginRoute string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.routes = append(e.routes, loginRoute)
}

// hrServer answers 200 with the bearer it saw when the token is accepted and
// 401 otherwise. It also serves the refresh endpoint through refresh.
type hrServer struct {
	accepted    atomic.Value
	apiHits     atomic.Int32
	refreshHits atomic.Int32
	refresh     http.HandlerFunc
	lastBody    atomic.Value
	lastHeader  atomic.Value
	server      *httptest.Server
}

func newHRServer(t *testing.T, accepted string) *hrServer {
	s := &hrServer{}
	s.accepted.Store(accepted)
	mux := http.NewServeMux()
	mux.HandleFunc(auth.RefreshPath, func(w http.ResponseWriter, r *http.Request) {
		s.refreshHits.Add(1)
		if s.refresh == nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		s.refresh(w, r)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.apiHits.Add(1)
		body, _ := io.ReadAll(r.Body)
		s.lastBody.Store(string(body))
		s.lastHeader.Store(r.Header.Clone())
		if r.Header.Get("Authorization") != "Bearer "+s.accepted.Load().(string) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message":"token expired"}`)
			return
		}
		fmt.Fprintf(w, `{"data":%q}`, r.Header.Get("Authorization"))
	})
	s.server = httptest.NewServer(mux)
	t.Cleanup(s.server.Close)
	return s
}

func newFetcher(t *testing.T, srv *hrServer, authClient common.AuthClient, access, refresh string) (*auth.Fetcher, *session.Manager, *expiredRecorder) {
	t.Helper()
	mgr := session.NewManager(session.NewMemoryStore())
	if access != "" {
		require.NoError(t, mgr.Save(context.Background(), &oauth2.Token{AccessToken: access, RefreshToken: refresh}))
	}
	httpClient := common.NewHRHttpClient("UA", &http.Client{})
	if authClient == nil {
		authClient = auth.NewClient(srv.server.URL, httpClient)
	}
	rec := &expiredRecorder{}
	return auth.NewFetcher(srv.server.URL, httpClient, authClient, mgr, rec), mgr, rec
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestFetcher_ValidTokenSingleRequest(t *testing.T) {
	srv := newHRServer(t, "A1")
	f, mgr, rec := newFetcher(t, srv, nil, "A1", "R1")

	resp, err := f.Do(context.Background(), auth.Request{URL: "/employee/info"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"data":"Bearer A1"}`, readBody(t, resp))

	assert.EqualValues(t, 1, srv.apiHits.Load())
	assert.EqualValues(t, 0, srv.refreshHits.Load())
	assert.Empty(t, rec.routes)

	tok, err := mgr.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A1", tok.AccessToken)
	assert.Equal(t, "R1", tok.RefreshToken)
}

func TestFetcher_RefreshAndRetry(t *testing.T) {
	srv := newHRServer(t, "A2")
	srv.refresh = func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"refreshToken":"R1"}`, string(body))
		fmt.Fprint(w, `{"data":{"accessToken":"A2","refreshToken":"R2"}}`)
	}
	f, mgr, rec := newFetcher(t, srv, nil, "A1", "R1")

	resp, err := f.Do(context.Background(), auth.Request{
		Method: http.MethodPost,
		URL:    "/project",
		Body:   strings.NewReader(`{"name":"Apollo"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"data":"Bearer A2"}`, readBody(t, resp))

	assert.EqualValues(t, 2, srv.apiHits.Load())
	assert.EqualValues(t, 1, srv.refreshHits.Load())
	assert.Equal(t, `{"name":"Apollo"}`, srv.lastBody.Load(), "body replayed on retry")
	assert.Empty(t, rec.routes)

	tok, err := mgr.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A2", tok.AccessToken)
	assert.Equal(t, "R2", tok.RefreshToken)
}

func TestFetcher_RefreshWithoutRotationKeepsRefreshToken(t *testing.T) {
	srv := newHRServer(t, "A2")
	ma := &mockAuth{refreshFunc: func(ctx context.Context, rt string) (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "A2"}, nil
	}}
	f, mgr, _ := newFetcher(t, srv, ma, "A1", "R1")

	resp, err := f.Do(context.Background(), auth.Request{URL: "/employee/info"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	tok, err := mgr.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A2", tok.AccessToken)
	assert.Equal(t, "R1", tok.RefreshToken)
}

func TestFetcher_RetryResponseReturnedAsIs(t *testing.T) {
	srv := newHRServer(t, "never")
	ma := &mockAuth{refreshFunc: func(ctx context.Context, rt string) (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "A2", RefreshToken: "R2"}, nil
	}}
	f, _, rec := newFetcher(t, srv, ma, "A1", "R1")

	resp, err := f.Do(context.Background(), auth.Request{URL: "/employee/info"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	assert.EqualValues(t, 2, srv.apiHits.Load())
	assert.EqualValues(t, 1, ma.calls.Load(), "at most one refresh per call")
	assert.Empty(t, rec.routes)
}

func TestFetcher_NoRefreshTokenReturns401(t *testing.T) {
	srv := newHRServer(t, "A2")
	ma := &mockAuth{refreshFunc: func(ctx context.Context, rt string) (*oauth2.Token, error) {
		t.Fatal("refresh must not be attempted")
		return nil, nil
	}}
	f, mgr, rec := newFetcher(t, srv, ma, "A1", "")

	resp, err := f.Do(context.Background(), auth.Request{URL: "/employee/info"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"message":"token expired"}`, readBody(t, resp))

	assert.EqualValues(t, 1, srv.apiHits.Load())
	assert.EqualValues(t, 0, ma.calls.Load())
	assert.Empty(t, rec.routes)
	assert.True(t, mgr.IsAuthenticated(context.Background()), "session untouched")
}

func TestFetcher_RefreshFailureExpiresSession(t *testing.T) {
	tests := []struct {
		name    string
		refresh func(ctx context.Context, rt string) (*oauth2.Token, error)
	}{
		{
			name: "missing access token",
			refresh: func(ctx context.Context, rt string) (*oauth2.Token, error) {
				return &oauth2.Token{RefreshToken: "R2"}, nil
			},
		},
		{
			name: "network failure",
			refresh: func(ctx context.Context, rt string) (*oauth2.Token, error) {
				return nil, errors.New("dial tcp: connection refused")
			},
		},
		{
			name: "rejected",
			refresh: func(ctx context.Context, rt string) (*oauth2.Token, error) {
				return nil, common.NewHTTPError(http.StatusUnauthorized, []byte(`{"message":"refresh token expired"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newHRServer(t, "A2")
			ma := &mockAuth{refreshFunc: tt.refresh}
			f, mgr, rec := newFetcher(t, srv, ma, "A1", "R1")

			resp, err := f.Do(context.Background(), auth.Request{URL: "/employee/info"})
			require.ErrorIs(t, err, common.ErrSessionExpired)
			assert.Nil(t, resp)

			assert.EqualValues(t, 1, srv.apiHits.Load(), "no retry after a failed refresh")
			assert.Equal(t, []string{auth.LoginRoute}, rec.routes)

			tok, err := mgr.Token(context.Background())
			require.NoError(t, err)
			assert.Empty(t, tok.AccessToken)
			assert.Empty(t, tok.RefreshToken)
		})
	}
}

func TestFetcher_RefreshEndpointMissingAccessToken(t *testing.T) {
	srv := newHRServer(t, "A2")
	srv.refresh = func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"refreshToken":"R2"}}`)
	}
	f, mgr, rec := newFetcher(t, srv, nil, "A1", "R1")

	resp, err := f.Do(context.Background(), auth.Request{URL: "/employee/info"})
	require.ErrorIs(t, err, common.ErrSessionExpired)
	assert.ErrorIs(t, err, common.ErrMalformedResponse)
	assert.Nil(t, resp)
	assert.Len(t, rec.routes, 1)
	assert.False(t, mgr.IsAuthenticated(context.Background()))
}

func TestFetcher_SuccessiveCallsAreIndependent(t *testing.T) {
	srv := newHRServer(t, "A1")
	f, _, _ := newFetcher(t, srv, nil, "A1", "R1")

	for i := 0; i < 2; i++ {
		resp, err := f.Do(context.Background(), auth.Request{URL: "/employee/info"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
	assert.EqualValues(t, 2, srv.apiHits.Load())
	assert.EqualValues(t, 0, srv.refreshHits.Load())
}

func TestFetcher_HeadersMerged(t *testing.T) {
	srv := newHRServer(t, "A1")
	f, _, _ := newFetcher(t, srv, nil, "A1", "R1")

	hdr := http.Header{}
	hdr.Set("X-Trace", "abc")
	hdr.Set("Content-Type", "text/plain")
	hdr.Set("Authorization", "Bearer forged")

	resp, err := f.Do(context.Background(), auth.Request{URL: srv.server.URL + "/employee/info", Header: hdr})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	got := srv.lastHeader.Load().(http.Header)
	assert.Equal(t, "abc", got.Get("X-Trace"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, []string{"Bearer A1"}, got.Values("Authorization"))
}

func TestFetcher_EmptyBearerWithoutSession(t *testing.T) {
	srv := newHRServer(t, "A1")
	f, _, rec := newFetcher(t, srv, nil, "", "")

	resp, err := f.Do(context.Background(), auth.Request{URL: "employee/info"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	got := srv.lastHeader.Load().(http.Header)
	assert.Empty(t, got.Get("Authorization"))
	assert.EqualValues(t, 0, srv.refreshHits.Load())
	assert.Empty(t, rec.routes)
}

func TestFetcher_ConcurrentCallersShareOneRefresh(t *testing.T) {
	srv := newHRServer(t, "A2")
	release := make(chan struct{})
	ma := &mockAuth{refreshFunc: func(ctx context.Context, rt string) (*oauth2.Token, error) {
		<-release
		if rt != "R1" {
			return nil, fmt.Errorf("unexpected refresh token %q", rt)
		}
		return &oauth2.Token{AccessToken: "A2", RefreshToken: "R2"}, nil
	}}
	f, mgr, rec := newFetcher(t, srv, ma, "A1", "R1")

	const callers = 8
	var wg sync.WaitGroup
	statuses := make([]int, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := f.Do(context.Background(), auth.Request{URL: "/employee/info"})
			errs[i] = err
			if err == nil {
				statuses[i] = resp.StatusCode
				resp.Body.Close()
			}
		}(i)
	}
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, http.StatusOK, statuses[i])
	}
	assert.EqualValues(t, 1, ma.calls.Load())
	assert.Empty(t, rec.routes)

	tok, err := mgr.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A2", tok.AccessToken)
	assert.Equal(t, "R2", tok.RefreshToken)
}

func TestFetcher_CanceledContext(t *testing.T) {
	srv := newHRServer(t, "A1")
	f, _, _ := newFetcher(t, srv, nil, "A1", "R1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Do(ctx, auth.Request{URL: "/employee/info"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, srv.apiHits.Load())
}

func TestFetcher_WaitingCallerHonoursDeadline(t *testing.T) {
	srv := newHRServer(t, "A2")
	release := make(chan struct{})
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	t.Cleanup(unblock)

	ma := &mockAuth{refreshFunc: func(ctx context.Context, rt string) (*oauth2.Token, error) {
		<-release
		return &oauth2.Token{AccessToken: "A2", RefreshToken: "R2"}, nil
	}}
	f, mgr, rec := newFetcher(t, srv, ma, "A1", "R1")

	firstDone := make(chan error, 1)
	go func() {
		resp, err := f.Do(context.Background(), auth.Request{URL: "/employee/info"})
		if err == nil {
			resp.Body.Close()
		}
		firstDone <- err
	}()
	require.Eventually(t, func() bool { return ma.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	waiterDone := make(chan error, 1)
	go func() {
		_, err := f.Do(ctx, auth.Request{URL: "/employee/info"})
		waiterDone <- err
	}()

	select {
	case err := <-waiterDone:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("caller kept waiting for the shared refresh after its deadline")
	}

	unblock()
	require.NoError(t, <-firstDone)
	assert.EqualValues(t, 1, ma.calls.Load())
	assert.Empty(t, rec.routes)

	tok, err := mgr.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A2", tok.AccessToken, "the shared refresh still completed")
}

func TestFetcher_LateCallerDoesNotExpireTwice(t *testing.T) {
	arrived := make(chan struct{})
	gate := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Slow") != "" {
			close(arrived)
			<-gate
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	mgr := session.NewManager(session.NewMemoryStore())
	require.NoError(t, mgr.Save(context.Background(), &oauth2.Token{AccessToken: "A1", RefreshToken: "R1"}))
	ma := &mockAuth{refreshFunc: func(ctx context.Context, rt string) (*oauth2.Token, error) {
		return nil, common.NewHTTPError(http.StatusUnauthorized, []byte(`{"message":"refresh token expired"}`))
	}}
	rec := &expiredRecorder{}
	f := auth.NewFetcher(ts.URL, common.NewHRHttpClient("UA", &http.Client{}), ma, mgr, rec)

	slowDone := make(chan error, 1)
	go func() {
		hdr := http.Header{}
		hdr.Set("X-Slow", "1")
		_, err := f.Do(context.Background(), auth.Request{URL: "/employee/info", Header: hdr})
		slowDone <- err
	}()
	<-arrived

	_, err := f.Do(context.Background(), auth.Request{URL: "/employee/info"})
	require.ErrorIs(t, err, common.ErrSessionExpired)
	close(gate)

	err = <-slowDone
	require.ErrorIs(t, err, common.ErrSessionExpired)
	assert.EqualValues(t, 1, ma.calls.Load(), "one refresh attempt")
	assert.Equal(t, []string{auth.LoginRoute}, rec.routes, "one notice")
}
