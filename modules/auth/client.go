package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/guarzo/hrapi/common"
	"github.com/guarzo/hrapi/common/model"
)

// Auth endpoints, relative to the API base URL.
const (
	LoginPath   = "/auth/login"
	RefreshPath = "/auth/refresh"
	LogoutPath  = "/auth/logout"
)

var _ common.AuthClient = (*client)(nil)

// client implements common.AuthClient against the HR API.
type client struct {
	BaseURL string
	Client  common.HttpClient
}

// NewClient constructs an auth client. The baseURL is typically "http://localhost:8080".
func NewClient(baseURL string, httpClient common.HttpClient) common.AuthClient {
	return &client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  httpClient,
	}
}

// Login posts the credentials. Any failure, whether a rejected status or a
// body without both tokens, is reported as ErrInvalidCredentials.
func (c *client) Login(ctx context.Context, email, password string) (*oauth2.Token, error) {
	pair, err := c.postTokens(ctx, LoginPath, model.LoginRequest{Email: email, Password: password})
	if err != nil {
		var httpErr *common.HTTPError
		if errors.As(err, &httpErr) {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidCredentials, err)
		}
		return nil, err
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return nil, fmt.Errorf("%w: login response missing tokens", common.ErrInvalidCredentials)
	}
	return toOAuth2(pair), nil
}

// RefreshToken exchanges a refresh token for a new pair. The refresh token in
// the result is empty when the server did not rotate it.
func (c *client) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	pair, err := c.postTokens(ctx, RefreshPath, model.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, fmt.Errorf("refresh response missing access token: %w", common.ErrMalformedResponse)
	}
	return toOAuth2(pair), nil
}

// Logout tells the server to drop the session. Callers usually ignore the error.
func (c *client) Logout(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+LogoutPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	(&oauth2.Token{AccessToken: accessToken}).SetAuthHeader(req)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		body, _ := io.ReadAll(resp.Body)
		return common.NewHTTPError(resp.StatusCode, body)
	}
	return nil
}

// postTokens executes the POST and decodes the {data: {accessToken, refreshToken}} envelope.
func (c *client) postTokens(ctx context.Context, path string, payload interface{}) (*model.TokenPair, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if !isSuccess(resp.StatusCode) {
		return nil, common.NewHTTPError(resp.StatusCode, data)
	}

	var env model.Envelope[*model.TokenPair]
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if env.Data == nil {
		return &model.TokenPair{}, nil
	}
	return env.Data, nil
}

func toOAuth2(pair *model.TokenPair) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
