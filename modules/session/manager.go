package session

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/oauth2"

	"github.com/guarzo/hrapi/common"
)

// Store is a SessionStore that owns a resource to release.
type Store interface {
	common.SessionStore
	io.Closer
}

// Manager reads and writes the token pair held in a SessionStore.
// It performs no validation of token structure or expiry; the server decides.
type Manager struct {
	store common.SessionStore
}

func NewManager(store common.SessionStore) *Manager {
	return &Manager{store: store}
}

// Token returns the stored pair. Missing slots come back as empty strings.
func (m *Manager) Token(ctx context.Context) (*oauth2.Token, error) {
	access, _, err := m.store.Get(ctx, common.AccessTokenKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read access token: %w", err)
	}
	refresh, _, err := m.store.Get(ctx, common.RefreshTokenKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh token: %w", err)
	}
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}, nil
}

// Save stores the access token and, when the server supplied one, the
// refresh token, in one store operation. An empty refresh token leaves the
// stored one in place.
func (m *Manager) Save(ctx context.Context, tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return fmt.Errorf("refusing to save session without access token: %w", common.ErrMalformedResponse)
	}
	values := map[string]string{common.AccessTokenKey: tok.AccessToken}
	if tok.RefreshToken != "" {
		values[common.RefreshTokenKey] = tok.RefreshToken
	}
	if err := m.store.SetMany(ctx, values); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear removes both tokens in one store operation.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, common.AccessTokenKey, common.RefreshTokenKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether an access token is stored.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	access, ok, err := m.store.Get(ctx, common.AccessTokenKey)
	return err == nil && ok && access != ""
}
