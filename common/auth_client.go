package common

import (
	"context"

	"golang.org/x/oauth2"
)

// AuthClient defines the calls made against the HR API's auth endpoints.
// Token pairs travel as *oauth2.Token so callers can attach them with
// SetAuthHeader.
type AuthClient interface {
	// Login exchanges credentials for a fresh access/refresh pair.
	Login(ctx context.Context, email, password string) (*oauth2.Token, error)
	// RefreshToken attempts to refresh using the given refresh token string.
	// Returns a new *oauth2.Token on success, or an error if refresh fails.
	// The returned RefreshToken is empty when the server did not rotate it.
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	// Logout invalidates the access token server side.
	Logout(ctx context.Context, accessToken string) error
}
