package hrfake

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errInvalidToken = errors.New("invalid or expired token")

// Claims carried by access tokens. The subject is the employee id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type refreshGrant struct {
	employeeID int64
	expires    time.Time
}

// tokenIssuer signs HS256 access tokens and keeps the opaque refresh tokens
// it handed out. Refresh tokens are single use.
type tokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu      sync.Mutex
	refresh map[string]refreshGrant
}

func newTokenIssuer(secret string, accessTTL, refreshTTL time.Duration, now func() time.Time) *tokenIssuer {
	return &tokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
		refresh:    make(map[string]refreshGrant),
	}
}

func (t *tokenIssuer) accessToken(employeeID int64, role string) (string, error) {
	now := t.now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "hrfake",
			Subject:   strconv.FormatInt(employeeID, 10),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// validate returns the employee id and role carried by a live access token.
func (t *tokenIssuer) validate(raw string) (int64, string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return 0, "", errInvalidToken
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, "", errInvalidToken
	}
	return id, claims.Role, nil
}

func (t *tokenIssuer) newRefreshToken(employeeID int64) string {
	tok := uuid.NewString()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refresh[tok] = refreshGrant{employeeID: employeeID, expires: t.now().Add(t.refreshTTL)}
	return tok
}

// redeem consumes a refresh token and returns its employee.
func (t *tokenIssuer) redeem(tok string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	grant, ok := t.refresh[tok]
	if !ok {
		return 0, errInvalidToken
	}
	delete(t.refresh, tok)
	if !t.now().Before(grant.expires) {
		return 0, errInvalidToken
	}
	return grant.employeeID, nil
}

// revoke drops every refresh token of employeeID.
func (t *tokenIssuer) revoke(employeeID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for tok, grant := range t.refresh {
		if grant.employeeID == employeeID {
			delete(t.refresh, tok)
		}
	}
}
