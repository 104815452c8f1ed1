package common

import "context"

// Fixed slot names under which the session is persisted.
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
)

// SessionStore defines a minimal durable key/value store for session tokens.
//
// For example, you could back this with:
//   - an in-memory map
//   - a YAML file in the user's home directory
//   - SQLite
//   - Redis
type SessionStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	// SetMany writes every pair as a single operation: either all of them
	// are stored or none is.
	SetMany(ctx context.Context, values map[string]string) error
	// Delete removes every given key as a single operation, so a reader never
	// observes only one of them gone.
	Delete(ctx context.Context, keys ...string) error
}
