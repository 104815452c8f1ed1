package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guarzo/hrapi/internal/config"
)

const redisConnectWait = 10 * time.Second

// Open builds the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.SessionConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFile:
		return NewFileStore(cfg.Path)
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	case config.BackendRedis:
		client, err := NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redisConnectWait)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
