package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Session backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

const envConfigPath = "HRAPI_CONFIG"

type Config struct {
	Env     string        `yaml:"env" env:"HRAPI_ENV" env-default:"local"`
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
	Fake    FakeConfig    `yaml:"fake"`
}

type APIConfig struct {
	BaseURL     string        `yaml:"base_url" env:"HRAPI_BASE_URL" env-default:"http://localhost:8080"`
	UserAgent   string        `yaml:"user_agent" env:"HRAPI_USER_AGENT" env-default:"hrapi-client/1.0"`
	Timeout     time.Duration `yaml:"timeout" env:"HRAPI_TIMEOUT" env-default:"10s"`
	MaxAttempts int           `yaml:"max_attempts" env:"HRAPI_MAX_ATTEMPTS" env-default:"5"`
}

type SessionConfig struct {
	Backend string `yaml:"backend" env:"HRAPI_SESSION_BACKEND" env-default:"file"`
	// Path is the YAML file for the file backend and the database file for sqlite.
	Path          string `yaml:"path" env:"HRAPI_SESSION_PATH" env-default:".hrapi/session.yaml"`
	RedisAddr     string `yaml:"redis_addr" env:"HRAPI_REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password" env:"HRAPI_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"HRAPI_REDIS_DB" env-default:"0"`
	RedisPrefix   string `yaml:"redis_prefix" env:"HRAPI_REDIS_PREFIX" env-default:"hrapi:session:"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"HRAPI_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"HRAPI_LOG_FORMAT" env-default:"console"`
}

// FakeConfig drives the development backend in cmd/hrfake.
type FakeConfig struct {
	Addr       string        `yaml:"addr" env:"HRFAKE_ADDR" env-default:":8080"`
	Secret     string        `yaml:"secret" env:"HRFAKE_SECRET" env-default:"dev-secret-change-me"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"HRFAKE_ACCESS_TTL" env-default:"15m"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"HRFAKE_REFRESH_TTL" env-default:"168h"`
	SeedDemo   bool          `yaml:"seed_demo" env:"HRFAKE_SEED_DEMO" env-default:"true"`
}

// Load reads the YAML file at path when given (falling back to $HRAPI_CONFIG),
// then applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = lookupEnv(envConfigPath)
	}

	cfg := &Config{}
	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read env variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the binaries cannot start with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api base url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api base url %q is not an absolute URL", c.API.BaseURL)
	}

	switch strings.ToLower(c.Session.Backend) {
	case BackendMemory, BackendRedis:
	case BackendFile, BackendSQLite:
		if c.Session.Path == "" {
			return fmt.Errorf("session path is required for the %s backend", c.Session.Backend)
		}
	default:
		return fmt.Errorf("unknown session backend %q (valid: memory, file, sqlite, redis)", c.Session.Backend)
	}

	if c.API.MaxAttempts < 1 {
		return errors.New("api max attempts must be at least 1")
	}
	return nil
}

// Usage describes every supported environment variable.
func Usage() string {
	desc, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return ""
	}
	return desc
}
