package config

import (
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Session store drivers
const (
	StoreMemory  = "memory"
	StoreRedis   = "redis"
	StoreMongoDB = "mongodb"
)

// Config holds all configuration for the gateway module.
type Config struct {
	// Upstream backend
	UpstreamBaseURL string        `env:"UPSTREAM_BASE_URL,required"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"15s"`

	// Session
	SessionSecret    string        `env:"SESSION_SECRET,required"`
	SessionCipherKey string        `env:"SESSION_CIPHER_KEY,required"` // 64 hex chars (32 bytes)
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	SessionIssuer    string        `env:"SESSION_ISSUER" envDefault:"fitness-gateway"`
	SessionStore     string        `env:"SESSION_STORE" envDefault:"memory"` // memory|redis|mongodb

	// Cookie
	CookieName     string `env:"COOKIE_NAME" envDefault:"fg_session"`
	CookiePath     string `env:"COOKIE_PATH" envDefault:"/"`
	CookieDomain   string `env:"COOKIE_DOMAIN" envDefault:""`
	CookieSecure   bool   `env:"COOKIE_SECURE" envDefault:"false"` // set to true in production
	CookieHTTPOnly bool   `env:"COOKIE_HTTP_ONLY" envDefault:"true"`
	CookieSameSite string `env:"COOKIE_SAME_SITE" envDefault:"Lax"` // "Lax", "Strict", "None"

	// Redis (SESSION_STORE=redis)
	Redis RedisConfig

	// MongoDB (SESSION_STORE=mongodb)
	MongoURI      string `env:"MONGODB_URI" envDefault:""`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"fitness_gateway"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host         string `env:"REDIS_HOST" envDefault:"localhost"`
	Port         string `env:"REDIS_PORT" envDefault:"6379"`
	Password     string `env:"REDIS_PASSWORD" envDefault:""`
	Database     int    `env:"REDIS_DATABASE" envDefault:"0"`
	MaxRetries   int    `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	PoolSize     int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int    `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	EnableTLS    bool   `env:"REDIS_ENABLE_TLS" envDefault:"false"`
}

// GetAddr returns the host:port address for the Redis client.
func (c *RedisConfig) GetAddr() string {
	return c.Host + ":" + c.Port
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load configuration from environment: " + err.Error() +
			". Please ensure all required environment variables are set.")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants env tags cannot express.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.UpstreamBaseURL, "http://") && !strings.HasPrefix(c.UpstreamBaseURL, "https://") {
		return errors.New("upstream_base_url must be an absolute http(s) URL")
	}
	if c.SessionSecret == "" {
		return errors.New("session_secret is required")
	}
	if raw, err := hex.DecodeString(c.SessionCipherKey); err != nil || len(raw) != 32 {
		return errors.New("session_cipher_key must be 64 hex characters (a 32-byte key)")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session_ttl must be positive")
	}

	switch c.SessionStore {
	case StoreMemory, StoreRedis:
	case StoreMongoDB:
		if c.MongoURI == "" {
			return errors.New("mongodb_uri is required when session_store is mongodb")
		}
	default:
		return errors.New("session_store must be one of 'memory', 'redis', or 'mongodb'")
	}

	c.CookieSameSite = normalizeSameSite(c.CookieSameSite)
	if c.CookieSameSite == "" {
		return errors.New("cookie_same_site must be one of 'Lax', 'Strict', or 'None'")
	}
	return nil
}

func normalizeSameSite(v string) string {
	switch strings.ToLower(v) {
	case "lax":
		return "Lax"
	case "strict":
		return "Strict"
	case "none":
		return "None"
	default:
		return ""
	}
}
