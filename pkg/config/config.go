// Package config loads the bot configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Sternrassler/dinkelberg/pkg/cache"
	"github.com/Sternrassler/dinkelberg/pkg/logging"
)

// Config holds the process configuration.
type Config struct {
	// BotName is the name commands may be addressed to (/img@BotName). Required.
	BotName string

	// RedisURL enables the cache when set.
	RedisURL string

	// Cache tuning
	CacheTTL              time.Duration
	CachePoolSize         int
	CacheCodec            string
	CacheOperationTimeout time.Duration
	CacheDrainTimeout     time.Duration

	// Logging
	LogLevel  logging.LogLevel
	LogPretty bool

	// Port the HTTP transport listens on.
	Port string

	// OTLPEndpoint enables tracing export when set (host:port).
	OTLPEndpoint string

	// DDGRateLimit caps outbound DuckDuckGo requests per second.
	DDGRateLimit float64
}

// ErrMissingBotName is returned when BOT_NAME is not set.
var ErrMissingBotName = errors.New("BOT_NAME is required")

// Load reads .env (if present) and the environment.
func Load() (Config, error) {
	// a missing .env file is fine
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		BotName:      getenv("BOT_NAME"),
		RedisURL:     getenv("REDIS_URL"),
		CacheCodec:   getOr(getenv, "CACHE_CODEC", "json"),
		LogLevel:     logging.LogLevel(getOr(getenv, "LOG_LEVEL", string(logging.LevelInfo))),
		Port:         getOr(getenv, "PORT", "8080"),
		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if cfg.BotName == "" {
		return Config{}, ErrMissingBotName
	}

	var errs []error
	cfg.CacheTTL = parseDuration(getenv, "CACHE_TTL", cache.DefaultTTL, &errs)
	cfg.CacheOperationTimeout = parseDuration(getenv, "CACHE_OPERATION_TIMEOUT", cache.DefaultOperationTimeout, &errs)
	cfg.CacheDrainTimeout = parseDuration(getenv, "CACHE_DRAIN_TIMEOUT", cache.DefaultDrainTimeout, &errs)
	cfg.CachePoolSize = parseInt(getenv, "CACHE_POOL_SIZE", 10, &errs)
	cfg.LogPretty = parseBool(getenv, "LOG_PRETTY", false, &errs)
	cfg.DDGRateLimit = parseFloat(getenv, "DDG_RATE_LIMIT", 2, &errs)

	if _, err := cache.CodecByName(cfg.CacheCodec); err != nil {
		errs = append(errs, fmt.Errorf("CACHE_CODEC: %w", err))
	}
	if cfg.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive (got %s)", cfg.CacheTTL))
	}
	if cfg.CachePoolSize <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_POOL_SIZE must be positive (got %d)", cfg.CachePoolSize))
	}
	if cfg.DDGRateLimit <= 0 {
		errs = append(errs, fmt.Errorf("DDG_RATE_LIMIT must be positive (got %v)", cfg.DDGRateLimit))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Cache returns the cache store configuration.
func (c Config) Cache() cache.Config {
	cfg := cache.DefaultConfig(c.RedisURL)
	cfg.TTL = c.CacheTTL
	cfg.OperationTimeout = c.CacheOperationTimeout
	cfg.Pool.PoolSize = c.CachePoolSize
	cfg.Pool.DrainTimeout = c.CacheDrainTimeout
	if codec, err := cache.CodecByName(c.CacheCodec); err == nil {
		cfg.Codec = codec
	}
	return cfg
}

// Logging returns the logger configuration.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.LogLevel
	cfg.Pretty = c.LogPretty
	cfg.Service = c.BotName
	return cfg
}

func getOr(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(getenv func(string) string, key string, def time.Duration, errs *[]error) time.Duration {
	raw := getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func parseInt(getenv func(string) string, key string, def int, errs *[]error) int {
	raw := getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func parseFloat(getenv func(string) string, key string, def float64, errs *[]error) float64 {
	raw := getenv(key)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func parseBool(getenv func(string) string, key string, def bool, errs *[]error) bool {
	raw := getenv(key)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}
