package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultTTL is the lifetime of memoized entries.
	DefaultTTL = 12 * time.Hour

	// DefaultOperationTimeout bounds a single backend round-trip.
	DefaultOperationTimeout = 2 * time.Second

	// DefaultProbeTimeout bounds a health probe.
	DefaultProbeTimeout = 2 * time.Second

	// DefaultDrainTimeout keeps replaced clients open for in-flight operations.
	DefaultDrainTimeout = 30 * time.Second
)

var tracer = otel.Tracer("github.com/Sternrassler/dinkelberg/pkg/cache")

// Config holds the store configuration.
type Config struct {
	Pool PoolConfig

	// TTL applied to Setex writes. Scoped writes never expire.
	TTL time.Duration

	// OperationTimeout bounds each backend call (0 = caller's context only).
	OperationTimeout time.Duration

	// Codec serializes payloads (nil = JSON).
	Codec Codec
}

// DefaultConfig returns the default configuration for the given URL.
// An empty URL yields a permanently disabled store.
func DefaultConfig(url string) Config {
	return Config{
		Pool: PoolConfig{
			URL:          url,
			PoolSize:     10,
			PoolTimeout:  4 * time.Second,
			ProbeTimeout: DefaultProbeTimeout,
			DrainTimeout: DefaultDrainTimeout,
		},
		TTL:              DefaultTTL,
		OperationTimeout: DefaultOperationTimeout,
		Codec:            JSONCodec{},
	}
}

// Store is the fail-soft cache. Exactly one should exist per process,
// created by the composition root and handed to every component that caches.
//
// A nil *Store is valid and behaves as a disabled cache.
type Store struct {
	pool      *Pool
	stats     *Stats
	codec     Codec
	ttl       time.Duration
	opTimeout time.Duration
	logger    zerolog.Logger
}

// New creates a store. It never fails; see NewPool.
func New(cfg Config, logger zerolog.Logger) *Store {
	logger = logger.With().Str("component", "cache").Logger()

	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Codec == nil {
		cfg.Codec = JSONCodec{}
	}

	s := &Store{
		pool:      NewPool(cfg.Pool, logger),
		stats:     &Stats{},
		codec:     cfg.Codec,
		ttl:       cfg.TTL,
		opTimeout: cfg.OperationTimeout,
		logger:    logger,
	}
	CacheEnabled.Set(boolGauge(s.pool.Enabled()))
	return s
}

// IsEnabled returns true if a backend is configured and not disabled.
func (s *Store) IsEnabled() bool {
	if s == nil {
		return false
	}
	return s.pool.Enabled()
}

// Enable rebuilds the backend client from the configuration.
func (s *Store) Enable() {
	if s == nil {
		return
	}
	s.pool.Enable()
	CacheEnabled.Set(boolGauge(s.pool.Enabled()))
}

// Disable drops the backend client; every operation becomes a no-op/miss.
func (s *Store) Disable() {
	if s == nil {
		return
	}
	s.pool.Disable()
	CacheEnabled.Set(0)
}

// Reinitialize replaces the backend client with a freshly built one.
func (s *Store) Reinitialize() {
	if s == nil {
		return
	}
	s.pool.Reinitialize()
	CacheEnabled.Set(boolGauge(s.pool.Enabled()))
}

// Close releases the backend client.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.pool.Close()
}

// Stats returns the hit/miss counters.
func (s *Store) Stats() *Stats {
	if s == nil {
		return &Stats{}
	}
	return s.stats
}

// TTL returns the expiry applied to memoized entries.
func (s *Store) TTL() time.Duration {
	if s == nil {
		return DefaultTTL
	}
	return s.ttl
}

// Delete removes key. Failures are logged, never returned.
func (s *Store) Delete(ctx context.Context, key string) {
	_ = s.Remove(ctx, key)
}

// Remove is Delete returning the reason it degraded, if any.
func (s *Store) Remove(ctx context.Context, key string) error {
	if s == nil {
		return newError(KindConfigAbsent, "delete", key, ErrDisabled)
	}

	ctx, span := startSpan(ctx, "cache.delete", key)
	defer span.End()

	client, err := s.pool.Acquire()
	if err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := client.Del(ctx, key).Err(); err != nil {
		return s.report(span, newError(classify(err), "delete", key, err))
	}
	s.logger.Debug().Str("key", key).Msg("Deleted from cache")
	return nil
}

// read fetches the raw payload stored under key.
func (s *Store) read(ctx context.Context, span trace.Span, op, key string) ([]byte, error) {
	client, err := s.pool.Acquire()
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		kind := classify(err)
		if kind == KindNotFound {
			err = ErrNotFound
		}
		return nil, s.report(span, newError(kind, op, key, err))
	}
	return data, nil
}

// decode unmarshals a payload into dst.
func (s *Store) decode(span trace.Span, op, key string, data []byte, dst any) error {
	if err := s.codec.Unmarshal(data, dst); err != nil {
		return s.report(span, newError(KindDecode, op, key, err))
	}
	return nil
}

// write encodes value and stores it under key. ttl == 0 stores without expiry.
func (s *Store) write(ctx context.Context, span trace.Span, op, key string, value any, ttl time.Duration) error {
	client, err := s.pool.Acquire()
	if err != nil {
		return err
	}

	payload, err := s.codec.Marshal(value)
	if err != nil {
		return s.report(span, newError(KindEncode, op, key, err))
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var cmd *redis.StatusCmd
	if ttl > 0 {
		cmd = client.SetEx(ctx, key, payload, ttl)
	} else {
		cmd = client.Set(ctx, key, payload, 0)
	}
	if err := cmd.Err(); err != nil {
		return s.report(span, newError(classify(err), op, key, err))
	}

	CacheWrittenBytes.Add(float64(len(payload)))
	s.logger.Debug().
		Str("key", key).
		Int("bytes", len(payload)).
		Dur("ttl", ttl).
		Msg("Stored in cache")
	return nil
}

// report logs a degraded operation and records it in metrics and the span.
func (s *Store) report(span trace.Span, e *Error) *Error {
	switch e.Kind {
	case KindNotFound:
		s.logger.Debug().Str("key", e.Key).Msg("Cache miss")
		return e
	case KindCanceled:
		s.logger.Debug().Str("op", e.Op).Str("key", e.Key).Msg("Cache operation canceled by caller")
		CacheErrors.WithLabelValues(e.Kind.String()).Inc()
		span.RecordError(e)
		return e
	case KindDecode:
		s.logger.Warn().Err(e.Err).Str("op", e.Op).Str("key", e.Key).Msg("Unable to decode cached value")
	case KindEncode:
		s.logger.Error().Err(e.Err).Str("op", e.Op).Str("key", e.Key).Msg("Unable to serialize object for cache")
	default:
		s.logger.Error().
			Err(e.Err).
			Str("op", e.Op).
			Str("key", e.Key).
			Str("kind", e.Kind.String()).
			Msg("Cache operation failed")
	}

	CacheErrors.WithLabelValues(e.Kind.String()).Inc()
	span.RecordError(e)
	span.SetStatus(codes.Error, e.Kind.String())
	return e
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func startSpan(ctx context.Context, name, key string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("cache.key", key)))
}
