package cache

import "context"

// Get returns the memoized value of type T stored under id.
//
// The second result is false when the value is absent, unreadable or does
// not decode into T; all three count as a miss. A disabled store returns
// immediately without touching the statistics.
func Get[T any](ctx context.Context, s *Store, id any) (T, bool) {
	v, err := Lookup[T](ctx, s, id)
	return v, err == nil
}

// Lookup is Get returning the reason a read degraded.
func Lookup[T any](ctx context.Context, s *Store, id any) (T, error) {
	var zero T
	key := PlainKey(TypeID[T](), id)
	if s == nil {
		return zero, newError(KindConfigAbsent, "get", key, ErrDisabled)
	}

	ctx, span := startSpan(ctx, "cache.get", key)
	defer span.End()

	data, err := s.read(ctx, span, "get", key)
	if err != nil {
		if KindOf(err) != KindConfigAbsent {
			s.stats.miss()
		}
		return zero, err
	}

	var v T
	if err := s.decode(span, "get", key, data, &v); err != nil {
		s.stats.miss()
		return zero, err
	}

	s.stats.hit()
	s.logger.Debug().Str("key", key).Msg("Found in cache")
	return v, nil
}

// Setex memoizes value under id with the store's TTL. The TTL is fixed at
// write time and not renewed by reads. Failures are logged, never returned.
func Setex[T any](ctx context.Context, s *Store, id any, value T) {
	_ = Save(ctx, s, id, value)
}

// Save is Setex returning the reason a write degraded.
func Save[T any](ctx context.Context, s *Store, id any, value T) error {
	key := PlainKey(TypeID[T](), id)
	if s == nil {
		return newError(KindConfigAbsent, "setex", key, ErrDisabled)
	}

	ctx, span := startSpan(ctx, "cache.setex", key)
	defer span.End()

	return s.write(ctx, span, "setex", key, value, s.ttl)
}

// SetScoped stores value as the scope's state for type T, without expiry.
// It persists until overwritten or deleted.
func SetScoped[T any](ctx context.Context, s *Store, scope any, value T) {
	_ = SaveScoped(ctx, s, scope, value)
}

// SaveScoped is SetScoped returning the reason a write degraded.
func SaveScoped[T any](ctx context.Context, s *Store, scope any, value T) error {
	key := ScopedKey(scope, TypeID[T]())
	if s == nil {
		return newError(KindConfigAbsent, "set_scoped", key, ErrDisabled)
	}

	ctx, span := startSpan(ctx, "cache.set_scoped", key)
	defer span.End()

	return s.write(ctx, span, "set_scoped", key, value, 0)
}

// GetScoped returns the scope's state of type T. Scoped reads are not
// counted in the hit/miss statistics.
func GetScoped[T any](ctx context.Context, s *Store, scope any) (T, bool) {
	v, err := LookupScoped[T](ctx, s, scope)
	return v, err == nil
}

// LookupScoped is GetScoped returning the reason a read degraded.
func LookupScoped[T any](ctx context.Context, s *Store, scope any) (T, error) {
	var zero T
	key := ScopedKey(scope, TypeID[T]())
	if s == nil {
		return zero, newError(KindConfigAbsent, "get_scoped", key, ErrDisabled)
	}

	ctx, span := startSpan(ctx, "cache.get_scoped", key)
	defer span.End()

	data, err := s.read(ctx, span, "get_scoped", key)
	if err != nil {
		return zero, err
	}

	var v T
	if err := s.decode(span, "get_scoped", key, data, &v); err != nil {
		return zero, err
	}
	return v, nil
}

// Evict deletes the memoized value of type T stored under id.
func Evict[T any](ctx context.Context, s *Store, id any) {
	s.Delete(ctx, PlainKey(TypeID[T](), id))
}

// EvictScoped deletes the scope's state of type T.
func EvictScoped[T any](ctx context.Context, s *Store, scope any) {
	s.Delete(ctx, ScopedKey(scope, TypeID[T]()))
}
