package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Kind classifies why a cache operation degraded.
type Kind uint8

const (
	// KindUnknown is returned by KindOf for errors not produced by this package.
	KindUnknown Kind = iota

	// KindConfigAbsent means no backend is configured (or it was disabled).
	KindConfigAbsent

	// KindConnectionFailed covers unreachable backends, pool timeouts and auth failures.
	KindConnectionFailed

	// KindBackend is an error reply from the backend.
	KindBackend

	// KindEncode means the value could not be serialized.
	KindEncode

	// KindDecode means the stored payload does not decode into the requested type.
	KindDecode

	// KindNotFound means the key does not exist (or has expired).
	KindNotFound

	// KindCanceled means the caller gave up before the backend answered.
	KindCanceled
)

// String returns the label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindConfigAbsent:
		return "config_absent"
	case KindConnectionFailed:
		return "connection_failed"
	case KindBackend:
		return "backend"
	case KindEncode:
		return "encode"
	case KindDecode:
		return "decode"
	case KindNotFound:
		return "not_found"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

var (
	// ErrDisabled is wrapped by KindConfigAbsent errors.
	ErrDisabled = errors.New("cache disabled")

	// ErrNotFound is wrapped by KindNotFound errors.
	ErrNotFound = errors.New("cache miss")
)

// Error describes a degraded cache operation.
type Error struct {
	Kind Kind
	Op   string
	Key  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("cache ")
	b.WriteString(e.Op)
	if e.Key != "" {
		fmt.Fprintf(&b, " %q", e.Key)
	}
	fmt.Fprintf(&b, " (%s)", e.Kind)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of a cache error, or KindUnknown.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// IsMiss reports whether err only means the value was not there.
func IsMiss(err error) bool {
	return KindOf(err) == KindNotFound
}

// classify maps a go-redis error to a Kind.
func classify(err error) Kind {
	if errors.Is(err, redis.Nil) {
		return KindNotFound
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, redis.ErrClosed) {
		return KindConnectionFailed
	}

	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return KindConnectionFailed
	}

	var reply redis.Error
	if errors.As(err, &reply) {
		msg := reply.Error()
		if strings.HasPrefix(msg, "NOAUTH") || strings.HasPrefix(msg, "WRONGPASS") {
			return KindConnectionFailed
		}
		return KindBackend
	}

	// dial errors, resets, EOF
	return KindConnectionFailed
}

func newError(kind Kind, op, key string, err error) *Error {
	return &Error{Kind: kind, Op: op, Key: key, Err: err}
}
