package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type replyError string

func (e replyError) Error() string { return string(e) }
func (replyError) RedisError()     {}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"missing key", redis.Nil, KindNotFound},
		{"wrapped missing key", fmt.Errorf("get: %w", redis.Nil), KindNotFound},
		{"closed client", redis.ErrClosed, KindConnectionFailed},
		{"deadline", context.DeadlineExceeded, KindConnectionFailed},
		{"caller canceled", context.Canceled, KindCanceled},
		{"wrapped caller canceled", fmt.Errorf("dial: %w", context.Canceled), KindCanceled},
		{"dial error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, KindConnectionFailed},
		{"error reply", replyError("ERR wrong number of arguments"), KindBackend},
		{"wrong type reply", replyError("WRONGTYPE Operation against a key"), KindBackend},
		{"auth required", replyError("NOAUTH Authentication required."), KindConnectionFailed},
		{"wrong password", replyError("WRONGPASS invalid username-password pair"), KindConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

func TestError(t *testing.T) {
	inner := errors.New("boom")
	err := newError(KindBackend, "get", "int.1", inner)

	assert.Equal(t, `cache get "int.1" (backend): boom`, err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, KindBackend, KindOf(err))
	assert.Equal(t, KindBackend, KindOf(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, KindUnknown, KindOf(inner))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestError_WithoutKey(t *testing.T) {
	err := newError(KindConfigAbsent, "acquire", "", ErrDisabled)
	assert.Equal(t, "cache acquire (config_absent): cache disabled", err.Error())
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestIsMiss(t *testing.T) {
	assert.True(t, IsMiss(newError(KindNotFound, "get", "k", redis.Nil)))
	assert.False(t, IsMiss(newError(KindDecode, "get", "k", errors.New("bad"))))
	assert.False(t, IsMiss(errors.New("other")))
}

func TestKind_String(t *testing.T) {
	kinds := map[Kind]string{
		KindUnknown:          "unknown",
		KindConfigAbsent:     "config_absent",
		KindConnectionFailed: "connection_failed",
		KindBackend:          "backend",
		KindEncode:           "encode",
		KindDecode:           "decode",
		KindNotFound:         "not_found",
		KindCanceled:         "canceled",
	}
	for kind, want := range kinds {
		assert.Equal(t, want, kind.String())
	}
}
