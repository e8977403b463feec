package ddg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fastRetry keeps retry tests in the millisecond range.
func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        100 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func serverErr() error {
	return &Error{StatusCode: 503, Class: ErrorClassServer, Endpoint: "images", Err: errors.New("503 Service Unavailable")}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.InitialBackoff != 500*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 500ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 5*time.Second {
		t.Errorf("MaxBackoff = %v, want 5s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	callCount := 0
	err := retryWithBackoff(context.Background(), fastRetry(), zerolog.Nop(), func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_SuccessAfterRetry(t *testing.T) {
	callCount := 0
	start := time.Now()
	err := retryWithBackoff(context.Background(), fastRetry(), zerolog.Nop(), func() error {
		callCount++
		if callCount < 3 {
			return serverErr()
		}
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
	// 10ms + 20ms, each with at most -20% jitter
	if duration < 24*time.Millisecond {
		t.Errorf("Expected some backoff delay, got %v", duration)
	}
}

func TestRetryWithBackoff_MaxAttemptsExhausted(t *testing.T) {
	callCount := 0
	testErr := serverErr()
	err := retryWithBackoff(context.Background(), fastRetry(), zerolog.Nop(), func() error {
		callCount++
		return testErr
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if !errors.Is(err, testErr) {
		t.Errorf("Expected last error to be wrapped, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls (MaxAttempts), got %d", callCount)
	}
}

func TestRetryWithBackoff_NoRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"client error", &Error{StatusCode: 404, Class: ErrorClassClient, Err: errors.New("404 Not Found")}},
		{"decode error", &Error{Class: ErrorClassDecode, Err: errors.New("unexpected EOF")}},
		{"unclassified error", errors.New("create request: bad url")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			callCount := 0
			err := retryWithBackoff(context.Background(), fastRetry(), zerolog.Nop(), func() error {
				callCount++
				return tt.err
			})

			if callCount != 1 {
				t.Errorf("Expected 1 call, got %d", callCount)
			}
			if errors.Is(err, ErrRetryExhausted) {
				t.Error("Should not return ErrRetryExhausted when no retry was attempted")
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("Expected original error, got %v", err)
			}
		})
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := fastRetry()
	cfg.InitialBackoff = time.Second

	callCount := 0
	err := retryWithBackoff(ctx, cfg, zerolog.Nop(), func() error {
		callCount++
		if callCount == 1 {
			cancel()
		}
		return serverErr()
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call before cancellation, got %d", callCount)
	}
}

func TestRetryWithBackoff_ZeroAttempts(t *testing.T) {
	callCount := 0
	_ = retryWithBackoff(context.Background(), RetryConfig{}, zerolog.Nop(), func() error {
		callCount++
		return serverErr()
	})

	if callCount != 1 {
		t.Errorf("Expected a single attempt, got %d", callCount)
	}
}

func TestRetryWithBackoff_MaxBackoffCap(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:       4,
		InitialBackoff:    5 * time.Millisecond,
		MaxBackoff:        10 * time.Millisecond,
		BackoffMultiplier: 100.0,
	}

	timestamps := []time.Time{}
	_ = retryWithBackoff(context.Background(), cfg, zerolog.Nop(), func() error {
		timestamps = append(timestamps, time.Now())
		return serverErr()
	})

	if len(timestamps) != 4 {
		t.Fatalf("Expected 4 timestamps, got %d", len(timestamps))
	}
	// uncapped the third delay would be 50s
	if d := timestamps[3].Sub(timestamps[2]); d > time.Second {
		t.Errorf("Third delay %v was not capped", d)
	}
}
