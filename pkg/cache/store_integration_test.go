//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a real Redis and returns its URL.
func setupRedisContainer(t *testing.T) (string, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "redis")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	cleanup := func() {
		container.Terminate(ctx)
	}
	return endpoint, cleanup
}

func TestStore_Integration_RoundTrip(t *testing.T) {
	url, cleanup := setupRedisContainer(t)
	defer cleanup()

	store := New(DefaultConfig(url), zerolog.Nop())
	defer store.Close()
	ctx := context.Background()

	if status := store.Status(ctx); !status.Healthy {
		t.Fatalf("Status() = %+v, want healthy", status)
	}

	want := samplePayload("integration")
	hits := store.Stats().Hits()

	Setex(ctx, store, "integration", want)
	got, ok := Get[imagePayload](ctx, store, "integration")
	if !ok {
		t.Fatal("Get() after Setex returned a miss")
	}
	if got.Query != want.Query || len(got.Results) != len(want.Results) {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
	if store.Stats().Hits() != hits+1 {
		t.Errorf("Hits = %d, want %d", store.Stats().Hits(), hits+1)
	}

	client, err := store.pool.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	ttl, err := client.TTL(ctx, PlainKey(TypeID[imagePayload](), "integration")).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl < DefaultTTL-time.Minute || ttl > DefaultTTL {
		t.Errorf("TTL = %v, want about %v", ttl, DefaultTTL)
	}
}

func TestStore_Integration_Scoped(t *testing.T) {
	url, cleanup := setupRedisContainer(t)
	defer cleanup()

	store := New(DefaultConfig(url), zerolog.Nop())
	defer store.Close()
	ctx := context.Background()

	SetScoped(ctx, store, int64(1), samplePayload("one"))
	SetScoped(ctx, store, int64(2), samplePayload("two"))

	one, ok := GetScoped[imagePayload](ctx, store, int64(1))
	if !ok || one.Query != "one" {
		t.Errorf("GetScoped(1) = %+v, %v", one, ok)
	}
	two, ok := GetScoped[imagePayload](ctx, store, int64(2))
	if !ok || two.Query != "two" {
		t.Errorf("GetScoped(2) = %+v, %v", two, ok)
	}
}

func TestStore_Integration_Outage(t *testing.T) {
	url, cleanup := setupRedisContainer(t)

	store := New(DefaultConfig(url), zerolog.Nop())
	defer store.Close()
	ctx := context.Background()

	Setex(ctx, store, "k", 1)
	cleanup()

	if _, ok := Get[int](ctx, store, "k"); ok {
		t.Error("Get() after container shutdown should miss")
	}
	status := store.Status(ctx)
	if !status.Enabled || status.Healthy {
		t.Errorf("Status() = %+v, want enabled and unhealthy", status)
	}
}
