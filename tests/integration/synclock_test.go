//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bidwatch/koneps-sync/internal/synclock"
)

// setupRedis starts a Redis container for the sync lock tests.
func setupRedis(t *testing.T) *redis.Client {
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
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() { client.Close() })

	return client
}

func TestLock_SerializesHolders(t *testing.T) {
	client := setupRedis(t)
	lock := synclock.New(client, time.Minute, zerolog.Nop())
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "notices")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// A second holder is rejected while the first lease is live.
	if _, err := lock.Acquire(ctx, "notices"); !errors.Is(err, synclock.ErrLocked) {
		t.Errorf("second Acquire() error = %v, want ErrLocked", err)
	}

	// A different lease name is independent.
	releaseAwards, err := lock.Acquire(ctx, "awards")
	if err != nil {
		t.Errorf("Acquire(awards) error = %v, want nil", err)
	} else {
		releaseAwards()
	}

	release()

	// After release the lease is free again.
	release2, err := lock.Acquire(ctx, "notices")
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	release2()
}

func TestLock_ExpiredLeaseIsTakenOver(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	shortLock := synclock.New(client, 100*time.Millisecond, zerolog.Nop())
	staleRelease, err := shortLock.Acquire(ctx, "notices")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	lock := synclock.New(client, time.Minute, zerolog.Nop())
	release, err := lock.Acquire(ctx, "notices")
	if err != nil {
		t.Fatalf("Acquire() after expiry error = %v", err)
	}

	// The stale holder's release must not free the new lease.
	staleRelease()
	if _, err := lock.Acquire(ctx, "notices"); !errors.Is(err, synclock.ErrLocked) {
		t.Errorf("Acquire() error = %v, want ErrLocked (new lease still held)", err)
	}

	release()
}
