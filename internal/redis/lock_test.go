package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestLocker(t *testing.T) (Locker, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisBookingLocker(client, 2*time.Second), client
}

func TestWithBookingLockRunsCallback(t *testing.T) {
	locker, _ := newTestLocker(t)
	proID := uuid.New()

	ran := false
	err := locker.WithBookingLock(context.Background(), proID, "2026-08-31", func(ctx context.Context) error {
		ran = true
		if ctx.Err() != nil {
			t.Fatal("callback context already done")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatal("callback did not run")
	}
}

func TestWithBookingLockContention(t *testing.T) {
	locker, _ := newTestLocker(t)
	proID := uuid.New()

	err := locker.WithBookingLock(context.Background(), proID, "2026-08-31", func(ctx context.Context) error {
		// Same professional-day while held: must be rejected.
		inner := locker.WithBookingLock(ctx, proID, "2026-08-31", func(ctx context.Context) error {
			t.Fatal("nested callback must not run")
			return nil
		})
		if !errors.Is(inner, ErrLockNotAcquired) {
			t.Fatalf("expected ErrLockNotAcquired, got %v", inner)
		}

		// A different day of the same professional is independent.
		return locker.WithBookingLock(ctx, proID, "2026-09-01", func(ctx context.Context) error {
			return nil
		})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWithBookingLockReleasedAfterCallback(t *testing.T) {
	locker, client := newTestLocker(t)
	proID := uuid.New()

	err := locker.WithBookingLock(context.Background(), proID, "2026-08-31", func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key := "lock:pro:" + proID.String() + ":day:2026-08-31"
	if n, _ := client.Exists(context.Background(), key).Result(); n != 0 {
		t.Fatal("lock key should be deleted after the callback returns")
	}

	// Re-acquire immediately.
	err = locker.WithBookingLock(context.Background(), proID, "2026-08-31", func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("re-acquire failed: %v", err)
	}
}

func TestWithBookingLockPropagatesCallbackError(t *testing.T) {
	locker, _ := newTestLocker(t)

	sentinel := errors.New("boom")
	err := locker.WithBookingLock(context.Background(), uuid.New(), "2026-08-31", func(ctx context.Context) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected callback error, got %v", err)
	}
}
