package redis

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/electrix/tracker/internal/core/domain"
)

// Run with REDIS_TEST_ADDR=localhost:6379 go test ./internal/infrastructure/db/redis/...
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client, err := Connect(context.Background(), Config{Addr: addr, DB: 15})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSessionStore_RoundTrip(t *testing.T) {
	store := NewSessionStore(testClient(t), time.Minute)
	ctx := context.Background()
	id := uuid.NewString()

	if _, err := store.Get(ctx, id); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	sess := &domain.Session{ID: id, Auth: domain.AuthSession{AccessToken: "at", User: domain.AuthUser{ID: "u1"}}}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(ctx, id)
	if err != nil || got.Auth.AccessToken != "at" || got.Auth.User.ID != "u1" {
		t.Fatalf("unexpected session %+v, %v", got, err)
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestViewStore_ConcurrentUpdatesAreNotLost(t *testing.T) {
	store := NewViewStore(testClient(t), time.Minute)
	ctx := context.Background()
	sid := uuid.NewString()
	t.Cleanup(func() { _ = store.Clear(context.Background(), sid) })

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Update(ctx, sid, "counter", func(cur []byte) ([]byte, error) {
				return append(cur, 'x'), nil
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, sid, "counter")
	if err != nil || string(got) != "xxxx" {
		t.Fatalf("expected 4 appends, got %q, %v", got, err)
	}
}

func TestViewStore_NilResultLeavesState(t *testing.T) {
	store := NewViewStore(testClient(t), time.Minute)
	ctx := context.Background()
	sid := uuid.NewString()
	t.Cleanup(func() { _ = store.Clear(context.Background(), sid) })

	if err := store.Set(ctx, sid, "team", []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Update(ctx, sid, "team", func([]byte) ([]byte, error) { return nil, nil }); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := store.Get(ctx, sid, "team")
	if string(got) != "v1" {
		t.Fatalf("expected v1, got %q", got)
	}

	if err := store.Clear(ctx, sid); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Get(ctx, sid, "team"); !errors.Is(err, domain.ErrViewNotFound) {
		t.Fatalf("expected ErrViewNotFound, got %v", err)
	}
}

func TestSubmissionGuard_FirstUseOnly(t *testing.T) {
	guard := NewSubmissionGuard(testClient(t))
	ctx := context.Background()
	sid, nonce := uuid.NewString(), uuid.NewString()

	first, err := guard.First(ctx, sid, nonce)
	if err != nil || !first {
		t.Fatalf("expected first use, got %v, %v", first, err)
	}
	again, err := guard.First(ctx, sid, nonce)
	if err != nil || again {
		t.Fatalf("expected duplicate, got %v, %v", again, err)
	}
}
