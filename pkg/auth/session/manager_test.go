package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type fakeSessionStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{data: make(map[string]string)}
}

func (s *fakeSessionStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = fmt.Sprint(value)
	return nil
}

func (s *fakeSessionStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (s *fakeSessionStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *fakeSessionStore) AccessSessionKey(accessID string) string {
	return "gd:session:access:" + accessID
}

func newTestManager(store *fakeSessionStore) *Manager {
	return &Manager{store: store, keyer: store, ttl: time.Hour}
}

func TestGenerateStoresToken(t *testing.T) {
	store := newFakeSessionStore()
	manager := newTestManager(store)

	token, err := manager.Generate(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty refresh token")
	}
	if stored := store.data[store.AccessSessionKey("acc-1")]; stored != token {
		t.Fatalf("expected stored token %q, got %q", token, stored)
	}

	if _, err := manager.Generate(context.Background(), "  "); err == nil {
		t.Fatal("blank access id must be rejected")
	}
}

func TestRotateInvalidatesOldSession(t *testing.T) {
	store := newFakeSessionStore()
	manager := newTestManager(store)
	ctx := context.Background()

	token, err := manager.Generate(ctx, "acc-2")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, _, err := manager.Rotate(ctx, "acc-2", "forged"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for mismatched token, got %v", err)
	}

	newAccessID, newToken, err := manager.Rotate(ctx, "acc-2", token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if newAccessID == "acc-2" {
		t.Fatal("rotation must issue a fresh access id")
	}
	if _, exists := store.data[store.AccessSessionKey("acc-2")]; exists {
		t.Fatal("old session key must be removed after rotation")
	}
	if stored := store.data[store.AccessSessionKey(newAccessID)]; stored != newToken {
		t.Fatalf("expected new token stored, got %q", stored)
	}

	// The old pair is dead; replaying it must fail.
	if _, _, err := manager.Rotate(ctx, "acc-2", token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected replay to fail, got %v", err)
	}
}

func TestRevokeAndHasSession(t *testing.T) {
	store := newFakeSessionStore()
	manager := newTestManager(store)
	ctx := context.Background()

	if _, err := manager.Generate(ctx, "acc-3"); err != nil {
		t.Fatalf("generate: %v", err)
	}

	active, err := manager.HasSession(ctx, "acc-3")
	if err != nil {
		t.Fatalf("has session: %v", err)
	}
	if !active {
		t.Fatal("expected an active session")
	}

	if err := manager.Revoke(ctx, "acc-3"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	active, err = manager.HasSession(ctx, "acc-3")
	if err != nil {
		t.Fatalf("has session after revoke: %v", err)
	}
	if active {
		t.Fatal("revoked session must not be active")
	}
}
