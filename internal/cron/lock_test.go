package cron

import (
	"context"
	"testing"
	"time"
)

type memoryStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) DeleteIfValue(ctx context.Context, key, value string) (bool, error) {
	if v, ok := m.values[key]; !ok || v != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

// expire simulates the TTL running out.
func (m *memoryStore) expire(key string) { delete(m.values, key) }

func TestRedisLockIsExclusiveAndOwnerChecked(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	first, err := NewRedisLock(store, "gs:lock:calendar-resync", 0)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	second, _ := NewRedisLock(store, "gs:lock:calendar-resync", 0)

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if store.ttls["gs:lock:calendar-resync"] != defaultLockTTL {
		t.Fatalf("expected default ttl, got %s", store.ttls["gs:lock:calendar-resync"])
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatal("second instance must not acquire a held lock")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release by non-owner: %v", err)
	}
	if _, ok := store.values["gs:lock:calendar-resync"]; !ok {
		t.Fatal("non-owner release must keep the lock")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("owner release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatal("lock should be free after owner release")
	}
}

func TestRedisLockExpiredOwnerCannotReleaseSuccessor(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	const key = "gs:lock:calendar-resync"
	slow, _ := NewRedisLock(store, key, time.Minute)
	next, _ := NewRedisLock(store, key, time.Minute)

	if ok, _ := slow.Acquire(ctx); !ok {
		t.Fatal("first acquire failed")
	}
	store.expire(key)
	if ok, _ := next.Acquire(ctx); !ok {
		t.Fatal("lock should be free once the lease expired")
	}
	if err := slow.Release(ctx); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if _, held := store.values[key]; !held {
		t.Fatal("stale owner released the successor's lock")
	}
}

func TestNewRedisLockValidates(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", time.Minute); err == nil {
		t.Fatal("expected error for nil client")
	}
	if _, err := NewRedisLock(newMemoryStore(), "", time.Minute); err == nil {
		t.Fatal("expected error for empty key")
	}
}
