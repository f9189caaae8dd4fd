package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"join-board/domain"
)

type stubGateway struct {
	loadTasksFn    func(ctx context.Context) ([]any, error)
	loadContactsFn func(ctx context.Context) ([]any, error)
	saveTasksFn    func(ctx context.Context, tasks []domain.Task) error
	saveContactsFn func(ctx context.Context, contacts []domain.Contact) error
}

func (s *stubGateway) LoadTasks(ctx context.Context) ([]any, error) {
	if s.loadTasksFn == nil {
		return nil, errors.New("unexpected LoadTasks call")
	}
	return s.loadTasksFn(ctx)
}

func (s *stubGateway) LoadContacts(ctx context.Context) ([]any, error) {
	if s.loadContactsFn == nil {
		return nil, errors.New("unexpected LoadContacts call")
	}
	return s.loadContactsFn(ctx)
}

func (s *stubGateway) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	if s.saveTasksFn == nil {
		return errors.New("unexpected SaveTasks call")
	}
	return s.saveTasksFn(ctx, tasks)
}

func (s *stubGateway) SaveContacts(ctx context.Context, contacts []domain.Contact) error {
	if s.saveContactsFn == nil {
		return errors.New("unexpected SaveContacts call")
	}
	return s.saveContactsFn(ctx, contacts)
}

func TestCacheLoadTasksMissThenHit(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	var calls int
	cache := NewCache(&stubGateway{
		loadTasksFn: func(ctx context.Context) ([]any, error) {
			calls++
			return []any{map[string]any{"id": "t1", "title": "Write code"}}, nil
		},
	}, client, time.Minute, "")

	first, err := cache.LoadTasks(ctx)
	if err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	if got := loadedIDs(t, first); len(got) != 1 || got[0] != "t1" {
		t.Fatalf("unexpected tasks %v", got)
	}
	if ttl := mr.TTL(cache.tasksCacheKey()); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	cached, err := cache.LoadTasks(ctx)
	if err != nil {
		t.Fatalf("load cached tasks: %v", err)
	}
	if got := loadedIDs(t, cached); len(got) != 1 || got[0] != "t1" {
		t.Fatalf("unexpected cached tasks %v", got)
	}
	if calls != 1 {
		t.Fatalf("expected cached load to avoid backend, calls=%d", calls)
	}
}

func TestCacheSaveEvicts(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	var loads, saves int
	cache := NewCache(&stubGateway{
		loadContactsFn: func(ctx context.Context) ([]any, error) {
			loads++
			return []any{}, nil
		},
		saveContactsFn: func(ctx context.Context, contacts []domain.Contact) error {
			saves++
			return nil
		},
	}, client, time.Minute, "ns")

	if _, err := cache.LoadContacts(ctx); err != nil {
		t.Fatalf("load contacts: %v", err)
	}
	if !mr.Exists("ns:cache:contacts") {
		t.Fatal("expected cached contacts")
	}
	if err := cache.SaveContacts(ctx, nil); err != nil {
		t.Fatalf("save contacts: %v", err)
	}
	if mr.Exists("ns:cache:contacts") {
		t.Fatal("save should evict cached contacts")
	}
	if _, err := cache.LoadContacts(ctx); err != nil {
		t.Fatalf("reload contacts: %v", err)
	}
	if loads != 2 || saves != 1 {
		t.Fatalf("unexpected calls loads=%d saves=%d", loads, saves)
	}
}

func TestCacheSaveErrorKeepsCache(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	cache := NewCache(&stubGateway{
		loadTasksFn: func(ctx context.Context) ([]any, error) { return []any{}, nil },
		saveTasksFn: func(ctx context.Context, tasks []domain.Task) error { return errors.New("down") },
	}, client, time.Minute, "")

	if _, err := cache.LoadTasks(ctx); err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	if err := cache.SaveTasks(ctx, nil); err == nil {
		t.Fatal("expected save error")
	}
	if !mr.Exists(cache.tasksCacheKey()) {
		t.Fatal("failed save must not evict")
	}
}

func TestCacheLoadErrorNotCached(t *testing.T) {
	mr, client := newRedis(t)
	cache := NewCache(&stubGateway{
		loadTasksFn: func(ctx context.Context) ([]any, error) { return nil, errors.New("down") },
	}, client, time.Minute, "")

	if _, err := cache.LoadTasks(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if mr.Exists(cache.tasksCacheKey()) {
		t.Fatal("errors must not be cached")
	}
}

func TestCacheCorruptEntryFallsBack(t *testing.T) {
	mr, client := newRedis(t)
	var calls int
	cache := NewCache(&stubGateway{
		loadTasksFn: func(ctx context.Context) ([]any, error) {
			calls++
			return []any{}, nil
		},
	}, client, 0, "")

	if err := mr.Set(cache.tasksCacheKey(), "not-json"); err != nil {
		t.Fatalf("seed redis: %v", err)
	}
	if _, err := cache.LoadTasks(context.Background()); err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected backend call, got %d", calls)
	}
	if mr.Exists(cache.tasksCacheKey()) {
		t.Fatal("corrupt entry should be deleted and zero TTL should not store")
	}
}
