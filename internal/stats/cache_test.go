package stats

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock is an adjustable clock for cache tests.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func TestCache_FreshWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 7, 7, 12, 0, 0, 0, time.UTC)}
	cache := NewCache(clock.Now)

	calls := 0
	cache.Register(KeyPostsPerHour, 20*time.Minute, func(ctx context.Context) (interface{}, error) {
		calls++
		return calls, nil
	})

	v1, stale, err := cache.Get(context.Background(), KeyPostsPerHour)
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	if stale {
		t.Error("first Get should not be stale")
	}

	// 19 minutes later the same value must come back with no refetch.
	clock.Advance(19 * time.Minute)
	v2, stale, err := cache.Get(context.Background(), KeyPostsPerHour)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if stale {
		t.Error("second Get should not be stale")
	}
	if v1 != v2 {
		t.Errorf("value changed within TTL: %v != %v", v1, v2)
	}
	if calls != 1 {
		t.Errorf("fetcher called %d times, want 1", calls)
	}
}

func TestCache_RefreshAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 7, 7, 12, 0, 0, 0, time.UTC)}
	cache := NewCache(clock.Now)

	calls := 0
	cache.Register(KeyPostsPerHour, 20*time.Minute, func(ctx context.Context) (interface{}, error) {
		calls++
		return calls, nil
	})

	if _, _, err := cache.Get(context.Background(), KeyPostsPerHour); err != nil {
		t.Fatalf("first Get: %v", err)
	}
	first, _ := cache.FetchedAt(KeyPostsPerHour)

	clock.Advance(21 * time.Minute)
	v, stale, err := cache.Get(context.Background(), KeyPostsPerHour)
	if err != nil {
		t.Fatalf("Get after TTL: %v", err)
	}
	if stale {
		t.Error("successful refresh must not be marked stale")
	}
	if v != 2 || calls != 2 {
		t.Errorf("expected refetch, got value %v after %d calls", v, calls)
	}
	second, _ := cache.FetchedAt(KeyPostsPerHour)
	if !second.After(first) {
		t.Errorf("fetch timestamp not advanced: %v -> %v", first, second)
	}
}

func TestCache_StaleOnError(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 7, 7, 12, 0, 0, 0, time.UTC)}
	cache := NewCache(clock.Now)

	fail := false
	cache.Register(KeyPostsPerHour, 20*time.Minute, func(ctx context.Context) (interface{}, error) {
		if fail {
			return nil, errors.New("store unreachable")
		}
		return "t0-value", nil
	})

	if _, _, err := cache.Get(context.Background(), KeyPostsPerHour); err != nil {
		t.Fatalf("populate: %v", err)
	}

	clock.Advance(21 * time.Minute)
	fail = true
	v, stale, err := cache.Get(context.Background(), KeyPostsPerHour)
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if !stale {
		t.Error("fallback value must be marked stale")
	}
	if v != "t0-value" {
		t.Errorf("expected last good value, got %v", v)
	}

	// A later successful refresh replaces the stale entry.
	fail = false
	v, stale, err = cache.Get(context.Background(), KeyPostsPerHour)
	if err != nil {
		t.Fatalf("recovered Get: %v", err)
	}
	if stale {
		t.Error("recovered value must not be stale")
	}
	if v != "t0-value" {
		t.Errorf("unexpected value %v", v)
	}
}

func TestCache_ErrorWhenNeverPopulated(t *testing.T) {
	cache := NewCache(nil)
	cache.Register(KeyLabelingProgress, 12*time.Hour, func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("store unreachable")
	})

	if _, _, err := cache.Get(context.Background(), KeyLabelingProgress); err == nil {
		t.Fatal("expected error for never-populated key")
	}
}

func TestCache_KeysRefreshIndependently(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 7, 7, 12, 0, 0, 0, time.UTC)}
	cache := NewCache(clock.Now)

	hourlyCalls, progressCalls := 0, 0
	cache.Register(KeyPostsPerHour, 20*time.Minute, func(ctx context.Context) (interface{}, error) {
		hourlyCalls++
		return hourlyCalls, nil
	})
	cache.Register(KeyLabelingProgress, 12*time.Hour, func(ctx context.Context) (interface{}, error) {
		progressCalls++
		return progressCalls, nil
	})

	ctx := context.Background()
	cache.Get(ctx, KeyPostsPerHour)
	cache.Get(ctx, KeyLabelingProgress)

	// Expire the hourly key only.
	clock.Advance(30 * time.Minute)
	cache.Get(ctx, KeyPostsPerHour)
	cache.Get(ctx, KeyLabelingProgress)

	if hourlyCalls != 2 {
		t.Errorf("hourly fetcher called %d times, want 2", hourlyCalls)
	}
	if progressCalls != 1 {
		t.Errorf("progress fetcher called %d times, want 1", progressCalls)
	}
}

func TestCache_UnregisteredKey(t *testing.T) {
	cache := NewCache(nil)
	if _, _, err := cache.Get(context.Background(), Key("nope")); err == nil {
		t.Fatal("expected error for unregistered key")
	}
}
