package cache

import (
	"context"
	"errors"
	"testing"
)

type staticSource struct {
	zone  string
	err   error
	calls int
}

func (s *staticSource) FirstDeviceTimezone(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.zone, s.err
}

func TestTimezoneCache_NilClientPassThrough(t *testing.T) {
	source := &staticSource{zone: "Asia/Kolkata"}
	cache, err := NewTimezoneCache(nil, source, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	zone, err := cache.FirstDeviceTimezone(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if zone != "Asia/Kolkata" {
		t.Fatalf("expected Asia/Kolkata, got %q", zone)
	}
	if source.calls != 1 {
		t.Fatalf("expected 1 source call, got %d", source.calls)
	}

	// Invalidate without a client is a no-op, not a panic.
	cache.Invalidate(context.Background(), "user-1")
}

func TestTimezoneCache_SourceErrorPropagates(t *testing.T) {
	boom := errors.New("timeout")
	cache, err := NewTimezoneCache(nil, &staticSource{err: boom}, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = cache.FirstDeviceTimezone(context.Background(), "user-1")
	if !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
}

func TestTimezoneCache_RequiresSource(t *testing.T) {
	if _, err := NewTimezoneCache(nil, nil, 0, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}
