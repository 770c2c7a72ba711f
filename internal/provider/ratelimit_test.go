package provider

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRateLimiterSpacesCalls(t *testing.T) {
	m := NewRateLimiterMap(map[ProviderName]time.Duration{NameMusicBrainz: 50 * time.Millisecond})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := m.Wait(ctx, NameMusicBrainz); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	// First call is immediate, the next two wait one interval each.
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("3 calls took %v, expected at least ~100ms", elapsed)
	}
}

func TestRateLimiterConcurrentCallers(t *testing.T) {
	m := NewRateLimiterMap(map[ProviderName]time.Duration{NameDiscogs: 30 * time.Millisecond})
	ctx := context.Background()

	var mu sync.Mutex
	var stamps []time.Time
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Wait(ctx, NameDiscogs); err != nil {
				t.Errorf("Wait: %v", err)
				return
			}
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(stamps) != 4 {
		t.Fatalf("expected 4 admissions, got %d", len(stamps))
	}
	first, last := stamps[0], stamps[0]
	for _, s := range stamps {
		if s.Before(first) {
			first = s
		}
		if s.After(last) {
			last = s
		}
	}
	if spread := last.Sub(first); spread < 80*time.Millisecond {
		t.Errorf("admissions spread over %v, expected at least ~90ms", spread)
	}
}

func TestRateLimiterCanceledContext(t *testing.T) {
	m := NewRateLimiterMap(map[ProviderName]time.Duration{NameMusicBrainz: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	if err := m.Wait(ctx, NameMusicBrainz); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	cancel()
	if err := m.Wait(ctx, NameMusicBrainz); err == nil {
		t.Error("expected error from canceled context")
	}
}

func TestRateLimiterIntervals(t *testing.T) {
	m := NewRateLimiterMap(map[ProviderName]time.Duration{NameDeezer: 5 * time.Second})

	if got := m.Interval(NameMusicBrainz); got != time.Second {
		t.Errorf("musicbrainz interval = %v, want 1s", got)
	}
	if got := m.Interval(NameDeezer); got != 5*time.Second {
		t.Errorf("deezer interval = %v, want override 5s", got)
	}
	if got := m.Interval("unknown"); got != fallbackInterval {
		t.Errorf("unknown interval = %v, want fallback", got)
	}
}

func TestNoThrottle(t *testing.T) {
	m := NewRateLimiterMap(NoThrottle())
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 20; i++ {
		if err := m.Wait(ctx, NameMusicBrainz); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("unthrottled waits took %v", elapsed)
	}
}
