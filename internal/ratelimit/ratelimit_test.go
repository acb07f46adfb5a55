package ratelimit

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func TestLimitEnabled(t *testing.T) {
	tests := []struct {
		name  string
		limit Limit
		want  bool
	}{
		{"zero", Limit{}, false},
		{"zero max", Limit{Window: time.Minute}, false},
		{"zero window", Limit{MaxRequests: 10}, false},
		{"configured", Limit{MaxRequests: 10, Window: time.Minute}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.limit.Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	limit := Limit{MaxRequests: 3, Window: time.Minute}

	if r := Check(2, limit); r.Exceeded {
		t.Error("2/3 should be within limit")
	}
	r := Check(3, limit)
	if !r.Exceeded {
		t.Fatal("3/3 should be exceeded")
	}
	if !strings.Contains(r.Reason, "3/3") {
		t.Errorf("reason = %q", r.Reason)
	}
	if Check(100, Limit{}).Exceeded {
		t.Error("disabled limit should never be exceeded")
	}
}

func TestAllowWithinWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(Limit{MaxRequests: 2, Window: time.Minute})
	l.now = fixedClock(&now)

	for i := 0; i < 2; i++ {
		if r := l.Allow("a"); r.Exceeded {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if r := l.Allow("a"); !r.Exceeded {
		t.Fatal("third request should be rejected")
	}
	if r := l.Allow("b"); r.Exceeded {
		t.Error("keys must not share a window")
	}
}

func TestAllowResetsAfterWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(Limit{MaxRequests: 1, Window: time.Minute})
	l.now = fixedClock(&now)

	l.Allow("a")
	if !l.Allow("a").Exceeded {
		t.Fatal("expected rejection inside window")
	}
	now = now.Add(time.Minute)
	if l.Allow("a").Exceeded {
		t.Error("window should reset")
	}
}

func TestAllowDisabled(t *testing.T) {
	l := New(Limit{})
	for i := 0; i < 100; i++ {
		if l.Allow("a").Exceeded {
			t.Fatal("disabled limiter rejected a request")
		}
	}
	if l.Len() != 0 {
		t.Errorf("disabled limiter should not track keys, got %d", l.Len())
	}
}

func TestSweepDropsExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(Limit{MaxRequests: 1, Window: time.Minute})
	l.now = fixedClock(&now)

	l.Allow("old")
	now = now.Add(2 * time.Minute)
	l.mu.Lock()
	l.sweep(now)
	l.mu.Unlock()
	if l.Len() != 0 {
		t.Errorf("expected expired window swept, %d left", l.Len())
	}
}

func TestAllowConcurrent(t *testing.T) {
	l := New(Limit{MaxRequests: 50, Window: time.Hour})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !l.Allow("shared").Exceeded {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 50 {
		t.Errorf("allowed = %d, want 50", allowed)
	}
}
