package pdftl

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for the limiter.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(cfg RateLimitConfig) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	l := NewRateLimiter(cfg)
	l.now = clock.Now
	l.lastRefill = clock.Now()
	return l, clock
}

func TestRateLimiter_Burst(t *testing.T) {
	limiter, _ := newTestLimiter(RateLimitConfig{RequestsPerMinute: 60, BurstSize: 3})

	for i := 0; i < 3; i++ {
		if !limiter.TryAcquire() {
			t.Errorf("Expected to acquire token %d", i)
		}
	}
	if limiter.TryAcquire() {
		t.Error("Expected fourth acquire to fail")
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	limiter, clock := newTestLimiter(RateLimitConfig{RequestsPerMinute: 60, BurstSize: 2})

	limiter.TryAcquire()
	limiter.TryAcquire()
	if limiter.TryAcquire() {
		t.Fatal("Expected acquire to fail after drain")
	}

	clock.Advance(500 * time.Millisecond)
	if limiter.TryAcquire() {
		t.Error("Half a token should not be enough")
	}

	clock.Advance(time.Second)
	if !limiter.TryAcquire() {
		t.Error("Expected acquire to succeed after refill")
	}

	clock.Advance(time.Hour)
	if got := limiter.Available(); got != 2 {
		t.Errorf("Bucket should cap at burst size, got %f", got)
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	limiter, _ := newTestLimiter(RateLimitConfig{})

	if got := limiter.Available(); got != 4 {
		t.Errorf("Expected default burst of 4, got %f", got)
	}
	if limiter.perSecond != 2 {
		t.Errorf("Expected default 2 tokens/s, got %f", limiter.perSecond)
	}
}

func TestRateLimiter_Wait(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 600, BurstSize: 1})
	limiter.TryAcquire()

	start := time.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Wait returned too quickly: %v", elapsed)
	}
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 1, BurstSize: 1})
	limiter.TryAcquire()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	limiter, _ := newTestLimiter(RateLimitConfig{RequestsPerMinute: 60, BurstSize: 10})

	var wg sync.WaitGroup
	var acquired atomic.Int64
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.TryAcquire() {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := acquired.Load(); got != 10 {
		t.Errorf("Expected 10 acquired, got %d", got)
	}
}

func TestRateLimitedPageService(t *testing.T) {
	svc := newFakeService(3)
	limited := NewRateLimitedPageService(svc, RateLimitConfig{RequestsPerMinute: 600, BurstSize: 2})
	ctx := context.Background()

	for page := 1; page <= 2; page++ {
		if _, err := limited.GetPage(ctx, "doc", page, ptPair); err != nil {
			t.Fatalf("GetPage(%d) failed: %v", page, err)
		}
	}

	start := time.Now()
	if _, err := limited.GetPage(ctx, "doc", 3, ptPair); err != nil {
		t.Fatalf("GetPage(3) failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Expected a rate limit wait, returned in %v", elapsed)
	}
}

func TestRateLimitedPageService_ContextCancelled(t *testing.T) {
	svc := newFakeService(3)
	limited := NewRateLimitedPageService(svc, RateLimitConfig{RequestsPerMinute: 1, BurstSize: 1})

	limited.GetPage(context.Background(), "doc", 1, ptPair)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := limited.GetPage(ctx, "doc", 2, ptPair)
	var fetchErr *PageFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected PageFetchError, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("A cancelled rate limit wait must not be retried")
	}
	if n := svc.callCount("doc", 2, ptPair); n != 0 {
		t.Errorf("Backend should not be called, got %d", n)
	}
}
