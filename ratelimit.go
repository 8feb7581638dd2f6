package pdftl

import (
	"context"
	"sync"
	"time"
)

// RateLimitConfig configures the page request rate limiter.
type RateLimitConfig struct {
	RequestsPerMinute int // Sustained page requests per minute (default 120)
	BurstSize         int // Requests allowed back to back (default 4)
}

// RateLimiter is a token bucket shared by every fetch of a navigator, so fast
// paging plus prefetch cannot flood the backend's renderer.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	perSecond  float64
	lastRefill time.Time
	now        func() time.Time
}

// DefaultRateLimitConfig returns the limits used when a field is unset.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerMinute: 120, BurstSize: 4}
}

// NewRateLimiter creates a rate limiter with a full bucket.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	def := DefaultRateLimitConfig()
	rpm := float64(cfg.RequestsPerMinute)
	if rpm <= 0 {
		rpm = float64(def.RequestsPerMinute)
	}
	burst := float64(cfg.BurstSize)
	if burst <= 0 {
		burst = float64(def.BurstSize)
	}

	return &RateLimiter{
		tokens:     burst,
		maxTokens:  burst,
		perSecond:  rpm / 60.0,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait := r.reserve()
		if wait == 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryAcquire takes a token without blocking.
func (r *RateLimiter) TryAcquire() bool {
	return r.reserve() == 0
}

// reserve takes a token if one is available. Otherwise it returns how long
// until the next token.
func (r *RateLimiter) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refillLocked()
	if r.tokens >= 1 {
		r.tokens--
		return 0
	}

	missing := 1 - r.tokens
	wait := time.Duration(missing / r.perSecond * float64(time.Second))
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

func (r *RateLimiter) refillLocked() {
	now := r.now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.lastRefill = now

	r.tokens += elapsed * r.perSecond
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
}

// Available returns the number of tokens currently in the bucket.
func (r *RateLimiter) Available() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refillLocked()
	return r.tokens
}

// RateLimitedPageService wraps a PageService with rate limiting.
type RateLimitedPageService struct {
	service PageService
	limiter *RateLimiter
}

// NewRateLimitedPageService creates a rate-limited PageService.
func NewRateLimitedPageService(service PageService, cfg RateLimitConfig) *RateLimitedPageService {
	return &RateLimitedPageService{
		service: service,
		limiter: NewRateLimiter(cfg),
	}
}

// GetPage implements PageService, waiting for a token first. A cancelled wait
// is reported as a non-retryable PageFetchError.
func (s *RateLimitedPageService) GetPage(ctx context.Context, docID string, page int, langs LanguagePair) (*PageContent, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &PageFetchError{
			Page:    page,
			Message: "rate limit wait cancelled",
			Cause:   err,
		}
	}

	return s.service.GetPage(ctx, docID, page, langs)
}

// Limiter returns the underlying rate limiter for inspection.
func (s *RateLimitedPageService) Limiter() *RateLimiter {
	return s.limiter
}
