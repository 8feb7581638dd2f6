package pdftl

import (
	"context"
	"errors"
	"time"
)

// RetryConfig holds configuration for retrying page fetches.
type RetryConfig struct {
	MaxRetries int           // Maximum number of retry attempts
	BaseDelay  time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Maximum delay between retries
}

// DefaultRetryConfig returns the retry policy used by the CLI.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

// backoff returns the delay before retry number attempt (0-based).
func (c RetryConfig) backoff(attempt int) time.Duration {
	delay := c.BaseDelay * time.Duration(1<<attempt)
	if delay <= 0 || delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// WithRetry calls fn until it succeeds, fails with a non-retryable error, or
// the retries run out. Delays grow exponentially up to MaxDelay.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}

		if attempt < cfg.MaxRetries {
			timer := time.NewTimer(cfg.backoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return zero, lastErr
}

// IsRetryable reports whether err is a transient page fetch failure.
// Cancellation and deadline errors never are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var fetchErr *PageFetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Retryable
	}

	return false
}

// RetryablePageService wraps a PageService with retry logic.
type RetryablePageService struct {
	service PageService
	config  RetryConfig
}

// NewRetryablePageService creates a PageService that retries transient failures.
func NewRetryablePageService(service PageService, cfg RetryConfig) *RetryablePageService {
	return &RetryablePageService{
		service: service,
		config:  cfg,
	}
}

// GetPage implements PageService with retry logic.
func (s *RetryablePageService) GetPage(ctx context.Context, docID string, page int, langs LanguagePair) (*PageContent, error) {
	return WithRetry(ctx, s.config, func() (*PageContent, error) {
		return s.service.GetPage(ctx, docID, page, langs)
	})
}
