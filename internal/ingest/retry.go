package ingest

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds the retry loop wrapped around one page fetch+extract.
type RetryPolicy struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// DefaultRetryPolicy matches the storefronts' observed tolerance: three
// tries with sub-second initial backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// Backoff returns the jittered wait before the next attempt: half the capped
// exponential delay plus a random slice of the other half.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	half := time.Duration(delay / 2)
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

// RetryScheduler executes one logical unit of work under the retry policy,
// classifying failures as transient (retried) or terminal (surfaced at
// once). A unit that keeps failing transiently is attempted exactly
// MaxAttempts times.
type RetryScheduler struct {
	policy RetryPolicy
	log    *zap.Logger
}

// NewRetryScheduler builds a scheduler; a zero-valued policy falls back to
// defaults.
func NewRetryScheduler(policy RetryPolicy, logger *zap.Logger) *RetryScheduler {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryScheduler{policy: policy, log: logger}
}

// Do runs unit until it succeeds, fails terminally, or the attempt budget is
// spent. The exhausted-budget error wraps both ErrMaxAttempts and the last
// transient failure.
func (s *RetryScheduler) Do(ctx context.Context, unit func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < s.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := unit(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		lastErr = err
		if attempt == s.policy.MaxAttempts-1 {
			break
		}
		delay := s.policy.Backoff(attempt)
		s.log.Warn("transient failure, backing off",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.String("class", ErrorClass(err)),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%w (%d): %w", ErrMaxAttempts, s.policy.MaxAttempts, lastErr)
}
