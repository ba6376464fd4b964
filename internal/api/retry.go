package api

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy retries an operation with class-dependent exponential backoff.
// Every attempt, including the first, is preceded by MinDelay so that all
// call sites together stay inside the provider's global rate budget. Each
// call to Do gets a fresh budget; there is no circuit breaking across calls.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MinDelay    time.Duration
	Classify    func(error) Class

	// sleep and randFloat are swapped out in tests.
	sleep     func(ctx context.Context, d time.Duration) error
	randFloat func() float64
}

// DefaultRetryPolicy returns the policy used for provider calls.
func DefaultRetryPolicy(maxAttempts int, baseDelay, minDelay time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MinDelay:    minDelay,
		Classify:    Classify,
	}
}

// Do runs operation until it succeeds, fails permanently, or the attempt
// budget runs out. Exhaustion on retryable errors yields an error matching
// ErrProviderUnavailable that wraps the last attempt's failure.
func (p RetryPolicy) Do(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := p.pause(ctx, p.MinDelay); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		class := p.classify(err)
		if class == ClassPermanent {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		if err := p.pause(ctx, p.backoff(class, attempt)); err != nil {
			return err
		}
	}

	return fmt.Errorf("%w: %d attempts failed: %w", ErrProviderUnavailable, p.MaxAttempts, lastErr)
}

// backoff computes the delay after the given failed attempt (1-based).
// Rate-limit responses back off harder and with more jitter than generic
// transient failures.
func (p RetryPolicy) backoff(class Class, attempt int) time.Duration {
	base := float64(p.BaseDelay)
	jitter := p.rand()

	switch class {
	case ClassRateLimit:
		// base * 3^attempt + random 1..3 seconds
		return time.Duration(base*math.Pow(3, float64(attempt))) +
			time.Duration((1+2*jitter)*float64(time.Second))
	default:
		// base * 2^attempt + random 0..1 seconds
		return time.Duration(base*math.Pow(2, float64(attempt))) +
			time.Duration(jitter*float64(time.Second))
	}
}

// pause sleeps for d unless the context is cancelled first.
func (p RetryPolicy) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p RetryPolicy) classify(err error) Class {
	if p.Classify == nil {
		return Classify(err)
	}
	return p.Classify(err)
}

func (p RetryPolicy) rand() float64 {
	if p.randFloat != nil {
		return p.randFloat()
	}
	return rand.Float64()
}
