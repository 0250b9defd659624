package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Backoff returns how long to wait before retry number attempt (1-based).
type Backoff func(attempt int) time.Duration

// ExponentialBackoff waits base, 2*base, 4*base, ... before successive retries.
func ExponentialBackoff(base time.Duration) Backoff {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base * time.Duration(1<<uint(attempt-1))
	}
}

// RetryPolicy bounds the number of generation attempts.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     Backoff
	Logger      *logrus.Logger
}

// DefaultRetryPolicy makes three attempts, waiting 1s and then 2s between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     ExponentialBackoff(time.Second),
	}
}

// RetryError reports that every attempt failed. It unwraps to the last failure.
type RetryError struct {
	Attempts int
	Cause    error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("generation failed after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *RetryError) Unwrap() error {
	return e.Cause
}

// GenerateWithRetry calls gen until it returns non-empty text or the policy's attempts
// are used up. Context cancellation stops the loop immediately.
func GenerateWithRetry(ctx context.Context, gen TextGenerator, prompt string, opts GenerateOptions, policy RetryPolicy) (string, error) {
	defaults := DefaultRetryPolicy()
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = defaults.MaxAttempts
	}
	if policy.Backoff == nil {
		policy.Backoff = defaults.Backoff
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		policy.debug(fmt.Sprintf("generation attempt %d/%d", attempt, policy.MaxAttempts))

		text, err := gen.Generate(ctx, prompt, opts)
		if err == nil && text == "" {
			err = ErrEmptyResponse
		}
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", fmt.Errorf("generation aborted: %w", ctx.Err())
		}
		if attempt == policy.MaxAttempts {
			break
		}

		delay := policy.Backoff(attempt)
		policy.warn(attempt, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("generation aborted during backoff: %w", ctx.Err())
		}
	}

	return "", &RetryError{Attempts: policy.MaxAttempts, Cause: lastErr}
}

func (p RetryPolicy) debug(message string) {
	if p.Logger != nil {
		p.Logger.Debug(message)
	}
}

func (p RetryPolicy) warn(attempt int, delay time.Duration, err error) {
	if p.Logger == nil {
		return
	}
	p.Logger.WithFields(logrus.Fields{
		"attempt":    attempt,
		"max":        p.MaxAttempts,
		"next_delay": delay.String(),
		"error":      err.Error(),
	}).Warn("generation attempt failed, retrying")
}
