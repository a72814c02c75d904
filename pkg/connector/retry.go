package connector

import (
	"context"
	"time"
)

// RetryPolicy controls how many extra attempts a failed send gets and
// how long to wait between them. Only transient failures are retried.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first. Zero
	// disables retries.
	MaxRetries int
	// Backoff returns the wait before retry attempt n (1-based).
	Backoff func(attempt int) time.Duration
}

// DefaultRetryPolicy retries twice with a linear one-second backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		Backoff:    LinearBackoff(time.Second),
	}
}

// LinearBackoff waits step, 2*step, 3*step between successive attempts.
func LinearBackoff(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// SendWithRetry sends cmd, retrying per policy on transient failures.
// It returns the output of the successful attempt along with the number
// of retries consumed. Device rejections and context cancellation fail
// immediately.
func SendWithRetry(ctx context.Context, sess Session, cmd string, timeout time.Duration, policy RetryPolicy) (output string, retries int, err error) {
	for attempt := 0; ; attempt++ {
		output, err = sess.Send(ctx, cmd, timeout)
		if err == nil {
			return output, attempt, nil
		}
		if !IsTransient(err) || attempt >= policy.MaxRetries {
			return output, attempt, err
		}
		wait := time.Duration(0)
		if policy.Backoff != nil {
			wait = policy.Backoff(attempt + 1)
		}
		select {
		case <-ctx.Done():
			return output, attempt, ctx.Err()
		case <-time.After(wait):
		}
	}
}
