package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/zhangyunhao116/fastrand"
)

// Policy bounds a retry loop: attempts, and an exponential backoff window
// with randomized jitter so many writers racing the same object do not retry
// in lockstep.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy matches the expected contention profile of a single root
// pointer shared by a handful of writers.
var DefaultPolicy = Policy{
	MaxAttempts: 5,
	BaseDelay:   20 * time.Millisecond,
	MaxDelay:    2 * time.Second,
}

// ExhaustedError is returned when fn kept failing retryably until the
// attempt budget ran out.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Do runs fn until it succeeds, fails non-retryably, the context is
// cancelled, or the attempt budget is spent.
func Do(ctx context.Context, policy Policy, retryable func(error) bool, fn func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if waitErr := wait(ctx, backoff(policy, attempt)); waitErr != nil {
				return waitErr
			}
		}
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
	}
	return &ExhaustedError{Attempts: attempts, Last: err}
}

func backoff(policy Policy, attempt int) time.Duration {
	base := policy.BaseDelay
	if base <= 0 {
		base = DefaultPolicy.BaseDelay
	}
	max := policy.MaxDelay
	if max <= 0 {
		max = DefaultPolicy.MaxDelay
	}
	delay := base << (attempt - 1)
	if delay > max || delay <= 0 {
		delay = max
	}
	// Full jitter in [delay/2, delay].
	half := int64(delay / 2)
	return time.Duration(half + fastrand.Int63n(half+1))
}

func wait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
