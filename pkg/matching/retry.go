package matching

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/exp/rand"
)

// StatusError is a non-2xx map-matching response. The status code drives
// retry classification.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("map matching request failed with status %d", e.Code)
}

// IsRetryableError reports whether a failed request is worth retrying:
// rate limits, server errors and network timeouts. Other 4xx responses are
// permanent request errors.
func IsRetryableError(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == 429 || statusErr.Code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// RetryPolicy retries an operation with exponential backoff. Only errors the
// policy classifies as retryable are attempted again.
type RetryPolicy struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	BackoffMultiplier float64
	IsRetryable       func(error) bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       4,
		InitialDelay:      500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		IsRetryable:       IsRetryableError,
	}
}

// Do runs op until it succeeds, fails permanently, exhausts MaxAttempts or
// the context is cancelled.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	delay := p.InitialDelay

	var err error
	for attempt := 1; ; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt >= p.MaxAttempts || !p.IsRetryable(err) {
			return err
		}

		// up to 25% jitter so concurrent chunks don't retry in lockstep
		sleep := delay + time.Duration(rand.Int63n(int64(delay)/4+1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}

		delay = time.Duration(float64(delay) * p.BackoffMultiplier)
	}
}
