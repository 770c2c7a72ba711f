package provider

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// DefaultRetryBackoff is the fixed delay before the single retry of a
// rate-limited request.
const DefaultRetryBackoff = 2 * time.Second

// MaxRetryAfter bounds how long a Retry-After hint may delay the retry. A
// longer hint skips the retry and returns the rate-limit error.
const MaxRetryAfter = 30 * time.Second

// RetryRateLimited runs fn and, if it fails with *ErrRateLimited, runs it
// exactly once more after the larger of backoff and the error's RetryAfter.
// Any other error is returned immediately. A second rate-limit failure is
// returned to the caller unchanged.
func RetryRateLimited(ctx context.Context, backoff time.Duration, fn func(ctx context.Context) error) error {
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}
	var hint time.Duration
	wait := retry.BackoffFunc(func() (time.Duration, bool) {
		d := max(backoff, hint)
		return d, d > MaxRetryAfter
	})
	return retry.Do(ctx, retry.WithMaxRetries(1, wait), func(ctx context.Context) error {
		err := fn(ctx)
		var rl *ErrRateLimited
		if errors.As(err, &rl) {
			hint = rl.RetryAfter
			return retry.RetryableError(err)
		}
		return err
	})
}

// IsNotFound reports whether err is (or wraps) *ErrNotFound.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

// IsRateLimited reports whether err is (or wraps) *ErrRateLimited.
func IsRateLimited(err error) bool {
	var rl *ErrRateLimited
	return errors.As(err, &rl)
}
