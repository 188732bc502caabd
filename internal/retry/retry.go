// Package retry implements the bounded retry combinator shared by the
// producer and consumer clients: a generic wrapper over a fallible
// operation, not tied to PUT or GET specifically (per the design note
// that treats it as a reusable higher-order operation).
package retry

import (
	"context"
	"time"

	"github.com/weathermesh/wxfabric/pkg/log"
)

// MaxAttempts is the total number of tries (the first attempt plus up
// to two retries) a bounded operation gets before being abandoned.
const MaxAttempts = 3

// Delay separates consecutive attempts. It is a var, not a const, only
// so tests can shrink it; production code never assigns it.
var Delay = 5 * time.Second

// Op is a fallible operation. Returning a non-nil error triggers a
// retry; attempt is the 1-based number of the current try.
type Op func(attempt int) error

// Bounded runs op up to MaxAttempts times, separated by Delay, stopping
// early on success or when ctx is cancelled. It returns nil if any
// attempt succeeded, ctx.Err() if ctx was cancelled while waiting
// between attempts, and otherwise the error from the last attempt.
func Bounded(ctx context.Context, label string, op Op) error {
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		lastErr = op(attempt)
		if lastErr == nil {
			return nil
		}

		if attempt < MaxAttempts {
			log.Warnf("%s: attempt %d/%d failed: %s; retrying in %s", label, attempt, MaxAttempts, lastErr, Delay)
		}

		if attempt == MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(Delay):
		}
	}
	return lastErr
}
