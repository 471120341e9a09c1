package fetch

import (
	"context"
	"errors"
	"time"

	perr "catalogsync/internal/platform/errors"
	"catalogsync/internal/platform/logger"
	"catalogsync/internal/platform/metrics"

	"github.com/cenkalti/backoff/v5"
)

// Policy is the per-page retry schedule: Attempts total tries, waiting
// Base, 2*Base, 4*Base... between them
type Policy struct {
	Attempts int
	Base     time.Duration
}

// DefaultPolicy is three tries with 500ms then 1s between them
var DefaultPolicy = Policy{Attempts: 3, Base: 500 * time.Millisecond}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Base
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 30 * time.Second
	return b
}

// permanent reports failures another attempt cannot fix
func permanent(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch perr.CodeOf(err) {
	case perr.ErrorCodeUpstream, perr.ErrorCodeInvalidArgument, perr.ErrorCodeValidation:
		return true
	}
	return false
}

// retry runs op under p, logging and counting every retry
func retry[T any](ctx context.Context, p Policy, what string, op func(context.Context) (T, error)) (T, error) {
	attempts := max(p.Attempts, 1)
	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err != nil && permanent(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			metrics.IncFetchRetry()
			logger.C(ctx).Warn().
				Err(err).
				Str("page", what).
				Int("attempt", attempt).
				Int("of", attempts).
				Dur("retry_in", wait).
				Msg("fetch failed, retrying")
		}),
	)
}
