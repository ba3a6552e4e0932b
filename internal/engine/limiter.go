package engine

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// newLimiter allows rpm requests per minute, one at a time. Zero means unlimited.
func newLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}

// waitAll blocks until every non-nil limiter grants a request.
func waitAll(ctx context.Context, limiters ...*rate.Limiter) error {
	for _, l := range limiters {
		if l == nil {
			continue
		}
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
