package network

import (
	"context"
	"time"
)

// Retry counts failed attempts with a pause between them.
type Retry struct {
	base     time.Duration
	t        time.Duration
	attempts int
	fails    int
}

// NewRetry makes a retry with the delay between attempts.
// Zero attempts means try forever.
func NewRetry(delay time.Duration, attempts int) Retry {
	return Retry{base: delay, t: delay, attempts: attempts}
}

// Fail waits before the next attempt and tells whether there should be one.
func (r *Retry) Fail(ctx context.Context) bool {
	r.fails++
	if r.attempts > 0 && r.fails >= r.attempts {
		return false
	}
	timer := time.NewTimer(r.t)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (r *Retry) Multiply(x int)      { r.t *= time.Duration(x) }
func (r *Retry) Success()            { r.t = r.base; r.fails = 0 }
func (r *Retry) Time() time.Duration { return r.t }
func (r *Retry) Fails() int          { return r.fails }

// Limit caps the delay.
func (r *Retry) Limit(max time.Duration) {
	if r.t > max {
		r.t = max
	}
}
