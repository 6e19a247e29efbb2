package gate

import "golang.org/x/time/rate"

// Action budget of one page when Options.ActionRateLimit is left zero.
// A login page fires one action per submit.
const (
	DefaultActionRate  = 2.0
	DefaultActionBurst = 5
)

// RateLimitConfig bounds how fast a single page may fire actions. Requests
// over the budget are answered 429 without running the action.
type RateLimitConfig struct {
	// Rate is actions per second. Zero means DefaultActionRate; a negative
	// rate turns limiting off.
	Rate float64

	// Burst is how many actions may fire back to back. Zero means
	// DefaultActionBurst.
	Burst int
}

func (cfg RateLimitConfig) limiter() *rate.Limiter {
	if cfg.Rate < 0 {
		return nil
	}
	r, burst := cfg.Rate, cfg.Burst
	if r == 0 {
		r = DefaultActionRate
	}
	if burst <= 0 {
		burst = DefaultActionBurst
	}
	return rate.NewLimiter(rate.Limit(r), burst)
}

// allowAction takes one token from the page's budget.
func (c *Context) allowAction() bool {
	return c.actionLimiter == nil || c.actionLimiter.Allow()
}
