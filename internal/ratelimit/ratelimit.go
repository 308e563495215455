package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"herostats/internal/config"
	"herostats/internal/metrics"
)

// Limiter throttles outbound API calls to a per-minute and a per-day budget.
// The minute budget has a burst of one, so consecutive calls are spaced by
// 60s/perMinute and no rolling minute ever sees more than perMinute requests.
// The day budget allows its whole allowance up front and refills evenly.
type Limiter struct {
	minute *rate.Limiter
	day    *rate.Limiter
}

func New(perMinute, perDay int) *Limiter {
	l := &Limiter{
		minute: rate.NewLimiter(rate.Inf, 1),
		day:    rate.NewLimiter(rate.Inf, 1),
	}
	if perMinute > 0 {
		l.minute = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
	if perDay > 0 {
		l.day = rate.NewLimiter(rate.Every(24*time.Hour/time.Duration(perDay)), perDay)
	}
	return l
}

// NewFromConfig builds the limiter for the configured API budgets.
func NewFromConfig(cfg *config.Config) *Limiter {
	return New(cfg.RequestsPerMinute, cfg.RequestsPerDay)
}

// Unlimited never waits.
func Unlimited() *Limiter {
	return New(0, 0)
}

// Acquire blocks until one more request fits both budgets. It only fails when
// ctx is done first.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.RateLimitWait.Observe(time.Since(start).Seconds())
	}()

	if err := l.day.Wait(ctx); err != nil {
		return err
	}
	return l.minute.Wait(ctx)
}

// Interval is the enforced spacing between two requests.
func (l *Limiter) Interval() time.Duration {
	limit := l.minute.Limit()
	if limit == rate.Inf || limit <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(limit))
}
