package extractor

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// Range is a closed interval of durations a randomized wait is drawn from.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// Fixed returns a Range that always yields d.
func Fixed(d time.Duration) Range { return Range{Min: d, Max: d} }

// Pick returns a uniformly random duration in [Min, Max].
func (r Range) Pick() time.Duration {
	if r.Max <= r.Min {
		return max(r.Min, 0)
	}
	return max(r.Min+rand.N(r.Max-r.Min+1), 0)
}

// Pacer spaces detail visits: a randomized courtesy delay between items plus
// an optional hard cap on visits per second shared by all workers.
type Pacer struct {
	delay   Range
	limiter *rate.Limiter
}

// NewPacer builds a Pacer. perSecond <= 0 disables the cap.
func NewPacer(delay Range, perSecond float64) *Pacer {
	p := &Pacer{delay: delay}
	if perSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return p
}

// Pause blocks through d for the courtesy delay, then waits for the limiter.
func (p *Pacer) Pause(ctx context.Context, d PageDriver) error {
	if err := d.Wait(ctx, p.delay.Pick()); err != nil {
		return err
	}
	if p.limiter != nil {
		return p.limiter.Wait(ctx)
	}
	return nil
}
