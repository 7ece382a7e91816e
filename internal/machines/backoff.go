package machines

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig holds the exponential backoff between machined dial
// attempts.
type BackoffConfig struct {
	Initial    time.Duration // first delay (default: 1s)
	Max        time.Duration // delay cap (default: 5m)
	Multiplier float64       // growth per failure (default: 2)
	JitterPct  float64       // jitter as a fraction of the delay (default: 0.2 = ±10%)
}

// DefaultBackoffConfig returns the backoff used between machined dials.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    time.Second,
		Max:        5 * time.Minute,
		Multiplier: 2,
		JitterPct:  0.2,
	}
}

// Backoff calculates exponential delays with jitter. The seed makes the
// jitter sequence reproducible.
type Backoff struct {
	config   BackoffConfig
	failures int
	rng      *rand.Rand
}

// NewBackoff creates a Backoff with a seeded jitter source.
func NewBackoff(cfg BackoffConfig, seed int64) *Backoff {
	return &Backoff{
		config: cfg,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Next returns the delay after one more failure.
func (b *Backoff) Next() time.Duration {
	delay := b.Calculate()
	b.failures++
	return delay
}

// Calculate returns the delay for the current failure count without
// advancing it.
func (b *Backoff) Calculate() time.Duration {
	delay := float64(b.config.Initial) * math.Pow(b.config.Multiplier, float64(b.failures))
	if delay > float64(b.config.Max) {
		delay = float64(b.config.Max)
	}

	// JitterPct=0.2 spreads the delay ±10%.
	if b.config.JitterPct > 0 {
		spread := delay * b.config.JitterPct
		delay += spread*b.rng.Float64() - spread/2
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Reset clears the failure count after a successful dial.
func (b *Backoff) Reset() {
	b.failures = 0
}

// Failures returns the consecutive failure count.
func (b *Backoff) Failures() int {
	return b.failures
}
