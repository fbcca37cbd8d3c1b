package retry

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/carebridgehq/comms/pkg/comms"
)

// Strategy names a backoff growth curve.
type Strategy string

const (
	StrategyFixed       Strategy = "fixed"
	StrategyLinear      Strategy = "linear"
	StrategyExponential Strategy = "exponential"
)

// Policy computes backoff delays and retry eligibility for failed delivery
// attempts. The zero value is not usable; use NewPolicy or DefaultPolicy.
// Policies are immutable and safe for concurrent use.
type Policy struct {
	Strategy     Strategy
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64
	MaxAttempts  int
}

// DefaultPolicy returns exponential backoff with jitter and three attempts,
// a sane default for transient provider failures.
func DefaultPolicy() Policy {
	return Policy{
		Strategy:     StrategyExponential,
		BaseDelay:    time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		JitterFactor: 0.1,
		MaxAttempts:  3,
	}
}

// NewPolicy validates and returns a policy, filling unset fields from the
// defaults.
func NewPolicy(p Policy) (Policy, error) {
	def := DefaultPolicy()

	if p.Strategy == "" {
		p.Strategy = def.Strategy
	}
	switch p.Strategy {
	case StrategyFixed, StrategyLinear, StrategyExponential:
	default:
		return Policy{}, fmt.Errorf("%w: unknown strategy %q", ErrInvalidPolicy, p.Strategy)
	}

	if p.BaseDelay < 0 || p.MaxDelay < 0 {
		return Policy{}, fmt.Errorf("%w: delays must not be negative", ErrInvalidPolicy)
	}
	if p.JitterFactor < 0 || p.JitterFactor >= 1 {
		return Policy{}, fmt.Errorf("%w: jitter factor must be in [0, 1)", ErrInvalidPolicy)
	}

	if p.BaseDelay == 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.Multiplier == 0 {
		p.Multiplier = def.Multiplier
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}

	return p, nil
}

// NextDelay returns the backoff delay before the given retry attempt.
// Attempt starts at 1 for the first retry; non-positive attempts yield 0.
func (p Policy) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	var delay float64
	switch p.Strategy {
	case StrategyLinear:
		delay = float64(p.BaseDelay) * float64(attempt)
	case StrategyExponential:
		delay = float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	default:
		delay = float64(p.BaseDelay)
	}

	// Spread retry times across concurrent messages to avoid a thundering
	// herd against a recovering provider.
	if p.JitterFactor > 0 {
		delay *= 1 + (rand.Float64()*2-1)*p.JitterFactor
	}

	if max := float64(p.MaxDelay); delay > max {
		delay = max
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

// ShouldRetry reports whether a failed attempt should be re-attempted on the
// same channel. The attempt number counts completed attempts, starting at 1.
func (p Policy) ShouldRetry(attempt int, result comms.DeliveryResult) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	return result.Retryable()
}
