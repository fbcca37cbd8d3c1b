package ratelimiter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config defines the token bucket configuration for one adapter instance.
type Config struct {
	Capacity       int           // Maximum tokens the bucket can hold (burst limit)
	RefillRate     int           // Number of tokens added per refill interval
	RefillInterval time.Duration // How often tokens are added
}

func (c Config) validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive, got %v", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}

// Result describes the bucket state observed by an acquisition attempt.
type Result struct {
	Allowed   bool      // Whether the token was granted
	Limit     int       // Bucket capacity
	Remaining int       // Tokens remaining after the attempt
	ResetAt   time.Time // When the next refill happens
}

// RetryAfter returns how long to wait before the next attempt has a chance
// of succeeding. Returns 0 if the attempt was allowed.
func (r Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Bucket is a token-bucket rate limiter for a single adapter instance.
// All accounting happens under one mutex so concurrent send calls to the
// same adapter observe a consistent token count. Unrelated adapters hold
// unrelated buckets and never contend.
type Bucket struct {
	mu         sync.Mutex
	cfg        Config
	tokens     int
	lastRefill time.Time
}

// New creates a token bucket, full at creation time.
func New(cfg Config) (*Bucket, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Bucket{
		cfg:        cfg,
		tokens:     cfg.Capacity,
		lastRefill: time.Now(),
	}, nil
}

// TryAcquire attempts to consume one token without blocking.
func (b *Bucket) TryAcquire() Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(time.Now())

	res := Result{
		Limit:   b.cfg.Capacity,
		ResetAt: b.lastRefill.Add(b.cfg.RefillInterval),
	}
	if b.tokens > 0 {
		b.tokens--
		res.Allowed = true
	}
	res.Remaining = b.tokens
	return res
}

// Acquire blocks until a token is available or the context is done.
// Used by adapters configured to queue briefly instead of failing fast
// when the bucket is exhausted.
func (b *Bucket) Acquire(ctx context.Context) error {
	for {
		res := b.TryAcquire()
		if res.Allowed {
			return nil
		}

		wait := res.RetryAfter()
		if wait <= 0 {
			wait = time.Millisecond
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Status returns the current bucket state without consuming a token.
func (b *Bucket) Status() Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(time.Now())

	return Result{
		Allowed:   b.tokens > 0,
		Limit:     b.cfg.Capacity,
		Remaining: b.tokens,
		ResetAt:   b.lastRefill.Add(b.cfg.RefillInterval),
	}
}

// refill credits tokens for every full interval elapsed since the last
// refill. Caller must hold b.mu.
func (b *Bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill)

	// Cap intervals to prevent integer overflow after long idle periods.
	maxIntervals := int64(b.cfg.Capacity/b.cfg.RefillRate + 1)
	intervals := int(min(int64(elapsed/b.cfg.RefillInterval), maxIntervals))

	if intervals > 0 {
		b.tokens = min(b.tokens+intervals*b.cfg.RefillRate, b.cfg.Capacity)
		b.lastRefill = now
	}
}
