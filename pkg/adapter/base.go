package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carebridgehq/comms/pkg/comms"
	"github.com/carebridgehq/comms/pkg/ratelimiter"
	"github.com/carebridgehq/comms/pkg/retry"
)

// degradedAfter is the number of consecutive failed health checks that flips
// an adapter into the degraded state.
const degradedAfter = 3

// ProviderCall is the provider-specific request/response mapping a concrete
// adapter plugs into the Base template. It performs exactly one provider
// attempt; admission, timeouts, and retries are handled by Execute.
type ProviderCall func(ctx context.Context, msg comms.Message) comms.DeliveryResult

// Base supplies the send pipeline shared by every adapter: lifecycle state,
// rate-limiter admission, per-attempt timeouts, the retry loop, in-flight
// tracking for graceful shutdown, and uniform error normalization. Concrete
// adapters embed Base and implement only their provider mapping.
type Base struct {
	id      string
	cfg     Config
	limiter *ratelimiter.Bucket
	policy  retry.Policy
	logger  *slog.Logger

	state        atomic.Int32
	healthFails  atomic.Int32
	inflight     sync.WaitGroup
	shuttingDown atomic.Bool
}

// BaseOption configures a Base.
type BaseOption func(*Base)

// WithLogger sets the logger used by the send pipeline.
func WithLogger(logger *slog.Logger) BaseOption {
	return func(b *Base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBase creates an uninitialized Base. Init must be called before Execute.
func NewBase(opts ...BaseOption) *Base {
	b := &Base{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Init validates the config, builds the rate limiter and retry policy, and
// transitions the adapter to ready. Called from the concrete adapter's
// Initialize after its own credential checks pass.
func (b *Base) Init(cfg Config) error {
	if State(b.state.Load()) != StateUninitialized {
		return ErrAlreadyInitialized
	}
	b.state.Store(int32(StateInitializing))

	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		b.state.Store(int32(StateUninitialized))
		return err
	}

	limiter, err := ratelimiter.New(cfg.Settings.RateLimit)
	if err != nil {
		b.state.Store(int32(StateUninitialized))
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	policy, err := retry.NewPolicy(retry.Policy{
		Strategy:    cfg.Settings.Strategy,
		BaseDelay:   cfg.Settings.BaseDelay,
		MaxAttempts: cfg.Settings.MaxRetries,
	})
	if err != nil {
		b.state.Store(int32(StateUninitialized))
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	b.id = cfg.Key()
	b.cfg = cfg
	b.limiter = limiter
	b.policy = policy
	b.logger = b.logger.With(slog.String("adapter", b.id))
	b.state.Store(int32(StateReady))
	return nil
}

// ID returns the instance identifier (type:org).
func (b *Base) ID() string { return b.id }

// Config returns the immutable configuration the adapter was built with.
func (b *Base) Config() Config { return b.cfg }

// State returns the current lifecycle state.
func (b *Base) State() State { return State(b.state.Load()) }

// Limiter exposes the token bucket for health reporting.
func (b *Base) Limiter() *ratelimiter.Bucket { return b.limiter }

// Execute runs the template method for one send: state gate, recipient
// validation, rate-limiter admission, then the provider call under a
// per-attempt timeout with policy-driven retries. Every failure is
// normalized into the result's structured error; Execute never panics and
// never returns a Go error.
func (b *Base) Execute(ctx context.Context, msg comms.Message, validate func(string) error, call ProviderCall) comms.DeliveryResult {
	switch b.State() {
	case StateUninitialized, StateInitializing:
		return comms.Failed(msg.ID, b.cfg.Type,
			comms.NewDeliveryError(comms.CodeNotInitialized, false, "adapter %s is not initialized", b.id))
	case StateShutdown:
		return comms.Failed(msg.ID, b.cfg.Type,
			comms.NewDeliveryError(comms.CodeShuttingDown, false, "adapter %s is shut down", b.id))
	}

	b.inflight.Add(1)
	defer b.inflight.Done()

	if err := msg.Validate(); err != nil {
		return comms.Failed(msg.ID, b.cfg.Type,
			comms.NewDeliveryError(comms.CodeInvalidConfig, false, "invalid message: %v", err))
	}
	if err := validate(msg.Recipient.Identifier); err != nil {
		return comms.Failed(msg.ID, b.cfg.Type,
			comms.NewDeliveryError(comms.CodeInvalidRecipient, false, "invalid recipient %q: %v", msg.Recipient.Identifier, err))
	}

	if res, ok := b.admit(ctx, msg); !ok {
		return res
	}

	// Per-message retry override narrows, never widens, the configured
	// budget unless explicitly larger.
	policy := b.policy
	if msg.Options.MaxRetries > 0 {
		policy.MaxAttempts = msg.Options.MaxRetries
	}

	var result comms.DeliveryResult
	for attempt := 1; ; attempt++ {
		result = b.attempt(ctx, msg, call)
		if result.Success {
			if attempt > 1 {
				b.logger.InfoContext(ctx, "send succeeded after retry",
					slog.String("message_id", msg.ID),
					slog.Int("attempt", attempt))
			}
			return result
		}

		if result.Err != nil && result.Err.Code == comms.CodeAuthFailed {
			// Provider rejected our credentials; flag the instance so the
			// factory surfaces it, but keep accepting calls.
			b.markDegraded("authentication failure")
		}

		if !policy.ShouldRetry(attempt, result) {
			return result
		}

		delay := policy.NextDelay(attempt)
		b.logger.WarnContext(ctx, "retrying send",
			slog.String("message_id", msg.ID),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", result.Err.Message))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return comms.Failed(msg.ID, b.cfg.Type,
				comms.NewDeliveryError(comms.CodeTimeout, true, "send cancelled during backoff: %v", ctx.Err()))
		case <-timer.C:
		}
	}
}

// admit applies token-bucket admission. In queue mode it waits for a refill
// within the configured timeout; otherwise exhaustion fails fast with a
// retryable RATE_LIMITED error so the orchestrator can back off or fall back.
func (b *Base) admit(ctx context.Context, msg comms.Message) (comms.DeliveryResult, bool) {
	if b.cfg.Settings.QueueOnRateLimit {
		waitCtx, cancel := context.WithTimeout(ctx, b.cfg.Settings.Timeout)
		defer cancel()
		if err := b.limiter.Acquire(waitCtx); err != nil {
			return comms.Failed(msg.ID, b.cfg.Type,
				comms.NewDeliveryError(comms.CodeRateLimited, true, "rate limit queue wait expired: %v", err)), false
		}
		return comms.DeliveryResult{}, true
	}

	if res := b.limiter.TryAcquire(); !res.Allowed {
		return comms.Failed(msg.ID, b.cfg.Type,
			comms.NewDeliveryError(comms.CodeRateLimited, true, "rate limit exceeded, retry after %s", res.RetryAfter().Round(time.Millisecond))), false
	}
	return comms.DeliveryResult{}, true
}

// attempt runs one provider call under the configured timeout and normalizes
// the outcome.
func (b *Base) attempt(ctx context.Context, msg comms.Message, call ProviderCall) comms.DeliveryResult {
	attemptCtx, cancel := context.WithTimeout(ctx, b.cfg.Settings.Timeout)
	defer cancel()

	result := call(attemptCtx, msg)

	// Normalize sloppy provider mappings so callers can always rely on the
	// structured error being present on failure.
	if !result.Success && result.Err == nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			result.Err = comms.NewDeliveryError(comms.CodeTimeout, true, "provider call timed out after %s", b.cfg.Settings.Timeout)
		} else {
			result.Err = comms.NewDeliveryError(comms.CodeProviderError, true, "provider call failed")
		}
		result.Status = comms.StatusFailed
	}
	if result.MessageID == "" {
		result.MessageID = msg.ID
	}
	if result.Channel == "" {
		result.Channel = b.cfg.Type
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}
	return result
}

// RecordHealth feeds a health-check outcome into the lifecycle state:
// consecutive failures degrade the adapter, a success heals it.
func (b *Base) RecordHealth(healthy bool) {
	if healthy {
		b.healthFails.Store(0)
		b.state.CompareAndSwap(int32(StateDegraded), int32(StateReady))
		return
	}
	if b.healthFails.Add(1) >= degradedAfter {
		b.markDegraded("consecutive health check failures")
	}
}

func (b *Base) markDegraded(reason string) {
	if b.state.CompareAndSwap(int32(StateReady), int32(StateDegraded)) {
		b.logger.Warn("adapter degraded", slog.String("reason", reason))
	}
}

// Shutdown transitions to the shutdown state and waits for in-flight sends
// to drain, up to the context deadline. After the deadline it returns the
// context error; the adapter stops accepting calls either way.
func (b *Base) Shutdown(ctx context.Context) error {
	if !b.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}
	b.state.Store(int32(StateShutdown))

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		b.logger.Warn("forced shutdown with sends in flight")
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}
