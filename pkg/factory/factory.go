package factory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/carebridgehq/comms/pkg/adapter"
	"github.com/carebridgehq/comms/pkg/comms"
)

// Constructor builds an uninitialized adapter instance.
type Constructor func() adapter.Adapter

var (
	registryMu sync.RWMutex
	registry   = make(map[comms.ChannelType]Constructor)
)

// Register makes a channel adapter available to every factory created after
// the call. Typically called from main during wiring.
func Register(t comms.ChannelType, fn Constructor) {
	if fn == nil {
		panic("factory: nil constructor for channel " + string(t))
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t] = fn
}

// Default health loop tunables.
const (
	DefaultHealthInterval = 60 * time.Second
	healthCheckTimeout    = 10 * time.Second
	replaceGracePeriod    = 30 * time.Second
)

// entry is one cached adapter instance. ready is closed once Initialize has
// finished, successfully or not; concurrent Gets for the same key wait on it
// so Initialize runs exactly once.
type entry struct {
	ready       chan struct{}
	adapter     adapter.Adapter
	err         error
	fingerprint string
	cfg         adapter.Config
}

// Factory caches one initialized adapter per (type, organization) and keeps
// the cached instances under periodic health surveillance.
type Factory struct {
	log          *slog.Logger
	interval     time.Duration
	constructors map[comms.ChannelType]Constructor

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	healthMu sync.RWMutex
	health   map[string]adapter.HealthResult

	stopOnce sync.Once
	stop     chan struct{}
	loopDone chan struct{}
}

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the factory logger.
func WithLogger(log *slog.Logger) Option {
	return func(f *Factory) {
		if log != nil {
			f.log = log
		}
	}
}

// WithHealthInterval overrides the health polling interval.
func WithHealthInterval(d time.Duration) Option {
	return func(f *Factory) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithConstructor overrides the package registry for one channel type on
// this factory only.
func WithConstructor(t comms.ChannelType, fn Constructor) Option {
	return func(f *Factory) {
		f.constructors[t] = fn
	}
}

// New creates a factory and starts its health polling loop. Callers must
// release it with ShutdownAll.
func New(opts ...Option) *Factory {
	f := &Factory{
		log:          slog.Default(),
		interval:     DefaultHealthInterval,
		constructors: make(map[comms.ChannelType]Constructor),
		entries:      make(map[string]*entry),
		health:       make(map[string]adapter.HealthResult),
		stop:         make(chan struct{}),
		loopDone:     make(chan struct{}),
	}

	registryMu.RLock()
	for t, fn := range registry {
		f.constructors[t] = fn
	}
	registryMu.RUnlock()

	for _, opt := range opts {
		opt(f)
	}

	go f.healthLoop()
	return f
}

// Get returns the cached adapter for the config's (type, org), initializing
// it on first use. A config whose fingerprint differs from the cached one
// replaces the instance; the superseded adapter is drained in the background.
func (f *Factory) Get(ctx context.Context, cfg adapter.Config) (adapter.Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Normalize()

	fn, ok := f.constructors[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, cfg.Type)
	}

	key := cfg.Key()
	fingerprint := cfg.Fingerprint()

	for {
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return nil, ErrFactoryClosed
		}

		e, exists := f.entries[key]
		if !exists {
			e = &entry{ready: make(chan struct{}), fingerprint: fingerprint, cfg: cfg}
			f.entries[key] = e
			f.mu.Unlock()

			f.initialize(ctx, e, fn)
			if e.err != nil {
				f.evict(key, e)
				return nil, e.err
			}
			return e.adapter, nil
		}
		f.mu.Unlock()

		select {
		case <-e.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		if e.err != nil {
			// The initializing Get evicts failed entries; retry the loop so
			// this caller triggers a fresh attempt.
			continue
		}

		if e.fingerprint == fingerprint {
			return e.adapter, nil
		}

		// Reconfigured: swap in a replacement and retire the old instance.
		f.mu.Lock()
		if f.entries[key] != e {
			f.mu.Unlock()
			continue
		}
		delete(f.entries, key)
		f.mu.Unlock()

		f.retire(key, e.adapter)
	}
}

func (f *Factory) initialize(ctx context.Context, e *entry, fn Constructor) {
	defer close(e.ready)

	inst := fn()
	if err := inst.Initialize(ctx, e.cfg); err != nil {
		e.err = fmt.Errorf("initialize %s: %w", e.cfg.Key(), err)
		return
	}
	e.adapter = inst

	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), healthCheckTimeout)
	defer cancel()
	f.setHealth(e.cfg.Key(), inst.HealthCheck(hctx))

	f.log.InfoContext(ctx, "adapter initialized",
		slog.String("channel", string(e.cfg.Type)),
		slog.String("org_id", e.cfg.OrgID))
}

func (f *Factory) evict(key string, e *entry) {
	f.mu.Lock()
	if f.entries[key] == e {
		delete(f.entries, key)
	}
	f.mu.Unlock()
}

// retire shuts a superseded adapter down without blocking the caller.
func (f *Factory) retire(key string, a adapter.Adapter) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), replaceGracePeriod)
		defer cancel()
		if err := a.Shutdown(ctx); err != nil {
			f.log.Error("retired adapter shutdown failed",
				slog.String("key", key), slog.Any("error", err))
		}
	}()
}

// Health returns the latest health result for every cached adapter.
func (f *Factory) Health() map[string]adapter.HealthResult {
	f.healthMu.RLock()
	defer f.healthMu.RUnlock()

	out := make(map[string]adapter.HealthResult, len(f.health))
	for k, v := range f.health {
		out[k] = v
	}
	return out
}

// HealthFor returns the latest health result for one (type, org), if any
// check has run.
func (f *Factory) HealthFor(t comms.ChannelType, orgID string) (adapter.HealthResult, bool) {
	f.healthMu.RLock()
	defer f.healthMu.RUnlock()

	hr, ok := f.health[fmt.Sprintf("%s:%s", t, orgID)]
	return hr, ok
}

func (f *Factory) setHealth(key string, hr adapter.HealthResult) {
	f.healthMu.Lock()
	f.health[key] = hr
	f.healthMu.Unlock()
}

func (f *Factory) healthLoop() {
	defer close(f.loopDone)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			f.pollHealth()
		}
	}
}

func (f *Factory) pollHealth() {
	f.mu.Lock()
	snapshot := make(map[string]adapter.Adapter, len(f.entries))
	for key, e := range f.entries {
		select {
		case <-e.ready:
			if e.err == nil {
				snapshot[key] = e.adapter
			}
		default:
		}
	}
	f.mu.Unlock()

	for key, a := range snapshot {
		ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
		hr := a.HealthCheck(ctx)
		cancel()

		f.setHealth(key, hr)
		if !hr.Healthy {
			f.log.Warn("adapter unhealthy",
				slog.String("key", key),
				slog.String("state", hr.State),
				slog.Any("errors", hr.Errors))
		}
	}
}

// ShutdownAdapter drains and removes one cached adapter. It is not an error
// if no instance is cached for the key.
func (f *Factory) ShutdownAdapter(ctx context.Context, t comms.ChannelType, orgID string) error {
	key := fmt.Sprintf("%s:%s", t, orgID)

	f.mu.Lock()
	e, ok := f.entries[key]
	if ok {
		delete(f.entries, key)
	}
	f.mu.Unlock()

	f.healthMu.Lock()
	delete(f.health, key)
	f.healthMu.Unlock()

	if !ok {
		return nil
	}

	<-e.ready
	if e.err != nil || e.adapter == nil {
		return nil
	}
	return e.adapter.Shutdown(ctx)
}

// ShutdownAll stops the health loop and drains every cached adapter
// concurrently. The factory refuses new Gets afterwards.
func (f *Factory) ShutdownAll(ctx context.Context) error {
	f.stopOnce.Do(func() { close(f.stop) })
	<-f.loopDone

	f.mu.Lock()
	f.closed = true
	entries := f.entries
	f.entries = make(map[string]*entry)
	f.mu.Unlock()

	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		errs  []error
	)
	for key, e := range entries {
		wg.Add(1)
		go func(key string, e *entry) {
			defer wg.Done()

			<-e.ready
			if e.err != nil || e.adapter == nil {
				return
			}
			if err := e.adapter.Shutdown(ctx); err != nil {
				errMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				errMu.Unlock()
			}
		}(key, e)
	}
	wg.Wait()

	return errors.Join(errs...)
}
