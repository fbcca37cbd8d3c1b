package adapter

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/carebridgehq/comms/pkg/comms"
	"github.com/carebridgehq/comms/pkg/ratelimiter"
	"github.com/carebridgehq/comms/pkg/retry"
)

// Settings holds tunables shared by all adapter types.
type Settings struct {
	// Timeout bounds each individual provider call.
	Timeout time.Duration `json:"timeout"`

	// RateLimit sizes the per-instance token bucket.
	RateLimit ratelimiter.Config `json:"rate_limit"`

	// QueueOnRateLimit makes sends wait for a token instead of failing
	// fast with RATE_LIMITED when the bucket is exhausted.
	QueueOnRateLimit bool `json:"queue_on_rate_limit"`

	// MaxRetries is the per-channel retry budget for retryable failures.
	MaxRetries int `json:"max_retries"`

	// BaseDelay and Strategy parameterize the retry backoff curve.
	BaseDelay time.Duration  `json:"base_delay"`
	Strategy  retry.Strategy `json:"strategy"`

	// CallbackURL is where the provider posts inbound webhooks, for
	// adapters that register it during initialization.
	CallbackURL string `json:"callback_url,omitempty"`

	// ProviderOptions carries adapter-specific settings such as the sender
	// id for SMS or the auth scheme for outbound webhooks.
	ProviderOptions map[string]string `json:"provider_options,omitempty"`
}

// Config identifies and configures one adapter instance. A config is
// immutable once a send is in flight: reconfiguration replaces the instance
// rather than mutating it, which the factory detects via Fingerprint.
type Config struct {
	Type        comms.ChannelType `json:"type"`
	OrgID       string            `json:"org_id"`
	Enabled     bool              `json:"enabled"`
	Credentials map[string]string `json:"credentials"`
	Settings    Settings          `json:"settings"`
}

// Defaults applied by Normalize when a field is unset.
const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 3
)

// Validate checks the fields every adapter requires. Adapter constructors
// layer their own credential checks on top.
func (c Config) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("%w: unknown channel type %q", ErrInvalidConfig, c.Type)
	}
	if c.OrgID == "" {
		return fmt.Errorf("%w: org id is required", ErrInvalidConfig)
	}
	if !c.Enabled {
		return fmt.Errorf("%w: adapter is disabled for org %s", ErrInvalidConfig, c.OrgID)
	}
	return nil
}

// Normalize returns a copy with defaults applied to unset settings.
func (c Config) Normalize() Config {
	if c.Settings.Timeout <= 0 {
		c.Settings.Timeout = DefaultTimeout
	}
	if c.Settings.MaxRetries <= 0 {
		c.Settings.MaxRetries = DefaultMaxRetries
	}
	if c.Settings.RateLimit.Capacity <= 0 {
		c.Settings.RateLimit = ratelimiter.Config{
			Capacity:       30,
			RefillRate:     30,
			RefillInterval: time.Second,
		}
	}
	return c
}

// Credential returns a credential value, or empty string when absent.
func (c Config) Credential(key string) string {
	return c.Credentials[key]
}

// ProviderOption returns a provider-specific setting, or empty string.
func (c Config) ProviderOption(key string) string {
	return c.Settings.ProviderOptions[key]
}

// Key returns the cache key for this config: one instance per
// (type, organization).
func (c Config) Key() string {
	return fmt.Sprintf("%s:%s", c.Type, c.OrgID)
}

// Fingerprint returns a digest of the whole config. The factory compares
// fingerprints to decide whether a cached instance must be replaced.
func (c Config) Fingerprint() string {
	raw, err := json.Marshal(c)
	if err != nil {
		// Config is plain maps and scalars; marshaling cannot fail in
		// practice, but fall back to the key so caching still works.
		return c.Key()
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
