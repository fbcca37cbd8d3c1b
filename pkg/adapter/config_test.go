package adapter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/carebridgehq/comms/pkg/adapter"
	"github.com/carebridgehq/comms/pkg/comms"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*adapter.Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*adapter.Config) {},
		},
		{
			name:    "unknown channel type",
			mutate:  func(c *adapter.Config) { c.Type = "carrier-pigeon" },
			wantErr: "unknown channel type",
		},
		{
			name:    "missing org",
			mutate:  func(c *adapter.Config) { c.OrgID = "" },
			wantErr: "org id is required",
		},
		{
			name:    "disabled",
			mutate:  func(c *adapter.Config) { c.Enabled = false },
			wantErr: "disabled",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, adapter.ErrInvalidConfig)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_Normalize(t *testing.T) {
	t.Parallel()

	cfg := adapter.Config{Type: comms.ChannelChat, OrgID: "org-1", Enabled: true}
	norm := cfg.Normalize()

	assert.Equal(t, adapter.DefaultTimeout, norm.Settings.Timeout)
	assert.Equal(t, adapter.DefaultMaxRetries, norm.Settings.MaxRetries)
	assert.Positive(t, norm.Settings.RateLimit.Capacity)

	// Explicit settings survive normalization.
	cfg.Settings.Timeout = 3 * time.Second
	assert.Equal(t, 3*time.Second, cfg.Normalize().Settings.Timeout)
}

func TestConfig_Fingerprint(t *testing.T) {
	t.Parallel()

	a := testConfig()
	b := testConfig()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	// Reconfiguration changes the fingerprint, forcing a new instance.
	b.Credentials = map[string]string{"api_key": "rotated"}
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestConfig_Key(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	assert.Equal(t, "sms:org-1", cfg.Key())
}

func TestCapabilities_Supports(t *testing.T) {
	t.Parallel()

	caps := adapter.Capabilities{MessageTypes: []comms.MessageType{comms.TypeText, comms.TypeImage}}
	assert.True(t, caps.Supports(comms.TypeText))
	assert.False(t, caps.Supports(comms.TypeVideo))
}
