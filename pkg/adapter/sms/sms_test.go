package sms_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridgehq/comms/pkg/adapter"
	"github.com/carebridgehq/comms/pkg/adapter/sms"
	"github.com/carebridgehq/comms/pkg/comms"
	"github.com/carebridgehq/comms/pkg/ratelimiter"
	"github.com/carebridgehq/comms/pkg/retry"
)

func smsConfig(apiURL string) adapter.Config {
	return adapter.Config{
		Type:        comms.ChannelSMS,
		OrgID:       "org-1",
		Enabled:     true,
		Credentials: map[string]string{sms.CredentialAPIKey: "key_test"},
		Settings: adapter.Settings{
			Timeout: 2 * time.Second,
			RateLimit: ratelimiter.Config{
				Capacity:       100,
				RefillRate:     100,
				RefillInterval: time.Second,
			},
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			Strategy:   retry.StrategyFixed,
			ProviderOptions: map[string]string{
				sms.OptionAPIURL:   apiURL,
				sms.OptionSenderID: "CAREBRIDGE",
			},
		},
	}
}

func smsMessage() comms.Message {
	return comms.Message{
		ID:        "msg-1",
		Type:      comms.TypeText,
		Content:   comms.Content{Text: "visit rescheduled to 14:00"},
		Recipient: comms.Recipient{Channel: comms.ChannelSMS, Identifier: "+447700900123"},
		Sender:    comms.Sender{ID: "scheduler", OrgID: "org-1"},
	}
}

func newInitialized(t *testing.T, apiURL string) *sms.Adapter {
	t.Helper()
	a := sms.New()
	require.NoError(t, a.Initialize(context.Background(), smsConfig(apiURL)))
	return a
}

func TestAdapter_Initialize(t *testing.T) {
	t.Parallel()

	t.Run("missing sender id", func(t *testing.T) {
		t.Parallel()

		cfg := smsConfig("http://localhost")
		delete(cfg.Settings.ProviderOptions, sms.OptionSenderID)

		err := sms.New().Initialize(context.Background(), cfg)
		assert.ErrorIs(t, err, adapter.ErrInvalidConfig)
	})

	t.Run("missing api key", func(t *testing.T) {
		t.Parallel()

		cfg := smsConfig("http://localhost")
		cfg.Credentials = nil

		err := sms.New().Initialize(context.Background(), cfg)
		assert.ErrorIs(t, err, adapter.ErrInvalidConfig)
	})
}

func TestAdapter_Send(t *testing.T) {
	t.Parallel()

	t.Run("success with cost", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/messages", r.URL.Path)
			assert.Equal(t, "Bearer key_test", r.Header.Get("Authorization"))

			var req struct {
				Sender     string   `json:"sender"`
				Body       string   `json:"body"`
				Recipients []string `json:"recipients"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "CAREBRIDGE", req.Sender)
			assert.Equal(t, []string{"+447700900123"}, req.Recipients)

			_, _ = w.Write([]byte(`{"id":"sms-9","status":"accepted","parts":1,"cost":0.04}`))
		}))
		defer srv.Close()

		a := newInitialized(t, srv.URL)
		res := a.Send(context.Background(), smsMessage())

		require.True(t, res.Success)
		assert.Equal(t, "sms-9", res.ExternalID)
		require.NotNil(t, res.Cost)
		assert.InDelta(t, 0.04, *res.Cost, 1e-9)
	})

	t.Run("queued status preserved", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"sms-10","status":"queued","parts":1}`))
		}))
		defer srv.Close()

		a := newInitialized(t, srv.URL)
		res := a.Send(context.Background(), smsMessage())

		assert.True(t, res.Success)
		assert.Equal(t, comms.StatusQueued, res.Status)
	})

	t.Run("media degrades to caption and link", func(t *testing.T) {
		t.Parallel()

		var gotBody string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Body string `json:"body"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			gotBody = req.Body
			_, _ = w.Write([]byte(`{"id":"sms-11","status":"accepted"}`))
		}))
		defer srv.Close()

		msg := smsMessage()
		msg.Type = comms.TypeImage
		msg.Content = comms.Content{MediaURL: "https://files.example.com/photo.jpg", Caption: "Garden party photos"}

		a := newInitialized(t, srv.URL)
		require.True(t, a.Send(context.Background(), msg).Success)
		assert.Equal(t, "Garden party photos https://files.example.com/photo.jpg", gotBody)
	})

	t.Run("gateway 401 fatal", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
		}))
		defer srv.Close()

		a := newInitialized(t, srv.URL)
		res := a.Send(context.Background(), smsMessage())

		require.NotNil(t, res.Err)
		assert.Equal(t, comms.CodeAuthFailed, res.Err.Code)
		assert.Contains(t, res.Err.Message, "invalid api key")
	})
}

func TestAdapter_ValidateRecipient(t *testing.T) {
	t.Parallel()

	a := sms.New()

	tests := []struct {
		identifier string
		valid      bool
	}{
		{"+447700900123", true},
		{"+14155552671", true},
		{"07700900123", false},
		{"+0123", false},
		{"not-a-number", false},
		{"", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.identifier, func(t *testing.T) {
			t.Parallel()
			err := a.ValidateRecipient(tt.identifier)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAdapter_HealthCheck(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account", r.URL.Path)
		_, _ = w.Write([]byte(`{"credit":"231.50"}`))
	}))
	defer srv.Close()

	a := newInitialized(t, srv.URL)
	res := a.HealthCheck(context.Background())

	assert.True(t, res.Healthy)
	assert.Equal(t, "231.50", res.Metadata["credit"])
}
