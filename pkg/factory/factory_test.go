package factory_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridgehq/comms/pkg/adapter"
	"github.com/carebridgehq/comms/pkg/comms"
	"github.com/carebridgehq/comms/pkg/factory"
)

// fakeAdapter counts lifecycle calls so tests can assert factory behavior.
type fakeAdapter struct {
	initCalls atomic.Int32
	shutdowns atomic.Int32
	initErr   error
	unhealthy atomic.Bool
	state     atomic.Int32
}

func (f *fakeAdapter) Initialize(ctx context.Context, cfg adapter.Config) error {
	f.initCalls.Add(1)
	if f.initErr != nil {
		return f.initErr
	}
	f.state.Store(int32(adapter.StateReady))
	return nil
}

func (f *fakeAdapter) Send(ctx context.Context, msg comms.Message) comms.DeliveryResult {
	return comms.Sent(msg.ID, msg.Recipient.Channel, "ext-1")
}

func (f *fakeAdapter) Receive(ctx context.Context, payload adapter.RawPayload) (comms.IncomingMessage, error) {
	return comms.IncomingMessage{}, adapter.ErrNotSupported
}

func (f *fakeAdapter) ValidateRecipient(identifier string) error { return nil }

func (f *fakeAdapter) HealthCheck(ctx context.Context) adapter.HealthResult {
	state := adapter.State(f.state.Load())
	if f.unhealthy.Load() {
		return adapter.UnhealthyResult("fake", state, time.Millisecond, "provider unreachable")
	}
	return adapter.HealthyResult("fake", state, time.Millisecond)
}

func (f *fakeAdapter) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{MessageTypes: []comms.MessageType{comms.TypeText}}
}

func (f *fakeAdapter) Shutdown(ctx context.Context) error {
	f.shutdowns.Add(1)
	f.state.Store(int32(adapter.StateShutdown))
	return nil
}

func chatConfig() adapter.Config {
	return adapter.Config{
		Type:        comms.ChannelChat,
		OrgID:       "org-1",
		Enabled:     true,
		Credentials: map[string]string{"api_token": "tok_1"},
	}
}

// newFactory builds a factory whose chat channel is served by fakes from
// the given pool, handed out in order. The last fake is reused once the
// pool runs dry.
func newFactory(t *testing.T, fakes []*fakeAdapter, opts ...factory.Option) *factory.Factory {
	t.Helper()

	var next atomic.Int32
	ctor := func() adapter.Adapter {
		i := int(next.Add(1)) - 1
		if i >= len(fakes) {
			i = len(fakes) - 1
		}
		return fakes[i]
	}

	f := factory.New(append(opts, factory.WithConstructor(comms.ChannelChat, ctor))...)
	t.Cleanup(func() { _ = f.ShutdownAll(context.Background()) })
	return f
}

func TestFactory_Get(t *testing.T) {
	t.Parallel()

	t.Run("initializes once under concurrent access", func(t *testing.T) {
		t.Parallel()

		fake := &fakeAdapter{}
		f := newFactory(t, []*fakeAdapter{fake})

		const workers = 50
		var (
			wg  sync.WaitGroup
			got [workers]adapter.Adapter
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				a, err := f.Get(context.Background(), chatConfig())
				require.NoError(t, err)
				got[i] = a
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), fake.initCalls.Load())
		for i := 1; i < workers; i++ {
			assert.Same(t, got[0], got[i])
		}
	})

	t.Run("unknown channel", func(t *testing.T) {
		t.Parallel()

		f := newFactory(t, []*fakeAdapter{{}})
		cfg := chatConfig()
		cfg.Type = comms.ChannelPush

		_, err := f.Get(context.Background(), cfg)
		assert.ErrorIs(t, err, factory.ErrUnknownChannel)
	})

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()

		f := newFactory(t, []*fakeAdapter{{}})
		cfg := chatConfig()
		cfg.OrgID = ""

		_, err := f.Get(context.Background(), cfg)
		assert.ErrorIs(t, err, adapter.ErrInvalidConfig)
	})

	t.Run("failed initialize is not cached", func(t *testing.T) {
		t.Parallel()

		broken := &fakeAdapter{initErr: errors.New("provider down")}
		working := &fakeAdapter{}
		f := newFactory(t, []*fakeAdapter{broken, working})

		_, err := f.Get(context.Background(), chatConfig())
		require.Error(t, err)

		a, err := f.Get(context.Background(), chatConfig())
		require.NoError(t, err)
		assert.Same(t, working, a)
	})

	t.Run("reconfiguration replaces the instance", func(t *testing.T) {
		t.Parallel()

		first := &fakeAdapter{}
		second := &fakeAdapter{}
		f := newFactory(t, []*fakeAdapter{first, second})

		a1, err := f.Get(context.Background(), chatConfig())
		require.NoError(t, err)

		cfg := chatConfig()
		cfg.Credentials["api_token"] = "tok_rotated"
		a2, err := f.Get(context.Background(), cfg)
		require.NoError(t, err)

		assert.NotSame(t, a1, a2)
		assert.Eventually(t, func() bool {
			return first.shutdowns.Load() == 1
		}, time.Second, 10*time.Millisecond, "superseded adapter must be shut down")
	})

	t.Run("same fingerprint reuses the instance", func(t *testing.T) {
		t.Parallel()

		fake := &fakeAdapter{}
		f := newFactory(t, []*fakeAdapter{fake})

		a1, err := f.Get(context.Background(), chatConfig())
		require.NoError(t, err)
		a2, err := f.Get(context.Background(), chatConfig())
		require.NoError(t, err)

		assert.Same(t, a1, a2)
		assert.Equal(t, int32(1), fake.initCalls.Load())
	})
}

func TestFactory_Health(t *testing.T) {
	t.Parallel()

	t.Run("initial check recorded on creation", func(t *testing.T) {
		t.Parallel()

		f := newFactory(t, []*fakeAdapter{{}})
		_, err := f.Get(context.Background(), chatConfig())
		require.NoError(t, err)

		hr, ok := f.HealthFor(comms.ChannelChat, "org-1")
		require.True(t, ok)
		assert.True(t, hr.Healthy)

		all := f.Health()
		assert.Contains(t, all, "chat:org-1")
	})

	t.Run("poll detects degradation", func(t *testing.T) {
		t.Parallel()

		fake := &fakeAdapter{}
		f := newFactory(t, []*fakeAdapter{fake}, factory.WithHealthInterval(20*time.Millisecond))

		_, err := f.Get(context.Background(), chatConfig())
		require.NoError(t, err)

		fake.unhealthy.Store(true)

		assert.Eventually(t, func() bool {
			hr, ok := f.HealthFor(comms.ChannelChat, "org-1")
			return ok && !hr.Healthy
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("unknown adapter has no data", func(t *testing.T) {
		t.Parallel()

		f := newFactory(t, []*fakeAdapter{{}})
		_, ok := f.HealthFor(comms.ChannelSMS, "org-1")
		assert.False(t, ok)
	})
}

func TestFactory_HealthHandler(t *testing.T) {
	t.Parallel()

	fake := &fakeAdapter{}
	f := newFactory(t, []*fakeAdapter{fake}, factory.WithHealthInterval(20*time.Millisecond))

	_, err := f.Get(context.Background(), chatConfig())
	require.NoError(t, err)

	srv := httptest.NewServer(f.HealthHandler())
	t.Cleanup(srv.Close)

	t.Run("aggregate healthy", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Healthy  bool                       `json:"healthy"`
			Adapters map[string]json.RawMessage `json:"adapters"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body.Healthy)
		assert.Contains(t, body.Adapters, "chat:org-1")
	})

	t.Run("single adapter", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health/chat/org-1")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing adapter is 404", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health/sms/org-9")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("aggregate unhealthy is 503", func(t *testing.T) {
		fake.unhealthy.Store(true)
		require.Eventually(t, func() bool {
			hr, ok := f.HealthFor(comms.ChannelChat, "org-1")
			return ok && !hr.Healthy
		}, time.Second, 10*time.Millisecond)

		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestFactory_Shutdown(t *testing.T) {
	t.Parallel()

	t.Run("one adapter", func(t *testing.T) {
		t.Parallel()

		first := &fakeAdapter{}
		second := &fakeAdapter{}
		f := newFactory(t, []*fakeAdapter{first, second})

		_, err := f.Get(context.Background(), chatConfig())
		require.NoError(t, err)

		require.NoError(t, f.ShutdownAdapter(context.Background(), comms.ChannelChat, "org-1"))
		assert.Equal(t, int32(1), first.shutdowns.Load())

		_, ok := f.HealthFor(comms.ChannelChat, "org-1")
		assert.False(t, ok)

		a, err := f.Get(context.Background(), chatConfig())
		require.NoError(t, err)
		assert.Same(t, second, a)
	})

	t.Run("shutdown adapter without instance is a no-op", func(t *testing.T) {
		t.Parallel()

		f := newFactory(t, []*fakeAdapter{{}})
		assert.NoError(t, f.ShutdownAdapter(context.Background(), comms.ChannelChat, "org-none"))
	})

	t.Run("all", func(t *testing.T) {
		t.Parallel()

		fake := &fakeAdapter{}
		f := factory.New(factory.WithConstructor(comms.ChannelChat, func() adapter.Adapter { return fake }))

		_, err := f.Get(context.Background(), chatConfig())
		require.NoError(t, err)

		require.NoError(t, f.ShutdownAll(context.Background()))
		assert.Equal(t, int32(1), fake.shutdowns.Load())

		_, err = f.Get(context.Background(), chatConfig())
		assert.ErrorIs(t, err, factory.ErrFactoryClosed)
	})
}
