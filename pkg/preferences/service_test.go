package preferences_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridgehq/comms/pkg/comms"
	"github.com/carebridgehq/comms/pkg/preferences"
)

func newService(t *testing.T) *preferences.Service {
	t.Helper()

	svc, err := preferences.NewService(preferences.NewMemoryStorage())
	require.NoError(t, err)
	return svc
}

func basePreference() preferences.UserPreference {
	return preferences.UserPreference{
		UserID:            "user-1",
		OrgID:             "org-1",
		PrimaryChannel:    comms.ChannelChat,
		PrimaryIdentifier: "resident.family",
		FallbackChannels:  []comms.ChannelType{comms.ChannelSMS, comms.ChannelEmail},
		Identifiers: map[comms.ChannelType]map[string]bool{
			comms.ChannelChat: {"resident.family": true},
		},
	}
}

func TestService_Upsert(t *testing.T) {
	t.Parallel()

	t.Run("creates and reads back", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		saved, err := svc.Upsert(context.Background(), basePreference())
		require.NoError(t, err)
		assert.False(t, saved.UpdatedAt.IsZero())

		got, err := svc.Get(context.Background(), "org-1", "user-1")
		require.NoError(t, err)
		assert.Equal(t, comms.ChannelChat, got.PrimaryChannel)
	})

	t.Run("missing user id", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		pref := basePreference()
		pref.UserID = ""

		_, err := svc.Upsert(context.Background(), pref)
		assert.ErrorIs(t, err, preferences.ErrInvalidPreference)
	})

	t.Run("cannot change consent without audit", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		_, err := svc.Upsert(context.Background(), basePreference())
		require.NoError(t, err)
		require.NoError(t, svc.SetOptIn(context.Background(), "org-1", "user-1", "user-1", "signup"))

		// Upsert with consent flipped off must not stick.
		pref := basePreference()
		pref.ConsentGiven = false
		_, err = svc.Upsert(context.Background(), pref)
		require.NoError(t, err)

		got, err := svc.Get(context.Background(), "org-1", "user-1")
		require.NoError(t, err)
		assert.True(t, got.ConsentGiven)
	})

	t.Run("unknown user not found", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		_, err := svc.Get(context.Background(), "org-1", "ghost")
		assert.ErrorIs(t, err, preferences.ErrNotFound)
	})
}

func TestService_Consent(t *testing.T) {
	t.Parallel()

	t.Run("opt out keeps the record and appends audit", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		_, err := svc.Upsert(context.Background(), basePreference())
		require.NoError(t, err)
		require.NoError(t, svc.SetOptIn(context.Background(), "org-1", "user-1", "user-1", "signup"))
		require.NoError(t, svc.SetOptOut(context.Background(), "org-1", "user-1", "carer-9", "family request"))

		got, err := svc.Get(context.Background(), "org-1", "user-1")
		require.NoError(t, err)
		assert.False(t, got.ConsentGiven)
		assert.Equal(t, comms.ChannelChat, got.PrimaryChannel, "record must survive opt-out")

		history, err := svc.ConsentHistory(context.Background(), "org-1", "user-1")
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, preferences.ConsentGranted, history[0].Action)
		assert.Equal(t, preferences.ConsentRevoked, history[1].Action)
		assert.Equal(t, "carer-9", history[1].Actor)
		assert.Equal(t, "family request", history[1].Reason)
		assert.NotEmpty(t, history[1].ID)
	})

	t.Run("consent change for unknown user", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		err := svc.SetOptOut(context.Background(), "org-1", "ghost", "admin", "cleanup")
		assert.ErrorIs(t, err, preferences.ErrNotFound)
	})

	t.Run("concurrent changes are all audited", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		_, err := svc.Upsert(context.Background(), basePreference())
		require.NoError(t, err)

		const writers = 20
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if i%2 == 0 {
					assert.NoError(t, svc.SetOptIn(context.Background(), "org-1", "user-1", "admin", ""))
				} else {
					assert.NoError(t, svc.SetOptOut(context.Background(), "org-1", "user-1", "admin", ""))
				}
			}(i)
		}
		wg.Wait()

		history, err := svc.ConsentHistory(context.Background(), "org-1", "user-1")
		require.NoError(t, err)
		assert.Len(t, history, writers)
	})
}

func TestService_Identifiers(t *testing.T) {
	t.Parallel()

	t.Run("add unverified then verify", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		_, err := svc.Upsert(context.Background(), basePreference())
		require.NoError(t, err)

		require.NoError(t, svc.AddChannelIdentifier(
			context.Background(), "org-1", "user-1", comms.ChannelSMS, "+447700900123", false))

		got, err := svc.Get(context.Background(), "org-1", "user-1")
		require.NoError(t, err)
		_, ok := got.VerifiedIdentifier(comms.ChannelSMS)
		assert.False(t, ok, "unverified identifier must not be routable")

		require.NoError(t, svc.VerifyIdentifier(
			context.Background(), "org-1", "user-1", comms.ChannelSMS, "+447700900123"))

		got, err = svc.Get(context.Background(), "org-1", "user-1")
		require.NoError(t, err)
		id, ok := got.VerifiedIdentifier(comms.ChannelSMS)
		require.True(t, ok)
		assert.Equal(t, "+447700900123", id)
	})

	t.Run("verify unregistered identifier", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		_, err := svc.Upsert(context.Background(), basePreference())
		require.NoError(t, err)

		err = svc.VerifyIdentifier(context.Background(), "org-1", "user-1", comms.ChannelSMS, "+440000000000")
		assert.ErrorIs(t, err, preferences.ErrIdentifierNotFound)
	})

	t.Run("invalid channel", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		err := svc.AddChannelIdentifier(
			context.Background(), "org-1", "user-1", comms.ChannelType("fax"), "12345", true)
		assert.ErrorIs(t, err, preferences.ErrInvalidPreference)
	})
}

func TestService_IsWithinQuietHours(t *testing.T) {
	t.Parallel()

	svc := newService(t)

	pref := basePreference()
	pref.QuietHours = []preferences.Window{{Start: "22:00", End: "07:00"}}
	_, err := svc.Upsert(context.Background(), pref)
	require.NoError(t, err)

	night := time.Date(2026, 8, 26, 23, 30, 0, 0, time.UTC)
	day := time.Date(2026, 8, 26, 11, 0, 0, 0, time.UTC)

	inside, err := svc.IsWithinQuietHours(context.Background(), "org-1", "user-1", night)
	require.NoError(t, err)
	assert.True(t, inside)

	inside, err = svc.IsWithinQuietHours(context.Background(), "org-1", "user-1", day)
	require.NoError(t, err)
	assert.False(t, inside)

	// Users without a record have no quiet hours.
	inside, err = svc.IsWithinQuietHours(context.Background(), "org-1", "ghost", night)
	require.NoError(t, err)
	assert.False(t, inside)
}
