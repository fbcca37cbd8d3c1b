package preferences_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridgehq/comms/pkg/comms"
	"github.com/carebridgehq/comms/pkg/preferences"
)

func TestWindow_Contains(t *testing.T) {
	t.Parallel()

	// 2026-08-26 is a Wednesday.
	wednesday := func(hour, minute int) time.Time {
		return time.Date(2026, 8, 26, hour, minute, 0, 0, time.UTC)
	}

	tests := []struct {
		name   string
		window preferences.Window
		at     time.Time
		want   bool
	}{
		{
			name:   "inside same-day window",
			window: preferences.Window{Start: "13:00", End: "15:00"},
			at:     wednesday(14, 0),
			want:   true,
		},
		{
			name:   "start is inclusive",
			window: preferences.Window{Start: "13:00", End: "15:00"},
			at:     wednesday(13, 0),
			want:   true,
		},
		{
			name:   "end is exclusive",
			window: preferences.Window{Start: "13:00", End: "15:00"},
			at:     wednesday(15, 0),
			want:   false,
		},
		{
			name:   "outside same-day window",
			window: preferences.Window{Start: "13:00", End: "15:00"},
			at:     wednesday(9, 30),
			want:   false,
		},
		{
			name:   "midnight crossing, evening side",
			window: preferences.Window{Start: "22:00", End: "07:00"},
			at:     wednesday(23, 15),
			want:   true,
		},
		{
			name:   "midnight crossing, morning side",
			window: preferences.Window{Start: "22:00", End: "07:00"},
			at:     wednesday(6, 45),
			want:   true,
		},
		{
			name:   "midnight crossing, daytime gap",
			window: preferences.Window{Start: "22:00", End: "07:00"},
			at:     wednesday(12, 0),
			want:   false,
		},
		{
			name: "weekday restriction matches",
			window: preferences.Window{
				Days:  []time.Weekday{time.Wednesday},
				Start: "13:00",
				End:   "15:00",
			},
			at:   wednesday(14, 0),
			want: true,
		},
		{
			name: "weekday restriction excludes",
			window: preferences.Window{
				Days:  []time.Weekday{time.Saturday, time.Sunday},
				Start: "13:00",
				End:   "15:00",
			},
			at:   wednesday(14, 0),
			want: false,
		},
		{
			name: "crossing window owned by previous day",
			window: preferences.Window{
				Days:  []time.Weekday{time.Tuesday},
				Start: "22:00",
				End:   "07:00",
			},
			// Wednesday 06:00 belongs to the window that started Tuesday.
			at:   wednesday(6, 0),
			want: true,
		},
		{
			name: "crossing window not owned by current morning",
			window: preferences.Window{
				Days:  []time.Weekday{time.Wednesday},
				Start: "22:00",
				End:   "07:00",
			},
			at:   wednesday(6, 0),
			want: false,
		},
		{
			name: "evaluated in user location",
			window: preferences.Window{
				Start:    "22:00",
				End:      "07:00",
				Location: "Europe/London",
			},
			// 21:30 UTC is 22:30 in London during BST.
			at:   wednesday(21, 30),
			want: true,
		},
		{
			name:   "zero-length window never matches",
			window: preferences.Window{Start: "22:00", End: "22:00"},
			at:     wednesday(22, 0),
			want:   false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.window.Contains(tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("malformed clock", func(t *testing.T) {
		t.Parallel()

		w := preferences.Window{Start: "25:00", End: "07:00"}
		_, err := w.Contains(time.Now())
		assert.ErrorIs(t, err, preferences.ErrInvalidWindow)
	})

	t.Run("unknown location", func(t *testing.T) {
		t.Parallel()

		w := preferences.Window{Start: "22:00", End: "07:00", Location: "Mars/Olympus"}
		_, err := w.Contains(time.Now())
		assert.ErrorIs(t, err, preferences.ErrInvalidWindow)
	})
}

func TestUserPreference_VerifiedIdentifier(t *testing.T) {
	t.Parallel()

	pref := preferences.UserPreference{
		UserID:            "user-1",
		OrgID:             "org-1",
		PrimaryChannel:    comms.ChannelSMS,
		PrimaryIdentifier: "+447700900123",
		Identifiers: map[comms.ChannelType]map[string]bool{
			comms.ChannelSMS: {
				"+447700900123": true,
				"+447700900999": true,
			},
			comms.ChannelEmail: {
				"family@example.com": false,
			},
		},
	}

	t.Run("primary identifier wins on primary channel", func(t *testing.T) {
		t.Parallel()

		id, ok := pref.VerifiedIdentifier(comms.ChannelSMS)
		require.True(t, ok)
		assert.Equal(t, "+447700900123", id)
	})

	t.Run("unverified identifiers are invisible", func(t *testing.T) {
		t.Parallel()

		_, ok := pref.VerifiedIdentifier(comms.ChannelEmail)
		assert.False(t, ok)
	})

	t.Run("unregistered channel", func(t *testing.T) {
		t.Parallel()

		_, ok := pref.VerifiedIdentifier(comms.ChannelChat)
		assert.False(t, ok)
	})
}

func TestUserPreference_Clone(t *testing.T) {
	t.Parallel()

	orig := preferences.UserPreference{
		UserID:           "user-1",
		OrgID:            "org-1",
		FallbackChannels: []comms.ChannelType{comms.ChannelEmail},
		QuietHours: []preferences.Window{
			{Days: []time.Weekday{time.Monday}, Start: "22:00", End: "07:00"},
		},
		Identifiers: map[comms.ChannelType]map[string]bool{
			comms.ChannelEmail: {"family@example.com": true},
		},
	}

	clone := orig.Clone()
	clone.FallbackChannels[0] = comms.ChannelSMS
	clone.QuietHours[0].Days[0] = time.Friday
	clone.Identifiers[comms.ChannelEmail]["family@example.com"] = false

	assert.Equal(t, comms.ChannelEmail, orig.FallbackChannels[0])
	assert.Equal(t, time.Monday, orig.QuietHours[0].Days[0])
	assert.True(t, orig.Identifiers[comms.ChannelEmail]["family@example.com"])
}
