package comms_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridgehq/comms/pkg/comms"
)

func TestMessageValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msg     comms.Message
		wantErr error
	}{
		{
			name: "text message with body",
			msg: comms.Message{
				Type:    comms.TypeText,
				Content: comms.Content{Text: "hello"},
			},
		},
		{
			name: "rich text with body",
			msg: comms.Message{
				Type:    comms.TypeRichText,
				Content: comms.Content{Text: "<p>hello</p>"},
			},
		},
		{
			name:    "text message without body",
			msg:     comms.Message{Type: comms.TypeText},
			wantErr: comms.ErrEmptyContent,
		},
		{
			name: "image with media url",
			msg: comms.Message{
				Type:    comms.TypeImage,
				Content: comms.Content{MediaURL: "https://cdn.example.com/photo.jpg"},
			},
		},
		{
			name:    "document without media url",
			msg:     comms.Message{Type: comms.TypeDocument},
			wantErr: comms.ErrEmptyContent,
		},
		{
			name: "video without media url",
			msg: comms.Message{
				Type:    comms.TypeVideo,
				Content: comms.Content{Caption: "no url"},
			},
			wantErr: comms.ErrEmptyContent,
		},
		{
			name: "template with id",
			msg: comms.Message{
				Type:    comms.TypeTemplate,
				Content: comms.Content{TemplateID: "visit-reminder"},
			},
		},
		{
			name:    "template without id",
			msg:     comms.Message{Type: comms.TypeTemplate},
			wantErr: comms.ErrEmptyContent,
		},
		{
			name:    "missing type",
			msg:     comms.Message{Content: comms.Content{Text: "hello"}},
			wantErr: comms.ErrInvalidMessage,
		},
		{
			name:    "unknown type",
			msg:     comms.Message{Type: comms.MessageType("carrier_pigeon")},
			wantErr: comms.ErrInvalidMessage,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.msg.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestMessageIsUrgent(t *testing.T) {
	t.Parallel()

	assert.False(t, comms.Message{Priority: comms.PriorityNormal}.IsUrgent())
	assert.False(t, comms.Message{Priority: comms.PriorityHigh}.IsUrgent())
	assert.True(t, comms.Message{Priority: comms.PriorityUrgent}.IsUrgent())
	assert.True(t, comms.Message{
		Priority: comms.PriorityLow,
		Metadata: comms.Metadata{Urgent: true},
	}.IsUrgent())
}

func TestChannelTypeValid(t *testing.T) {
	t.Parallel()

	for _, ch := range []comms.ChannelType{
		comms.ChannelChat,
		comms.ChannelWebhook,
		comms.ChannelSMS,
		comms.ChannelEmail,
		comms.ChannelPush,
	} {
		assert.True(t, ch.Valid(), "channel %q", ch)
	}

	assert.False(t, comms.ChannelType("").Valid())
	assert.False(t, comms.ChannelType("fax").Valid())
}
