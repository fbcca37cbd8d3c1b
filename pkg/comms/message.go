package comms

import "time"

// ChannelType identifies a communication medium.
type ChannelType string

const (
	ChannelChat    ChannelType = "chat"
	ChannelWebhook ChannelType = "webhook"
	ChannelSMS     ChannelType = "sms"
	ChannelEmail   ChannelType = "email"
	// ChannelPush is reserved for a future mobile push adapter.
	ChannelPush ChannelType = "push"
)

// Valid reports whether the channel type is one of the known channels.
func (c ChannelType) Valid() bool {
	switch c {
	case ChannelChat, ChannelWebhook, ChannelSMS, ChannelEmail, ChannelPush:
		return true
	}
	return false
}

// MessageType represents the content type of a message.
type MessageType string

const (
	TypeText     MessageType = "text"
	TypeRichText MessageType = "rich_text"
	TypeImage    MessageType = "image"
	TypeVideo    MessageType = "video"
	TypeAudio    MessageType = "audio"
	TypeDocument MessageType = "document"
	TypeTemplate MessageType = "template"
)

// Priority represents the message priority level.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// Content carries the payload for a message. Which fields are meaningful
// depends on the message type: Text for text/rich text, MediaURL and Caption
// for media types, TemplateID and TemplateParams for template messages.
type Content struct {
	Text           string            `json:"text,omitempty"`
	Subject        string            `json:"subject,omitempty"`
	MediaURL       string            `json:"media_url,omitempty"`
	Caption        string            `json:"caption,omitempty"`
	FileName       string            `json:"file_name,omitempty"`
	TemplateID     string            `json:"template_id,omitempty"`
	TemplateParams map[string]string `json:"template_params,omitempty"`
}

// Recipient describes where a message should be delivered on one channel.
type Recipient struct {
	Channel     ChannelType `json:"channel"`
	Identifier  string      `json:"identifier"`
	DisplayName string      `json:"display_name,omitempty"`
}

// Sender describes who originated a message.
type Sender struct {
	ID    string `json:"id"`
	Role  string `json:"role,omitempty"`
	OrgID string `json:"org_id"`
}

// Metadata carries delivery hints that producers attach to a message.
type Metadata struct {
	Category           string `json:"category,omitempty"`
	Urgent             bool   `json:"urgent,omitempty"`
	RequiresAck        bool   `json:"requires_ack,omitempty"`
	EncryptionRequired bool   `json:"encryption_required,omitempty"`
}

// DeliveryOptions control retry and fallback behavior for a single message.
type DeliveryOptions struct {
	// MaxRetries overrides the adapter's configured retry count when > 0.
	MaxRetries int `json:"max_retries,omitempty"`
	// FallbackChannels is an ordered list of channels to try after the
	// primary channel fails. It takes precedence over the recipient's
	// stored fallback order.
	FallbackChannels []ChannelType `json:"fallback_channels,omitempty"`
	// AllowFallback gates the whole fallback mechanism. When false only
	// the first resolved channel is attempted, regardless of
	// FallbackChannels.
	AllowFallback bool `json:"allow_fallback"`
	// OverrideQuietHours sends even inside the recipient's quiet hours.
	OverrideQuietHours bool `json:"override_quiet_hours,omitempty"`
}

// Message is the channel-agnostic message model handed to the orchestrator.
// It is passed by value and treated as immutable once submitted.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Content   Content         `json:"content"`
	Recipient Recipient       `json:"recipient"`
	Sender    Sender          `json:"sender"`
	Metadata  Metadata        `json:"metadata"`
	Priority  Priority        `json:"priority"`
	Options   DeliveryOptions `json:"options"`
	CreatedAt time.Time       `json:"created_at"`
}

// IsUrgent reports whether the message should bypass quiet-hours deferral.
func (m Message) IsUrgent() bool {
	return m.Priority == PriorityUrgent || m.Metadata.Urgent
}

// Validate checks the fields every channel requires. Channel-specific
// identifier formats are checked by the target adapter's ValidateRecipient.
func (m Message) Validate() error {
	if m.Type == "" {
		return ErrInvalidMessage
	}
	switch m.Type {
	case TypeText, TypeRichText:
		if m.Content.Text == "" {
			return ErrEmptyContent
		}
	case TypeImage, TypeVideo, TypeAudio, TypeDocument:
		if m.Content.MediaURL == "" {
			return ErrEmptyContent
		}
	case TypeTemplate:
		if m.Content.TemplateID == "" {
			return ErrEmptyContent
		}
	default:
		return ErrInvalidMessage
	}
	return nil
}
