package comms

import "time"

// IncomingMessage is the normalized form of a provider webhook delivered to
// a two-way channel adapter.
type IncomingMessage struct {
	ExternalID     string      `json:"external_id"`
	Channel        ChannelType `json:"channel"`
	Sender         string      `json:"sender"`
	Content        Content     `json:"content"`
	Type           MessageType `json:"type"`
	ReceivedAt     time.Time   `json:"received_at"`
	ConversationID string      `json:"conversation_id,omitempty"`
}
