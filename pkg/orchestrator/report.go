package orchestrator

import "github.com/carebridgehq/comms/pkg/comms"

// SendRequest asks for one message to be delivered to one user, routed by
// the user's preferences.
type SendRequest struct {
	Message comms.Message
	UserID  string
}

// Attempt records one adapter call made while delivering a message.
type Attempt struct {
	Channel    comms.ChannelType    `json:"channel"`
	Identifier string               `json:"identifier"`
	Result     comms.DeliveryResult `json:"result"`
}

// SendReport is the aggregate outcome of one Send: the routing decision,
// every attempt made, and the final status.
type SendReport struct {
	MessageID  string               `json:"message_id"`
	UserID     string               `json:"user_id"`
	Success    bool                 `json:"success"`
	Deferred   bool                 `json:"deferred"`
	Status     comms.DeliveryStatus `json:"status"`
	Channel    comms.ChannelType    `json:"channel,omitempty"`
	ExternalID string               `json:"external_id,omitempty"`
	Attempts   []Attempt            `json:"attempts,omitempty"`

	// FallbackAttempts counts the failed attempts made before the channel
	// that finally succeeded.
	FallbackAttempts int `json:"fallback_attempts"`

	Error *comms.DeliveryError `json:"error,omitempty"`
}

// BroadcastReport summarizes a fan-out delivery across many users.
type BroadcastReport struct {
	Total     int                   `json:"total"`
	Succeeded int                   `json:"succeeded"`
	Deferred  int                   `json:"deferred"`
	Failed    int                   `json:"failed"`
	Reports   map[string]SendReport `json:"reports"`
}
