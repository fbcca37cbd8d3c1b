package adapter

import (
	"context"

	"github.com/carebridgehq/comms/pkg/comms"
)

// Adapter is the contract every channel implementation satisfies. Adapters
// translate the generic message model into one provider's wire protocol.
//
// Send never returns a Go error: every outcome, including provider failures,
// is a comms.DeliveryResult so failure classification stays structured.
type Adapter interface {
	// Initialize configures the adapter. It must be called exactly once
	// before any other method; the factory enforces this.
	Initialize(ctx context.Context, cfg Config) error

	// Send delivers one message through the provider.
	Send(ctx context.Context, msg comms.Message) comms.DeliveryResult

	// Receive parses a raw inbound provider payload into a normalized
	// incoming message. One-way adapters return ErrNotSupported.
	Receive(ctx context.Context, payload RawPayload) (comms.IncomingMessage, error)

	// ValidateRecipient checks that an identifier is well-formed for this
	// channel. The orchestrator calls it before attempting a send.
	ValidateRecipient(identifier string) error

	// HealthCheck probes the provider and reports adapter health.
	HealthCheck(ctx context.Context) HealthResult

	// Capabilities describes what the channel supports.
	Capabilities() Capabilities

	// Shutdown drains in-flight sends and releases resources. The context
	// bounds the grace period; on expiry the adapter closes anyway.
	Shutdown(ctx context.Context) error
}

// RawPayload is an inbound provider webhook before parsing.
type RawPayload struct {
	Body    []byte
	Headers map[string]string
}

// Capabilities describes what a channel adapter supports.
type Capabilities struct {
	MessageTypes     []comms.MessageType `json:"message_types"`
	TwoWay           bool                `json:"two_way"`
	DeliveryReceipts bool                `json:"delivery_receipts"`
	SupportsBulk     bool                `json:"supports_bulk"`
	MaxMessageSize   int                 `json:"max_message_size"`
}

// Supports reports whether the adapter can carry the given message type.
func (c Capabilities) Supports(t comms.MessageType) bool {
	for _, mt := range c.MessageTypes {
		if mt == t {
			return true
		}
	}
	return false
}

// State is the adapter lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	// StateDegraded is entered after consecutive health-check failures or a
	// non-retryable auth error. Degraded adapters still accept sends so
	// transient provider issues can self-heal.
	StateDegraded
	StateShutdown
)

// String returns the lifecycle state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}
