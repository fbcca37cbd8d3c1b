package comms

import (
	"fmt"
	"time"
)

// DeliveryStatus is the terminal status of a delivery attempt.
type DeliveryStatus string

const (
	StatusQueued    DeliveryStatus = "queued"
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
)

// ErrorCode classifies delivery failures. Codes are stable identifiers meant
// for programmatic handling; the Message field carries human-readable detail.
type ErrorCode string

const (
	CodeRateLimited      ErrorCode = "RATE_LIMITED"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeProviderError    ErrorCode = "PROVIDER_ERROR"
	CodeInvalidRecipient ErrorCode = "INVALID_RECIPIENT"
	CodeInvalidConfig    ErrorCode = "INVALID_CONFIG"
	CodeAuthFailed       ErrorCode = "AUTH_FAILED"
	CodeNoConsent        ErrorCode = "NO_CONSENT"
	CodeNoRoute          ErrorCode = "NO_ROUTE"
	CodeNotInitialized   ErrorCode = "NOT_INITIALIZED"
	CodeShuttingDown     ErrorCode = "SHUTTING_DOWN"
)

// DeliveryError is a structured delivery failure. It travels inside a
// DeliveryResult rather than being returned as a Go error so adapters never
// let failures escape their boundary.
type DeliveryError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

// Error implements the error interface for logging and wrapping.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewDeliveryError builds a structured delivery error.
func NewDeliveryError(code ErrorCode, retryable bool, format string, args ...any) *DeliveryError {
	return &DeliveryError{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Retryable: retryable,
	}
}

// DeliveryResult describes the outcome of one channel attempt.
type DeliveryResult struct {
	Success    bool           `json:"success"`
	MessageID  string         `json:"message_id"`
	ExternalID string         `json:"external_id,omitempty"`
	Channel    ChannelType    `json:"channel"`
	Status     DeliveryStatus `json:"status"`
	Timestamp  time.Time      `json:"timestamp"`
	Cost       *float64       `json:"cost,omitempty"`
	Err        *DeliveryError `json:"error,omitempty"`
}

// Failed builds a failure result for the given message and channel.
func Failed(messageID string, channel ChannelType, err *DeliveryError) DeliveryResult {
	return DeliveryResult{
		MessageID: messageID,
		Channel:   channel,
		Status:    StatusFailed,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Sent builds a success result with the provider-assigned external id.
func Sent(messageID string, channel ChannelType, externalID string) DeliveryResult {
	return DeliveryResult{
		Success:    true,
		MessageID:  messageID,
		ExternalID: externalID,
		Channel:    channel,
		Status:     StatusSent,
		Timestamp:  time.Now(),
	}
}

// Retryable reports whether the result is a failure worth retrying.
func (r DeliveryResult) Retryable() bool {
	return !r.Success && r.Err != nil && r.Err.Retryable
}
