package logger

import (
	"log/slog"
	"time"

	"github.com/carebridgehq/comms/pkg/comms"
)

// Error creates an attribute for a single error under the key "error".
// Nil errors yield an empty Attr, which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// MessageID records the message identifier under the key "message_id".
func MessageID(id string) slog.Attr {
	return slog.String("message_id", id)
}

// Channel records the delivery channel under the key "channel".
func Channel(ch comms.ChannelType) slog.Attr {
	return slog.String("channel", string(ch))
}

// OrgID records the organization under the key "org_id".
func OrgID(id string) slog.Attr {
	return slog.String("org_id", id)
}

// UserID records the target user under the key "user_id".
func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

// ErrorCode records a delivery error code under the key "code".
func ErrorCode(code comms.ErrorCode) slog.Attr {
	return slog.String("code", string(code))
}

// AttemptNum records the delivery attempt number under the key "attempt".
func AttemptNum(n int) slog.Attr {
	return slog.Int("attempt", n)
}

// Latency records a duration under the key "latency".
func Latency(d time.Duration) slog.Attr {
	return slog.Duration("latency", d)
}
