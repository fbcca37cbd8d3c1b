package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxAge is the replay window accepted by Verify when the caller
// passes no explicit limit.
const DefaultMaxAge = 5 * time.Minute

// Headers carries the signature material attached to a signed payload.
// Header names are derived from a per-channel prefix, e.g. "X-Webhook" or
// "X-Chat".
type Headers struct {
	Signature string
	Timestamp int64
	ID        string
}

// Map returns the headers keyed with the given prefix for HTTP transport.
func (h Headers) Map(prefix string) map[string]string {
	return map[string]string{
		prefix + "-Signature": h.Signature,
		prefix + "-Timestamp": strconv.FormatInt(h.Timestamp, 10),
		prefix + "-ID":        h.ID,
	}
}

// Sign creates an HMAC-SHA256 signature over the payload bound to the
// current timestamp. Signature format: HMAC-SHA256(secret, timestamp + "." +
// payload), hex encoded. Timestamp binding prevents replaying captured
// payloads outside the verification window.
func Sign(secret string, payload []byte) (Headers, error) {
	if secret == "" {
		return Headers{}, fmt.Errorf("%w: secret is required", ErrInvalidSecret)
	}
	if len(payload) == 0 {
		return Headers{}, fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}

	ts := time.Now().Unix()
	return Headers{
		Signature: compute(secret, ts, payload),
		Timestamp: ts,
		ID:        uuid.New().String(),
	}, nil
}

// Verify validates payload authenticity and freshness. Comparison is
// constant-time; timestamps older than maxAge (or more than a minute in the
// future) are rejected to block replays.
func Verify(secret string, payload []byte, h Headers, maxAge time.Duration) error {
	if secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidSecret)
	}
	if len(payload) == 0 {
		return fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}
	if h.Signature == "" {
		return fmt.Errorf("%w: signature is missing", ErrInvalidSignature)
	}

	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	age := time.Since(time.Unix(h.Timestamp, 0))
	if age > maxAge {
		return fmt.Errorf("%w: timestamp too old: %v", ErrInvalidSignature, age)
	}
	if age < -time.Minute {
		return fmt.Errorf("%w: timestamp is in the future", ErrInvalidSignature)
	}

	expected := compute(secret, h.Timestamp, payload)
	if !hmac.Equal([]byte(expected), []byte(h.Signature)) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
	}
	return nil
}

// Extract pulls signature headers out of an HTTP header map for the given
// prefix. Lookup is case-insensitive since proxies rewrite header casing.
func Extract(headers map[string]string, prefix string) (Headers, error) {
	var h Headers

	get := func(suffix string) string {
		want := strings.ToLower(prefix + suffix)
		for k, v := range headers {
			if strings.ToLower(k) == want {
				return v
			}
		}
		return ""
	}

	h.Signature = get("-Signature")
	h.ID = get("-ID")

	if raw := get("-Timestamp"); raw != "" {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Headers{}, fmt.Errorf("%w: invalid timestamp format", ErrInvalidSignature)
		}
		h.Timestamp = ts
	}

	if h.Signature == "" || h.Timestamp == 0 {
		return Headers{}, fmt.Errorf("%w: missing required signature headers", ErrInvalidSignature)
	}
	return h, nil
}

func compute(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return hex.EncodeToString(mac.Sum(nil))
}
