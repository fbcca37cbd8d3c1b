package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/carebridgehq/comms/pkg/adapter"
	"github.com/carebridgehq/comms/pkg/comms"
)

// Credential and provider option keys recognized by the SMS adapter.
const (
	CredentialAPIKey = "api_key"
	OptionAPIURL     = "api_url"
	OptionSenderID   = "sender_id"
)

// e164Re matches international phone numbers in E.164 format.
var e164Re = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// sendRequest is the gateway's send endpoint body.
type sendRequest struct {
	Sender     string   `json:"sender"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
}

// sendResponse is the gateway's acknowledgment. Cost is the total price for
// all message parts, in the account currency.
type sendResponse struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Parts  int      `json:"parts"`
	Cost   *float64 `json:"cost,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Adapter delivers plain-text messages through an SMS gateway's REST API.
// One-way: inbound SMS is handled by the gateway's own delivery reports,
// outside this subsystem.
type Adapter struct {
	*adapter.Base

	client   *http.Client
	apiURL   string
	apiKey   string
	senderID string
}

// Option configures the SMS adapter.
type Option func(*Adapter)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Adapter) {
		if client != nil {
			a.client = client
		}
	}
}

// WithLogger sets the adapter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.Base = adapter.NewBase(adapter.WithLogger(logger))
	}
}

// New creates an uninitialized SMS adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		Base:   adapter.NewBase(),
		client: &http.Client{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Initialize validates gateway credentials and activates the send pipeline.
func (a *Adapter) Initialize(ctx context.Context, cfg adapter.Config) error {
	a.apiKey = cfg.Credential(CredentialAPIKey)
	if a.apiKey == "" {
		return fmt.Errorf("%w: %s credential is required", adapter.ErrInvalidConfig, CredentialAPIKey)
	}
	a.apiURL = cfg.ProviderOption(OptionAPIURL)
	if a.apiURL == "" {
		return fmt.Errorf("%w: %s provider option is required", adapter.ErrInvalidConfig, OptionAPIURL)
	}
	a.senderID = cfg.ProviderOption(OptionSenderID)
	if a.senderID == "" {
		return fmt.Errorf("%w: %s provider option is required", adapter.ErrInvalidConfig, OptionSenderID)
	}
	return a.Init(cfg)
}

// Send delivers one message through the gateway.
func (a *Adapter) Send(ctx context.Context, msg comms.Message) comms.DeliveryResult {
	return a.Execute(ctx, msg, a.ValidateRecipient, a.call)
}

func (a *Adapter) call(ctx context.Context, msg comms.Message) comms.DeliveryResult {
	body := msg.Content.Text
	if msg.Type != comms.TypeText {
		// SMS carries text only; media and rich content degrade to caption
		// plus link.
		if msg.Content.Caption != "" {
			body = msg.Content.Caption + " " + msg.Content.MediaURL
		} else {
			body = msg.Content.MediaURL
		}
	}
	if body == "" {
		return comms.Failed(msg.ID, comms.ChannelSMS,
			comms.NewDeliveryError(comms.CodeInvalidConfig, false, "message has no text representation"))
	}

	raw, err := json.Marshal(sendRequest{
		Sender:     a.senderID,
		Body:       body,
		Recipients: []string{msg.Recipient.Identifier},
	})
	if err != nil {
		return comms.Failed(msg.ID, comms.ChannelSMS,
			comms.NewDeliveryError(comms.CodeInvalidConfig, false, "marshal request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL+"/messages", bytes.NewReader(raw))
	if err != nil {
		return comms.Failed(msg.ID, comms.ChannelSMS,
			comms.NewDeliveryError(comms.CodeInvalidConfig, false, "build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return comms.Failed(msg.ID, comms.ChannelSMS,
				comms.NewDeliveryError(comms.CodeTimeout, true, "gateway call timed out: %v", err))
		}
		return comms.Failed(msg.ID, comms.ChannelSMS,
			comms.NewDeliveryError(comms.CodeProviderError, true, "gateway unreachable: %v", err))
	}
	defer func() { _ = resp.Body.Close() }()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return comms.Failed(msg.ID, comms.ChannelSMS, classify(resp.StatusCode, payload))
	}

	var ack sendResponse
	if err := json.Unmarshal(payload, &ack); err != nil {
		return comms.Failed(msg.ID, comms.ChannelSMS,
			comms.NewDeliveryError(comms.CodeProviderError, true, "malformed gateway response: %v", err))
	}

	res := comms.Sent(msg.ID, comms.ChannelSMS, ack.ID)
	if ack.Status == "queued" {
		res.Status = comms.StatusQueued
	}
	res.Cost = ack.Cost
	return res
}

func classify(status int, body []byte) *comms.DeliveryError {
	var ack sendResponse
	detail := http.StatusText(status)
	if err := json.Unmarshal(body, &ack); err == nil && ack.Error != "" {
		detail = ack.Error
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return comms.NewDeliveryError(comms.CodeAuthFailed, false, "gateway rejected credentials: %s", detail)
	case status == http.StatusTooManyRequests:
		return comms.NewDeliveryError(comms.CodeRateLimited, true, "gateway rate limit: %s", detail)
	case status >= 500:
		return comms.NewDeliveryError(comms.CodeProviderError, true, "gateway error %d: %s", status, detail)
	default:
		return comms.NewDeliveryError(comms.CodeProviderError, false, "gateway rejected message (%d): %s", status, detail)
	}
}

// Receive is not supported on the SMS channel.
func (a *Adapter) Receive(ctx context.Context, payload adapter.RawPayload) (comms.IncomingMessage, error) {
	return comms.IncomingMessage{}, adapter.ErrNotSupported
}

// ValidateRecipient requires E.164 phone number format.
func (a *Adapter) ValidateRecipient(identifier string) error {
	if !e164Re.MatchString(identifier) {
		return fmt.Errorf("phone number must be E.164 format")
	}
	return nil
}

// HealthCheck probes the gateway account endpoint, which also reports the
// remaining credit as metadata.
func (a *Adapter) HealthCheck(ctx context.Context) adapter.HealthResult {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiURL+"/account", nil)
	if err != nil {
		a.RecordHealth(false)
		return adapter.UnhealthyResult(a.ID(), a.State(), time.Since(start), err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		a.RecordHealth(false)
		return adapter.UnhealthyResult(a.ID(), a.State(), latency, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		a.RecordHealth(false)
		return adapter.UnhealthyResult(a.ID(), a.State(), latency,
			fmt.Sprintf("account endpoint returned %d", resp.StatusCode))
	}

	var account struct {
		Credit string `json:"credit"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4*1024)).Decode(&account)

	a.RecordHealth(true)
	res := adapter.HealthyResult(a.ID(), a.State(), latency)
	if account.Credit != "" {
		res.Metadata = map[string]string{"credit": account.Credit}
	}
	return res
}

// Capabilities: text only, no inbound.
func (a *Adapter) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{
		MessageTypes:     []comms.MessageType{comms.TypeText},
		DeliveryReceipts: true,
		SupportsBulk:     true,
		MaxMessageSize:   1600,
	}
}
