package chat

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
	"github.com/carebridgehq/comms/pkg/signing"
)

// Credential and provider option keys recognized by the chat adapter.
const (
	CredentialAPIToken      = "api_token"
	CredentialWebhookSecret = "webhook_secret"
	OptionAPIURL            = "api_url"
)

// SignaturePrefix names the headers carrying the inbound webhook signature.
const SignaturePrefix = "X-Chat"

// identifierRe accepts provider account handles: letters, digits and a few
// separators, at least three characters.
var identifierRe = regexp.MustCompile(`^[A-Za-z0-9@._+-]{3,128}$`)

// Adapter delivers messages through an instant-messaging provider's REST API
// and parses the provider's inbound webhooks. It is a two-way channel.
type Adapter struct {
	*adapter.Base

	client        *http.Client
	apiURL        string
	token         string
	webhookSecret string
}

// Option configures the chat adapter.
type Option func(*Adapter)

// WithHTTPClient sets a custom HTTP client, useful for tests and proxies.
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

// New creates an uninitialized chat adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		Base: adapter.NewBase(),
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Initialize validates credentials and activates the send pipeline.
// Required: api_token credential and api_url provider option. The
// webhook_secret credential is required only for inbound verification.
func (a *Adapter) Initialize(ctx context.Context, cfg adapter.Config) error {
	a.token = cfg.Credential(CredentialAPIToken)
	if a.token == "" {
		return fmt.Errorf("%w: %s credential is required", adapter.ErrInvalidConfig, CredentialAPIToken)
	}
	a.apiURL = cfg.ProviderOption(OptionAPIURL)
	if a.apiURL == "" {
		return fmt.Errorf("%w: %s provider option is required", adapter.ErrInvalidConfig, OptionAPIURL)
	}
	a.webhookSecret = cfg.Credential(CredentialWebhookSecret)

	return a.Init(cfg)
}

// Send delivers one message through the provider REST endpoint.
func (a *Adapter) Send(ctx context.Context, msg comms.Message) comms.DeliveryResult {
	return a.Execute(ctx, msg, a.ValidateRecipient, a.call)
}

func (a *Adapter) call(ctx context.Context, msg comms.Message) comms.DeliveryResult {
	payload, err := toWire(msg)
	if err != nil {
		return comms.Failed(msg.ID, comms.ChannelChat,
			comms.NewDeliveryError(comms.CodeInvalidConfig, false, "%v", err))
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return comms.Failed(msg.ID, comms.ChannelChat,
			comms.NewDeliveryError(comms.CodeInvalidConfig, false, "marshal payload: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL+"/v1/messages", bytes.NewReader(raw))
	if err != nil {
		return comms.Failed(msg.ID, comms.ChannelChat,
			comms.NewDeliveryError(comms.CodeInvalidConfig, false, "build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return comms.Failed(msg.ID, comms.ChannelChat,
				comms.NewDeliveryError(comms.CodeTimeout, true, "provider call timed out: %v", err))
		}
		return comms.Failed(msg.ID, comms.ChannelChat,
			comms.NewDeliveryError(comms.CodeProviderError, true, "provider unreachable: %v", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var ack sendResponse
		if err := json.Unmarshal(body, &ack); err != nil {
			return comms.Failed(msg.ID, comms.ChannelChat,
				comms.NewDeliveryError(comms.CodeProviderError, true, "malformed provider response: %v", err))
		}
		res := comms.Sent(msg.ID, comms.ChannelChat, ack.MessageID)
		if ack.Status == "queued" {
			res.Status = comms.StatusQueued
		}
		return res
	}

	return comms.Failed(msg.ID, comms.ChannelChat, classify(resp.StatusCode, body))
}

// classify maps provider HTTP errors onto the delivery error taxonomy:
// timeouts, 429 and 5xx are retryable; auth errors are fatal and degrade the
// adapter; other 4xx are fatal validation failures.
func classify(status int, body []byte) *comms.DeliveryError {
	var detail string
	var envelope errorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		detail = envelope.Error.Message
	} else {
		detail = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return comms.NewDeliveryError(comms.CodeAuthFailed, false, "provider rejected credentials: %s", detail)
	case status == http.StatusTooManyRequests:
		return comms.NewDeliveryError(comms.CodeRateLimited, true, "provider rate limit: %s", detail)
	case status == http.StatusRequestTimeout:
		return comms.NewDeliveryError(comms.CodeTimeout, true, "provider timeout: %s", detail)
	case status >= 500:
		return comms.NewDeliveryError(comms.CodeProviderError, true, "provider error %d: %s", status, detail)
	default:
		return comms.NewDeliveryError(comms.CodeProviderError, false, "provider rejected message (%d): %s", status, detail)
	}
}

// Receive verifies and parses an inbound provider webhook into a normalized
// incoming message. The signature headers must validate against the
// configured webhook secret.
func (a *Adapter) Receive(ctx context.Context, payload adapter.RawPayload) (comms.IncomingMessage, error) {
	if a.webhookSecret == "" {
		return comms.IncomingMessage{}, fmt.Errorf("%w: no webhook secret configured", adapter.ErrInvalidConfig)
	}

	sig, err := signing.Extract(payload.Headers, SignaturePrefix)
	if err != nil {
		return comms.IncomingMessage{}, err
	}
	if err := signing.Verify(a.webhookSecret, payload.Body, sig, signing.DefaultMaxAge); err != nil {
		return comms.IncomingMessage{}, err
	}

	var in inboundPayload
	if err := json.Unmarshal(payload.Body, &in); err != nil {
		return comms.IncomingMessage{}, fmt.Errorf("parse inbound payload: %w", err)
	}
	if in.MessageID == "" || in.From == "" {
		return comms.IncomingMessage{}, fmt.Errorf("inbound payload missing message_id or from")
	}

	typ, content := fromWire(in.Type, in.Body)
	received := time.Now()
	if in.Timestamp > 0 {
		received = time.Unix(in.Timestamp, 0)
	}

	return comms.IncomingMessage{
		ExternalID:     in.MessageID,
		Channel:        comms.ChannelChat,
		Sender:         in.From,
		Content:        content,
		Type:           typ,
		ReceivedAt:     received,
		ConversationID: in.ConversationID,
	}, nil
}

// ValidateRecipient checks the provider account handle format.
func (a *Adapter) ValidateRecipient(identifier string) error {
	if !identifierRe.MatchString(identifier) {
		return fmt.Errorf("malformed chat identifier")
	}
	return nil
}

// HealthCheck probes the provider status endpoint.
func (a *Adapter) HealthCheck(ctx context.Context) adapter.HealthResult {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiURL+"/v1/status", nil)
	if err != nil {
		a.RecordHealth(false)
		return adapter.UnhealthyResult(a.ID(), a.State(), time.Since(start), err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+a.token)

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
			fmt.Sprintf("status endpoint returned %d", resp.StatusCode))
	}

	a.RecordHealth(true)
	return adapter.HealthyResult(a.ID(), a.State(), latency)
}

// Capabilities reports the full message-type surface of the chat channel.
func (a *Adapter) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{
		MessageTypes: []comms.MessageType{
			comms.TypeText, comms.TypeRichText, comms.TypeImage, comms.TypeVideo,
			comms.TypeAudio, comms.TypeDocument, comms.TypeTemplate,
		},
		TwoWay:           true,
		DeliveryReceipts: true,
		MaxMessageSize:   4096,
	}
}
