package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carebridgehq/comms/pkg/adapter"
	"github.com/carebridgehq/comms/pkg/comms"
	"github.com/carebridgehq/comms/pkg/signing"
)

// Credential and provider option keys recognized by the webhook adapter.
const (
	CredentialSigningSecret = "signing_secret"
	CredentialToken         = "token"
	CredentialAPIKey        = "api_key"
	CredentialUsername      = "username"
	CredentialPassword      = "password"

	OptionAuthScheme   = "auth_scheme"
	OptionAPIKeyHeader = "api_key_header"

	// Provider options prefixed with HeaderOptionPrefix become custom
	// headers on every delivery, e.g. "header_X-Care-Org" -> "X-Care-Org".
	HeaderOptionPrefix = "header_"
)

// Supported auth schemes.
const (
	AuthNone   = "none"
	AuthBearer = "bearer"
	AuthAPIKey = "apikey"
	AuthBasic  = "basic"
)

// SignaturePrefix names the signature headers attached to deliveries.
const SignaturePrefix = "X-Webhook"

// Envelope is the JSON body posted to subscriber endpoints. Subscribers
// verify it against the X-Webhook-* signature headers.
type Envelope struct {
	MessageID string            `json:"message_id"`
	Type      comms.MessageType `json:"type"`
	Category  string            `json:"category,omitempty"`
	Urgent    bool              `json:"urgent,omitempty"`
	Sender    comms.Sender      `json:"sender"`
	Content   comms.Content     `json:"content"`
	SentAt    time.Time         `json:"sent_at"`
}

// Adapter delivers messages as signed JSON webhooks to subscriber-owned
// endpoints. The recipient identifier is the destination URL. One-way.
type Adapter struct {
	*adapter.Base

	client        *http.Client
	scheme        string
	signingSecret string
	headers       map[string]string
	breaker       *circuitBreaker

	token        string
	apiKey       string
	apiKeyHeader string
	username     string
	password     string
}

// Option configures the webhook adapter.
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

// WithCircuitBreaker overrides the default breaker thresholds.
func WithCircuitBreaker(failureThreshold, successThreshold int, recoveryTimeout time.Duration) Option {
	return func(a *Adapter) {
		a.breaker = newCircuitBreaker(failureThreshold, successThreshold, recoveryTimeout)
	}
}

// New creates an uninitialized webhook adapter.
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
		breaker: newCircuitBreaker(0, 0, 0),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Initialize validates the auth scheme configuration and activates the send
// pipeline.
func (a *Adapter) Initialize(ctx context.Context, cfg adapter.Config) error {
	a.scheme = cfg.ProviderOption(OptionAuthScheme)
	if a.scheme == "" {
		a.scheme = AuthNone
	}

	switch a.scheme {
	case AuthNone:
	case AuthBearer:
		a.token = cfg.Credential(CredentialToken)
		if a.token == "" {
			return fmt.Errorf("%w: %s credential required for bearer auth", adapter.ErrInvalidConfig, CredentialToken)
		}
	case AuthAPIKey:
		a.apiKey = cfg.Credential(CredentialAPIKey)
		if a.apiKey == "" {
			return fmt.Errorf("%w: %s credential required for apikey auth", adapter.ErrInvalidConfig, CredentialAPIKey)
		}
		a.apiKeyHeader = cfg.ProviderOption(OptionAPIKeyHeader)
		if a.apiKeyHeader == "" {
			a.apiKeyHeader = "X-API-Key"
		}
	case AuthBasic:
		a.username = cfg.Credential(CredentialUsername)
		a.password = cfg.Credential(CredentialPassword)
		if a.username == "" || a.password == "" {
			return fmt.Errorf("%w: username and password credentials required for basic auth", adapter.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown auth scheme %q", adapter.ErrInvalidConfig, a.scheme)
	}

	a.signingSecret = cfg.Credential(CredentialSigningSecret)

	a.headers = make(map[string]string)
	for k, v := range cfg.Settings.ProviderOptions {
		if name, ok := strings.CutPrefix(k, HeaderOptionPrefix); ok && name != "" {
			a.headers[name] = v
		}
	}

	return a.Init(cfg)
}

// Send posts the message envelope to the recipient's endpoint.
func (a *Adapter) Send(ctx context.Context, msg comms.Message) comms.DeliveryResult {
	return a.Execute(ctx, msg, a.ValidateRecipient, a.call)
}

func (a *Adapter) call(ctx context.Context, msg comms.Message) comms.DeliveryResult {
	// Fail fast while the breaker protects the endpoint. The error stays
	// retryable so the orchestrator can back off or fall back.
	if !a.breaker.allow() {
		return comms.Failed(msg.ID, comms.ChannelWebhook,
			comms.NewDeliveryError(comms.CodeProviderError, true, "circuit breaker open for endpoint"))
	}

	envelope := Envelope{
		MessageID: msg.ID,
		Type:      msg.Type,
		Category:  msg.Metadata.Category,
		Urgent:    msg.Metadata.Urgent,
		Sender:    msg.Sender,
		Content:   msg.Content,
		SentAt:    time.Now().UTC(),
	}

	raw, err := json.Marshal(envelope)
	if err != nil {
		return comms.Failed(msg.ID, comms.ChannelWebhook,
			comms.NewDeliveryError(comms.CodeInvalidConfig, false, "marshal envelope: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, msg.Recipient.Identifier, bytes.NewReader(raw))
	if err != nil {
		return comms.Failed(msg.ID, comms.ChannelWebhook,
			comms.NewDeliveryError(comms.CodeInvalidRecipient, false, "build request: %v", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "carebridge-comms/1.0")
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}
	a.applyAuth(req)

	if a.signingSecret != "" {
		sig, err := signing.Sign(a.signingSecret, raw)
		if err != nil {
			return comms.Failed(msg.ID, comms.ChannelWebhook,
				comms.NewDeliveryError(comms.CodeInvalidConfig, false, "sign payload: %v", err))
		}
		for k, v := range sig.Map(SignaturePrefix) {
			req.Header.Set(k, v)
		}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.breaker.recordFailure()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return comms.Failed(msg.ID, comms.ChannelWebhook,
				comms.NewDeliveryError(comms.CodeTimeout, true, "endpoint timed out: %v", err))
		}
		return comms.Failed(msg.ID, comms.ChannelWebhook,
			comms.NewDeliveryError(comms.CodeProviderError, true, "endpoint unreachable: %v", err))
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		a.breaker.recordSuccess()
		return comms.Sent(msg.ID, comms.ChannelWebhook, "")
	}

	a.breaker.recordFailure()
	return comms.Failed(msg.ID, comms.ChannelWebhook, classify(resp.StatusCode))
}

func (a *Adapter) applyAuth(req *http.Request) {
	switch a.scheme {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+a.token)
	case AuthAPIKey:
		req.Header.Set(a.apiKeyHeader, a.apiKey)
	case AuthBasic:
		req.SetBasicAuth(a.username, a.password)
	}
}

// classify follows HTTP semantics: most 4xx responses are subscriber-side
// configuration problems that will not resolve on retry, except the usual
// timing-related trio.
func classify(status int) *comms.DeliveryError {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return comms.NewDeliveryError(comms.CodeAuthFailed, false, "endpoint rejected credentials (%d)", status)
	case status == http.StatusRequestTimeout, status == http.StatusTooEarly, status == http.StatusTooManyRequests:
		return comms.NewDeliveryError(comms.CodeProviderError, true, "endpoint busy (%d)", status)
	case status >= 500:
		return comms.NewDeliveryError(comms.CodeProviderError, true, "endpoint error (%d)", status)
	default:
		return comms.NewDeliveryError(comms.CodeProviderError, false, "endpoint rejected delivery (%d)", status)
	}
}

// Receive is not supported: outbound webhooks are one-way.
func (a *Adapter) Receive(ctx context.Context, payload adapter.RawPayload) (comms.IncomingMessage, error) {
	return comms.IncomingMessage{}, adapter.ErrNotSupported
}

// ValidateRecipient requires a well-formed http(s) URL with a host.
func (a *Adapter) ValidateRecipient(identifier string) error {
	u, err := url.Parse(identifier)
	if err != nil {
		return fmt.Errorf("malformed endpoint URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint must use http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint host is required")
	}
	return nil
}

// HealthCheck reports the breaker position; there is no single provider to
// probe since every recipient owns its endpoint.
func (a *Adapter) HealthCheck(ctx context.Context) adapter.HealthResult {
	state := a.breaker.current()
	healthy := state != circuitOpen
	a.RecordHealth(healthy)

	res := adapter.HealthyResult(a.ID(), a.State(), 0)
	if !healthy {
		res = adapter.UnhealthyResult(a.ID(), a.State(), 0, "circuit breaker open")
	}
	res.Metadata = map[string]string{"circuit": state.String()}
	return res
}

// Capabilities reports what webhook subscribers can receive.
func (a *Adapter) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{
		MessageTypes: []comms.MessageType{
			comms.TypeText, comms.TypeRichText, comms.TypeImage, comms.TypeVideo,
			comms.TypeAudio, comms.TypeDocument, comms.TypeTemplate,
		},
		SupportsBulk:   true,
		MaxMessageSize: 256 * 1024,
	}
}
