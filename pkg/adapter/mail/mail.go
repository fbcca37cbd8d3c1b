package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/mrz1836/postmark"

	"github.com/carebridgehq/comms/pkg/adapter"
	"github.com/carebridgehq/comms/pkg/comms"
)

// Credential and provider option keys recognized by the email adapter.
const (
	CredentialServerToken  = "server_token"
	CredentialAccountToken = "account_token"
	OptionSenderEmail      = "sender_email"
	OptionReplyTo          = "reply_to"
)

// Postmark API error codes the adapter classifies explicitly.
const (
	pmErrBadToken          = 10
	pmErrInvalidRequest    = 300
	pmErrInactiveRecipient = 406
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Adapter delivers email through Postmark's transactional API. One-way:
// inbound email processing lives in Postmark's own inbound streams, outside
// this subsystem.
type Adapter struct {
	*adapter.Base

	client      *postmark.Client
	senderEmail string
	replyTo     string
}

// Option configures the email adapter.
type Option func(*Adapter)

// WithClient sets a custom Postmark client. Initialize keeps it instead of
// constructing one from credentials.
func WithClient(client *postmark.Client) Option {
	return func(a *Adapter) {
		a.client = client
	}
}

// WithLogger sets the adapter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.Base = adapter.NewBase(adapter.WithLogger(logger))
	}
}

// New creates an uninitialized email adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		Base: adapter.NewBase(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Initialize validates Postmark credentials and activates the send pipeline.
func (a *Adapter) Initialize(ctx context.Context, cfg adapter.Config) error {
	serverToken := cfg.Credential(CredentialServerToken)
	accountToken := cfg.Credential(CredentialAccountToken)
	if a.client == nil {
		if serverToken == "" {
			return fmt.Errorf("%w: %s credential is required", adapter.ErrInvalidConfig, CredentialServerToken)
		}
		if accountToken == "" {
			return fmt.Errorf("%w: %s credential is required", adapter.ErrInvalidConfig, CredentialAccountToken)
		}
		a.client = postmark.NewClient(serverToken, accountToken)
	}

	a.senderEmail = cfg.ProviderOption(OptionSenderEmail)
	if !emailRe.MatchString(a.senderEmail) {
		return fmt.Errorf("%w: %s must be a valid email address", adapter.ErrInvalidConfig, OptionSenderEmail)
	}
	a.replyTo = cfg.ProviderOption(OptionReplyTo)
	if a.replyTo != "" && !emailRe.MatchString(a.replyTo) {
		return fmt.Errorf("%w: %s must be a valid email address", adapter.ErrInvalidConfig, OptionReplyTo)
	}
	return a.Init(cfg)
}

// Send delivers one message through Postmark.
func (a *Adapter) Send(ctx context.Context, msg comms.Message) comms.DeliveryResult {
	return a.Execute(ctx, msg, a.ValidateRecipient, a.call)
}

func (a *Adapter) call(ctx context.Context, msg comms.Message) comms.DeliveryResult {
	var (
		resp postmark.EmailResponse
		err  error
	)
	if msg.Type == comms.TypeTemplate {
		resp, err = a.client.SendTemplatedEmail(ctx, postmark.TemplatedEmail{
			From:          a.senderEmail,
			ReplyTo:       a.replyTo,
			To:            msg.Recipient.Identifier,
			Tag:           msg.Metadata.Category,
			TemplateAlias: msg.Content.TemplateID,
			TemplateModel: templateModel(msg.Content.TemplateParams),
			TrackOpens:    true,
		})
	} else {
		email := postmark.Email{
			From:       a.senderEmail,
			ReplyTo:    a.replyTo,
			To:         msg.Recipient.Identifier,
			Subject:    subject(msg),
			Tag:        msg.Metadata.Category,
			TrackOpens: true,
		}
		switch msg.Type {
		case comms.TypeRichText:
			email.HTMLBody = msg.Content.Text
			email.TrackLinks = "HtmlOnly"
		case comms.TypeText:
			email.TextBody = msg.Content.Text
		default:
			// Media is delivered as a link; attachments require fetching
			// the content, which the gateway does not do on behalf of
			// producers.
			email.TextBody = mediaBody(msg.Content)
		}
		resp, err = a.client.SendEmail(ctx, email)
	}

	// The client reports API rejections twice: resp.ErrorCode is set and err
	// is non-nil. ErrorCode is authoritative, so classify it before the err
	// branch; what remains there is transport failure.
	if resp.ErrorCode > 0 {
		return comms.Failed(msg.ID, comms.ChannelEmail, classify(resp.ErrorCode, resp.Message))
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return comms.Failed(msg.ID, comms.ChannelEmail,
				comms.NewDeliveryError(comms.CodeTimeout, true, "postmark call timed out: %v", err))
		}
		return comms.Failed(msg.ID, comms.ChannelEmail,
			comms.NewDeliveryError(comms.CodeProviderError, true, "postmark unreachable: %v", err))
	}
	return comms.Sent(msg.ID, comms.ChannelEmail, resp.MessageID)
}

func classify(code int64, message string) *comms.DeliveryError {
	switch code {
	case pmErrBadToken:
		return comms.NewDeliveryError(comms.CodeAuthFailed, false, "postmark rejected credentials: %s", message)
	case pmErrInvalidRequest, pmErrInactiveRecipient:
		return comms.NewDeliveryError(comms.CodeInvalidRecipient, false, "postmark rejected recipient: %s", message)
	default:
		return comms.NewDeliveryError(comms.CodeProviderError, false, "postmark error %d: %s", code, message)
	}
}

func subject(msg comms.Message) string {
	if msg.Content.Subject != "" {
		return msg.Content.Subject
	}
	if msg.Sender.Role != "" {
		return "New message from your " + msg.Sender.Role
	}
	return "New message"
}

func mediaBody(content comms.Content) string {
	if content.Caption != "" {
		return content.Caption + "\n\n" + content.MediaURL
	}
	return content.MediaURL
}

func templateModel(params map[string]string) map[string]any {
	model := make(map[string]any, len(params))
	for k, v := range params {
		model[k] = v
	}
	return model
}

// Receive is not supported on the email channel.
func (a *Adapter) Receive(ctx context.Context, payload adapter.RawPayload) (comms.IncomingMessage, error) {
	return comms.IncomingMessage{}, adapter.ErrNotSupported
}

// ValidateRecipient requires a plausible email address.
func (a *Adapter) ValidateRecipient(identifier string) error {
	if !emailRe.MatchString(identifier) {
		return fmt.Errorf("identifier must be a valid email address")
	}
	return nil
}

// HealthCheck reports adapter state. The Postmark client offers no cheap
// ping endpoint, so health here reflects the outcome of recent sends rather
// than a live probe.
func (a *Adapter) HealthCheck(ctx context.Context) adapter.HealthResult {
	start := time.Now()
	state := a.State()
	if state != adapter.StateReady {
		return adapter.UnhealthyResult(a.ID(), state, time.Since(start),
			fmt.Sprintf("adapter state is %s", state))
	}
	a.RecordHealth(true)
	return adapter.HealthyResult(a.ID(), state, time.Since(start))
}

// Capabilities reports what the email channel supports.
func (a *Adapter) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{
		MessageTypes: []comms.MessageType{
			comms.TypeText,
			comms.TypeRichText,
			comms.TypeImage,
			comms.TypeDocument,
			comms.TypeTemplate,
		},
		TwoWay:           false,
		DeliveryReceipts: true,
		SupportsBulk:     false,
		MaxMessageSize:   10 * 1024 * 1024,
	}
}
