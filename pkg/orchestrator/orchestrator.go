package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carebridgehq/comms/pkg/adapter"
	"github.com/carebridgehq/comms/pkg/comms"
	"github.com/carebridgehq/comms/pkg/preferences"
)

// DefaultBroadcastConcurrency bounds the broadcast fan-out.
const DefaultBroadcastConcurrency = 8

// AdapterSource hands out initialized adapters. *factory.Factory satisfies
// it.
type AdapterSource interface {
	Get(ctx context.Context, cfg adapter.Config) (adapter.Adapter, error)
}

// PreferenceSource loads user preference records. *preferences.Service
// satisfies it.
type PreferenceSource interface {
	Get(ctx context.Context, orgID, userID string) (preferences.UserPreference, error)
}

// ConfigSource supplies adapter configurations per organization and channel.
type ConfigSource interface {
	ConfigFor(ctx context.Context, orgID string, ch comms.ChannelType) (adapter.Config, error)
}

// StaticConfigs is a ConfigSource backed by a fixed map, keyed org then
// channel.
type StaticConfigs map[string]map[comms.ChannelType]adapter.Config

func (s StaticConfigs) ConfigFor(ctx context.Context, orgID string, ch comms.ChannelType) (adapter.Config, error) {
	cfg, ok := s[orgID][ch]
	if !ok {
		return adapter.Config{}, fmt.Errorf("%w: %s for org %s", ErrNoConfig, ch, orgID)
	}
	return cfg, nil
}

// Orchestrator routes messages to users: it resolves the channel order from
// preferences, enforces consent and quiet hours, and walks the fallback
// chain until one channel delivers.
type Orchestrator struct {
	adapters  AdapterSource
	prefs     PreferenceSource
	configs   ConfigSource
	log       *slog.Logger
	now       func() time.Time
	broadcast int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithBroadcastConcurrency sets the broadcast fan-out bound.
func WithBroadcastConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.broadcast = n
		}
	}
}

// New creates an orchestrator over the given sources.
func New(adapters AdapterSource, prefs PreferenceSource, configs ConfigSource, opts ...Option) (*Orchestrator, error) {
	if adapters == nil {
		return nil, errors.New("adapter source is required")
	}
	if prefs == nil {
		return nil, errors.New("preference source is required")
	}
	if configs == nil {
		return nil, errors.New("config source is required")
	}

	o := &Orchestrator{
		adapters:  adapters,
		prefs:     prefs,
		configs:   configs,
		log:       slog.Default(),
		now:       time.Now,
		broadcast: DefaultBroadcastConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Send delivers one message to one user. Attempts within a send are
// strictly sequential; the first successful channel ends the walk.
func (o *Orchestrator) Send(ctx context.Context, req SendRequest) (SendReport, error) {
	msg := req.Message
	if req.UserID == "" {
		return SendReport{}, fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	if msg.Sender.OrgID == "" {
		return SendReport{}, fmt.Errorf("%w: sender org id is required", ErrInvalidRequest)
	}
	if err := msg.Validate(); err != nil {
		return SendReport{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	report := SendReport{MessageID: msg.ID, UserID: req.UserID, Status: comms.StatusFailed}
	orgID := msg.Sender.OrgID

	pref, err := o.prefs.Get(ctx, orgID, req.UserID)
	if errors.Is(err, preferences.ErrNotFound) || (err == nil && !pref.ConsentGiven) {
		report.Error = comms.NewDeliveryError(comms.CodeNoConsent, false,
			"user %s has not consented to messages", req.UserID)
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("load preference: %w", err)
	}

	routes := resolveRoutes(pref, msg.Options)
	if len(routes) == 0 {
		report.Error = comms.NewDeliveryError(comms.CodeNoRoute, false,
			"no channel with a verified identifier for user %s", req.UserID)
		return report, nil
	}

	if !msg.Options.OverrideQuietHours && !msg.IsUrgent() {
		quiet, err := pref.InQuietHours(o.now())
		if err != nil {
			return report, fmt.Errorf("evaluate quiet hours: %w", err)
		}
		if quiet {
			report.Deferred = true
			report.Status = comms.StatusQueued
			o.log.InfoContext(ctx, "delivery deferred for quiet hours",
				slog.String("message_id", msg.ID),
				slog.String("user_id", req.UserID))
			return report, nil
		}
	}

	for _, route := range routes {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result := o.attempt(ctx, orgID, route, msg)
		report.Attempts = append(report.Attempts, Attempt{
			Channel:    route.channel,
			Identifier: route.identifier,
			Result:     result,
		})

		if result.Err == nil {
			report.Success = true
			report.Status = result.Status
			report.Channel = route.channel
			report.ExternalID = result.ExternalID
			report.FallbackAttempts = len(report.Attempts) - 1
			return report, nil
		}

		o.log.WarnContext(ctx, "channel attempt failed",
			slog.String("message_id", msg.ID),
			slog.String("channel", string(route.channel)),
			slog.String("code", string(result.Err.Code)))
		report.Error = result.Err
	}

	return report, nil
}

// route is one resolved delivery candidate.
type route struct {
	channel    comms.ChannelType
	identifier string
}

// resolveRoutes orders delivery candidates: the primary channel first, then
// the request's fallback list, then the stored fallback list. Channels
// without a verified identifier are skipped and duplicates keep their first
// position. AllowFallback=false reduces the result to the single best
// candidate, ignoring the request's fallback list.
func resolveRoutes(pref preferences.UserPreference, opts comms.DeliveryOptions) []route {
	ordered := make([]comms.ChannelType, 0, 1+len(opts.FallbackChannels)+len(pref.FallbackChannels))
	if pref.PrimaryChannel != "" {
		ordered = append(ordered, pref.PrimaryChannel)
	}
	if opts.AllowFallback {
		ordered = append(ordered, opts.FallbackChannels...)
	}
	ordered = append(ordered, pref.FallbackChannels...)

	seen := make(map[comms.ChannelType]struct{}, len(ordered))
	var routes []route
	for _, ch := range ordered {
		if _, dup := seen[ch]; dup {
			continue
		}
		seen[ch] = struct{}{}

		id, ok := pref.VerifiedIdentifier(ch)
		if !ok {
			continue
		}
		routes = append(routes, route{channel: ch, identifier: id})
	}

	if !opts.AllowFallback && len(routes) > 1 {
		routes = routes[:1]
	}
	return routes
}

func (o *Orchestrator) attempt(ctx context.Context, orgID string, r route, msg comms.Message) comms.DeliveryResult {
	cfg, err := o.configs.ConfigFor(ctx, orgID, r.channel)
	if err != nil {
		return comms.Failed(msg.ID, r.channel,
			comms.NewDeliveryError(comms.CodeNoRoute, false, "no adapter config: %v", err))
	}

	a, err := o.adapters.Get(ctx, cfg)
	if err != nil {
		return comms.Failed(msg.ID, r.channel,
			comms.NewDeliveryError(comms.CodeInvalidConfig, false, "adapter unavailable: %v", err))
	}

	msg.Recipient = comms.Recipient{
		Channel:     r.channel,
		Identifier:  r.identifier,
		DisplayName: msg.Recipient.DisplayName,
	}
	return a.Send(ctx, msg)
}

// Broadcast fans one message out to many users with bounded concurrency.
// Each recipient is routed independently; one failing record never affects
// the rest of the batch.
func (o *Orchestrator) Broadcast(ctx context.Context, msg comms.Message, userIDs []string) BroadcastReport {
	report := BroadcastReport{
		Total:   len(userIDs),
		Reports: make(map[string]SendReport, len(userIDs)),
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, o.broadcast)
	)
	for _, userID := range userIDs {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				report.Reports[userID] = SendReport{
					UserID: userID,
					Status: comms.StatusFailed,
					Error: comms.NewDeliveryError(comms.CodeTimeout, false,
						"broadcast canceled: %v", ctx.Err()),
				}
				report.Failed++
				mu.Unlock()
				return
			}

			// Each recipient gets its own message id so provider-side
			// tracking stays per delivery.
			sub := msg
			sub.ID = uuid.NewString()

			r, err := o.Send(ctx, SendRequest{Message: sub, UserID: userID})
			if err != nil {
				r = SendReport{
					MessageID: sub.ID,
					UserID:    userID,
					Status:    comms.StatusFailed,
					Error: comms.NewDeliveryError(comms.CodeProviderError, false,
						"send failed: %v", err),
				}
			}

			mu.Lock()
			report.Reports[userID] = r
			switch {
			case r.Success:
				report.Succeeded++
			case r.Deferred:
				report.Deferred++
			default:
				report.Failed++
			}
			mu.Unlock()
		}(userID)
	}
	wg.Wait()

	return report
}
