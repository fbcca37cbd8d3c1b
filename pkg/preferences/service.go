package preferences

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carebridgehq/comms/pkg/comms"
)

// Service coordinates preference reads and writes. Writes for the same user
// are serialized so concurrent consent changes and identifier updates cannot
// interleave into a lost update.
type Service struct {
	storage Storage
	log     *slog.Logger
	now     func() time.Time

	locksMu sync.Mutex
	locks   map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a preference service over the given storage.
func NewService(storage Storage, opts ...ServiceOption) (*Service, error) {
	if storage == nil {
		return nil, errors.New("storage is required")
	}
	s := &Service{
		storage: storage,
		log:     slog.Default(),
		now:     time.Now,
		locks:   make(map[string]*userLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// lockUser serializes writes per (org, user). The returned func releases
// the lock.
func (s *Service) lockUser(orgID, userID string) func() {
	key := storageKey(orgID, userID)

	s.locksMu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &userLock{}
		s.locks[key] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.locksMu.Unlock()
	}
}

// Get returns one user's preference record.
func (s *Service) Get(ctx context.Context, orgID, userID string) (UserPreference, error) {
	return s.storage.Get(ctx, orgID, userID)
}

// Upsert creates or replaces a preference record. Consent fields are
// protected: when a record already exists its stored consent state is kept,
// so consent only changes through SetOptIn and SetOptOut where it is
// audited.
func (s *Service) Upsert(ctx context.Context, pref UserPreference) (UserPreference, error) {
	if err := pref.Validate(); err != nil {
		return UserPreference{}, err
	}

	unlock := s.lockUser(pref.OrgID, pref.UserID)
	defer unlock()

	existing, err := s.storage.Get(ctx, pref.OrgID, pref.UserID)
	switch {
	case err == nil:
		pref.ConsentGiven = existing.ConsentGiven
		pref.ConsentUpdatedAt = existing.ConsentUpdatedAt
	case errors.Is(err, ErrNotFound):
	default:
		return UserPreference{}, err
	}

	pref.UpdatedAt = s.now().UTC()
	if err := s.storage.Save(ctx, pref); err != nil {
		return UserPreference{}, err
	}
	return pref, nil
}

// AddChannelIdentifier registers an identifier for a channel. Identifiers
// added unverified stay unroutable until VerifyIdentifier confirms them.
func (s *Service) AddChannelIdentifier(ctx context.Context, orgID, userID string, ch comms.ChannelType, identifier string, verified bool) error {
	if !ch.Valid() {
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidPreference, ch)
	}
	if identifier == "" {
		return fmt.Errorf("%w: identifier is required", ErrInvalidPreference)
	}

	unlock := s.lockUser(orgID, userID)
	defer unlock()

	pref, err := s.storage.Get(ctx, orgID, userID)
	if err != nil {
		return err
	}

	if pref.Identifiers == nil {
		pref.Identifiers = make(map[comms.ChannelType]map[string]bool)
	}
	if pref.Identifiers[ch] == nil {
		pref.Identifiers[ch] = make(map[string]bool)
	}
	pref.Identifiers[ch][identifier] = verified
	pref.UpdatedAt = s.now().UTC()

	return s.storage.Save(ctx, pref)
}

// VerifyIdentifier marks a previously registered identifier as verified.
func (s *Service) VerifyIdentifier(ctx context.Context, orgID, userID string, ch comms.ChannelType, identifier string) error {
	unlock := s.lockUser(orgID, userID)
	defer unlock()

	pref, err := s.storage.Get(ctx, orgID, userID)
	if err != nil {
		return err
	}

	ids := pref.Identifiers[ch]
	if _, ok := ids[identifier]; !ok {
		return fmt.Errorf("%w: %s on channel %s", ErrIdentifierNotFound, identifier, ch)
	}
	ids[identifier] = true
	pref.UpdatedAt = s.now().UTC()

	return s.storage.Save(ctx, pref)
}

// SetOptIn records the user's consent to receive messages.
func (s *Service) SetOptIn(ctx context.Context, orgID, userID, actor, reason string) error {
	return s.setConsent(ctx, orgID, userID, actor, reason, true)
}

// SetOptOut withdraws consent. The preference record and its audit history
// are kept; only the consent flag changes.
func (s *Service) SetOptOut(ctx context.Context, orgID, userID, actor, reason string) error {
	return s.setConsent(ctx, orgID, userID, actor, reason, false)
}

func (s *Service) setConsent(ctx context.Context, orgID, userID, actor, reason string, granted bool) error {
	unlock := s.lockUser(orgID, userID)
	defer unlock()

	pref, err := s.storage.Get(ctx, orgID, userID)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	pref.ConsentGiven = granted
	pref.ConsentUpdatedAt = now
	pref.UpdatedAt = now

	if err := s.storage.Save(ctx, pref); err != nil {
		return err
	}

	action := ConsentRevoked
	if granted {
		action = ConsentGranted
	}
	event := ConsentEvent{
		ID:         uuid.NewString(),
		OrgID:      orgID,
		UserID:     userID,
		Action:     action,
		Actor:      actor,
		Reason:     reason,
		OccurredAt: now,
	}
	if err := s.storage.AppendConsent(ctx, event); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "consent updated",
		slog.String("org_id", orgID),
		slog.String("user_id", userID),
		slog.String("action", string(action)),
		slog.String("actor", actor))
	return nil
}

// ConsentHistory returns the user's consent audit trail in append order.
func (s *Service) ConsentHistory(ctx context.Context, orgID, userID string) ([]ConsentEvent, error) {
	return s.storage.ConsentHistory(ctx, orgID, userID)
}

// IsWithinQuietHours reports whether the instant falls inside any of the
// user's quiet windows. A user without a record has no quiet hours.
func (s *Service) IsWithinQuietHours(ctx context.Context, orgID, userID string, now time.Time) (bool, error) {
	pref, err := s.storage.Get(ctx, orgID, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return pref.InQuietHours(now)
}
