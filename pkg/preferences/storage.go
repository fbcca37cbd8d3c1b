package preferences

import "context"

// Storage persists preference records and their consent audit trail.
type Storage interface {
	// Get retrieves one user's preference. Returns ErrNotFound when no
	// record exists.
	Get(ctx context.Context, orgID, userID string) (UserPreference, error)

	// Save writes the whole preference record, creating or replacing it.
	Save(ctx context.Context, pref UserPreference) error

	// AppendConsent records one immutable consent audit event.
	AppendConsent(ctx context.Context, event ConsentEvent) error

	// ConsentHistory returns the user's consent events in append order.
	ConsentHistory(ctx context.Context, orgID, userID string) ([]ConsentEvent, error)
}
