package preferences

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStorage is an in-memory Storage implementation. Suitable for
// development and testing.
type MemoryStorage struct {
	mu      sync.RWMutex
	prefs   map[string]UserPreference
	consent map[string][]ConsentEvent
}

// NewMemoryStorage creates an empty in-memory preference storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		prefs:   make(map[string]UserPreference),
		consent: make(map[string][]ConsentEvent),
	}
}

func storageKey(orgID, userID string) string {
	return fmt.Sprintf("%s:%s", orgID, userID)
}

func (s *MemoryStorage) Get(ctx context.Context, orgID, userID string) (UserPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pref, ok := s.prefs[storageKey(orgID, userID)]
	if !ok {
		return UserPreference{}, ErrNotFound
	}
	return pref.Clone(), nil
}

func (s *MemoryStorage) Save(ctx context.Context, pref UserPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs[storageKey(pref.OrgID, pref.UserID)] = pref.Clone()
	return nil
}

func (s *MemoryStorage) AppendConsent(ctx context.Context, event ConsentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storageKey(event.OrgID, event.UserID)
	s.consent[key] = append(s.consent[key], event)
	return nil
}

func (s *MemoryStorage) ConsentHistory(ctx context.Context, orgID, userID string) ([]ConsentEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.consent[storageKey(orgID, userID)]
	out := make([]ConsentEvent, len(events))
	copy(out, events)
	return out, nil
}
