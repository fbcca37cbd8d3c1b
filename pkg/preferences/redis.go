package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStorage persists preferences as JSON blobs and consent events as an
// append-only Redis list.
type RedisStorage struct {
	client redis.UniversalClient
}

// NewRedisStorage creates a Redis-backed preference storage.
func NewRedisStorage(client redis.UniversalClient) (*RedisStorage, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &RedisStorage{client: client}, nil
}

func prefKey(orgID, userID string) string {
	return fmt.Sprintf("pref:%s:%s", orgID, userID)
}

func consentKey(orgID, userID string) string {
	return fmt.Sprintf("consent:%s:%s", orgID, userID)
}

func (s *RedisStorage) Get(ctx context.Context, orgID, userID string) (UserPreference, error) {
	raw, err := s.client.Get(ctx, prefKey(orgID, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return UserPreference{}, ErrNotFound
	}
	if err != nil {
		return UserPreference{}, fmt.Errorf("get preference: %w", err)
	}

	var pref UserPreference
	if err := json.Unmarshal(raw, &pref); err != nil {
		return UserPreference{}, fmt.Errorf("decode preference: %w", err)
	}
	return pref, nil
}

func (s *RedisStorage) Save(ctx context.Context, pref UserPreference) error {
	raw, err := json.Marshal(pref)
	if err != nil {
		return fmt.Errorf("encode preference: %w", err)
	}
	if err := s.client.Set(ctx, prefKey(pref.OrgID, pref.UserID), raw, 0).Err(); err != nil {
		return fmt.Errorf("save preference: %w", err)
	}
	return nil
}

func (s *RedisStorage) AppendConsent(ctx context.Context, event ConsentEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode consent event: %w", err)
	}
	if err := s.client.RPush(ctx, consentKey(event.OrgID, event.UserID), raw).Err(); err != nil {
		return fmt.Errorf("append consent event: %w", err)
	}
	return nil
}

func (s *RedisStorage) ConsentHistory(ctx context.Context, orgID, userID string) ([]ConsentEvent, error) {
	items, err := s.client.LRange(ctx, consentKey(orgID, userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load consent history: %w", err)
	}

	events := make([]ConsentEvent, 0, len(items))
	for _, item := range items {
		var ev ConsentEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, fmt.Errorf("decode consent event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}
