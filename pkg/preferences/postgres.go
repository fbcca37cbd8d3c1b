package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the tables PostgresStorage expects. Preference records are
// stored as JSONB so the shape stays identical to the Redis backend.
const Schema = `
CREATE TABLE IF NOT EXISTS user_preferences (
	org_id     TEXT        NOT NULL,
	user_id    TEXT        NOT NULL,
	data       JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (org_id, user_id)
);

CREATE TABLE IF NOT EXISTS consent_events (
	id          UUID        PRIMARY KEY,
	org_id      TEXT        NOT NULL,
	user_id     TEXT        NOT NULL,
	action      TEXT        NOT NULL,
	actor       TEXT        NOT NULL,
	reason      TEXT        NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL,
	seq         BIGINT      GENERATED ALWAYS AS IDENTITY
);

CREATE INDEX IF NOT EXISTS consent_events_user_idx
	ON consent_events (org_id, user_id, seq);
`

// PostgresStorage persists preferences in PostgreSQL via a pgx pool.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed preference storage.
func NewPostgresStorage(pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, errors.New("pgx pool is required")
	}
	return &PostgresStorage{pool: pool}, nil
}

// EnsureSchema creates the storage tables when they do not exist yet.
func (s *PostgresStorage) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure preference schema: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Get(ctx context.Context, orgID, userID string) (UserPreference, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM user_preferences WHERE org_id = $1 AND user_id = $2`,
		orgID, userID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (s *PostgresStorage) Save(ctx context.Context, pref UserPreference) error {
	raw, err := json.Marshal(pref)
	if err != nil {
		return fmt.Errorf("encode preference: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO user_preferences (org_id, user_id, data, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (org_id, user_id)
		 DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		pref.OrgID, pref.UserID, raw,
	)
	if err != nil {
		return fmt.Errorf("save preference: %w", err)
	}
	return nil
}

func (s *PostgresStorage) AppendConsent(ctx context.Context, event ConsentEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO consent_events (id, org_id, user_id, action, actor, reason, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.OrgID, event.UserID, string(event.Action),
		event.Actor, event.Reason, event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append consent event: %w", err)
	}
	return nil
}

func (s *PostgresStorage) ConsentHistory(ctx context.Context, orgID, userID string) ([]ConsentEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, org_id, user_id, action, actor, reason, occurred_at
		 FROM consent_events
		 WHERE org_id = $1 AND user_id = $2
		 ORDER BY seq`,
		orgID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("load consent history: %w", err)
	}
	defer rows.Close()

	var events []ConsentEvent
	for rows.Next() {
		var ev ConsentEvent
		var action string
		if err := rows.Scan(&ev.ID, &ev.OrgID, &ev.UserID, &action, &ev.Actor, &ev.Reason, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan consent event: %w", err)
		}
		ev.Action = ConsentAction(action)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load consent history: %w", err)
	}
	return events, nil
}
