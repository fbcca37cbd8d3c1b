package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrInvalidConnectionString indicates the database URL could not be
	// parsed.
	ErrInvalidConnectionString = errors.New("invalid postgres connection string")

	// ErrNotReady indicates the database did not accept a connection
	// within the configured attempts.
	ErrNotReady = errors.New("postgres did not become ready")

	// ErrHealthcheckFailed indicates the ping probe failed.
	ErrHealthcheckFailed = errors.New("postgres healthcheck failed")
)

// IsNotFound reports whether the error is pgx's no-rows result.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKey reports a unique constraint violation (SQLSTATE 23505),
// e.g. replaying a consent event id.
func IsDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
