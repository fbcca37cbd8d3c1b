// Package pg dials the PostgreSQL database backing
// preferences.PostgresStorage. Connect retries with linear backoff on
// startup, Healthcheck plugs the pool into liveness probes, and the Is*
// helpers classify common pgx errors.
package pg
