// Package preferences manages per-user delivery preferences for the
// messaging subsystem: preferred and fallback channels, registered channel
// identifiers with verification state, quiet hours, and consent.
//
// Consent changes are append-only audited: opting out flips a flag and
// records a ConsentEvent but never deletes the record, so the full history
// of who changed consent, when, and why stays available for compliance
// review.
//
// Three Storage backends are provided: in-memory for tests and development,
// Redis for low-latency lookups, and PostgreSQL for durable multi-tenant
// deployments.
package preferences
