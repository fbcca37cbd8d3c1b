// Package logger builds slog loggers for the messaging subsystem: JSON or
// text output, env-driven level and format, static service attributes, and
// context extractors that inject request-scoped values such as message ids
// into every record.
//
// The attr helpers keep log keys consistent across packages, so "channel",
// "org_id", and "message_id" always mean the same thing in aggregated logs.
package logger
