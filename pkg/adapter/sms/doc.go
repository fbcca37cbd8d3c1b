// Package sms implements the SMS gateway channel adapter: plain-text
// deliveries over the gateway's REST API with per-message cost reporting.
// Recipients are validated as E.164 phone numbers; non-text content degrades
// to its caption and media link.
package sms
