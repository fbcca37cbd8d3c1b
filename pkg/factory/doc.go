// Package factory caches channel adapter instances, one per channel type and
// organization. Instances are created lazily on first Get, initialized
// exactly once even under concurrent access, replaced when their
// configuration changes, polled for health on a fixed interval, and drained
// gracefully on shutdown.
package factory
