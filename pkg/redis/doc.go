// Package redis dials the Redis server backing preferences.RedisStorage.
// Connect retries with a bounded timeout so services come up cleanly when
// Redis starts a moment later than they do, and Healthcheck plugs the
// connection into liveness probes.
package redis
