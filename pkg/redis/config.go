package redis

import "time"

// Config describes the Redis connection used by the preference storage.
// Fields are populated from environment variables via pkg/config.
type Config struct {
	// ConnectionURL is the Redis URL, e.g. "redis://:password@localhost:6379/0".
	ConnectionURL string `env:"COMMS_REDIS_URL,required" envDefault:"redis://localhost:6379/0"`

	// RetryAttempts is how many times Connect tries before giving up.
	RetryAttempts int `env:"COMMS_REDIS_RETRY_ATTEMPTS" envDefault:"3"`

	// RetryInterval is the pause between connection attempts.
	RetryInterval time.Duration `env:"COMMS_REDIS_RETRY_INTERVAL" envDefault:"5s"`

	// ConnectTimeout bounds the whole connection procedure.
	ConnectTimeout time.Duration `env:"COMMS_REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}
