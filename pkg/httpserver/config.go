package httpserver

import "time"

// Config carries the env-driven settings for the operator HTTP server.
type Config struct {
	Addr            string        `env:"COMMS_OPS_ADDR" envDefault:":8081"`
	ReadTimeout     time.Duration `env:"COMMS_OPS_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"COMMS_OPS_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"COMMS_OPS_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"COMMS_OPS_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// NewFromConfig builds a Server from Config. Zero values fall back to the
// package defaults; extra options are applied after the config.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	configOpts := make([]Option, 0, 5+len(opts))

	if cfg.Addr != "" {
		configOpts = append(configOpts, WithAddr(cfg.Addr))
	}
	if cfg.ReadTimeout > 0 {
		configOpts = append(configOpts, WithReadTimeout(cfg.ReadTimeout))
	}
	if cfg.WriteTimeout > 0 {
		configOpts = append(configOpts, WithWriteTimeout(cfg.WriteTimeout))
	}
	if cfg.IdleTimeout > 0 {
		configOpts = append(configOpts, WithIdleTimeout(cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout > 0 {
		configOpts = append(configOpts, WithShutdownTimeout(cfg.ShutdownTimeout))
	}

	configOpts = append(configOpts, opts...)

	return New(configOpts...)
}
