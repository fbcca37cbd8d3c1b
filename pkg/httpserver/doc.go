// Package httpserver hosts the operator-facing HTTP surface of the delivery
// subsystem: adapter health endpoints and liveness/readiness probes.
//
// Server wraps net/http with graceful shutdown. Run blocks until the context
// is cancelled or an interrupt/TERM signal arrives, then drains in-flight
// requests within the configured shutdown timeout. Construction uses
// functional options (WithAddr, WithShutdownTimeout, WithLogger) or
// NewFromConfig for env-driven setup.
//
// Probes returns liveness and readiness handlers. Readiness composes
// dependency checks such as redis.Healthcheck and pg.Healthcheck so the
// process only reports ready once its preference backends answer.
//
// Usage:
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//
//	mux := chi.NewRouter()
//	mux.Get("/livez", httpserver.Liveness())
//	mux.Get("/readyz", httpserver.Readiness(log, redisCheck, pgCheck))
//	mux.Mount("/adapters", fac.HealthHandler())
//
//	if err := srv.Run(ctx, mux); err != nil {
//		log.Error("ops server failed", logger.Error(err))
//	}
package httpserver
