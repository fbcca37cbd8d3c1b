package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/carebridgehq/comms/pkg/logger"
)

// Liveness returns a handler that always reports the process alive.
func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ALIVE"))
	}
}

// Readiness returns a handler that runs every probe against the request
// context and reports ready only when all of them succeed. Probe signatures
// match the Healthcheck closures exposed by the redis and pg packages.
func Readiness(log *slog.Logger, probes ...func(context.Context) error) http.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		for _, probe := range probes {
			if err := probe(ctx); err != nil {
				log.ErrorContext(ctx, "readiness probe failed", logger.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("NOT_READY"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	}
}
