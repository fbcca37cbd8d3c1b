// Command commsd runs the operator surface of the communication delivery
// subsystem: adapter health endpoints plus liveness and readiness probes.
// Message producers embed the orchestrator directly; this process exists so
// operators can watch channel health without touching the producer services.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/carebridgehq/comms/pkg/adapter"
	"github.com/carebridgehq/comms/pkg/adapter/chat"
	"github.com/carebridgehq/comms/pkg/adapter/hook"
	"github.com/carebridgehq/comms/pkg/adapter/mail"
	"github.com/carebridgehq/comms/pkg/adapter/sms"
	"github.com/carebridgehq/comms/pkg/comms"
	"github.com/carebridgehq/comms/pkg/config"
	"github.com/carebridgehq/comms/pkg/factory"
	"github.com/carebridgehq/comms/pkg/httpserver"
	"github.com/carebridgehq/comms/pkg/logger"
	"github.com/carebridgehq/comms/pkg/pg"
	"github.com/carebridgehq/comms/pkg/redis"
)

func init() {
	factory.Register(comms.ChannelChat, func() adapter.Adapter { return chat.New() })
	factory.Register(comms.ChannelWebhook, func() adapter.Adapter { return hook.New() })
	factory.Register(comms.ChannelSMS, func() adapter.Adapter { return sms.New() })
	factory.Register(comms.ChannelEmail, func() adapter.Adapter { return mail.New() })
}

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("commsd exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log, err := logger.NewFromEnv(logger.WithAttr(logger.Component("commsd")))
	if err != nil {
		return err
	}
	logger.SetAsDefault(log)

	// Preference backends are optional; a deployment on memory storage runs
	// without either probe.
	var probes []func(context.Context) error

	if os.Getenv("COMMS_REDIS_URL") != "" {
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			return err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer client.Close()
		probes = append(probes, redis.Healthcheck(client))
	}

	if os.Getenv("COMMS_PG_URL") != "" {
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return err
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		probes = append(probes, pg.Healthcheck(pool))
	}

	fac := factory.New(factory.WithLogger(log))
	defer func() {
		if err := fac.ShutdownAll(context.Background()); err != nil {
			log.Error("adapter shutdown failed", logger.Error(err))
		}
	}()

	var srvCfg httpserver.Config
	if err := config.Load(&srvCfg); err != nil {
		return err
	}
	srv := httpserver.NewFromConfig(srvCfg, httpserver.WithLogger(log))

	mux := chi.NewRouter()
	mux.Get("/livez", httpserver.Liveness())
	mux.Get("/readyz", httpserver.Readiness(log, probes...))
	mux.Mount("/adapters", fac.HealthHandler())

	return srv.Run(ctx, mux)
}
