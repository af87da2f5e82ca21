package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/real-time-ressys/admin-bff/internal/api"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/api/handlers"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/cache"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/config"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/domain"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/downstream"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/events"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/logger"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/notify"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/reconcile"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/refresh"
	"github.com/baechuer/real-time-ressys/admin-bff/internal/tracing"
	"github.com/baechuer/real-time-ressys/admin-bff/middleware"
)

var version = "dev"

func main() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("invalid configuration")
	}

	// 2. Init Logger and tracing
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.InitTracing(ctx, tracing.Config{
		ServiceName:    "admin-bff",
		ServiceVersion: version,
		OTLPEndpoint:   cfg.OTelEndpoint,
		Enabled:        cfg.OTelEnabled,
		SampleRatio:    cfg.OTelSample,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("tracing init failed")
	}

	// 3. Cache: redis when configured, in-process otherwise
	clock := domain.SystemClock{}
	var (
		rdb       *redis.Client
		respCache cache.Cache
		checkers  = []handlers.ReadinessChecker{
			handlers.NewHTTPReadinessChecker("events", cfg.EventServiceURL+"/healthz"),
		}
	)
	if cfg.RedisURL != "" {
		rdb, err = cache.Dial(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis unavailable")
		}
		rc := cache.NewRedis(rdb, cfg.CachePrefix, cfg.CacheTTL, clock)
		respCache = rc
		checkers = append(checkers, handlers.NewPingChecker("redis", rc))
	} else {
		log.Warn().Msg("REDIS_URL not set, using in-process cache")
		respCache = cache.NewMemory(cfg.CacheTTL, clock)
	}

	// 4. Notifications: log always, broker when configured
	notifiers := notify.Multi{notify.LogNotifier{Log: log}}
	var publisher *notify.Publisher
	if cfg.RabbitURL != "" {
		publisher, err = notify.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			log.Fatal().Err(err).Msg("rabbitmq unavailable")
		}
		notifiers = append(notifiers, publisher)
	}

	// 5. Data layer
	client := downstream.NewEventClient(cfg.EventServiceURL, downstream.NewClient(downstream.ClientConfig{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Transport:    &middleware.TracingTransport{},
	}))
	svc := events.NewService(client, events.Options{
		Cache:      respCache,
		Reconciler: reconcile.New(cfg.Location, clock),
		Notifier:   notifiers,
		Clock:      clock,
	})

	sched, err := refresh.New(svc, refresh.Config{
		Schedule:    cfg.RefreshCron,
		BearerToken: cfg.RefreshBearerToken,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("refresh scheduler")
	}
	sched.Start()

	// 6. Setup Router
	router, err := api.NewRouter(api.Deps{
		Config:    cfg,
		Events:    svc,
		Redis:     rdb,
		Readiness: checkers,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("router setup failed")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// 7. Start Server
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("admin-bff starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("refresh scheduler shutdown")
	}
	if publisher != nil {
		_ = publisher.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
}
