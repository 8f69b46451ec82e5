// Command identity serves the identity-of-record API and publishes user
// balance changes to downstream services.
//
//	@title						Identity API
//	@version					1.0
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/playeconomy/identity/docs"
	"github.com/playeconomy/identity/internal/api"
	"github.com/playeconomy/identity/internal/core/service"
	"github.com/playeconomy/identity/internal/infrastructure/bus"
	mongodb "github.com/playeconomy/identity/internal/infrastructure/db/mongo"
	redisdb "github.com/playeconomy/identity/internal/infrastructure/db/redis"
	"github.com/playeconomy/identity/internal/infrastructure/http/handlers"
	"github.com/playeconomy/identity/internal/infrastructure/queue"
	"github.com/playeconomy/identity/internal/infrastructure/security"
	"github.com/playeconomy/identity/internal/pkg/config"
	"github.com/playeconomy/identity/internal/pkg/metrics"
	"github.com/playeconomy/identity/pkg/logger"
)

const (
	bootstrapTimeout = 30 * time.Second
	shutdownTimeout  = 10 * time.Second
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: cfg.ServiceName,
	})

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("identity service stopped with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx := context.Background()

	// --- Record store ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  cfg.ServiceName,
	})
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}()

	userRepo := mongodb.NewUserRepository(db)
	roleRepo := mongodb.NewRoleRepository(db)
	if err := mongodb.EnsureIndexes(ctx, userRepo, roleRepo); err != nil {
		return err
	}

	// --- Message bus ---
	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	eventBus, err := bus.New(bus.Options{
		Driver:         cfg.Bus.Driver,
		Topic:          cfg.Bus.Topic,
		KafkaBrokers:   cfg.Bus.KafkaBrokers,
		StreamMaxLen:   cfg.Bus.StreamMaxLen,
		AttemptTimeout: cfg.Publisher.AttemptTimeout,
	}, rdb)
	if err != nil {
		return err
	}
	defer func() {
		if err := eventBus.Close(); err != nil {
			log.Warn().Err(err).Msg("bus close failed")
		}
	}()

	// --- Publisher ---
	policy := service.DefaultRetryPolicy()
	policy.MaxRetries = cfg.Publisher.MaxRetries
	policy.Interval = cfg.Publisher.RetryInterval
	policy.AttemptTimeout = cfg.Publisher.AttemptTimeout
	publisher := service.NewSyncPublisher(eventBus, policy, log)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	dispatcher := queue.NewDispatcher(cfg.Publisher.Workers, cfg.Publisher.QueueSize, publisher, log)
	dispatcher.Start(workerCtx)

	hasher := security.NewBcryptHasher(cfg.Seed.BcryptCost)

	// --- Bootstrap ---
	bootstrapper := service.NewBootstrapper(userRepo, roleRepo, dispatcher, hasher, service.SeedSettings{
		AdminEmail:    cfg.Seed.AdminEmail,
		AdminPassword: cfg.Seed.AdminPassword,
		AdminGil:      cfg.Seed.AdminGil,
	}, log)

	bootCtx, cancelBoot := context.WithTimeout(ctx, bootstrapTimeout)
	result, err := bootstrapper.Run(bootCtx)
	cancelBoot()
	if err != nil {
		metrics.BootstrapRunsTotal.WithLabelValues("failed").Inc()
		stopWorkers()
		dispatcher.Close()
		return err
	}
	if result.SyncErr != nil {
		metrics.BootstrapRunsTotal.WithLabelValues("sync_degraded").Inc()
	} else {
		metrics.BootstrapRunsTotal.WithLabelValues("ok").Inc()
	}

	// --- HTTP ---
	users := service.NewUserService(userRepo, dispatcher, hasher, log)
	router := api.NewRouter(api.Deps{
		Config: cfg,
		Users:  users,
		Checks: []handlers.Check{
			handlers.MongoCheck(db),
			handlers.RedisCheck(rdb),
			handlers.BusCheck(eventBus),
		},
		Log: log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("bus", cfg.Bus.Driver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("server shutting down")
	case err, ok := <-serveErr:
		if ok {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	// Cancelling the worker context abandons events still in retry.
	stopWorkers()
	dispatcher.Close()

	log.Info().Msg("shutdown complete")
	return runErr
}
