package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medapp/scheduler/internal/api"
	"github.com/medapp/scheduler/internal/config"
	"github.com/medapp/scheduler/internal/db"
	"github.com/medapp/scheduler/internal/logging"
	redisclient "github.com/medapp/scheduler/internal/redis"
	"github.com/medapp/scheduler/internal/scheduling"
	"github.com/medapp/scheduler/internal/store"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New(cfg.Env, "api-server")
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect the document store
	mongoCtx, cancelMongo := context.WithTimeout(rootCtx, 10*time.Second)
	mongoClient, err := db.ConnectMongo(mongoCtx, cfg.MongoURI)
	cancelMongo()
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection error")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("error closing mongo client")
		}
	}()
	log.Info().Msg("connected to Mongo")

	// Redis is optional; without it the booking path runs on the
	// conditional slot update alone.
	var rdb *redis.Client
	locker := redisclient.Locker(redisclient.NoopLocker{})
	if cfg.RedisAddr != "" {
		rdb, err = redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection error")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Error().Err(err).Msg("error closing redis")
			}
		}()
		locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
		log.Info().Msg("connected to Redis, slot lock enabled")
	} else {
		log.Info().Msg("no Redis configured, slot lock disabled")
	}

	store.Timeout = cfg.StoreTimeout

	repo := scheduling.NewMongoRepository(mongoClient.Database(cfg.MongoDatabase))
	availability := scheduling.NewAvailabilityService(repo)
	booking := scheduling.NewBookingService(repo, locker, log)

	router := api.NewRouter(api.RouterConfig{
		Availability: availability,
		Booking:      booking,
		Mongo:        mongoClient,
		Redis:        rdb,
		Log:          log,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	case <-rootCtx.Done():
		log.Info().Msg("shutting down api-server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
