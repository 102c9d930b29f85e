package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/medapp/scheduler/internal/config"
	"github.com/medapp/scheduler/internal/db"
	"github.com/medapp/scheduler/internal/logging"
	redisclient "github.com/medapp/scheduler/internal/redis"
	"github.com/medapp/scheduler/internal/scheduling"
	"github.com/medapp/scheduler/internal/store"
)

// The reconcile worker frees booked slots that never got their appointment
// written: the leftovers of a booking whose compensating rollback failed.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New(cfg.Env, "reconcile-worker")
	log.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Dur("grace", cfg.ReconcileGrace).
		Msg("reconcile-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	store.Timeout = cfg.StoreTimeout

	repo := scheduling.NewMongoRepository(mongoClient.Database(cfg.MongoDatabase))
	svc := scheduling.NewBookingService(repo, redisclient.NoopLocker{}, log)

	// Run once at startup
	runOnce(rootCtx, svc, cfg.ReconcileGrace, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping reconcile worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.ReconcileGrace, log)
		}
	}
}

func runOnce(ctx context.Context, svc *scheduling.BookingService, grace time.Duration, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	freed, err := svc.ReconcileAbandonedSlots(runCtx, grace)
	if err != nil {
		log.Error().Err(err).Msg("reconcile run error")
		return
	}
	log.Info().Int("freed", freed).Dur("took", time.Since(start)).Msg("reconcile run complete")
}
