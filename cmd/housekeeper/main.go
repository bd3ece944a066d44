package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-scheduling/internal/appointment"
	"github.com/hackgods/hospital-scheduling/internal/config"
	"github.com/hackgods/hospital-scheduling/internal/db"
	"github.com/hackgods/hospital-scheduling/internal/directory"
	"github.com/hackgods/hospital-scheduling/internal/lock"
	"github.com/hackgods/hospital-scheduling/internal/logging"
	redisclient "github.com/hackgods/hospital-scheduling/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.StoreBackend != config.StorePostgres {
		logger.Fatal().Str("store", cfg.StoreBackend).Msg("housekeeper needs STORE_BACKEND=postgres")
	}
	if cfg.HousekeepingInterval <= 0 {
		logger.Fatal().Msg("HOUSEKEEPING_INTERVAL must be positive")
	}

	logger.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.HousekeepingInterval).
		Dur("retention", cfg.CancelledRetention).
		Msg("housekeeper starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	if err == nil {
		err = db.Migrate(pgCtx, pgPool)
	}
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	var locker lock.Locker = lock.NewLocal()
	if cfg.LockBackend == config.LockRedis {
		rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection error")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing redis")
			}
		}()
		locker = redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	}

	svc := appointment.NewService(
		appointment.NewPgRepository(pgPool, cfg.Location),
		appointment.NewPgAvailabilityStore(pgPool),
		directory.NewPgDirectory(pgPool),
		locker,
		appointment.WithLocation(cfg.Location),
		appointment.WithLogger(logger.With().Str("component", "housekeeper").Logger()),
	)

	runOnce(rootCtx, svc, cfg.CancelledRetention, logger)

	ticker := time.NewTicker(cfg.HousekeepingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping housekeeper")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.CancelledRetention, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, retention time.Duration, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.PurgeCancelledOlderThan(runCtx, retention)
	if err != nil {
		logger.Error().Err(err).Msg("housekeeping run error")
		return
	}
	logger.Info().Int("deleted", n).Dur("took", time.Since(start)).Msg("housekeeping run complete")
}
