package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-scheduling/internal/api"
	"github.com/hackgods/hospital-scheduling/internal/appointment"
	"github.com/hackgods/hospital-scheduling/internal/config"
	"github.com/hackgods/hospital-scheduling/internal/db"
	"github.com/hackgods/hospital-scheduling/internal/directory"
	"github.com/hackgods/hospital-scheduling/internal/lock"
	"github.com/hackgods/hospital-scheduling/internal/logging"
	redisclient "github.com/hackgods/hospital-scheduling/internal/redis"
	"github.com/hackgods/hospital-scheduling/internal/seed"
)

const version = "0.1.0"

type stores struct {
	repo  appointment.Repository
	avail appointment.AvailabilityStore
	dir   directory.Directory
	// memDir is set for the memory backend so demo data can be added.
	memDir *directory.Memory
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Str("store", cfg.StoreBackend).
		Str("lock", cfg.LockBackend).
		Str("timezone", cfg.Timezone).
		Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var deps []api.Dependency

	var st stores
	switch cfg.StoreBackend {
	case config.StorePostgres:
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

		st = stores{
			repo:  appointment.NewPgRepository(pgPool, cfg.Location),
			avail: appointment.NewPgAvailabilityStore(pgPool),
			dir:   directory.NewPgDirectory(pgPool),
		}
		deps = append(deps, api.Dependency{Name: "postgres", Check: pgPool.Ping})
	default:
		mem := directory.NewMemory()
		st = stores{
			repo:   appointment.NewMemoryRepository(),
			avail:  appointment.NewMemoryAvailabilityStore(),
			dir:    mem,
			memDir: mem,
		}
	}

	var locker lock.Locker
	switch cfg.LockBackend {
	case config.LockRedis:
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
		logger.Info().Msg("connected to Redis")

		locker = redisclient.NewRedisLocker(rdb, cfg.LockTTL)
		deps = append(deps, api.Dependency{
			Name:  "redis",
			Check: redisclient.Ping(rdb),
		})
	default:
		locker = lock.NewLocal()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc := appointment.NewService(st.repo, st.avail, st.dir, locker,
		appointment.WithLocation(cfg.Location),
		appointment.WithLogger(logger.With().Str("component", "scheduling").Logger()),
		appointment.WithMetrics(appointment.NewMetrics(registry)),
	)

	if st.memDir != nil && cfg.SeedDemoData {
		if err := seedDemoData(rootCtx, svc, st.memDir, cfg); err != nil {
			logger.Fatal().Err(err).Msg("seed demo data")
		}
	}

	go runHousekeeping(rootCtx, svc, cfg, logger)

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterConfig{
			Service:      svc,
			Directory:    st.dir,
			Logger:       logger,
			Gatherer:     registry,
			Dependencies: deps,
			Env:          cfg.Env,
			Version:      version,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
}

func seedDemoData(ctx context.Context, svc *appointment.Service, dir *directory.Memory, cfg config.Config) error {
	f := gofakeit.New(0)

	doctors := seed.Doctors(f, cfg.SeedDoctors)
	if err := dir.Add(doctors...); err != nil {
		return err
	}
	if err := dir.Add(seed.Patients(f, cfg.SeedPatients)...); err != nil {
		return err
	}

	ids := make([]string, 0, len(doctors))
	for _, d := range doctors {
		ids = append(ids, d.ID)
	}
	_, err := seed.Availability(ctx, svc, f, ids, cfg.SeedDays)
	return err
}

func runHousekeeping(ctx context.Context, svc *appointment.Service, cfg config.Config, logger zerolog.Logger) {
	if cfg.HousekeepingInterval <= 0 {
		return
	}

	ticker := time.NewTicker(cfg.HousekeepingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
			if _, err := svc.PurgeCancelledOlderThan(runCtx, cfg.CancelledRetention); err != nil {
				logger.Error().Err(err).Msg("housekeeping run error")
			}
			cancel()
		}
	}
}
