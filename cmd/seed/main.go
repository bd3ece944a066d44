package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"

	"github.com/hackgods/hospital-scheduling/internal/appointment"
	"github.com/hackgods/hospital-scheduling/internal/config"
	"github.com/hackgods/hospital-scheduling/internal/db"
	"github.com/hackgods/hospital-scheduling/internal/directory"
	"github.com/hackgods/hospital-scheduling/internal/lock"
	"github.com/hackgods/hospital-scheduling/internal/logging"
	"github.com/hackgods/hospital-scheduling/internal/seed"
)

type options struct {
	doctors  int
	patients int
	days     int
	seed     uint64
	timeout  time.Duration
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the Postgres store with demo doctors, patients and availability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.PostgresDSN == "" {
				return fmt.Errorf("POSTGRES_DSN is required")
			}
			if !cmd.Flags().Changed("doctors") {
				opts.doctors = cfg.SeedDoctors
			}
			if !cmd.Flags().Changed("patients") {
				opts.patients = cfg.SeedPatients
			}
			if !cmd.Flags().Changed("days") {
				opts.days = cfg.SeedDays
			}
			return run(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().IntVar(&opts.doctors, "doctors", 0, "number of doctors (default SEED_DOCTORS)")
	cmd.Flags().IntVar(&opts.patients, "patients", 0, "number of patients (default SEED_PATIENTS)")
	cmd.Flags().IntVar(&opts.days, "days", 0, "days of availability from tomorrow (default SEED_DAYS)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "random seed, 0 picks one")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "overall timeout")

	return cmd
}

func run(parent context.Context, cfg config.Config, opts options) error {
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info().
		Int("doctors", opts.doctors).
		Int("patients", opts.patients).
		Int("days", opts.days).
		Msg("seed starting")

	ctx, cancel := context.WithTimeout(parent, opts.timeout)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}

	f := gofakeit.New(opts.seed)
	dir := directory.NewPgDirectory(pool)

	doctors := seed.Doctors(f, opts.doctors)
	if err := dir.Upsert(ctx, doctors...); err != nil {
		return fmt.Errorf("seed doctors: %w", err)
	}
	logger.Info().Int("count", len(doctors)).Msg("doctors seeded")

	const batchSize = 500
	patients := seed.Patients(f, opts.patients)
	for offset := 0; offset < len(patients); offset += batchSize {
		end := min(offset+batchSize, len(patients))
		if err := dir.Upsert(ctx, patients[offset:end]...); err != nil {
			return fmt.Errorf("seed patients: %w", err)
		}
		logger.Info().Msgf("patients seeded: %d/%d", end, len(patients))
	}

	svc := appointment.NewService(
		appointment.NewPgRepository(pool, cfg.Location),
		appointment.NewPgAvailabilityStore(pool),
		dir,
		lock.NewLocal(),
		appointment.WithLocation(cfg.Location),
	)

	ids := make([]string, 0, len(doctors))
	for _, d := range doctors {
		ids = append(ids, d.ID)
	}
	n, err := seed.Availability(ctx, svc, f, ids, opts.days)
	if err != nil {
		return fmt.Errorf("seed availability: %w", err)
	}
	logger.Info().Int("windows", n).Msg("seed complete")
	return nil
}
