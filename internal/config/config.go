package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	LockLocal = "local"
	LockRedis = "redis"
)

type Config struct {
	Env      string // dev, prod
	HTTPPort string // default 8080
	Timezone string // scheduling location, IANA name
	Location *time.Location

	LogLevel  string // debug, info, warn, error
	LogFormat string // json or console

	StoreBackend string // memory or postgres
	PostgresDSN  string // required for postgres

	LockBackend   string // local or redis
	RedisAddr     string // host:port
	RedisUsername string
	RedisPassword string
	LockTTL       time.Duration // how long a Redis lock lives

	ShutdownTimeout      time.Duration
	HousekeepingInterval time.Duration // how often old cancelled appointments are purged
	CancelledRetention   time.Duration // how long cancelled appointments are kept

	SeedDemoData bool
	SeedDoctors  int
	SeedPatients int
	SeedDays     int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("STORE_BACKEND", StoreMemory)
	v.SetDefault("LOCK_BACKEND", LockLocal)
	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("LOCK_TTL", "5s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("HOUSEKEEPING_INTERVAL", "1h")
	v.SetDefault("CANCELLED_RETENTION", "720h")
	v.SetDefault("SEED_DEMO_DATA", true)
	v.SetDefault("SEED_DOCTORS", 5)
	v.SetDefault("SEED_PATIENTS", 20)
	v.SetDefault("SEED_DAYS", 7)

	cfg := Config{
		Env:          v.GetString("APP_ENV"),
		HTTPPort:     v.GetString("HTTP_PORT"),
		Timezone:     v.GetString("TIMEZONE"),
		LogLevel:     strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:    strings.ToLower(v.GetString("LOG_FORMAT")),
		StoreBackend: strings.ToLower(v.GetString("STORE_BACKEND")),
		PostgresDSN:  v.GetString("POSTGRES_DSN"),
		LockBackend:  strings.ToLower(v.GetString("LOCK_BACKEND")),
		SeedDemoData: v.GetBool("SEED_DEMO_DATA"),
		SeedDoctors:  v.GetInt("SEED_DOCTORS"),
		SeedPatients: v.GetInt("SEED_PATIENTS"),
		SeedDays:     v.GetInt("SEED_DAYS"),
	}

	var err error
	if cfg.LockTTL, err = getDuration(v, "LOCK_TTL"); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = getDuration(v, "SHUTDOWN_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if cfg.HousekeepingInterval, err = getDuration(v, "HOUSEKEEPING_INTERVAL"); err != nil {
		return Config{}, err
	}
	if cfg.CancelledRetention, err = getDuration(v, "CANCELLED_RETENTION"); err != nil {
		return Config{}, err
	}

	cfg.Location, err = time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	if redisURL := v.GetString("REDIS_URL"); redisURL != "" {
		addr, username, password, err := parseRedisURL(redisURL)
		if err != nil {
			return Config{}, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		cfg.RedisAddr = addr
		cfg.RedisUsername = username
		cfg.RedisPassword = password
	} else {
		cfg.RedisAddr = v.GetString("REDIS_ADDR")
		cfg.RedisUsername = v.GetString("REDIS_USERNAME")
		cfg.RedisPassword = v.GetString("REDIS_PASSWORD")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required when STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreMemory, StorePostgres, c.StoreBackend)
	}

	switch c.LockBackend {
	case LockLocal, LockRedis:
	default:
		return fmt.Errorf("LOCK_BACKEND must be %q or %q, got %q", LockLocal, LockRedis, c.LockBackend)
	}

	if c.LockTTL <= 0 {
		return errors.New("LOCK_TTL must be positive")
	}
	if c.SeedDays < 0 || c.SeedDoctors < 0 || c.SeedPatients < 0 {
		return errors.New("seed counts must not be negative")
	}
	return nil
}

func (c Config) IsDev() bool {
	return c.Env == "dev"
}

// getDuration accepts integer seconds or a Go duration string.
func getDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s=%q", key, raw)
	}
	return d, nil
}

// parseRedisURL splits a redis:// or rediss:// URL into the connection fields.
func parseRedisURL(raw string) (addr, username, password string, err error) {
	opts, err := redis.ParseURL(raw)
	if err != nil {
		return "", "", "", err
	}
	return opts.Addr, opts.Username, opts.Password, nil
}
