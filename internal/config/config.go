package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const ledgerEnvPrefix = "LEDGER"

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName             string
	AppEnv              string
	Port                string
	LogLevel            string
	DatabaseURL         string
	RedisURL            string
	JWTSecret           string
	MigrationsPath      string
	RunMigrations       bool
	ShutdownPeriod      time.Duration
	IdempotencyTTL      time.Duration
	IdempotencyRequired bool
	MutationsPerMinute  int
	Ledger              Ledger
}

// Ledger tunes locking and retry behaviour of balance mutations. It is read
// from LEDGER_* variables.
type Ledger struct {
	LockTimeout     time.Duration `envconfig:"LOCK_TIMEOUT" default:"5s"`
	MaxAttempts     int           `envconfig:"MAX_ATTEMPTS" default:"3"`
	RetryBackoff    time.Duration `envconfig:"RETRY_BACKOFF" default:"50ms"`
	DBMaxConns      int32         `envconfig:"DB_MAX_CONNS" default:"25"`
	DefaultCurrency string        `envconfig:"DEFAULT_CURRENCY" default:"NGN"`
}

// appEnv is the unprefixed application environment. The *_SECONDS keys take
// precedence over their duration-string counterparts.
type appEnv struct {
	AppName             string        `envconfig:"APP_NAME" default:"wallet-service"`
	AppEnv              string        `envconfig:"APP_ENV" default:"development"`
	Port                string        `envconfig:"PORT" default:"8080"`
	LogLevel            string        `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL         string        `envconfig:"DATABASE_URL"`
	RedisURL            string        `envconfig:"REDIS_URL"`
	JWTSecret           string        `envconfig:"JWT_SECRET"`
	MigrationsPath      string        `envconfig:"MIGRATIONS_PATH" default:"migrations"`
	RunMigrations       bool          `envconfig:"RUN_MIGRATIONS"`
	ShutdownTimeout     time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	ShutdownSeconds     Seconds       `envconfig:"SHUTDOWN_TIMEOUT_SECONDS"`
	IdempotencyTTL      time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
	IdempotencySeconds  Seconds       `envconfig:"IDEMPOTENCY_TTL_SECONDS"`
	IdempotencyRequired bool          `envconfig:"IDEMPOTENCY_REQUIRED"`
	MutationsPerMinute  int           `envconfig:"MUTATIONS_PER_MINUTE" default:"30"`
}

// Seconds is a whole number of seconds. An empty value leaves it unset.
type Seconds struct {
	Duration time.Duration
	Set      bool
}

// Decode implements envconfig.Decoder.
func (s *Seconds) Decode(value string) error {
	if value == "" {
		*s = Seconds{}
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	*s = Seconds{Duration: time.Duration(n) * time.Second, Set: true}
	return nil
}

func (s Seconds) or(fallback time.Duration) time.Duration {
	if s.Set {
		return s.Duration
	}
	return fallback
}

// Load reads configuration values from the environment, after merging an
// optional .env file, and populates a Config instance.
func Load() (Config, error) {
	_ = godotenv.Load()

	var env appEnv
	if err := envconfig.Process("", &env); err != nil {
		return Config{}, fmt.Errorf("load app settings: %w", err)
	}

	cfg := Config{
		AppName:             env.AppName,
		AppEnv:              env.AppEnv,
		Port:                env.Port,
		LogLevel:            strings.ToLower(env.LogLevel),
		DatabaseURL:         env.DatabaseURL,
		RedisURL:            env.RedisURL,
		JWTSecret:           env.JWTSecret,
		MigrationsPath:      env.MigrationsPath,
		RunMigrations:       env.RunMigrations,
		ShutdownPeriod:      env.ShutdownSeconds.or(env.ShutdownTimeout),
		IdempotencyTTL:      env.IdempotencySeconds.or(env.IdempotencyTTL),
		IdempotencyRequired: env.IdempotencyRequired,
		MutationsPerMinute:  env.MutationsPerMinute,
	}

	if err := envconfig.Process(ledgerEnvPrefix, &cfg.Ledger); err != nil {
		return Config{}, fmt.Errorf("load ledger settings: %w", err)
	}
	if cfg.Ledger.MaxAttempts < 1 {
		return Config{}, fmt.Errorf("LEDGER_MAX_ATTEMPTS must be at least 1")
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}
	if cfg.DatabaseURL == "" && !cfg.IsDevelopment() {
		return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDevelopment reports whether in-memory fallbacks are allowed.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
