package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "BootPay"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultSettleTimeout  = 2 * time.Minute
	defaultSweepInterval  = 30 * time.Second
	defaultPaymentRetries = 3

	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	settleTimeoutEnvVar    = "SETTLE_TIMEOUT"
	sweepIntervalEnvVar    = "SWEEP_INTERVAL"
	paymentRetriesEnvVar   = "PAYMENT_RETRY_ATTEMPTS"
	rateLockPolicyEnvVar   = "RATE_LOCK_POLICY"
	bankLedgerURLEnvVar    = "BANK_LEDGER_URL"
	yankiLedgerURLEnvVar   = "YANKI_LEDGER_URL"
)

// RateLockPolicy determines which exchange rate settles a matched petition.
type RateLockPolicy string

const (
	// RateLockAtMatch settles at the rate captured when the petition was matched.
	RateLockAtMatch RateLockPolicy = "match"
	// RateLockAtSettlement re-resolves the effective rate at settlement time.
	RateLockAtSettlement RateLockPolicy = "settlement"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	SettleTimeout  time.Duration
	SweepInterval  time.Duration
	PaymentRetries int
	RateLockPolicy RateLockPolicy

	// Optional remote fiat rails. When set, the corresponding rail is reached
	// over HTTP instead of the local ledger tables.
	BankLedgerURL  string
	YankiLedgerURL string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
		SettleTimeout:  defaultSettleTimeout,
		SweepInterval:  defaultSweepInterval,
		PaymentRetries: defaultPaymentRetries,
		RateLockPolicy: RateLockAtMatch,
		BankLedgerURL:  os.Getenv(bankLedgerURLEnvVar),
		YankiLedgerURL: os.Getenv(yankiLedgerURLEnvVar),
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv(idemTTLSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLSecondsEnvVar, err)
		}
		cfg.IdempotencyTTL = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(idemTTLDurEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", idemTTLDurEnvVar, err)
		}
		cfg.IdempotencyTTL = d
	}

	if v := os.Getenv(settleTimeoutEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", settleTimeoutEnvVar, err)
		}
		cfg.SettleTimeout = d
	}

	if v := os.Getenv(sweepIntervalEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", sweepIntervalEnvVar, err)
		}
		cfg.SweepInterval = d
	}

	if v := os.Getenv(paymentRetriesEnvVar); v != "" {
		attempts, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", paymentRetriesEnvVar, err)
		}
		if attempts < 1 {
			return Config{}, fmt.Errorf("%s must be at least 1", paymentRetriesEnvVar)
		}
		cfg.PaymentRetries = attempts
	}

	if v := os.Getenv(rateLockPolicyEnvVar); v != "" {
		switch RateLockPolicy(strings.ToLower(v)) {
		case RateLockAtMatch:
			cfg.RateLockPolicy = RateLockAtMatch
		case RateLockAtSettlement:
			cfg.RateLockPolicy = RateLockAtSettlement
		default:
			return Config{}, fmt.Errorf("invalid %s: %q", rateLockPolicyEnvVar, v)
		}
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
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

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
