// Package config loads gateway configuration from the environment,
// following the teacher's Load()/getEnv* idiom: a flat struct of typed
// settings, each with a sane default, overridable by env var.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itirp/gateway/internal/domain"
)

// Config is the gateway's full runtime configuration.
type Config struct {
	// HTTP server
	ListenAddr string
	Debug      bool

	// Auth
	JWTSecret string
	JWTTTL    time.Duration

	// Default risk limits, seeded at startup and mutable afterward via
	// PUT /risk/limits and POST /risk/kill-switch.
	RiskLimits domain.RiskLimitsConfig

	// Execution engine
	MaxRetryAttempts        int
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
	WorkerCount             int
	SimulatedLatency        time.Duration
	SuccessProbability      float64
	PriceJitterBand         float64
}

func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		Debug:      getEnvBool("DEBUG", false),

		JWTSecret: getEnv("JWT_SECRET", "itirp-dev-secret-change-me"),
		JWTTTL:    getEnvDuration("JWT_TTL", 30*time.Minute),

		RiskLimits: domain.RiskLimitsConfig{
			MaxPositionSize:   getEnvDecimal("RISK_MAX_POSITION_SIZE", decimal.NewFromInt(100000)),
			MaxDailyVolume:    getEnvDecimal("RISK_MAX_DAILY_VOLUME", decimal.NewFromInt(1000000)),
			MaxNetExposure:    getEnvDecimal("RISK_MAX_NET_EXPOSURE", decimal.NewFromInt(500000)),
			MaxGrossExposure:  getEnvDecimal("RISK_MAX_GROSS_EXPOSURE", decimal.NewFromInt(1000000)),
			KillSwitchEnabled: getEnvBool("RISK_KILL_SWITCH_ENABLED", false),
		},

		MaxRetryAttempts:        getEnvInt("EXEC_MAX_RETRY_ATTEMPTS", 3),
		CircuitBreakerThreshold: getEnvInt("EXEC_CIRCUIT_BREAKER_THRESHOLD", 5),
		CircuitBreakerTimeout:   getEnvDuration("EXEC_CIRCUIT_BREAKER_TIMEOUT", 60*time.Second),
		WorkerCount:             getEnvInt("EXEC_WORKER_COUNT", 8),
		SimulatedLatency:        getEnvDuration("EXEC_SIMULATED_LATENCY", 100*time.Millisecond),
		SuccessProbability:      getEnvFloat("EXEC_SUCCESS_PROBABILITY", 0.9),
		PriceJitterBand:         getEnvFloat("EXEC_PRICE_JITTER_BAND", 0.001),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
