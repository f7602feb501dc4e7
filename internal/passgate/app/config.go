package app

import (
	"os"
	"strconv"
	"time"

	"github.com/passgate/passgate/internal/passgate/notify"
	"github.com/passgate/passgate/internal/passgate/service"
	"github.com/passgate/passgate/internal/passgate/session"
)

type Config struct {
	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)

	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	StoreDriver  string // Verification record store driver (memory, sqlite) (default: memory)
	DatabaseFile string // Optional: path to SQLite database file, sqlite driver only (default: ./passgate.db)

	OTPTTL             time.Duration // Lifetime of an issued verification code (default: 60s)
	SweepInterval      time.Duration // Housekeeping sweep interval (default: 1m)
	SessionIdleTimeout time.Duration // Idle timeout before a session is dropped (default: 30m)

	NotifyAddress string        // Destination address for verification codes (default: user@example.com)
	NotifyTimeout time.Duration // Deadline for a single delivery attempt (default: 10s)

	SMTP notify.SMTPConfig // Optional: when Host is empty, codes are logged instead of mailed
}

func LoadConfig() Config {
	return Config{
		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		StoreDriver:  getEnvOrDefault("STORE_DRIVER", "memory"),
		DatabaseFile: getEnvOrDefault("DATABASE_FILE", "passgate.db"),

		OTPTTL:             getEnvDurationOrDefault("OTP_TTL", service.DefaultOTPTTL),
		SweepInterval:      getEnvDurationOrDefault("SWEEP_INTERVAL", time.Minute),
		SessionIdleTimeout: getEnvDurationOrDefault("SESSION_IDLE_TIMEOUT", session.DefaultIdleTimeout),

		NotifyAddress: getEnvOrDefault("NOTIFY_ADDRESS", "user@example.com"),
		NotifyTimeout: getEnvDurationOrDefault("NOTIFY_TIMEOUT", service.DefaultNotifyTimeout),

		SMTP: notify.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvIntOrDefault("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnvOrDefault("SMTP_FROM", "no-reply@passgate.local"),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
