package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 3000, matching the original)

	StoreDriver  string // Store driver (memory, sqlite) (default: memory)
	DatabaseFile string // Path to the SQLite database file (sqlite driver only)

	SMTPHost     string // SMTP relay host; empty means log-only dev delivery
	SMTPPort     int    // SMTP relay port (default: 587)
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string        // Sender address for verification mails
	MailTimeout  time.Duration // Upper bound on one mail-send call (default: 10s)

	AdminCodes  []string      // Allow-listed codes conferring the admin role on registration
	TokenSecret string        // HMAC secret for session tokens; required outside dev
	TokenTTL    time.Duration // Session token lifetime (default: 24h)
	CodeTTL     time.Duration // Verification code lifetime (default: 10m)

	HousekeepingInterval time.Duration // Expired-code sweep interval (default: 1h)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)

	SeedDemoData bool // Seed the demo accounts from the original prototype
}

func LoadConfig() Config {
	return Config{
		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		Port:      getEnvIntOrDefault("PORT", 3000),

		StoreDriver:  getEnvOrDefault("STORE_DRIVER", "memory"),
		DatabaseFile: getEnvOrDefault("DATABASE_FILE", "anongram.db"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnvOrDefault("SMTP_FROM", "noreply@anongram.app"),
		MailTimeout:  getEnvDurationOrDefault("MAIL_TIMEOUT", 10*time.Second),

		AdminCodes:  splitList(os.Getenv("ADMIN_CODES")),
		TokenSecret: os.Getenv("TOKEN_SECRET"),
		TokenTTL:    getEnvDurationOrDefault("TOKEN_TTL", 24*time.Hour),
		CodeTTL:     getEnvDurationOrDefault("CODE_TTL", 10*time.Minute),

		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		SeedDemoData: getEnvBoolOrDefault("SEED_DEMO_DATA", false),
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	// Integer values are taken as minutes for convenience.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
