package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultJWTSecret = "your_secret_key_please_change_in_production"

// Config is read once at startup.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   []byte
	GoEnv       string

	// GeoBackend selects the spatial index and presence store: "postgres" or "redis".
	GeoBackend string
	RedisAddr  string

	PresenceWindow     time.Duration
	DiscoverMaxRetries int
	DiscoverRetryBase  time.Duration
}

// loadEnv overlays .env and .env.dev onto the process environment when they exist.
func loadEnv(logger *logrus.Logger) {
	var loaded []string
	for _, file := range []string{".env", ".env.dev"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			logger.WithError(err).Warnf("Failed to load %s", file)
			continue
		}
		loaded = append(loaded, file)
	}
	if len(loaded) == 0 {
		logger.Debug("No local env files loaded; relying on process environment")
		return
	}
	logger.Debugf("Loaded env files: %s", strings.Join(loaded, ", "))
}

func loadConfig(logger *logrus.Logger) Config {
	loadEnv(logger)

	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "user=admin password=password dbname=interlinkdb sslmode=disable"),
		JWTSecret:          []byte(getEnv("JWT_SECRET", defaultJWTSecret)),
		GoEnv:              getEnv("GO_ENV", "development"),
		GeoBackend:         strings.ToLower(getEnv("GEO_BACKEND", "postgres")),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		PresenceWindow:     getEnvDuration("PRESENCE_WINDOW", 90*time.Second),
		DiscoverMaxRetries: getEnvInt("DISCOVER_MAX_RETRIES", 3),
		DiscoverRetryBase:  getEnvDuration("DISCOVER_RETRY_BASE", 100*time.Millisecond),
	}
	if os.Getenv("DATABASE_URL") == "" {
		logger.Warn("DATABASE_URL not set, using default connection string")
	}
	if string(cfg.JWTSecret) == defaultJWTSecret && cfg.GoEnv == "production" {
		logger.Warn("JWT_SECRET not set in production")
	}
	if cfg.GeoBackend != "postgres" && cfg.GeoBackend != "redis" {
		logger.Warnf("Unknown GEO_BACKEND %q, falling back to postgres", cfg.GeoBackend)
		cfg.GeoBackend = "postgres"
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
