package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port         string
	LogLevel     string
	AllowOrigins string

	// Storage: "postgres" or "memory"
	StorageDriver string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Auth
	JWTSecret string

	// Redis (wizard sessions). Empty address keeps sessions in process.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Wizard
	WizardSessionTTL time.Duration

	// Kafka (lifecycle events). No brokers disables publishing.
	KafkaBrokers        []string
	KafkaTopic          string
	KafkaPublishTimeout time.Duration

	// Usage counters
	UsageRetryAttempts     int
	UsageReconcileInterval int // seconds
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	return &Config{
		Port:                   getEnv("PORT", "8097"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		AllowOrigins:           getEnv("ALLOW_ORIGINS", "*"),
		StorageDriver:          getEnv("STORAGE_DRIVER", "postgres"),
		DBHost:                 getEnv("DB_HOST", "localhost"),
		DBPort:                 getEnv("DB_PORT", "5432"),
		DBUser:                 getEnv("DB_USER", "postgres"),
		DBPassword:             getEnv("DB_PASSWORD", ""),
		DBName:                 getEnv("DB_NAME", "chatforge"),
		DBSSLMode:              getEnv("DB_SSLMODE", "disable"),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		RedisAddr:              getEnv("REDIS_ADDR", ""),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		RedisDB:                getEnvInt("REDIS_DB", 0),
		WizardSessionTTL:       getEnvDuration("WIZARD_SESSION_TTL", 24*time.Hour),
		KafkaBrokers:           getEnvList("KAFKA_BROKERS"),
		KafkaTopic:             getEnv("KAFKA_TOPIC", "chatforge.chatbot-events"),
		KafkaPublishTimeout:    getEnvDuration("KAFKA_PUBLISH_TIMEOUT", 2*time.Second),
		UsageRetryAttempts:     getEnvInt("USAGE_RETRY_ATTEMPTS", 3),
		UsageReconcileInterval: getEnvInt("USAGE_RECONCILE_INTERVAL", 30),
	}
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
