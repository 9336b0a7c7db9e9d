package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all TourGuard backend settings.
type Config struct {
	Server struct {
		Port        int
		FrontendURL string // CORS origin for the dashboard
	}

	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Database string
		SSLMode  string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	Auth struct {
		JWTSecret    string
		TokenTTLHour int // session + token lifetime
	}

	SMS struct {
		APIURL string
		APIKey string // empty key means offline mode (log-and-mark-sent)
	}

	Monitor struct {
		IntervalMinutes  int
		EmergencyBaseURL string // public emergency-data link included in alerts
	}

	Env string // "development" or "production"

	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Server.Port = getEnvInt("PORT", 8080)
	cfg.Server.FrontendURL = getEnv("FRONTEND_URL", "http://localhost:3000")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "tourguard")
	cfg.Database.Password = getEnv("DB_PASSWORD", "tourguard")
	cfg.Database.Database = getEnv("DB_NAME", "tourguard")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", "tourguard-dev-secret")
	cfg.Auth.TokenTTLHour = getEnvInt("TOKEN_TTL_HOURS", 168) // 7 days

	cfg.SMS.APIURL = getEnv("SMS_API_URL", "https://api.example-sms-provider.com")
	cfg.SMS.APIKey = getEnv("SMS_API_KEY", "")

	cfg.Monitor.IntervalMinutes = getEnvInt("MONITOR_INTERVAL_MINUTES", 15)
	cfg.Monitor.EmergencyBaseURL = getEnv("EMERGENCY_BASE_URL", "https://tourguard.app/emergency")

	cfg.Env = getEnv("APP_ENV", "development")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if cfg.Monitor.IntervalMinutes <= 0 {
		return nil, fmt.Errorf("MONITOR_INTERVAL_MINUTES must be positive, got %d", cfg.Monitor.IntervalMinutes)
	}

	return cfg, nil
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
