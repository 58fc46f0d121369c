package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	RedisURL         string
	StoragePath      string
	GeoIPDBPath      string
	ModelCatalogPath string
	DefaultLocale    string

	VideoAPIBaseURL string
	VideoAPIKey     string

	PromptProvider string
	GeminiAPIKey   string
	GeminiModel    string
	GeminiBaseURL  string

	TrackerInterval   time.Duration
	RetentionDays     int
	RetentionSchedule string

	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	CORSAllowedOrigins []string
	DBMaxConns         int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		ModelCatalogPath: os.Getenv("MODEL_CATALOG_PATH"),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", "en"),

		VideoAPIBaseURL: getEnv("VIDEO_API_BASE_URL", "https://api.vidu.example.com/v1"),
		VideoAPIKey:     os.Getenv("VIDEO_API_KEY"),

		PromptProvider: getEnv("PROMPT_PROVIDER", "gemini"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:  getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		TrackerInterval:   time.Second * time.Duration(getEnvInt("TRACKER_INTERVAL_SECONDS", 5)),
		RetentionDays:     getEnvInt("HISTORY_RETENTION_DAYS", 90),
		RetentionSchedule: getEnv("HISTORY_RETENTION_SCHEDULE", "@daily"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		DBMaxConns:       getEnvInt("DB_MAX_CONNS", 10),
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
			}
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.TrackerInterval <= 0 {
		return nil, fmt.Errorf("TRACKER_INTERVAL_SECONDS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
