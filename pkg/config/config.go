package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional: empty URL disables snapshot persistence)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Reference data
	Catalog CatalogConfig
	Policy  PolicyConfig

	// API
	RateLimit RateLimitConfig
	CacheTTL  time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// CatalogConfig holds sector catalog configuration
type CatalogConfig struct {
	Path            string // 비어 있으면 내장 카탈로그 사용
	RefreshSchedule string // cron (초 단위 포함)
}

// PolicyConfig holds allocation policy configuration
type PolicyConfig struct {
	Path string // 비어 있으면 기본 정책 사용
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Reference data
		Catalog: CatalogConfig{
			Path:            getEnv("CATALOG_PATH", ""),
			RefreshSchedule: getEnv("CATALOG_REFRESH_SCHEDULE", "0 */5 * * * *"),
		},
		Policy: PolicyConfig{
			Path: getEnv("POLICY_PATH", ""),
		},

		// API
		RateLimit: RateLimitConfig{
			RPS:   getEnvAsFloat("RATE_LIMIT_RPS", 10),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		CacheTTL: getEnvAsDuration("CACHE_TTL", "10m"),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable; every problem is reported at once
func (c *Config) validate() error {
	var errs []error

	switch c.Env {
	case "development", "staging", "production":
	default:
		errs = append(errs, fmt.Errorf("ENV must be one of: development, staging, production"))
	}

	switch c.LogFormat {
	case "json", "console", "pretty":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be one of: json, console, pretty"))
	}

	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}

	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be a positive duration"))
	}

	if c.Database.Enabled() && c.Database.MaxConns <= 0 {
		errs = append(errs, fmt.Errorf("DB_MAX_CONNS must be positive"))
	}

	return errors.Join(errs...)
}

// Helper functions (private, only used within this file)

// loadEnvFile loads the first .env found: ENV_FILE, ./.env, then next to the binary.
// 이미 설정된 환경변수는 덮어쓰지 않음 (godotenv.Load 동작)
func loadEnvFile() {
	var paths []string
	if explicit := os.Getenv("ENV_FILE"); explicit != "" {
		paths = append(paths, explicit)
	}
	paths = append(paths, ".env")
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths, filepath.Join(exeDir, ".env"), filepath.Join(exeDir, "..", ".env"))
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// getEnvAs parses key with parse; unset or unparsable values fall back to def
func getEnvAs[T any](key string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func getEnv(key, defaultValue string) string {
	return getEnvAs(key, defaultValue, func(s string) (string, error) { return s, nil })
}

func getEnvAsInt(key string, defaultValue int) int {
	return getEnvAs(key, defaultValue, strconv.Atoi)
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	return getEnvAs(key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

func getEnvAsBool(key string, defaultValue bool) bool {
	return getEnvAs(key, defaultValue, strconv.ParseBool)
}

// getEnvAsDuration takes the default as a duration string ("10m") to keep Load readable
func getEnvAsDuration(key string, defaultValue string) time.Duration {
	def, _ := time.ParseDuration(defaultValue)
	return getEnvAs(key, def, time.ParseDuration)
}
