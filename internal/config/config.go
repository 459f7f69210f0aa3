package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"epay-gateway/internal/infrastructure/database"
	"epay-gateway/pkg/logger"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Reconcile modes
const (
	// ReconcileModeCron runs cycles from an in-process cron inside the worker.
	ReconcileModeCron = "cron"
	// ReconcileModeQueue enqueues cycles from an asynq scheduler.
	ReconcileModeQueue = "queue"
)

// Gateway settings sources
const (
	EpaySourceEnv    = "env"
	EpaySourcePlugin = "plugin"
)

// Config chứa toàn bộ application configuration, populate từ environment
type Config struct {
	App       AppConfig
	Database  *database.DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Epay      EpayConfig
	Reconcile ReconcileConfig
	Worker    WorkerConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
}

type RedisConfig struct {
	Host      string
	Password  string
	DB        int
	KeyPrefix string
}

type JWTConfig struct {
	Secret            string
	AccessTokenExpiry int // minutes
}

// EpayConfig chọn nguồn gateway settings. Khi Source = plugin, settings được
// đọc từ bảng v2_plugin của host và cache trong Redis.
type EpayConfig struct {
	Source         string
	PluginCode     string
	PluginCacheTTL time.Duration
}

type ReconcileConfig struct {
	Mode        string
	Workers     int
	Window      time.Duration
	RateLimit   float64 // queries per second, 0 = unlimited
	LockEnabled bool
	LockTTL     time.Duration
}

type WorkerConfig struct {
	Concurrency int
	HealthPort  string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using system environment variables")
	}

	dbCfg, err := LoadDatabaseConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Epay Gateway"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Database: dbCfg,
		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "epay"),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", defaultJWTSecret),
			AccessTokenExpiry: getEnvInt("JWT_ACCESS_EXPIRY", 15),
		},
		Epay: EpayConfig{
			Source:         strings.ToLower(getEnv("EPAY_CONFIG_SOURCE", EpaySourceEnv)),
			PluginCode:     getEnv("EPAY_PLUGIN_CODE", "epay_ldc"),
			PluginCacheTTL: getEnvDuration("EPAY_PLUGIN_CACHE_TTL", 5*time.Minute),
		},
		Reconcile: ReconcileConfig{
			Mode:        strings.ToLower(getEnv("RECONCILE_MODE", ReconcileModeCron)),
			Workers:     getEnvInt("RECONCILE_WORKERS", 4),
			Window:      getEnvDuration("RECONCILE_WINDOW", 24*time.Hour),
			RateLimit:   getEnvFloat("RECONCILE_RATE_LIMIT", 0),
			LockEnabled: getEnvBool("RECONCILE_LOCK_ENABLED", true),
			LockTTL:     getEnvDuration("RECONCILE_LOCK_TTL", 5*time.Minute),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvInt("WORKER_CONCURRENCY", 10),
			HealthPort:  getEnv("WORKER_HEALTH_PORT", "8081"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate kiểm tra config có hợp lệ không
func (c *Config) Validate() error {
	switch c.Reconcile.Mode {
	case ReconcileModeCron, ReconcileModeQueue:
	default:
		return fmt.Errorf("RECONCILE_MODE must be %q or %q, got %q", ReconcileModeCron, ReconcileModeQueue, c.Reconcile.Mode)
	}

	switch c.Epay.Source {
	case EpaySourceEnv, EpaySourcePlugin:
	default:
		return fmt.Errorf("EPAY_CONFIG_SOURCE must be %q or %q, got %q", EpaySourceEnv, EpaySourcePlugin, c.Epay.Source)
	}

	if c.Reconcile.Workers <= 0 {
		return fmt.Errorf("RECONCILE_WORKERS must be positive")
	}
	if c.Reconcile.RateLimit < 0 {
		return fmt.Errorf("RECONCILE_RATE_LIMIT must not be negative")
	}

	if c.App.Environment == "production" {
		if c.JWT.Secret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD must be set in production")
		}
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
