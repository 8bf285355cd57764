package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Config aggregates runtime configuration for the storage cleaner.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	MinIO    MinIOConfig
	Redis    RedisConfig
	Cleaner  CleanerConfig
	Auth     AuthConfig
	Metrics  MetricsConfig
}

// ServerConfig parameterizes the health/status HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MigrateURL returns the DSN in the form expected by the golang-migrate pgx/v5 driver.
func (p PostgresConfig) MigrateURL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries MinIO connection information.
type MinIOConfig struct {
	Host            string
	Port            int
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	CertCheck       bool
	Region          string
}

// Endpoint returns the MinIO API endpoint in host:port form.
func (m MinIOConfig) Endpoint() string {
	if strings.Contains(m.Host, ":") {
		return m.Host
	}
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// RedisConfig configures the run lock shared between replicas.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	LockTTL  time.Duration
}

// Address returns the Redis address in host:port form.
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CleanerConfig holds the quota enforcement knobs.
type CleanerConfig struct {
	// DeletePercent is the share of a bucket's objects removed per cleanup cycle.
	DeletePercent int
	// CleanThresholdPercent triggers cleanup when free space drops below it.
	CleanThresholdPercent int
	ReindexInterval       time.Duration
	EnforceInterval       time.Duration
}

// AuthConfig groups settings for the job-trigger endpoints.
type AuthConfig struct {
	AdminTokenSecret string
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("MSC_HTTP_HOST", "0.0.0.0"),
			Port:         getInt("MSC_HTTP_PORT", 8080),
			ReadTimeout:  getDuration("MSC_HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("MSC_HTTP_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDuration("MSC_HTTP_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_SERVER", "msc-db"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "postgres"),
			Password: getString("POSTGRES_PASSWORD", "changethis"),
			Database: getString("POSTGRES_DB", "msc"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		MinIO: MinIOConfig{
			Host:            getString("MINIO_URL", "localhost"),
			Port:            getInt("MINIO_API_PORT", 9000),
			AccessKeyID:     getString("MINIO_ACCESS_KEY", "ACCESS_KEY"),
			SecretAccessKey: getString("MINIO_SECRET_KEY", "SECRET_KEY"),
			UseSSL:          getBool("SECURE", false),
			CertCheck:       getBool("CERT_CHECK", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Redis: RedisConfig{
			Enabled:  getBool("REDIS_ENABLED", true),
			Host:     getString("REDIS_URL", "localhost"),
			Port:     getInt("REDIS_PORT", 6379),
			Password: getString("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
			LockTTL:  getDuration("MSC_LOCK_TTL", 30*time.Minute),
		},
		Cleaner: CleanerConfig{
			DeletePercent:         getInt("PERCENT_DELETE_FILES", 10),
			CleanThresholdPercent: getInt("CLEAN_PERCENT", 10),
			ReindexInterval:       time.Duration(getInt("TASK_DIR_TIME_MINUTES", 30)) * time.Minute,
			EnforceInterval:       time.Duration(getInt("TASK_CLEAN_TIME_MINUTES", 10)) * time.Minute,
		},
		Auth: AuthConfig{
			AdminTokenSecret: getString("MSC_ADMIN_TOKEN_SECRET", ""),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("MSC_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.Cleaner.DeletePercent < 1 || c.Cleaner.DeletePercent > 100 {
		errs = append(errs, fmt.Errorf("PERCENT_DELETE_FILES must be within 1..100, got %d", c.Cleaner.DeletePercent))
	}
	if c.Cleaner.CleanThresholdPercent < 0 || c.Cleaner.CleanThresholdPercent > 100 {
		errs = append(errs, fmt.Errorf("CLEAN_PERCENT must be within 0..100, got %d", c.Cleaner.CleanThresholdPercent))
	}
	if c.Cleaner.ReindexInterval <= 0 {
		errs = append(errs, errors.New("TASK_DIR_TIME_MINUTES must be positive"))
	}
	if c.Cleaner.EnforceInterval <= 0 {
		errs = append(errs, errors.New("TASK_CLEAN_TIME_MINUTES must be positive"))
	}
	if c.Redis.Enabled && c.Redis.LockTTL <= 0 {
		errs = append(errs, errors.New("MSC_LOCK_TTL must be positive"))
	}
	return multierr.Combine(errs...)
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
