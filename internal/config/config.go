package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/terra-clan/exercise-engine/internal/models"
)

// Config holds all configuration for exercise-engine
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Verify    VerifyConfig
	Auth      AuthConfig
	Retention RetentionConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL configuration.
// An empty DSN keeps attempts in memory.
type DatabaseConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds Redis configuration.
// An empty address disables the shared verdict cache.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// CacheConfig holds verdict cache configuration
type CacheConfig struct {
	Size int
	TTL  time.Duration
	// Version prefixes shared verdict keys; empty means the build revision
	Version string
}

// VerifyConfig bounds submissions
type VerifyConfig struct {
	MaxSubmissionBytes int
	SelfCheck          bool
}

// AuthConfig holds API key authentication configuration
type AuthConfig struct {
	Enabled bool
	Clients []*models.ApiClient
}

// RetentionConfig holds attempt retention worker configuration
type RetentionConfig struct {
	MaxAge   time.Duration
	Interval time.Duration
}

// Load loads configuration from environment variables.
// A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	clients, err := parseAPIKeys(getEnv("API_KEYS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid API_KEYS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			DSN:          getEnv("DATABASE_DSN", ""),
			MaxOpenConns: getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Size:    getEnvAsInt("VERDICT_CACHE_SIZE", 1024),
			TTL:     getEnvAsDuration("VERDICT_CACHE_TTL", time.Hour),
			Version: getEnv("VERDICT_CACHE_VERSION", ""),
		},
		Verify: VerifyConfig{
			MaxSubmissionBytes: getEnvAsInt("VERIFY_MAX_SUBMISSION_BYTES", 256*1024),
			SelfCheck:          getEnvAsBool("VERIFY_SELF_CHECK", true),
		},
		Auth: AuthConfig{
			Enabled: getEnvAsBool("AUTH_ENABLED", false),
			Clients: clients,
		},
		Retention: RetentionConfig{
			MaxAge:   getEnvAsDuration("ATTEMPT_RETENTION", 30*24*time.Hour),
			Interval: getEnvAsDuration("ATTEMPT_RETENTION_INTERVAL", time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Cache.Size < 1 {
		return fmt.Errorf("verdict cache size must be positive: %d", c.Cache.Size)
	}

	if c.Verify.MaxSubmissionBytes < 0 {
		return fmt.Errorf("invalid max submission bytes: %d", c.Verify.MaxSubmissionBytes)
	}

	if c.Retention.MaxAge < 0 {
		return fmt.Errorf("invalid attempt retention: %s", c.Retention.MaxAge)
	}

	if c.Auth.Enabled && c.Database.DSN == "" && len(c.Auth.Clients) == 0 {
		return fmt.Errorf("auth is enabled but no API_KEYS are configured and no database is set")
	}

	return nil
}

// parseAPIKeys reads "name:key:perm|perm,name:key:perm" into clients.
// Omitted permissions grant read access to exercises only.
func parseAPIKeys(raw string) ([]*models.ApiClient, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var clients []*models.ApiClient
	for i, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("entry %q must be name:key[:permissions]", entry)
		}

		perms := []string{models.PermExercisesRead}
		if len(parts) == 3 && parts[2] != "" {
			perms = strings.Split(parts[2], "|")
		}

		clients = append(clients, &models.ApiClient{
			ID:          i + 1,
			Name:        parts[0],
			ApiKey:      parts[1],
			IsActive:    true,
			CreatedAt:   time.Now().UTC(),
			Permissions: perms,
		})
	}
	return clients, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
