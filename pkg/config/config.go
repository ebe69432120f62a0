package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Redis      RedisConfig      `json:"redis"`
	Database   DatabaseConfig   `json:"database"`
	Controller ControllerConfig `json:"controller"`
	AI         AIConfig         `json:"ai"`
	Logging    LoggingConfig    `json:"logging"`
	Tracing    TracingConfig    `json:"tracing"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// RedisConfig contains Redis connection configuration. Redis backs the AI
// response cache and is an available probe target.
type RedisConfig struct {
	Host     string        `json:"host"`
	Port     int           `json:"port"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	PoolSize int           `json:"pool_size"`
	CacheTTL time.Duration `json:"cache_ttl"`
}

// DatabaseConfig contains Postgres connection configuration, used when the
// monitored dependency is a database.
type DatabaseConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Name         string `json:"name"`
	User         string `json:"user"`
	Password     string `json:"password"`
	SSLMode      string `json:"ssl_mode"`
	MaxOpenConns int    `json:"max_open_conns"`
	MaxIdleConns int    `json:"max_idle_conns"`
}

// ControllerConfig contains degradation controller configuration
type ControllerConfig struct {
	ServiceName     string        `json:"service_name"`
	ProbeKind       string        `json:"probe_kind"` // http, redis, postgres
	ProbeTarget     string        `json:"probe_target"`
	ProbeTimeout    time.Duration `json:"probe_timeout"`
	ProbeRetries    int           `json:"probe_retries"`
	CheckInterval   time.Duration `json:"check_interval"`
	DegradedTimeout time.Duration `json:"degraded_timeout"`

	// Error-rate thresholds for the default rule set
	DegradedThreshold float64 `json:"degraded_threshold"`
	MinimalThreshold  float64 `json:"minimal_threshold"`
	OfflineThreshold  float64 `json:"offline_threshold"`
}

// AIConfig contains AI fallback-chain configuration
type AIConfig struct {
	PrimaryModel      string `json:"primary_model"`
	FallbackModel     string `json:"fallback_model"`
	DefaultMaxTokens  int    `json:"default_max_tokens"`
	DegradedMaxTokens int    `json:"degraded_max_tokens"`
	ErrorMessage      string `json:"error_message"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Output string `json:"output"`
}

// TracingConfig contains distributed tracing configuration
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	JaegerEndpoint string  `json:"jaeger_endpoint"`
	SamplingRate   float64 `json:"sampling_rate"`
	Environment    string  `json:"environment"`
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:         getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
			CacheTTL: getEnvDuration("REDIS_CACHE_TTL", time.Hour),
		},
		Database: DatabaseConfig{
			Host:         getEnvString("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			Name:         getEnvString("DB_NAME", "degrade"),
			User:         getEnvString("DB_USER", "degrade"),
			Password:     getEnvString("DB_PASSWORD", ""),
			SSLMode:      getEnvString("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		},
		Controller: ControllerConfig{
			ServiceName:       getEnvString("CONTROLLER_SERVICE_NAME", "inference-api"),
			ProbeKind:         getEnvString("CONTROLLER_PROBE_KIND", "http"),
			ProbeTarget:       getEnvString("CONTROLLER_PROBE_TARGET", "http://localhost:9090/health"),
			ProbeTimeout:      getEnvDuration("CONTROLLER_PROBE_TIMEOUT", 5*time.Second),
			ProbeRetries:      getEnvInt("CONTROLLER_PROBE_RETRIES", 3),
			CheckInterval:     getEnvDuration("CONTROLLER_CHECK_INTERVAL", 30*time.Second),
			DegradedTimeout:   getEnvDuration("CONTROLLER_DEGRADED_TIMEOUT", 15*time.Second),
			DegradedThreshold: getEnvFloat("CONTROLLER_DEGRADED_THRESHOLD", 0.2),
			MinimalThreshold:  getEnvFloat("CONTROLLER_MINIMAL_THRESHOLD", 0.5),
			OfflineThreshold:  getEnvFloat("CONTROLLER_OFFLINE_THRESHOLD", 0.9),
		},
		AI: AIConfig{
			PrimaryModel:      getEnvString("AI_PRIMARY_MODEL", "large-v3"),
			FallbackModel:     getEnvString("AI_FALLBACK_MODEL", "small-v2"),
			DefaultMaxTokens:  getEnvInt("AI_DEFAULT_MAX_TOKENS", 4000),
			DegradedMaxTokens: getEnvInt("AI_DEGRADED_MAX_TOKENS", 1000),
			ErrorMessage:      getEnvString("AI_ERROR_MESSAGE", "The assistant is temporarily unavailable. Please try again later."),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
			Output: getEnvString("LOG_OUTPUT", "stdout"),
		},
		Tracing: TracingConfig{
			Enabled:        getEnvBool("TRACING_ENABLED", false),
			JaegerEndpoint: getEnvString("TRACING_JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			SamplingRate:   getEnvFloat("TRACING_SAMPLING_RATE", 1.0),
			Environment:    getEnvString("TRACING_ENVIRONMENT", "development"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Controller.ProbeKind {
	case "http", "redis", "postgres":
	default:
		return fmt.Errorf("unknown probe kind: %q", c.Controller.ProbeKind)
	}

	if c.Controller.ServiceName == "" {
		return fmt.Errorf("controller service name is required")
	}

	if !(c.Controller.DegradedThreshold <= c.Controller.MinimalThreshold &&
		c.Controller.MinimalThreshold <= c.Controller.OfflineThreshold) {
		return fmt.Errorf("error-rate thresholds must be non-decreasing with severity")
	}

	if c.AI.DefaultMaxTokens <= 0 || c.AI.DegradedMaxTokens <= 0 {
		return fmt.Errorf("token budgets must be positive")
	}

	return nil
}

// DatabaseURL returns the Postgres connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// RedisAddr returns the host:port address for the Redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
