package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache backends
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
	CacheBackendNone   = "none"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// Remote news source
	NewsSourceURL string        `json:"news_source_url"`
	FetchRate     time.Duration `json:"fetch_rate"`

	// Cache configuration
	CacheBackend  string        `json:"cache_backend"`
	CacheServers  []string      `json:"cache_servers"`
	CacheTTL      time.Duration `json:"cache_ttl"`
	CacheCapacity int           `json:"cache_capacity"`

	// Storage
	DBDriver string `json:"db_driver"`
	DBDSN    string `json:"db_dsn"`

	// Circuit breaker around the remote source
	BreakerWindow      int           `json:"breaker_window"`
	BreakerMinCalls    int           `json:"breaker_min_calls"`
	BreakerFailureRate float64       `json:"breaker_failure_rate"`
	BreakerOpenTimeout time.Duration `json:"breaker_open_timeout"`
	BreakerProbes      int           `json:"breaker_probes"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Security
	AdminAPIKey string `json:"admin_api_key"`
}

// Load loads configuration from environment variables and validates it
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

// FromEnv builds a Config from the current environment without validating it
func FromEnv() *Config {
	return &Config{
		// Server configuration
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		// Remote news source
		NewsSourceURL: getEnv("NEWS_SOURCE_URL", "http://localhost:9000/news"),
		FetchRate:     time.Duration(getEnvAsInt64("FETCH_RATE_MS", 300_000)) * time.Millisecond,

		// Cache configuration
		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendRedis)),
		CacheServers:  getEnvAsList("CACHE_SERVERS", "localhost:6379"),
		CacheTTL:      getEnvAsDuration("CACHE_TTL", time.Hour),
		CacheCapacity: getEnvAsInt("CACHE_CAPACITY", 50_000),

		// Storage
		DBDriver: strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DBDSN:    getEnv("DB_DSN", "./data/news.db"),

		// Circuit breaker
		BreakerWindow:      getEnvAsInt("BREAKER_WINDOW", 20),
		BreakerMinCalls:    getEnvAsInt("BREAKER_MIN_CALLS", 10),
		BreakerFailureRate: getEnvAsFloat("BREAKER_FAILURE_RATE", 0.5),
		BreakerOpenTimeout: getEnvAsDuration("BREAKER_OPEN_TIMEOUT", 60*time.Second),
		BreakerProbes:      getEnvAsInt("BREAKER_PROBES", 3),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		// Security
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.NewsSourceURL == "" {
		errs = append(errs, errors.New("NEWS_SOURCE_URL is required"))
	}
	if c.FetchRate <= 0 {
		errs = append(errs, errors.New("FETCH_RATE_MS must be positive"))
	}

	switch c.CacheBackend {
	case CacheBackendRedis:
		if len(c.CacheServers) == 0 {
			errs = append(errs, errors.New("CACHE_SERVERS must list at least one host:port for the redis backend"))
		}
		for _, server := range c.CacheServers {
			if _, _, err := SplitHostPort(server); err != nil {
				errs = append(errs, err)
			}
		}
	case CacheBackendMemory:
		if c.CacheCapacity <= 0 {
			errs = append(errs, errors.New("CACHE_CAPACITY must be positive"))
		}
	case CacheBackendNone:
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}

	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver))
	}
	if c.DBDSN == "" {
		errs = append(errs, errors.New("DB_DSN is required"))
	}

	if c.BreakerWindow <= 0 {
		errs = append(errs, errors.New("BREAKER_WINDOW must be positive"))
	}
	if c.BreakerMinCalls <= 0 || c.BreakerMinCalls > c.BreakerWindow {
		errs = append(errs, errors.New("BREAKER_MIN_CALLS must be between 1 and BREAKER_WINDOW"))
	}
	if c.BreakerFailureRate <= 0 || c.BreakerFailureRate > 1 {
		errs = append(errs, errors.New("BREAKER_FAILURE_RATE must be in (0, 1]"))
	}
	if c.BreakerProbes <= 0 {
		errs = append(errs, errors.New("BREAKER_PROBES must be positive"))
	}

	return errors.Join(errs...)
}

// SplitHostPort parses a "host:port" cache server entry
func SplitHostPort(server string) (string, int, error) {
	host, portStr, ok := strings.Cut(strings.TrimSpace(server), ":")
	if !ok || host == "" {
		return "", 0, fmt.Errorf("invalid cache server %q: expected host:port", server)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid cache server %q: bad port", server)
	}
	return host, port, nil
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsInt64(name string, defaultVal int64) int64 {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsFloat(name string, defaultVal float64) float64 {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsList(name, defaultValue string) []string {
	parts := strings.Split(getEnv(name, defaultValue), ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
