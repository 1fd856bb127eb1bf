package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ozxin/nx-admin/pkg/observability"
)

// Session store backends
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config holds all console configuration
type Config struct {
	API           APIConfig           `yaml:"api"`
	Session       SessionConfig       `yaml:"session"`
	Routes        RoutesConfig        `yaml:"routes"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// APIConfig holds the admin API client settings
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig holds the secret store settings
type SessionConfig struct {
	// SystemName prefixes every persisted key
	SystemName string `yaml:"system_name"`
	// Store is memory, file or redis
	Store         string        `yaml:"store"`
	File          string        `yaml:"file"`
	RedisURL      string        `yaml:"redis_url"`
	RedisPassword string        `yaml:"redis_password"`
	// RedisDB replaces the database of RedisURL when positive
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

// RoutesConfig holds navigation settings
type RoutesConfig struct {
	// Table is a YAML route table file; the built-in table is used when empty
	Table string `yaml:"table"`
	// Filter overrides the table's filter_async switch when set
	Filter    *bool    `yaml:"filter"`
	LoginPath string   `yaml:"login_path"`
	Whitelist []string `yaml:"whitelist"`
}

// ObservabilityConfig holds logging, metrics and tracing settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsFile    string `yaml:"metrics_file"`
	TracingEnabled bool   `yaml:"tracing_enabled"`
	// OTLPEndpoint is the gRPC collector address spans are exported to
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

// Level returns the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080/api/",
			Timeout: 5 * time.Second,
		},
		Session: SessionConfig{
			SystemName: "v3-admin-vite",
			Store:      StoreFile,
			File:       defaultSessionFile(),
		},
		Routes: RoutesConfig{
			LoginPath: "/login",
			Whitelist: []string{"/login"},
		},
		Observability: ObservabilityConfig{
			LogLevel: "warn",
		},
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".nxadmin-session.yaml"
	}
	return filepath.Join(dir, "nxadmin", "session.yaml")
}

// LoadConfig builds the configuration from defaults, the YAML file named by NX_CONFIG_FILE
// and NX_* environment variables, in that order of precedence from lowest to highest
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := getEnv("NX_CONFIG_FILE", ""); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile overlays the settings present in a YAML file
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.API.BaseURL = getEnv("NX_BASE_API", c.API.BaseURL)
	c.API.Timeout = getEnvDuration("NX_API_TIMEOUT", c.API.Timeout)

	c.Session.SystemName = getEnv("NX_APP_SYSTEM_NAME", c.Session.SystemName)
	c.Session.Store = strings.ToLower(getEnv("NX_SESSION_STORE", c.Session.Store))
	c.Session.File = getEnv("NX_SESSION_FILE", c.Session.File)
	c.Session.RedisURL = getEnv("NX_REDIS_URL", c.Session.RedisURL)
	c.Session.RedisPassword = getEnv("NX_REDIS_PASSWORD", c.Session.RedisPassword)
	c.Session.RedisDB = getEnvInt("NX_REDIS_DB", c.Session.RedisDB)
	c.Session.TTL = getEnvDuration("NX_SESSION_TTL", c.Session.TTL)

	c.Routes.Table = getEnv("NX_ROUTE_TABLE", c.Routes.Table)
	if value := os.Getenv("NX_ROUTE_FILTER"); value != "" {
		filter := getEnvBool("NX_ROUTE_FILTER", true)
		c.Routes.Filter = &filter
	}
	c.Routes.LoginPath = getEnv("NX_LOGIN_PATH", c.Routes.LoginPath)
	if whitelist := getEnv("NX_WHITELIST", ""); whitelist != "" {
		c.Routes.Whitelist = splitList(whitelist)
	}

	c.Observability.LogLevel = getEnv("NX_LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.MetricsEnabled = getEnvBool("NX_METRICS_ENABLED", c.Observability.MetricsEnabled)
	c.Observability.MetricsFile = getEnv("NX_METRICS_FILE", c.Observability.MetricsFile)
	c.Observability.TracingEnabled = getEnvBool("NX_TRACING_ENABLED", c.Observability.TracingEnabled)
	c.Observability.OTLPEndpoint = getEnv("NX_OTLP_ENDPOINT", c.Observability.OTLPEndpoint)
	c.Observability.OTLPInsecure = getEnvBool("NX_OTLP_INSECURE", c.Observability.OTLPInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("API base URL is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API base URL must be an absolute http(s) URL: %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return errors.New("API timeout must be positive")
	}

	if c.Session.SystemName == "" {
		return errors.New("system name is required")
	}
	switch c.Session.Store {
	case StoreMemory:
	case StoreFile:
		if c.Session.File == "" {
			return errors.New("session file is required for file store")
		}
	case StoreRedis:
		if c.Session.RedisURL == "" {
			return errors.New("redis URL is required for redis store")
		}
		if c.Session.RedisDB < 0 {
			return errors.New("redis DB must not be negative")
		}
	default:
		return fmt.Errorf("invalid session store: %s (must be memory, file, or redis)", c.Session.Store)
	}
	if c.Session.TTL < 0 {
		return errors.New("session TTL must not be negative")
	}

	if !strings.HasPrefix(c.Routes.LoginPath, "/") {
		return fmt.Errorf("login path must start with /: %q", c.Routes.LoginPath)
	}
	for _, p := range c.Routes.Whitelist {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("whitelist path must start with /: %q", p)
		}
	}

	if c.Observability.MetricsFile != "" && !c.Observability.MetricsEnabled {
		return errors.New("metrics file requires metrics to be enabled")
	}
	if c.Observability.OTLPEndpoint != "" && !c.Observability.TracingEnabled {
		return errors.New("OTLP endpoint requires tracing to be enabled")
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
