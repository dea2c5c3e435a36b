package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/invman/internal/domain/quantity"
)

// Config holds the invman API configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Events  EventsConfig  `yaml:"events"`
	Auth    AuthConfig    `yaml:"auth"`
	API     APIConfig     `yaml:"api"`
	Logging LoggingConfig `yaml:"logging"`
	Items   []ItemConfig  `yaml:"items"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// EventsConfig holds the pub/sub backend that display events are published to.
type EventsConfig struct {
	Driver           string   `yaml:"driver"` // redis, none (default: none)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
}

// APIConfig holds pagination settings.
type APIConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

// ItemConfig describes an item registered at startup.
type ItemConfig struct {
	Name            string             `yaml:"name"`
	Size            string             `yaml:"size"`
	Vendor          string             `yaml:"vendor"`
	WarnBeforeEmpty float64            `yaml:"warn_before_empty_days"`
	Quantities      map[string]float64 `yaml:"quantities"` // supply, morning, noon, evening, night
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from the given YAML file.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Events.Driver == "" {
		c.Events.Driver = "none"
	}
	if c.Events.ReadinessTimeout <= 0 {
		c.Events.ReadinessTimeout = 10
	}
	if c.Events.KeyPrefix == "" {
		c.Events.KeyPrefix = "invman:"
	}
	if c.API.DefaultPageSize <= 0 {
		c.API.DefaultPageSize = 20
	}
	if c.API.MaxPageSize <= 0 {
		c.API.MaxPageSize = 100
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Events.Driver {
	case "none":
	case "redis", "valkey":
		if len(c.Events.Addrs) == 0 {
			return fmt.Errorf("events.addrs is required for driver %q", c.Events.Driver)
		}
	default:
		return fmt.Errorf("events.driver must be \"redis\", \"valkey\" or \"none\", got %q", c.Events.Driver)
	}
	for i, it := range c.Items {
		if strings.TrimSpace(it.Name) == "" {
			return fmt.Errorf("items[%d].name is required", i)
		}
		if it.WarnBeforeEmpty < 0 {
			return fmt.Errorf("items[%d].warn_before_empty_days must not be negative, got %v", i, it.WarnBeforeEmpty)
		}
		for k := range it.Quantities {
			if _, err := quantity.Parse(k); err != nil {
				return fmt.Errorf("items[%d].quantities: %w", i, err)
			}
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
