// Package config loads application configuration from a YAML file overlaid
// with ROLLCALL_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"rollcall/internal/sheets"
)

// Config represents the complete application configuration.
type Config struct {
	Server  ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Refresh RefreshConfig   `yaml:"refresh" envconfig:"REFRESH"`
	Sheets  []sheets.Source `yaml:"sheets" validate:"required,min=1,dive"`
	Logging LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths   PathsConfig     `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST"`
}

// RefreshConfig controls the periodic refresh cycle.
type RefreshConfig struct {
	// Interval is the fixed polling interval between cycles.
	Interval time.Duration `yaml:"interval" envconfig:"INTERVAL" validate:"gt=0"`
	// FetchTimeout bounds each sheet request within a cycle.
	FetchTimeout time.Duration `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT" validate:"gt=0"`
	// CycleTimeout bounds one complete fetch-and-aggregate pass.
	CycleTimeout time.Duration `yaml:"cycle_timeout" envconfig:"CYCLE_TIMEOUT" validate:"gt=0"`
	// Threshold is the Good/Needs Improvement attendance boundary.
	Threshold float64 `yaml:"threshold" envconfig:"THRESHOLD" validate:"gt=0,lte=1"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths.
type PathsConfig struct {
	WebDir    string `yaml:"web_dir" envconfig:"WEB_DIR"`
	ExportDir string `yaml:"export_dir" envconfig:"EXPORT_DIR"`
}

// Load reads configuration from the given YAML file (if path is non-empty
// and the file exists), overlays ROLLCALL_-prefixed environment variables,
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("ROLLCALL", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against its declared constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	seen := make(map[string]bool, len(c.Sheets))
	for _, src := range c.Sheets {
		if seen[src.Subject] {
			return fmt.Errorf("config validation failed: duplicate sheet subject %q", src.Subject)
		}
		seen[src.Subject] = true
	}
	return nil
}

// Default returns the default configuration. It carries no sheet sources, so
// it does not pass Validate on its own.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    100,
			RateLimitBurst:  50,
		},
		Refresh: RefreshConfig{
			Interval:     30 * time.Second,
			FetchTimeout: 15 * time.Second,
			CycleTimeout: 25 * time.Second,
			Threshold:    0.75,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stdout",
			FilePath: "logs/rollcall.log",
		},
		Paths: PathsConfig{
			WebDir:    "web",
			ExportDir: "exports",
		},
	}
}
