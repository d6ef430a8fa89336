// Package config provides unified configuration loading for the image text service.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the image text service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	OCR      OCRConfig      `yaml:"ocr"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// OCRConfig holds recognition engine settings.
type OCRConfig struct {
	TessdataPrefix string       `yaml:"tessdata_prefix"`
	Languages      []string     `yaml:"languages"`
	MinConfidence  float64      `yaml:"min_confidence"`
	Neural         NeuralConfig `yaml:"neural"`
}

// NeuralConfig holds settings for the optional neural recognition sidecar.
type NeuralConfig struct {
	Endpoint  string        `yaml:"endpoint"` // empty disables the engine
	Timeout   time.Duration `yaml:"timeout"`
	Languages []string      `yaml:"languages"`
}

// PipelineConfig holds extraction pipeline settings.
type PipelineConfig struct {
	MaxDimension      int           `yaml:"max_dimension"`
	Workers           int           `yaml:"workers"` // 0 means one per CPU
	Deadline          time.Duration `yaml:"deadline"`
	PassTimeout       time.Duration `yaml:"pass_timeout"`
	MinFragmentLength int           `yaml:"min_fragment_length"`
	OutputDir         string        `yaml:"output_dir"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             5000,
			ReadTimeout:      60 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
			MaxUploadBytes:   16 * 1024 * 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		OCR: OCRConfig{
			Languages:     []string{"eng"},
			MinConfidence: 0.30,
			Neural: NeuralConfig{
				Timeout:   30 * time.Second,
				Languages: []string{"en"},
			},
		},
		Pipeline: PipelineConfig{
			MaxDimension:      1200,
			Workers:           0,
			Deadline:          45 * time.Second,
			PassTimeout:       15 * time.Second,
			MinFragmentLength: 3,
			OutputDir:         "output",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.MaxUploadBytes < 1 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if len(c.OCR.Languages) == 0 {
		return fmt.Errorf("at least one OCR language is required")
	}

	if c.OCR.MinConfidence < 0 || c.OCR.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be between 0 and 1")
	}

	if c.Pipeline.MaxDimension < 1 {
		return fmt.Errorf("max_dimension must be positive")
	}

	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}

	if c.Pipeline.Deadline <= 0 {
		return fmt.Errorf("deadline must be positive")
	}

	if c.Pipeline.PassTimeout <= 0 {
		return fmt.Errorf("pass_timeout must be positive")
	}

	if c.Pipeline.MinFragmentLength < 0 {
		return fmt.Errorf("min_fragment_length cannot be negative")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("TESSDATA_PREFIX"); v != "" {
		cfg.OCR.TessdataPrefix = v
	}

	if v := os.Getenv("OCR_LANGUAGES"); v != "" {
		cfg.OCR.Languages = splitList(v)
	}

	if v := os.Getenv("NEURAL_ENDPOINT"); v != "" {
		cfg.OCR.Neural.Endpoint = v
	}

	if v := os.Getenv("PIPELINE_WORKERS"); v != "" {
		var workers int
		if _, err := fmt.Sscanf(v, "%d", &workers); err == nil {
			cfg.Pipeline.Workers = workers
		}
	}

	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.Pipeline.OutputDir = v
	}
}

// splitList parses a comma separated environment value into a clean slice.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
