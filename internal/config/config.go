package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the msyt command defaults. Command-line flags override it.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Create  CreateConfig  `yaml:"create"`
	Batch   BatchConfig   `yaml:"batch"`
	Limits  LimitsConfig  `yaml:"limits"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig holds MSBT → MSYT settings.
type ExportConfig struct {
	JSON bool `yaml:"json"`
}

// CreateConfig holds MSYT → MSBT settings.
type CreateConfig struct {
	Platform string `yaml:"platform"` // wiiu (big endian) or switch (little endian)
	Encoding string `yaml:"encoding"` // utf16 or utf8, empty keeps each tree's own
}

// BatchConfig holds directory conversion settings.
type BatchConfig struct {
	Workers     int    `yaml:"workers"`     // 0 = one per CPU
	Compression string `yaml:"compression"` // "", zs, lz4, br, xz
	MetricsFile string `yaml:"metrics_file"`
}

// LimitsConfig caps input sizes.
type LimitsConfig struct {
	MaxFileSizeMB int `yaml:"max_file_size_mb"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Env   string `yaml:"env"`   // local, dev, prod
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the configuration used without a config file.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// Load reads configuration from a YAML file. An empty path yields Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
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

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Create.Platform == "" {
		c.Create.Platform = "wiiu"
	}
	if c.Limits.MaxFileSizeMB <= 0 {
		c.Limits.MaxFileSizeMB = 256
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "local"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "warn"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Create.Platform {
	case "wiiu", "switch":
	default:
		return fmt.Errorf("create.platform must be \"wiiu\" or \"switch\", got %q", c.Create.Platform)
	}
	switch c.Create.Encoding {
	case "", "utf16", "utf8":
	default:
		return fmt.Errorf("create.encoding must be \"utf16\" or \"utf8\", got %q", c.Create.Encoding)
	}
	switch c.Batch.Compression {
	case "", "zs", "lz4", "br", "xz":
	default:
		return fmt.Errorf("batch.compression must be one of zs, lz4, br, xz, got %q", c.Batch.Compression)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must not be negative, got %d", c.Batch.Workers)
	}
	return nil
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
