package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "countdown.yaml"

var ErrInvalidConfig = errors.New("invalid config")

const (
	minTickInterval = time.Millisecond
	maxTickInterval = time.Second
)

type Config struct {
	TickInterval time.Duration
	Database     string
	History      bool
	LogFile      string
	LogLevel     string
}

type yamlConfig struct {
	TickInterval string `yaml:"tick_interval"`
	Database     string `yaml:"database"`
	History      *bool  `yaml:"history"`
	LogFile      string `yaml:"log_file"`
	LogLevel     string `yaml:"log_level"`
}

func Default() Config {
	return Config{
		TickInterval: 16 * time.Millisecond,
		Database:     "countdown.db",
		History:      true,
		LogFile:      "countdown.log",
		LogLevel:     "info",
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	var fileData yamlConfig
	if err := yaml.Unmarshal(raw, &fileData); err != nil {
		return cfg, fmt.Errorf("parse config yaml: %w", err)
	}
	if err := apply(&cfg, fileData); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func apply(cfg *Config, fileData yamlConfig) error {
	if s := strings.TrimSpace(fileData.TickInterval); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%w: tick_interval %q: %v", ErrInvalidConfig, s, err)
		}
		cfg.TickInterval = d
	}
	if fileData.Database != "" {
		cfg.Database = fileData.Database
	}
	if fileData.History != nil {
		cfg.History = *fileData.History
	}
	if fileData.LogFile != "" {
		cfg.LogFile = fileData.LogFile
	}
	if fileData.LogLevel != "" {
		cfg.LogLevel = fileData.LogLevel
	}
	return nil
}

func (c Config) Validate() error {
	if c.TickInterval < minTickInterval || c.TickInterval > maxTickInterval {
		return fmt.Errorf("%w: tick_interval %s outside [%s, %s]", ErrInvalidConfig, c.TickInterval, minTickInterval, maxTickInterval)
	}
	if c.History && strings.TrimSpace(c.Database) == "" {
		return fmt.Errorf("%w: database path is required when history is enabled", ErrInvalidConfig)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}

// Level is the parsed LogLevel. Validate has already rejected bad values.
func (c Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
