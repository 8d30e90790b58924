// Package config loads runtime configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the server needs at startup.
type Config struct {
	ListenAddr string        `yaml:"listen_addr"`
	DBPath     string        `yaml:"db_path"`
	Analysis   CascadeConfig `yaml:"analysis"`
	Chat       CascadeConfig `yaml:"chat"`
	Tracing    TracingConfig `yaml:"tracing"`
}

// CascadeConfig describes one model cascade: the ordered candidate list and
// the per-candidate timeout.
type CascadeConfig struct {
	Models  []string      `yaml:"models"`
	Timeout time.Duration `yaml:"timeout"`
}

// UnmarshalYAML accepts the timeout as a Go duration string ("30s", "2m").
func (c *CascadeConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Models  []string `yaml:"models"`
		Timeout string   `yaml:"timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Models != nil {
		c.Models = raw.Models
	}
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("config: invalid timeout %q: %w", raw.Timeout, err)
		}
		c.Timeout = d
	}
	return nil
}

// TracingConfig controls the OTLP trace exporter.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Load builds the config from defaults, then an optional YAML file named by
// AQUASENSE_CONFIG, then environment overrides. Environment always wins.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr: ":8080",
		DBPath:     "aquasense.db",
		Analysis: CascadeConfig{
			Models: []string{
				"claude-3-5-haiku-20241022",
				"claude-sonnet-4-20250514",
				"claude-opus-4-20250514",
			},
			Timeout: 60 * time.Second,
		},
		Chat: CascadeConfig{
			Models:  []string{"claude-sonnet-4-20250514"},
			Timeout: 60 * time.Second,
		},
		Tracing: TracingConfig{
			Endpoint:    "localhost:4318",
			SampleRatio: 1,
		},
	}

	if path := os.Getenv("AQUASENSE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ListenAddr = getenvDefault("AQUASENSE_LISTEN_ADDR", cfg.ListenAddr)
	cfg.DBPath = getenvDefault("AQUASENSE_DB_PATH", cfg.DBPath)
	if models := splitCSV(os.Getenv("AQUASENSE_ANALYSIS_MODELS")); len(models) > 0 {
		cfg.Analysis.Models = models
	}
	if models := splitCSV(os.Getenv("AQUASENSE_CHAT_MODELS")); len(models) > 0 {
		cfg.Chat.Models = models
	}
	if d, ok := getenvDuration("AQUASENSE_MODEL_TIMEOUT"); ok {
		cfg.Analysis.Timeout = d
		cfg.Chat.Timeout = d
	}
	if os.Getenv("OTEL_ENABLED") == "true" {
		cfg.Tracing.Enabled = true
	}
	cfg.Tracing.Endpoint = getenvDefault("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.SampleRatio = getenvFloatDefault("OTEL_SAMPLE_RATIO", cfg.Tracing.SampleRatio)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DBPath == "" {
		return errors.New("config: db_path required")
	}
	if len(c.Analysis.Models) == 0 {
		return errors.New("config: analysis cascade needs at least one model")
	}
	if len(c.Chat.Models) == 0 {
		return errors.New("config: chat cascade needs at least one model")
	}
	if c.Analysis.Timeout <= 0 || c.Chat.Timeout <= 0 {
		return errors.New("config: model timeout must be positive")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return errors.New("config: sample_ratio must be in [0,1]")
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string) (time.Duration, bool) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
