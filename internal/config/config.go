package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jeffreyzhou0924/trademe-detect/internal/engine"
)

// Config is the root configuration structure for the detection service.
type Config struct {
	General   GeneralConfig `yaml:"general"`
	Detection engine.Config `yaml:"detection"`
	Server    ServerConfig  `yaml:"server"`
}

type GeneralConfig struct {
	InstanceID  string `yaml:"instance_id"`
	Environment string `yaml:"environment"` // production|staging|development
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // json|text
}

type ServerConfig struct {
	ListenAddr     string `yaml:"listen_addr"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
}

// Load reads and parses a YAML configuration file.
// Environment variables referenced as ${VAR} are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := &Config{Detection: engine.DefaultConfig()}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.General.InstanceID == "" {
		cfg.General.InstanceID = "detectd-1"
	}
	if cfg.General.Environment == "" {
		cfg.General.Environment = "development"
	}
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.LogFormat == "" {
		cfg.General.LogFormat = "json"
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8086"
	}
	if cfg.Server.ReadTimeoutMs == 0 {
		cfg.Server.ReadTimeoutMs = 10_000
	}
	if cfg.Server.WriteTimeoutMs == 0 {
		cfg.Server.WriteTimeoutMs = 10_000
	}

	d := &cfg.Detection
	def := engine.DefaultConfig()
	if d.MinConfidence <= 0 {
		d.MinConfidence = def.MinConfidence
	}
	if d.MaxCacheSize <= 0 {
		d.MaxCacheSize = def.MaxCacheSize
	}
	if d.AnalysisTimeoutMs <= 0 {
		d.AnalysisTimeoutMs = def.AnalysisTimeoutMs
	}
	if d.MinSnippetLen <= 0 {
		d.MinSnippetLen = def.MinSnippetLen
	}
	if d.Weights.SaturationKnee <= 0 {
		d.Weights = def.Weights
	}
}

func validate(cfg *Config) error {
	if cfg.Detection.MinConfidence > 1 {
		return fmt.Errorf("detection.min_confidence must be in (0,1], got %v", cfg.Detection.MinConfidence)
	}
	return nil
}
