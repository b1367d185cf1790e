package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/insightdelivered/statement-ventilation/internal/parser"
)

type ServerConfig struct {
	Listen      string `yaml:"listen"`
	BodyLimitMB int    `yaml:"body_limit_mb"`
	MetricsPath string `yaml:"metrics_path"`
	// StaticDir serves a web front-end when set.
	StaticDir string `yaml:"static_dir"`
}

type ParseConfig struct {
	// Template forces a statement template; empty means detect from content.
	Template    string `yaml:"template"`
	Workers     int    `yaml:"workers"`
	OCR         bool   `yaml:"ocr"`
	OCRLanguage string `yaml:"ocr_language"`
}

// Config is the optional YAML configuration file.
type Config struct {
	LogLevel  string            `yaml:"log_level"`
	Server    ServerConfig      `yaml:"server"`
	Parse     ParseConfig       `yaml:"parse"`
	Templates []parser.Template `yaml:"templates"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Listen:      ":8080",
			BodyLimitMB: 32,
			MetricsPath: "/metrics",
		},
		Parse: ParseConfig{
			Workers:     4,
			OCRLanguage: "fra",
		},
	}
}

// Load reads the file at path over the defaults. A missing file is not an
// error when optional is set.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later.
func (c *Config) Validate() error {
	var errs []error
	if c.Parse.Workers < 1 {
		errs = append(errs, fmt.Errorf("parse.workers must be at least 1, got %d", c.Parse.Workers))
	}
	if c.Server.BodyLimitMB < 1 {
		errs = append(errs, fmt.Errorf("server.body_limit_mb must be at least 1, got %d", c.Server.BodyLimitMB))
	}
	for _, t := range c.Templates {
		if err := t.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Registry returns the built-in templates plus those of the file. A file
// template with a built-in name replaces it.
func (c *Config) Registry() (*parser.Registry, error) {
	r := parser.DefaultRegistry()
	for _, t := range c.Templates {
		if err := r.Add(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}
