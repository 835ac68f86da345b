// Package config loads the OCR server's configuration: a YAML file
// providing defaults, overridden by CLI flags. Grounded in the
// teacher's internal/config package (Load/Validate split, yaml.v3
// tags, regexp-validated string fields).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete OCR server configuration.
type Config struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	Threads int    `yaml:"threads"`

	CeilingBytes  int64 `yaml:"ceiling_bytes"`
	QueueCapacity int   `yaml:"queue_capacity"`

	RejuvenateEveryTasks   int `yaml:"rejuvenate_every_tasks"`
	RejuvenateEverySeconds int `yaml:"rejuvenate_every_seconds"`

	Language      string `yaml:"language"`
	PageSegMode   int    `yaml:"page_segmentation_mode"`
	CharWhitelist string `yaml:"char_whitelist"`

	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_s"`
	HealthPort             string `yaml:"health_port"`
}

// Defaults returns the built-in configuration, matching spec.md §6's
// documented defaults. CLI flags and a config file both layer on top
// of this.
func Defaults() Config {
	return Config{
		Address:                "0.0.0.0",
		Port:                   50051,
		Threads:                4,
		CeilingBytes:           500 << 20,
		QueueCapacity:          64,
		RejuvenateEveryTasks:   0,
		RejuvenateEverySeconds: 0,
		Language:               "eng",
		PageSegMode:            0,
		CharWhitelist:          "",
		ShutdownTimeoutSeconds: 10,
		HealthPort:             "8080",
	}
}

// Load reads and parses a YAML configuration file on top of base,
// returning the merged result. A zero-valued field in the file leaves
// base's value untouched. The result is not validated; callers should
// call Validate before using it.
func Load(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
