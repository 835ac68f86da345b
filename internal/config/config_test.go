package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/care/ocrstream/internal/config"
)

func TestDefaultsPassValidation(t *testing.T) {
	cfg := config.Defaults()
	if err := config.Validate(&cfg); err != nil {
		t.Fatalf("Validate(Defaults()) error = %v", err)
	}
}

func TestLoadOverridesOnlyPresentFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ocr.yaml")
	if err := os.WriteFile(path, []byte("port: 9000\nthreads: 8\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := config.Load(path, config.Defaults())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.Threads != 8 {
		t.Errorf("Threads = %d, want 8", cfg.Threads)
	}
	if cfg.Address != "0.0.0.0" {
		t.Errorf("Address = %q, want default %q (untouched by file)", cfg.Address, "0.0.0.0")
	}
	if cfg.CeilingBytes != config.Defaults().CeilingBytes {
		t.Errorf("CeilingBytes = %d, want default untouched", cfg.CeilingBytes)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
	}{
		{"zero threads", func(c *config.Config) { c.Threads = 0 }},
		{"negative ceiling", func(c *config.Config) { c.CeilingBytes = -1 }},
		{"zero queue capacity", func(c *config.Config) { c.QueueCapacity = 0 }},
		{"port out of range", func(c *config.Config) { c.Port = 70000 }},
		{"empty address", func(c *config.Config) { c.Address = "" }},
		{"malformed address", func(c *config.Config) { c.Address = "not-an-ip" }},
		{"zero shutdown timeout", func(c *config.Config) { c.ShutdownTimeoutSeconds = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Defaults()
			tc.mutate(&cfg)
			if err := config.Validate(&cfg); err == nil {
				t.Fatalf("Validate() = nil, want error for %s", tc.name)
			}
		})
	}
}
