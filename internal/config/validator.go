package config

import (
	"fmt"
	"net"
)

// Validate rejects configurations that would let the server start in a
// broken state: non-positive thread counts, non-positive ceilings, and
// malformed addresses are caught here rather than surfacing as a bind
// failure or a governor that admits nothing.
func Validate(cfg *Config) error {
	if cfg.Threads < 1 {
		return fmt.Errorf("config: threads must be >= 1, got %d", cfg.Threads)
	}
	if cfg.CeilingBytes <= 0 {
		return fmt.Errorf("config: ceiling_bytes must be positive, got %d", cfg.CeilingBytes)
	}
	if cfg.QueueCapacity < 1 {
		return fmt.Errorf("config: queue_capacity must be >= 1, got %d", cfg.QueueCapacity)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("config: port must be in [1, 65535], got %d", cfg.Port)
	}
	if cfg.Address == "" {
		return fmt.Errorf("config: address is required")
	}
	if net.ParseIP(cfg.Address) == nil && cfg.Address != "localhost" {
		return fmt.Errorf("config: address %q is not a valid IP", cfg.Address)
	}
	if cfg.ShutdownTimeoutSeconds < 1 {
		return fmt.Errorf("config: shutdown_timeout_s must be >= 1, got %d", cfg.ShutdownTimeoutSeconds)
	}
	if cfg.RejuvenateEveryTasks < 0 {
		return fmt.Errorf("config: rejuvenate_every_tasks must be >= 0, got %d", cfg.RejuvenateEveryTasks)
	}
	if cfg.RejuvenateEverySeconds < 0 {
		return fmt.Errorf("config: rejuvenate_every_seconds must be >= 0, got %d", cfg.RejuvenateEverySeconds)
	}
	return nil
}
