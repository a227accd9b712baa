package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration against the available adapter types.
func (c *Config) Validate(adapters []string) error {
	if strings.TrimSpace(c.ViewFile) == "" {
		return fmt.Errorf("view_file is required")
	}
	if strings.TrimSpace(c.StatePath) == "" {
		return fmt.Errorf("state_path is required")
	}
	if c.Render.Limit < 0 {
		return fmt.Errorf("render.limit must not be negative, got %d", c.Render.Limit)
	}
	if c.Target == nil {
		return fmt.Errorf("target is required")
	}
	if err := c.Target.Validate(adapters); err != nil {
		return fmt.Errorf("invalid target configuration: %w", err)
	}
	return nil
}

// SessionName returns the configured session name or the default.
func (c *Config) SessionName() string {
	if c.Session == "" {
		return DefaultSession
	}
	return c.Session
}
