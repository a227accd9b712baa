package core

import (
	"fmt"
	"strings"
)

// TargetConfig holds database target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // duckdb, postgres

	// File-based databases (DuckDB)
	Database string `koanf:"database"` // file path or database name

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Common
	Schema string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`
}

// AdapterConfig converts the target into adapter connection settings.
func (t *TargetConfig) AdapterConfig() AdapterConfig {
	return AdapterConfig{
		Type:     strings.ToLower(t.Type),
		Path:     t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
	}
}

// DefaultSchemaForType returns the default schema for a database type.
func DefaultSchemaForType(dbType string) string {
	switch strings.ToLower(dbType) {
	case "postgres":
		return "public"
	default:
		return "main"
	}
}

// ApplyDefaults fills unset fields based on the target type.
func (t *TargetConfig) ApplyDefaults() {
	if t.Type == "" {
		t.Type = "duckdb"
	}
	t.Type = strings.ToLower(t.Type)
	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}
	if t.Type == "postgres" && t.Port == 0 {
		t.Port = 5432
	}
}

// Validate checks the target against the given set of available adapter types.
func (t *TargetConfig) Validate(available []string) error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	for _, name := range available {
		if strings.EqualFold(name, t.Type) {
			return nil
		}
	}
	return fmt.Errorf("unknown adapter type %q (available: %s)\nHint: Check your target.type in leapview.yaml",
		t.Type, strings.Join(available, ", "))
}
