// Package config provides configuration management for the leapview CLI.
//
// The target type is shared with the adapters through pkg/core and
// re-exported here via a type alias for convenience.
package config

import "github.com/leapstack-labs/leapview/pkg/core"

// TargetConfig is an alias for the shared target configuration.
// This allows CLI code to use config.TargetConfig without importing pkg/core.
type TargetConfig = core.TargetConfig

// Config holds all CLI configuration options.
type Config struct {
	ViewFile     string         `koanf:"view_file"`
	StatePath    string         `koanf:"state_path"`
	Session      string         `koanf:"session"`
	Verbose      bool           `koanf:"verbose"`
	OutputFormat string         `koanf:"output"`
	Target       *TargetConfig  `koanf:"target"`
	Source       SourceConfig   `koanf:"source"`
	Pipeline     PipelineConfig `koanf:"pipeline"`
	Render       RenderConfig   `koanf:"render"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// SourceConfig describes the CSV file loaded into the target database.
type SourceConfig struct {
	CSV   string `koanf:"csv"`
	Table string `koanf:"table"`
}

// PipelineConfig holds apply pipeline settings.
type PipelineConfig struct {
	// CancelSuperseded cancels in-flight applies when a newer one starts.
	CancelSuperseded bool `koanf:"cancel_superseded"`
	// StrictVersions rejects updates computed from an older session version.
	StrictVersions bool `koanf:"strict_versions"`
}

// RenderConfig holds view rendering settings.
type RenderConfig struct {
	// Limit is the row limit of views that set none.
	Limit int `koanf:"limit"`
}

// Default configuration values.
const (
	DefaultViewFile  = "view.yaml"
	DefaultStateFile = ".leapview/state.db"
	DefaultSession   = "default"
	DefaultOutput    = "auto" // Auto-detect: TTY=table, non-TTY=markdown
	DefaultTarget    = "duckdb"
)

// configFileNames lists the config file names searched for, in order.
var configFileNames = []string{"leapview.yaml", "leapview.yml"}
