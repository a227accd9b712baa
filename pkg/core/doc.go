// Package core defines the types shared between the leapview packages.
//
// This package contains:
//   - Adapter connection settings (AdapterConfig) and table metadata
//   - Target configuration as it appears in leapview.yaml (TargetConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
