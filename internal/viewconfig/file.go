package viewconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapview/internal/expression"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a view configuration from a YAML file.
// A missing file yields an empty configuration and os.ErrNotExist.
func LoadFile(path string) (ViewConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ViewConfig{}, err
		}
		return ViewConfig{}, fmt.Errorf("failed to read view file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML view configuration, dropping repeated expressions.
func Parse(data []byte) (ViewConfig, error) {
	var cfg ViewConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return ViewConfig{}, nil
		}
		return ViewConfig{}, fmt.Errorf("failed to parse view file: %w", err)
	}
	cfg.Expressions = expression.Normalize(cfg.Expressions)
	return cfg, nil
}

// SaveFile writes cfg to path atomically (temp file + rename).
func SaveFile(path string, cfg ViewConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode view: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create view directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".view-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp view file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write view file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write view file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace view file: %w", err)
	}
	return nil
}
