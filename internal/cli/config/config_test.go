package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/leapview/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapview/pkg/adapters/postgres"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "leapview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("view", "", "view file")
	flags.String("state", "", "state database")
	flags.String("database", "", "database")
	flags.String("source", "", "csv source")
	flags.String("table", "", "source table")
	flags.String("session", "", "session name")
	flags.StringP("output", "o", "", "output format")
	flags.BoolP("verbose", "v", false, "verbose")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	tmpDir := t.TempDir()
	cfgPath := writeConfig(t, tmpDir, "source:\n  csv: data/trips.csv\n")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, tmpDir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(tmpDir, DefaultViewFile), cfg.ViewFile)
	assert.Equal(t, filepath.Join(tmpDir, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, filepath.Join(tmpDir, "data", "trips.csv"), cfg.Source.CSV)
	assert.Equal(t, DefaultSession, cfg.SessionName())
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	require.NotNil(t, cfg.Target)
	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, "main", cfg.Target.Schema)
	assert.Empty(t, cfg.Target.Database, "in-memory database stays empty")
	assert.False(t, cfg.Pipeline.CancelSuperseded)
	assert.False(t, cfg.Pipeline.StrictVersions)

	assert.Equal(t, cfgPath, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_FileValues(t *testing.T) {
	ResetConfig()
	tmpDir := t.TempDir()
	cfgPath := writeConfig(t, tmpDir, `view_file: views/trips.yaml
session: analysis
output: json
target:
  type: postgres
  host: localhost
  database: warehouse
source:
  table: trips
pipeline:
  cancel_superseded: true
  strict_versions: true
render:
  limit: 20
`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmpDir, "views", "trips.yaml"), cfg.ViewFile)
	assert.Equal(t, "analysis", cfg.SessionName())
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "postgres", cfg.Target.Type)
	assert.Equal(t, 5432, cfg.Target.Port)
	assert.Equal(t, "public", cfg.Target.Schema)
	assert.Equal(t, "warehouse", cfg.Target.Database, "postgres database names are not paths")
	assert.Equal(t, "trips", cfg.Source.Table)
	assert.True(t, cfg.Pipeline.CancelSuperseded)
	assert.True(t, cfg.Pipeline.StrictVersions)
	assert.Equal(t, 20, cfg.Render.Limit)
}

// TestLoadConfig_FlagPrecedence tests that flags override env vars and config file.
func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()
	tmpDir := t.TempDir()
	cfgPath := writeConfig(t, tmpDir, "session: from_file\n")
	t.Setenv("LEAPVIEW_SESSION", "from_env")

	flags := newFlags()
	require.NoError(t, flags.Set("session", "from_flag"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, "from_flag", cfg.Session, "flag value should override config file and env var")
}

// TestLoadConfig_EnvPrecedenceOverFile tests that env vars override config file.
func TestLoadConfig_EnvPrecedenceOverFile(t *testing.T) {
	ResetConfig()
	tmpDir := t.TempDir()
	cfgPath := writeConfig(t, tmpDir, "session: from_file\nsource:\n  table: from_file\n")
	t.Setenv("LEAPVIEW_SESSION", "from_env")
	t.Setenv("LEAPVIEW_SOURCE__TABLE", "nested_env")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "from_env", cfg.Session, "env var should override config file")
	assert.Equal(t, "nested_env", cfg.Source.Table, "double underscore should address nested keys")
}

// TestLoadConfig_FlagNotSetUsesEnv tests that unset flags fall back to env vars.
func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()
	tmpDir := t.TempDir()
	cfgPath := writeConfig(t, tmpDir, "session: from_file\n")
	t.Setenv("LEAPVIEW_SESSION", "from_env")

	cfg, err := LoadConfig(cfgPath, newFlags())
	require.NoError(t, err)

	assert.Equal(t, "from_env", cfg.Session, "env var should be used when flag is not set")
}

func TestLoadConfig_FlagKeyMapping(t *testing.T) {
	ResetConfig()
	tmpDir := t.TempDir()
	cfgPath := writeConfig(t, tmpDir, "")

	flags := newFlags()
	require.NoError(t, flags.Set("view", "custom.yaml"))
	require.NoError(t, flags.Set("state", "custom.db"))
	require.NoError(t, flags.Set("database", ":memory:"))
	require.NoError(t, flags.Set("source", "trips.csv"))
	require.NoError(t, flags.Set("table", "rides"))
	require.NoError(t, flags.Set("output", "csv"))
	require.NoError(t, flags.Set("verbose", "true"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)

	// Flag paths resolve against the working directory, not the project root.
	assert.Equal(t, filepath.Join(cwd, "custom.yaml"), cfg.ViewFile)
	assert.Equal(t, filepath.Join(cwd, "custom.db"), cfg.StatePath)
	assert.Equal(t, filepath.Join(cwd, "trips.csv"), cfg.Source.CSV)
	assert.Equal(t, ":memory:", cfg.Target.Database)
	assert.Equal(t, "rides", cfg.Source.Table)
	assert.Equal(t, "csv", cfg.OutputFormat)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_UpwardSearch(t *testing.T) {
	ResetConfig()
	root := t.TempDir()
	writeConfig(t, root, "session: found\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0750))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "found", cfg.Session)
	// macOS temp dirs sit behind a symlink; compare resolved paths.
	wantRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(cfg.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, wantRoot, gotRoot)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{name: "unknown adapter", content: "target:\n  type: oracle\n", errSubstr: "unknown adapter type"},
		{name: "negative limit", content: "render:\n  limit: -1\n", errSubstr: "render.limit"},
		{name: "malformed yaml", content: "session: [unclosed\n", errSubstr: "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			cfgPath := writeConfig(t, t.TempDir(), tt.content)
			_, err := LoadConfig(cfgPath, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoadConfig_ExpandsTargetSecrets(t *testing.T) {
	ResetConfig()
	t.Setenv("LEAPVIEW_TEST_PASSWORD", "s3cret")
	cfgPath := writeConfig(t, t.TempDir(), `target:
  type: postgres
  user: analyst
  password: ${LEAPVIEW_TEST_PASSWORD}
`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Target.Password)
	assert.Equal(t, "analyst", cfg.Target.User)
}

// TestExpandEnvVars tests the expandEnvVars function.
func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR_ONE", "value_one")
	t.Setenv("TEST_VAR_TWO", "value_two")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "single variable", input: "${TEST_VAR_ONE}", expected: "value_one"},
		{name: "multiple variables", input: "${TEST_VAR_ONE}/${TEST_VAR_TWO}", expected: "value_one/value_two"},
		{name: "unset variable stays as-is", input: "${UNSET_VARIABLE}", expected: "${UNSET_VARIABLE}"},
		{name: "no variables", input: "plain string", expected: "plain string"},
		{name: "empty string", input: "", expected: ""},
		{name: "mixed set and unset", input: "${TEST_VAR_ONE}:${UNSET_VAR}", expected: "value_one:${UNSET_VAR}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestGetLogger(t *testing.T) {
	t.Run("fallback discards", func(t *testing.T) {
		logger := GetLogger(context.Background())
		require.NotNil(t, logger)
		assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
	})

	t.Run("stored logger is returned", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, true, false)
		ctx := WithLogger(context.Background(), logger)
		assert.Same(t, logger, GetLogger(ctx))
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("quiet text handler", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, false, false)
		logger.Info("hidden")
		logger.Warn("shown", "alias", "fare")

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "level=WARN")
		assert.Contains(t, out, "alias=fare")
		assert.NotContains(t, out, "time=")
	})

	t.Run("verbose enables debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, true, false)
		logger.Debug("details")
		assert.Contains(t, buf.String(), "details")
	})

	t.Run("terminal handler", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, false, true)
		logger.Error("apply failed", "task", "t1")
		assert.Contains(t, buf.String(), "apply failed")
		assert.Contains(t, buf.String(), "t1")
	})
}
