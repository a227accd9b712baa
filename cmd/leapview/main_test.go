// Package main provides tests for the leapview CLI.
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapview/internal/cli"
	"github.com/leapstack-labs/leapview/internal/controller"
	"github.com/leapstack-labs/leapview/internal/viewconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupProject creates a project with a CSV source and returns its config
// file path.
func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "trips.csv"),
		[]byte("id,fare,distance\n1,10,2\n2,30,5\n3,8,0\n"), 0600))

	cfgPath := filepath.Join(dir, "leapview.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`source:
  csv: trips.csv
output: csv
`), 0600))
	return cfgPath
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "leapview v")
}

func TestHelpCommand(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)

	for _, expected := range []string{"show", "expressions", "save", "delete", "edit", "history", "completion"} {
		assert.Contains(t, out, expected, "help output should list %s", expected)
	}
}

func TestCompletionCommand(t *testing.T) {
	out, _, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "leapview")
}

func TestEditWorkflow(t *testing.T) {
	cfgPath := setupProject(t)
	viewFile := filepath.Join(filepath.Dir(cfgPath), "view.yaml")

	// Without a view file the whole source table is shown.
	out, _, err := execute(t, "--config", cfgPath, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "id,fare,distance")

	// New expression
	out, stderr, err := execute(t, "--config", cfgPath, "save", "--as", "per_km", "fare / NULLIF(distance, 0)")
	require.NoError(t, err)
	assert.Contains(t, out, "per_km")
	assert.Contains(t, stderr, "save applied")

	view, err := viewconfig.LoadFile(viewFile)
	require.NoError(t, err)
	assert.Equal(t, "trips", view.Table)
	assert.Equal(t, []string{"// per_km\nfare / NULLIF(distance, 0)"}, view.Expressions)

	// Saving the same text again keeps a single column.
	_, _, err = execute(t, "--config", cfgPath, "save", "--as", "per_km", "fare / NULLIF(distance, 0)")
	require.NoError(t, err)
	view, err = viewconfig.LoadFile(viewFile)
	require.NoError(t, err)
	assert.Len(t, view.Expressions, 1)

	// Replace in place
	_, _, err = execute(t, "--config", cfgPath, "save", "--alias", "per_km", "--as", "per_km", "round(fare / NULLIF(distance, 0), 1)")
	require.NoError(t, err)
	view, err = viewconfig.LoadFile(viewFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"// per_km\nround(fare / NULLIF(distance, 0), 1)"}, view.Expressions)

	out, _, err = execute(t, "--config", cfgPath, "-o", "json", "expressions")
	require.NoError(t, err)
	var exprs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &exprs))
	require.Len(t, exprs, 1)
	assert.Equal(t, "per_km", exprs[0]["alias"])
	assert.Equal(t, "round(fare / NULLIF(distance, 0), 1)", exprs[0]["expression"])
	assert.NotNil(t, exprs[0]["type"])

	// Deleting an unknown alias is refused.
	_, _, err = execute(t, "--config", cfgPath, "delete", "--alias", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, controller.ErrMissingExpression)

	_, _, err = execute(t, "--config", cfgPath, "delete", "--alias", "per_km")
	require.NoError(t, err)
	view, err = viewconfig.LoadFile(viewFile)
	require.NoError(t, err)
	assert.Empty(t, view.Expressions)

	out, _, err = execute(t, "--config", cfgPath, "-o", "json", "history")
	require.NoError(t, err)
	var history []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history, 4)
	kinds := make([]string, 0, len(history))
	for _, h := range history {
		assert.Equal(t, "succeeded", h["status"])
		kinds = append(kinds, h["kind"].(string))
	}
	assert.Equal(t, "delete,replace,save,save", strings.Join(kinds, ","))
}

func TestSaveReplaceUnknownAliasFails(t *testing.T) {
	cfgPath := setupProject(t)

	_, stderr, err := execute(t, "--config", cfgPath, "save", "--alias", "nope", "fare * 2")
	require.Error(t, err)
	assert.Contains(t, stderr, "replace failed")

	out, _, err := execute(t, "--config", cfgPath, "-o", "json", "history", "--failed")
	require.NoError(t, err)
	var history []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "replace", history[0]["kind"])
	assert.Contains(t, history[0]["error"], "unknown expression alias")
}
