package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewShowCommand(t *testing.T) {
	cmd := NewShowCommand()

	assert.Equal(t, "show", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("watch"))
	assert.NotNil(t, cmd.Flags().ShorthandLookup("w"))
}

func TestNewExpressionsCommand(t *testing.T) {
	cmd := NewExpressionsCommand()

	assert.Equal(t, "expressions", cmd.Use)
	assert.Equal(t, []string{"exprs"}, cmd.Aliases)
	// Note: --output flag is a global persistent flag on root command, not local
}

func TestNewSaveCommand(t *testing.T) {
	cmd := NewSaveCommand()

	assert.Equal(t, "save [EXPRESSION]", cmd.Use)
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	for _, flag := range []string{"alias", "as"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Error(t, cmd.Args(cmd, nil), "an expression argument is required")
	assert.NoError(t, cmd.Args(cmd, []string{"a + b"}))
}

func TestNewDeleteCommand(t *testing.T) {
	cmd := NewDeleteCommand()

	assert.Equal(t, "delete --alias ALIAS", cmd.Use)
	flag := cmd.Flags().Lookup("alias")
	if assert.NotNil(t, flag) {
		assert.Equal(t, []string{"true"}, flag.Annotations["cobra_annotation_bash_completion_one_required_flag"])
	}
}

func TestNewEditCommand(t *testing.T) {
	cmd := NewEditCommand()

	assert.Equal(t, "edit", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("alias"))
	assert.Error(t, cmd.Args(cmd, []string{"unexpected"}))
}

func TestNewHistoryCommand(t *testing.T) {
	cmd := NewHistoryCommand()

	assert.Equal(t, "history", cmd.Use)
	for _, flag := range []string{"failed", "limit"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, "20", cmd.Flags().Lookup("limit").DefValue)
}
