// Package locator identifies the column targeted by an expression edit.
package locator

import (
	"fmt"
	"strings"
)

// ColumnLocator is the closed set of column identities an edit can target:
// NoExpression, NewExpression or ExistingExpression.
type ColumnLocator interface {
	fmt.Stringer
	isColumnLocator()
}

// NoExpression means no expression column is selected.
type NoExpression struct{}

// NewExpression is an expression being created; it has no alias yet.
type NewExpression struct{}

// ExistingExpression is a saved expression referenced by its alias.
type ExistingExpression struct {
	Alias string
}

func (NoExpression) isColumnLocator()       {}
func (NewExpression) isColumnLocator()      {}
func (ExistingExpression) isColumnLocator() {}

func (NoExpression) String() string  { return "none" }
func (NewExpression) String() string { return "new" }

func (e ExistingExpression) String() string { return existingPrefix + e.Alias }

const existingPrefix = "expr:"

// ShowsEditor reports whether the expression editor is displayed for l.
func ShowsEditor(l ColumnLocator) bool {
	switch l.(type) {
	case NewExpression, ExistingExpression:
		return true
	default:
		return false
	}
}

// Alias returns the alias pre-filled in the editor. Only existing
// expressions have one.
func Alias(l ColumnLocator) (string, bool) {
	if e, ok := l.(ExistingExpression); ok {
		return e.Alias, true
	}
	return "", false
}

// Existing builds an ExistingExpression, rejecting an empty alias.
func Existing(alias string) (ExistingExpression, error) {
	if strings.TrimSpace(alias) == "" {
		return ExistingExpression{}, fmt.Errorf("expression alias must not be empty")
	}
	return ExistingExpression{Alias: alias}, nil
}

// Parse reads the String form of a locator: "" or "none", "new",
// or "expr:<alias>".
func Parse(s string) (ColumnLocator, error) {
	switch {
	case s == "" || s == "none":
		return NoExpression{}, nil
	case s == "new":
		return NewExpression{}, nil
	case strings.HasPrefix(s, existingPrefix):
		return Existing(strings.TrimPrefix(s, existingPrefix))
	default:
		return nil, fmt.Errorf("invalid column locator %q (want none, new or expr:<alias>)", s)
	}
}
