package engine

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapview/internal/expression"
	"github.com/leapstack-labs/leapview/internal/viewconfig"
	"github.com/leapstack-labs/leapview/pkg/adapter"
)

// QuoteTable quotes each part of a possibly schema-qualified table name.
func QuoteTable(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = adapter.QuoteIdent(strings.TrimSpace(p))
	}
	return strings.Join(parts, ".")
}

// BuildViewSQL renders the query of a view: the selected source columns
// (all when none are listed) followed by one column per expression, named
// by its alias.
func BuildViewSQL(cfg viewconfig.ViewConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	var items []string
	if len(cfg.Columns) == 0 {
		items = append(items, "*")
	} else {
		for _, c := range cfg.Columns {
			items = append(items, adapter.QuoteIdent(c))
		}
	}
	for _, text := range cfg.Expressions {
		items = append(items, expressionItem(text))
	}

	return fmt.Sprintf("SELECT %s FROM %s LIMIT %d",
		strings.Join(items, ", "), QuoteTable(cfg.Table), cfg.EffectiveLimit()), nil
}

// BuildProbeSQL renders a query returning no rows whose only column is the
// expression, so the database reports its type or rejects it.
func BuildProbeSQL(table, text string) (string, error) {
	if strings.TrimSpace(expression.Body(text)) == "" {
		return "", ErrEmptyExpression
	}
	if strings.TrimSpace(table) == "" {
		return "", fmt.Errorf("view table is required")
	}
	return fmt.Sprintf("SELECT %s FROM %s LIMIT 0", expressionItem(text), QuoteTable(table)), nil
}

func expressionItem(text string) string {
	return fmt.Sprintf("(%s\n) AS %s", expression.Body(text), adapter.QuoteIdent(expression.Alias(text)))
}
