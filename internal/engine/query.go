package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapview/internal/expression"
	"github.com/leapstack-labs/leapview/internal/viewconfig"
)

// Result is the materialized output of a view query.
type Result struct {
	Columns []string
	Types   []string
	Rows    [][]any
}

// Query runs the view query of cfg and returns its rows.
func (e *Engine) Query(ctx context.Context, cfg viewconfig.ViewConfig) (*Result, error) {
	query, err := BuildViewSQL(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid view: %w", err)
	}
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	e.logger.Debug("running view query", "table", cfg.Table, "expressions", len(cfg.Expressions))

	rows, err := e.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanResult(rows)
}

// ProbeExpression asks the database for the result type of an expression
// evaluated against table. An error means the database rejected it.
func (e *Engine) ProbeExpression(ctx context.Context, table, text string) (string, error) {
	query, err := BuildProbeSQL(table, text)
	if err != nil {
		return "", err
	}
	if err := e.ensureDBConnected(ctx); err != nil {
		return "", err
	}

	rows, err := e.db.Query(ctx, query)
	if err != nil {
		return "", fmt.Errorf("expression %q: %w", expression.Alias(text), err)
	}
	defer func() { _ = rows.Close() }()

	types, err := rows.ColumnTypes()
	if err != nil {
		return "", fmt.Errorf("failed to read expression type: %w", err)
	}
	if len(types) == 0 {
		return "", fmt.Errorf("expression %q returned no column", expression.Alias(text))
	}
	return types[0].DatabaseTypeName(), rows.Err()
}

// ProbeTypes probes every expression of cfg and returns alias -> type.
// Expressions the database rejects are left out and reported in the
// joined error.
func (e *Engine) ProbeTypes(ctx context.Context, cfg viewconfig.ViewConfig) (map[string]string, error) {
	types := make(map[string]string, len(cfg.Expressions))
	var errs []error
	for _, text := range cfg.Expressions {
		typ, err := e.ProbeExpression(ctx, cfg.Table, text)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		types[expression.Alias(text)] = typ
	}
	return types, errors.Join(errs...)
}

func scanResult(rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	res := &Result{Columns: cols, Types: make([]string, len(cols))}
	if colTypes, err := rows.ColumnTypes(); err == nil {
		for i, ct := range colTypes {
			res.Types[i] = ct.DatabaseTypeName()
		}
	}

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return res, nil
}
