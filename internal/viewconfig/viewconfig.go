// Package viewconfig defines the view configuration of an analytic session
// and the partial updates applied to it.
package viewconfig

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapview/internal/expression"
)

// DefaultLimit bounds the rows rendered when a view sets no limit.
const DefaultLimit = 50

// ViewConfig is the configuration a dataset view is rendered from.
type ViewConfig struct {
	// Table is the source table (optionally schema-qualified).
	Table string `yaml:"table"`
	// Columns lists source columns to show; empty means all.
	Columns []string `yaml:"columns,omitempty"`
	// Expressions holds computed column expression texts, in order,
	// without duplicates.
	Expressions []string `yaml:"expressions,omitempty"`
	// Limit caps the number of rendered rows; 0 uses DefaultLimit.
	Limit int `yaml:"limit,omitempty"`
}

// Clone returns a deep copy of c.
func (c ViewConfig) Clone() ViewConfig {
	c.Columns = slices.Clone(c.Columns)
	c.Expressions = slices.Clone(c.Expressions)
	return c
}

// EffectiveLimit returns the row limit used for rendering.
func (c ViewConfig) EffectiveLimit() int {
	if c.Limit <= 0 {
		return DefaultLimit
	}
	return c.Limit
}

// Validate checks the invariants of a view configuration.
func (c ViewConfig) Validate() error {
	if strings.TrimSpace(c.Table) == "" {
		return fmt.Errorf("view table is required")
	}
	if c.Limit < 0 {
		return fmt.Errorf("view limit must not be negative, got %d", c.Limit)
	}
	seen := make(map[string]string, len(c.Expressions))
	for _, e := range c.Expressions {
		if strings.TrimSpace(e) == "" {
			return fmt.Errorf("empty expression in view")
		}
		alias := expression.Alias(e)
		if prev, dup := seen[alias]; dup {
			if prev == e {
				return fmt.Errorf("duplicate expression %q", alias)
			}
			return fmt.Errorf("duplicate expression alias %q", alias)
		}
		seen[alias] = e
	}
	return nil
}

// Update is a partial view configuration. Nil fields leave the current
// value unchanged.
type Update struct {
	Table       *string
	Columns     *[]string
	Expressions *[]string
	Limit       *int

	// BaseVersion is the session version the update was computed from.
	// Zero means unknown.
	BaseVersion uint64
}

// ExpressionsUpdate builds an update that only sets the expression list.
func ExpressionsUpdate(list []string, baseVersion uint64) Update {
	l := slices.Clone(list)
	if l == nil {
		l = []string{}
	}
	return Update{Expressions: &l, BaseVersion: baseVersion}
}

// IsEmpty reports whether u changes nothing.
func (u Update) IsEmpty() bool {
	return u.Table == nil && u.Columns == nil && u.Expressions == nil && u.Limit == nil
}

// Fields lists the names of the fields u sets.
func (u Update) Fields() []string {
	var fields []string
	if u.Table != nil {
		fields = append(fields, "table")
	}
	if u.Columns != nil {
		fields = append(fields, "columns")
	}
	if u.Expressions != nil {
		fields = append(fields, "expressions")
	}
	if u.Limit != nil {
		fields = append(fields, "limit")
	}
	return fields
}

// Apply returns c with the fields set in u replaced.
func (c ViewConfig) Apply(u Update) ViewConfig {
	out := c.Clone()
	if u.Table != nil {
		out.Table = *u.Table
	}
	if u.Columns != nil {
		out.Columns = slices.Clone(*u.Columns)
	}
	if u.Expressions != nil {
		out.Expressions = slices.Clone(*u.Expressions)
	}
	if u.Limit != nil {
		out.Limit = *u.Limit
	}
	return out
}

// FullUpdate builds an update that replaces every field with the values
// of cfg.
func FullUpdate(cfg ViewConfig, baseVersion uint64) Update {
	c := cfg.Clone()
	if c.Columns == nil {
		c.Columns = []string{}
	}
	if c.Expressions == nil {
		c.Expressions = []string{}
	}
	return Update{
		Table:       &c.Table,
		Columns:     &c.Columns,
		Expressions: &c.Expressions,
		Limit:       &c.Limit,
		BaseVersion: baseVersion,
	}
}

// Equal reports whether two configurations render the same view.
func (c ViewConfig) Equal(other ViewConfig) bool {
	return c.Table == other.Table &&
		c.EffectiveLimit() == other.EffectiveLimit() &&
		slices.Equal(c.Columns, other.Columns) &&
		slices.Equal(c.Expressions, other.Expressions)
}
