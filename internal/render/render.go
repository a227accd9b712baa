// Package render writes the result of a view query to a terminal or file.
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/leapstack-labs/leapview/internal/engine"
	"github.com/leapstack-labs/leapview/internal/viewconfig"
)

// Format is an output format for view results.
type Format string

// Supported formats.
const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
)

// Formats lists the supported format names.
func Formats() []string {
	return []string{string(FormatTable), string(FormatMarkdown), string(FormatJSON), string(FormatCSV)}
}

// ParseFormat parses a format name. "md" is accepted for markdown and an
// empty name means table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown output format %q (available: %s)", s, strings.Join(Formats(), ", "))
	}
}

// Write renders res to w in the given format.
func Write(w io.Writer, res *engine.Result, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, res)
	case FormatCSV:
		newWriter(w, res).RenderCSV()
		return nil
	case FormatMarkdown:
		if len(res.Rows) == 0 {
			_, _ = fmt.Fprintln(w, "(0 rows)")
			return nil
		}
		newWriter(w, res).RenderMarkdown()
		return nil
	default:
		return writeTable(w, res)
	}
}

func newWriter(w io.Writer, res *engine.Result) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	// aliases are case-sensitive column names
	t.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(res.Columns))
	for i, col := range res.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, values := range res.Rows {
		row := make(table.Row, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		t.AppendRow(row)
	}
	return t
}

func writeTable(w io.Writer, res *engine.Result) error {
	if len(res.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	newWriter(w, res).Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
	return nil
}

func writeJSON(w io.Writer, res *engine.Result) error {
	out := make([]map[string]any, 0, len(res.Rows))
	for _, values := range res.Rows {
		row := make(map[string]any, len(res.Columns))
		for i, col := range res.Columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

// Querier runs a view query.
type Querier interface {
	Query(ctx context.Context, cfg viewconfig.ViewConfig) (*engine.Result, error)
}

// Renderer queries a view and writes the result to its output.
// Renders are serialized so concurrent output never interleaves.
type Renderer struct {
	mu     sync.Mutex
	q      Querier
	w      io.Writer
	format Format
	logger *slog.Logger
}

// New creates a renderer writing to w.
func New(q Querier, w io.Writer, format Format, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if format == "" {
		format = FormatTable
	}
	return &Renderer{q: q, w: w, format: format, logger: logger}
}

// Render runs the view query of cfg and writes it. It returns the number
// of rows written.
func (r *Renderer) Render(ctx context.Context, cfg viewconfig.ViewConfig) (int, error) {
	res, err := r.q.Query(ctx, cfg)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := Write(r.w, res, r.format); err != nil {
		return 0, fmt.Errorf("failed to write view: %w", err)
	}
	r.logger.Debug("view rendered", "table", cfg.Table, "rows", len(res.Rows), "format", r.format)
	return len(res.Rows), nil
}
