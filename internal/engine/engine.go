// Package engine runs dataset views against a database adapter.
// It loads the CSV source of a view, builds the view query with its
// computed expression columns and probes the result type of expressions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapview/pkg/adapter"
)

// Engine executes view queries against a lazily connected adapter.
type Engine struct {
	// Database adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	source Source
	logger *slog.Logger
}

// Source describes the CSV file loaded into the database on connect.
type Source struct {
	// CSV is the path of the CSV file; empty disables loading.
	CSV string
	// Table is the table the CSV is loaded into. Defaults to the file name
	// without extension.
	Table string
}

// TableName returns the table the source is loaded into.
func (s Source) TableName() string {
	if s.Table != "" {
		return s.Table
	}
	base := filepath.Base(s.CSV)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Config holds engine configuration.
type Config struct {
	// AdapterConfig contains the adapter connection settings.
	AdapterConfig adapter.Config
	// Source is loaded into the database on first use (optional).
	Source Source
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates a new engine with lazy database connection.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dbConfig := cfg.AdapterConfig
	if dbConfig.Type == "" {
		dbConfig.Type = "duckdb"
	}
	if !adapter.IsRegistered(dbConfig.Type) {
		return nil, &adapter.UnknownAdapterError{Type: dbConfig.Type, Available: adapter.ListAdapters()}
	}

	logger.Debug("initializing engine", "adapter_type", dbConfig.Type, "source", cfg.Source.CSV)

	return &Engine{
		dbConfig: dbConfig,
		source:   cfg.Source,
		logger:   logger,
	}, nil
}

// NewWithAdapter creates an engine around an existing adapter. The adapter
// is connected with cfg.AdapterConfig on first use.
func NewWithAdapter(db adapter.Adapter, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		db:       db,
		dbConfig: cfg.AdapterConfig,
		source:   cfg.Source,
		logger:   logger,
	}
}

// ensureDBConnected connects the adapter and loads the source on first use.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	if e.db == nil {
		e.logger.Debug("connecting to database", "adapter_type", e.dbConfig.Type)
		db, err := adapter.NewAdapter(e.dbConfig, e.logger)
		if err != nil {
			return fmt.Errorf("failed to create database adapter: %w", err)
		}
		e.db = db
	}

	if err := e.db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	e.dbConnected = true

	if e.source.CSV != "" {
		table := e.source.TableName()
		e.logger.Debug("loading source", "table", table, "path", e.source.CSV)
		if err := e.db.LoadCSV(ctx, table, e.source.CSV); err != nil {
			return fmt.Errorf("failed to load source %s: %w", e.source.CSV, err)
		}
	}

	return nil
}

// Reload reloads the CSV source into the database.
func (e *Engine) Reload(ctx context.Context) error {
	if err := e.ensureDBConnected(ctx); err != nil {
		return err
	}
	if e.source.CSV == "" {
		return nil
	}
	e.dbMu.Lock()
	defer e.dbMu.Unlock()
	if err := e.db.LoadCSV(ctx, e.source.TableName(), e.source.CSV); err != nil {
		return fmt.Errorf("failed to reload source %s: %w", e.source.CSV, err)
	}
	return nil
}

// Close closes the database connection.
func (e *Engine) Close() error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	e.logger.Debug("closing engine")
	if e.db == nil || !e.dbConnected {
		return nil
	}
	e.dbConnected = false
	if err := e.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// DialectName returns the dialect of the connected adapter.
func (e *Engine) DialectName(ctx context.Context) (string, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return "", err
	}
	return e.db.DialectName(), nil
}

// Columns returns the column metadata of table.
func (e *Engine) Columns(ctx context.Context, table string) ([]adapter.Column, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	meta, err := e.db.GetTableMetadata(ctx, table)
	if err != nil {
		return nil, err
	}
	return meta.Columns, nil
}

// ErrEmptyExpression is returned when probing an expression without body.
var ErrEmptyExpression = errors.New("expression is empty")
