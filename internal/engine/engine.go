// Package engine executes statement trees against a database.
// It owns the adapter connection, compiles statements for the adapter's
// dialect, and reflects tables from the database into a schema catalog.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/relsql/internal/schema"
	"github.com/leapstack-labs/relsql/pkg/adapter"
	"github.com/leapstack-labs/relsql/pkg/compiler"
	"github.com/leapstack-labs/relsql/pkg/core"
	"github.com/leapstack-labs/relsql/pkg/dialect"
	"github.com/leapstack-labs/relsql/pkg/sql"
)

// Engine runs statements through a database adapter. It implements
// sql.Bind so statements can be bound to it with WithBind or SetBind.
type Engine struct {
	// Database adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	dialect *dialect.Dialect
	logger  *slog.Logger
	catalog *schema.Catalog
}

// Config holds engine configuration.
type Config struct {
	// AdapterConfig selects and configures the database adapter.
	AdapterConfig adapter.Config
	// Adapter is used instead of creating one from AdapterConfig. It is
	// connected on first use unless Connected is set.
	Adapter adapter.Adapter
	// Connected marks Adapter as already connected.
	Connected bool
	// Dialect overrides the adapter's dialect by registry name.
	Dialect string
	// Catalog receives reflected tables. A new catalog is created if nil.
	Catalog *schema.Catalog
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// ErrNoEngine is returned when a statement has no engine to run on.
var ErrNoEngine = errors.New("statement is not bound to an engine and no default engine is set")

// New creates an engine. The database is connected on first use.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db := cfg.Adapter
	if db == nil {
		var err error
		db, err = adapter.NewAdapter(cfg.AdapterConfig, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create database adapter: %w", err)
		}
	}

	d := db.Dialect()
	if cfg.Dialect != "" {
		var err error
		if d, err = dialect.Lookup(cfg.Dialect); err != nil {
			return nil, err
		}
	}

	catalog := cfg.Catalog
	if catalog == nil {
		catalog = schema.NewCatalog()
	}

	logger.Debug("initializing engine", "adapter_type", cfg.AdapterConfig.Type, "dialect", d.Name)

	return &Engine{
		db:          db,
		dbConfig:    cfg.AdapterConfig,
		dbConnected: cfg.Connected,
		dialect:     d,
		logger:      logger,
		catalog:     catalog,
	}, nil
}

// DialectName returns the name of the engine's dialect.
func (e *Engine) DialectName() string {
	return e.dialect.Name
}

// Dialect returns the engine's dialect.
func (e *Engine) Dialect() *dialect.Dialect {
	return e.dialect
}

// Catalog returns the catalog reflected tables are added to.
func (e *Engine) Catalog() *schema.Catalog {
	return e.catalog
}

// ensureDBConnected lazily connects to the database.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to database", "adapter_type", e.dbConfig.Type)
	if err := e.db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	e.dbConnected = true
	e.logger.Debug("database connected", "dialect", e.dialect.Name)
	return nil
}

// Compile renders stmt for the engine's dialect.
func (e *Engine) Compile(stmt sql.ClauseElement, opts ...compiler.Option) (*compiler.Compiled, error) {
	opts = append([]compiler.Option{compiler.WithLogger(e.logger)}, opts...)
	return compiler.Compile(stmt, e.dialect, opts...)
}

// Execute compiles stmt and runs it, returning its rows. The caller closes
// the rows.
func (e *Engine) Execute(ctx context.Context, stmt sql.ClauseElement) (*core.Rows, error) {
	compiled, logger, err := e.prepare(ctx, stmt)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := e.db.Query(ctx, compiled.SQL, compiled.Args...)
	if err != nil {
		logger.Debug("query failed", "error", err)
		return nil, fmt.Errorf("query %s: %w", describe(stmt), err)
	}
	logger.Debug("query executed", slog.Duration("elapsed", time.Since(start)))
	return rows, nil
}

// Exec compiles stmt and runs it without reading rows.
func (e *Engine) Exec(ctx context.Context, stmt sql.ClauseElement) error {
	compiled, logger, err := e.prepare(ctx, stmt)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := e.db.Exec(ctx, compiled.SQL, compiled.Args...); err != nil {
		logger.Debug("exec failed", "error", err)
		return fmt.Errorf("exec %s: %w", describe(stmt), err)
	}
	logger.Debug("statement executed", slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (e *Engine) prepare(ctx context.Context, stmt sql.ClauseElement) (*compiler.Compiled, *slog.Logger, error) {
	logger := e.logger.With("query_id", uuid.NewString())

	compiled, err := e.Compile(stmt)
	if err != nil {
		return nil, nil, err
	}
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, nil, err
	}
	logger.Debug("executing", "sql", compiled.SQL, "args", len(compiled.Args))
	return compiled, logger, nil
}

func describe(stmt sql.ClauseElement) string {
	if d, ok := stmt.(interface{ Description() string }); ok {
		return d.Description()
	}
	return stmt.VisitName()
}

// Reflect loads a table and, recursively, the tables its foreign keys
// reference into the engine's catalog. Tables already in the catalog are
// returned as they are.
func (e *Engine) Reflect(ctx context.Context, table string) (*sql.TableClause, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	return e.reflect(ctx, table)
}

func (e *Engine) reflect(ctx context.Context, table string) (*sql.TableClause, error) {
	if t, ok := e.catalog.Get(table); ok {
		return t, nil
	}

	meta, err := e.db.GetTableMetadata(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("reflect %s: %w", table, err)
	}

	t := schema.FromMetadata(meta, e.defaultSchema(meta))
	t.SetBind(e)
	if existing, ok := e.catalog.Get(t.FullName()); ok {
		return existing, nil
	}
	// Added before its references resolve so self and cyclic references
	// find it.
	if err := e.catalog.Add(t); err != nil {
		return nil, err
	}
	e.logger.Debug("reflected table", "table", t.FullName(), "columns", len(meta.Columns))

	for _, fk := range meta.ForeignKeys {
		if _, err := e.reflect(ctx, fk.RefTable); err != nil {
			return nil, err
		}
	}
	if err := e.catalog.LinkForeignKeys(t, meta.ForeignKeys); err != nil {
		return nil, fmt.Errorf("reflect %s: %w", table, err)
	}
	return t, nil
}

// defaultSchema is the schema reflected tables are named without.
func (e *Engine) defaultSchema(meta *core.TableMetadata) string {
	if e.dbConfig.Schema != "" {
		return e.dbConfig.Schema
	}
	if e.dialect.DefaultSchema != "" {
		return e.dialect.DefaultSchema
	}
	return meta.Schema
}

// Close releases the database connection.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	e.dbMu.Lock()
	defer e.dbMu.Unlock()
	if !e.dbConnected {
		return nil
	}
	e.dbConnected = false
	return e.db.Close()
}

var _ sql.Bind = (*Engine)(nil)
