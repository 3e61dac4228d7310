// Package duckdb provides a DuckDB database adapter.
//
// Import it with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/relsql/pkg/adapters/duckdb"
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/relsql/pkg/adapter"
	"github.com/leapstack-labs/relsql/pkg/dialect"
	dialectduckdb "github.com/leapstack-labs/relsql/pkg/dialects/duckdb"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}

// Adapter implements adapter.Adapter for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
	params *Params
}

// New creates a new DuckDB adapter. A nil logger discards output.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.NewBase(logger)}
}

// Dialect returns the DuckDB dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return dialectduckdb.DuckDB
}

// Connect opens the database at cfg.Path, or an in-memory database when
// the path is empty or ":memory:", then applies cfg.Params.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	a.params = params

	if err := a.applyParams(ctx, params); err != nil {
		_ = a.Close()
		return err
	}
	return nil
}

func (a *Adapter) applyParams(ctx context.Context, p *Params) error {
	for _, ext := range p.Extensions {
		a.Logger.Debug("loading extension", slog.String("extension", ext))
		if err := a.Exec(ctx, "INSTALL "+ext); err != nil {
			return fmt.Errorf("install extension %s: %w", ext, err)
		}
		if err := a.Exec(ctx, "LOAD "+ext); err != nil {
			return fmt.Errorf("load extension %s: %w", ext, err)
		}
	}
	for _, name := range sortedKeys(p.Settings) {
		if err := a.Exec(ctx, fmt.Sprintf("SET %s = '%s'", name, escapeString(p.Settings[name]))); err != nil {
			return fmt.Errorf("apply setting %s: %w", name, err)
		}
	}
	for _, s := range p.Secrets {
		if err := a.Exec(ctx, buildCreateSecretSQL(s)); err != nil {
			return fmt.Errorf("create %s secret: %w", s.Type, err)
		}
	}
	return nil
}

// GetTableMetadata reflects a table from information_schema and
// duckdb_constraints().
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	meta, err := a.GetTableMetadataCommon(ctx, table, a.Dialect())
	if err != nil {
		return nil, err
	}

	rows, err := a.DB.QueryContext(ctx, `
		SELECT constraint_column_names, referenced_table, referenced_column_names
		FROM duckdb_constraints()
		WHERE constraint_type = 'FOREIGN KEY' AND schema_name = ? AND table_name = ?
	`, meta.Schema, meta.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var locals, refs []any
		var refTable string
		if err := rows.Scan(&locals, &refTable, &refs); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		for i := range min(len(locals), len(refs)) {
			meta.ForeignKeys = append(meta.ForeignKeys, adapter.ForeignKey{
				Column:    fmt.Sprint(locals[i]),
				RefTable:  refTable,
				RefColumn: fmt.Sprint(refs[i]),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign keys: %w", err)
	}
	return meta, nil
}

var _ adapter.Adapter = (*Adapter)(nil)
