// Package sqlite provides a SQLite database adapter backed by the pure Go
// modernc.org/sqlite driver.
//
// Import it with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/relsql/pkg/adapters/sqlite"
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/relsql/pkg/adapter"
	"github.com/leapstack-labs/relsql/pkg/dialect"
	dialectsqlite "github.com/leapstack-labs/relsql/pkg/dialects/sqlite"

	_ "modernc.org/sqlite" // sqlite driver
)

func init() {
	adapter.Register("sqlite", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}

// Adapter implements adapter.Adapter for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter. A nil logger discards output.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.NewBase(logger)}
}

// Dialect returns the SQLite dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return dialectsqlite.SQLite
}

// Connect opens the database file at cfg.Path, or an in-memory database
// when the path is empty or ":memory:".
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	a.Logger.Debug("connecting to sqlite", slog.String("path", path))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}
	// Every pooled connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// GetTableMetadata reflects a table through the table_info and
// foreign_key_list pragmas.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	if a.DB == nil {
		return nil, adapter.ErrNotConnected
	}
	schema, name := adapter.ParseQualifiedName(table, a.Dialect())

	rows, err := a.DB.QueryContext(ctx,
		`SELECT cid, name, type, "notnull", pk FROM pragma_table_info(?, ?) ORDER BY cid`, name, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	meta := &adapter.Metadata{Schema: schema, Name: name}
	for rows.Next() {
		var col adapter.Column
		var notNull, pk int
		if err := rows.Scan(&col.Position, &col.Name, &col.Type, &notNull, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Position++
		col.PrimaryKey = pk > 0
		col.Nullable = notNull == 0 && !col.PrimaryKey
		meta.Columns = append(meta.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(meta.Columns) == 0 {
		return nil, &adapter.TableNotFoundError{Table: table}
	}

	fks, err := a.foreignKeys(ctx, schema, name)
	if err != nil {
		return nil, err
	}
	meta.ForeignKeys = fks

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", //nolint:gosec // quoted identifiers from metadata
		a.Dialect().QuoteIdentifier(schema), a.Dialect().QuoteIdentifier(name))
	if err := a.DB.QueryRowContext(ctx, countQuery).Scan(&meta.RowCount); err != nil {
		meta.RowCount = 0
	}
	return meta, nil
}

func (a *Adapter) foreignKeys(ctx context.Context, schema, table string) ([]adapter.ForeignKey, error) {
	rows, err := a.DB.QueryContext(ctx,
		`SELECT "from", "table", "to" FROM pragma_foreign_key_list(?, ?) ORDER BY id, seq`, table, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []adapter.ForeignKey
	for rows.Next() {
		var fk adapter.ForeignKey
		var to sql.NullString
		if err := rows.Scan(&fk.Column, &fk.RefTable, &to); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		// A reference without a column list targets the primary key.
		fk.RefColumn = to.String
		out = append(out, fk)
	}
	return out, rows.Err()
}

var _ adapter.Adapter = (*Adapter)(nil)
