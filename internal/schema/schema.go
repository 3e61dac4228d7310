// Package schema builds pkg/sql tables from YAML schema files and from
// reflected database metadata, and keeps them in a Catalog.
package schema

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/relsql/pkg/core"
	"github.com/leapstack-labs/relsql/pkg/sql"
)

// File is the YAML layout of a schema file.
type File struct {
	Tables []TableDef `yaml:"tables"`
}

// TableDef describes one table.
type TableDef struct {
	Name    string      `yaml:"name"`
	Schema  string      `yaml:"schema,omitempty"`
	Columns []ColumnDef `yaml:"columns"`
}

// ColumnDef describes one column. References names the target as
// "table.column" or "schema.table.column".
type ColumnDef struct {
	Name       string `yaml:"name"`
	Key        string `yaml:"key,omitempty"`
	Type       string `yaml:"type,omitempty"`
	PrimaryKey bool   `yaml:"primary_key,omitempty"`
	NotNull    bool   `yaml:"not_null,omitempty"`
	References string `yaml:"references,omitempty"`
}

// LoadError reports a problem with one table of a schema file.
type LoadError struct {
	File  string
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("%s: table %s: %v", e.File, e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Catalog holds tables by their full name.
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]*sql.TableClause
	order  []string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]*sql.TableClause)}
}

// Add registers t under its full name.
func (c *Catalog) Add(t *sql.TableClause) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := t.FullName()
	if _, ok := c.tables[name]; ok {
		return fmt.Errorf("table %s already defined", name)
	}
	c.tables[name] = t
	c.order = append(c.order, name)
	return nil
}

// Get returns the table with the given full name.
func (c *Catalog) Get(name string) (*sql.TableClause, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[name]
	return t, ok
}

// Tables returns every table in the order it was added.
func (c *Catalog) Tables() []*sql.TableClause {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*sql.TableClause, len(c.order))
	for i, name := range c.order {
		out[i] = c.tables[name]
	}
	return out
}

type pending struct {
	file  string
	table *sql.TableClause
	def   TableDef
}

// LoadFiles reads schema files into a new catalog. Tables of every file
// are created before any reference is resolved, so references may point
// forward and across files.
func LoadFiles(paths ...string) (*Catalog, error) {
	c := NewCatalog()
	if err := c.LoadFiles(paths...); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFiles adds the tables of the given schema files to c.
func (c *Catalog) LoadFiles(paths ...string) error {
	var all []pending
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read schema file: %w", err)
		}
		added, err := c.define(path, data)
		if err != nil {
			return err
		}
		all = append(all, added...)
	}
	return c.link(all)
}

// Parse adds the tables of one schema document to c. source names the
// document in errors.
func (c *Catalog) Parse(source string, data []byte) error {
	added, err := c.define(source, data)
	if err != nil {
		return err
	}
	return c.link(added)
}

func (c *Catalog) define(source string, data []byte) ([]pending, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &LoadError{File: source, Err: err}
	}

	out := make([]pending, 0, len(f.Tables))
	for _, def := range f.Tables {
		if def.Name == "" {
			return nil, &LoadError{File: source, Err: fmt.Errorf("table without a name")}
		}
		if len(def.Columns) == 0 {
			return nil, &LoadError{File: source, Table: def.Name, Err: fmt.Errorf("no columns")}
		}

		cols := make([]*sql.ColumnClause, 0, len(def.Columns))
		for _, cd := range def.Columns {
			if cd.Name == "" {
				return nil, &LoadError{File: source, Table: def.Name, Err: fmt.Errorf("column without a name")}
			}
			cols = append(cols, sql.Column(cd.Name, columnOptions(cd)...))
		}

		t := sql.SchemaTable(def.Schema, def.Name, cols...)
		if err := c.Add(t); err != nil {
			return nil, &LoadError{File: source, Table: def.Name, Err: err}
		}
		out = append(out, pending{file: source, table: t, def: def})
	}
	return out, nil
}

func columnOptions(cd ColumnDef) []sql.ColumnOption {
	var opts []sql.ColumnOption
	if cd.Type != "" {
		opts = append(opts, sql.WithType(TypeOf(cd.Type)))
	}
	if cd.Key != "" {
		opts = append(opts, sql.WithKey(cd.Key))
	}
	if cd.PrimaryKey {
		opts = append(opts, sql.PrimaryKey())
	}
	if cd.NotNull {
		opts = append(opts, sql.NotNull())
	}
	return opts
}

func (c *Catalog) link(tables []pending) error {
	for _, p := range tables {
		for _, cd := range p.def.Columns {
			if cd.References == "" {
				continue
			}
			target, err := c.resolve(cd.References)
			if err != nil {
				return &LoadError{File: p.file, Table: p.def.Name, Err: err}
			}
			key := cd.Key
			if key == "" {
				key = cd.Name
			}
			if err := p.table.AddForeignKey(key, target); err != nil {
				return &LoadError{File: p.file, Table: p.def.Name, Err: err}
			}
		}
	}
	return nil
}

// resolve finds the column named by "table.column" or "schema.table.column".
func (c *Catalog) resolve(ref string) (sql.ColumnElement, error) {
	i := strings.LastIndex(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return nil, fmt.Errorf("reference %q is not table.column", ref)
	}
	tableName, colName := ref[:i], ref[i+1:]
	t, ok := c.Get(tableName)
	if !ok {
		return nil, fmt.Errorf("reference %q: unknown table %s", ref, tableName)
	}
	col := t.Columns().Get(colName)
	if col == nil {
		return nil, fmt.Errorf("reference %q: table %s has no column %s", ref, tableName, colName)
	}
	return col, nil
}

// FromMetadata builds a table from reflected metadata. The schema is left
// off when it equals defaultSchema. Foreign keys are added separately with
// LinkForeignKeys once their targets are in a catalog.
func FromMetadata(meta *core.TableMetadata, defaultSchema string) *sql.TableClause {
	schema := meta.Schema
	if schema == defaultSchema {
		schema = ""
	}

	cols := make([]*sql.ColumnClause, 0, len(meta.Columns))
	for _, mc := range meta.Columns {
		opts := []sql.ColumnOption{sql.WithType(TypeOf(mc.Type))}
		if mc.PrimaryKey {
			opts = append(opts, sql.PrimaryKey())
		}
		if !mc.Nullable {
			opts = append(opts, sql.NotNull())
		}
		cols = append(cols, sql.Column(mc.Name, opts...))
	}
	return sql.SchemaTable(schema, meta.Name, cols...)
}

// LinkForeignKeys adds the reflected foreign keys of t. Every referenced
// table must already be in c.
func (c *Catalog) LinkForeignKeys(t *sql.TableClause, fks []core.ForeignKey) error {
	for _, fk := range fks {
		ref := fk.RefColumn
		target, ok := c.Get(fk.RefTable)
		if !ok {
			return fmt.Errorf("foreign key %s.%s: unknown table %s", t.Name(), fk.Column, fk.RefTable)
		}
		if ref == "" {
			pk := target.PrimaryKey().All()
			if len(pk) != 1 {
				return fmt.Errorf("foreign key %s.%s: %s has no single-column primary key", t.Name(), fk.Column, fk.RefTable)
			}
			ref = pk[0].Key()
		}
		col := target.Columns().Get(ref)
		if col == nil {
			return fmt.Errorf("foreign key %s.%s: table %s has no column %s", t.Name(), fk.Column, fk.RefTable, ref)
		}
		if err := t.AddForeignKey(fk.Column, col); err != nil {
			return err
		}
	}
	return nil
}

var typeAliases = map[string]sql.TypeDescriptor{
	"INT":               sql.Integer,
	"INT4":              sql.Integer,
	"INTEGER":           sql.Integer,
	"SMALLINT":          sql.Integer,
	"BIGINT":            sql.BigInt,
	"INT8":              sql.BigInt,
	"DOUBLE":            sql.Float,
	"DOUBLE PRECISION":  sql.Float,
	"FLOAT":             sql.Float,
	"REAL":              sql.Float,
	"NUMERIC":           sql.Numeric,
	"DECIMAL":           sql.Numeric,
	"VARCHAR":           sql.String,
	"CHARACTER VARYING": sql.String,
	"TEXT":              sql.String,
	"STRING":            sql.String,
	"BOOLEAN":           sql.Boolean,
	"BOOL":              sql.Boolean,
	"DATE":              sql.Date,
	"TIMESTAMP":         sql.Timestamp,
	"TIMESTAMPTZ":       sql.Timestamp,
}

// TypeOf maps a database type name to a type descriptor. Unknown names
// are kept as written, upper-cased, without any length or precision.
func TypeOf(name string) sql.TypeDescriptor {
	n := strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexByte(n, '('); i >= 0 {
		n = strings.TrimSpace(n[:i])
	}
	if t, ok := typeAliases[n]; ok {
		return t
	}
	return sql.SQLType{Name: n}
}
