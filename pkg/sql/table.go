package sql

import (
	"fmt"
	"slices"
	"strings"
)

// TableClause is a named table with its columns, primary key and foreign
// keys. Tables are immutable once shared: cloning returns the same
// instance. AppendColumn, AddForeignKey and SetBind are meant for the
// construction phase.
type TableClause struct {
	fromBase
	name        string
	schema      string
	columns     *ColumnCollection
	primaryKey  *ColumnSet
	foreignKeys []*ForeignKey
}

// Table creates a table. Columns already attached to another table are
// copied.
func Table(name string, cols ...*ColumnClause) *TableClause {
	return SchemaTable("", name, cols...)
}

// SchemaTable creates a schema-qualified table.
func SchemaTable(schema, name string, cols ...*ColumnClause) *TableClause {
	t := &TableClause{
		name:       name,
		schema:     schema,
		columns:    newColumnCollection(),
		primaryKey: newColumnSet(),
	}
	t.fromBase = newFromBase(t)
	for _, c := range cols {
		t.attach(c)
	}
	t.columns.freeze()
	return t
}

func (t *TableClause) attach(c *ColumnClause) *ColumnClause {
	if c.table != nil {
		c = c.copyAttached()
	}
	c.table = t
	t.columns.add(c)
	if c.primaryKey {
		t.primaryKey.add(c)
	}
	t.foreignKeys = append(t.foreignKeys, c.foreignKeys...)
	return c
}

// AppendColumn adds a column to the table and returns the attached column.
// Derived selectables that were already populated pick it up through
// RefreshForNewColumn.
func (t *TableClause) AppendColumn(c *ColumnClause) *ColumnClause {
	t.columns.frozen = false
	defer t.columns.freeze()
	return t.attach(c)
}

// AddForeignKey adds a single-column foreign key from the local column key
// to target.
func (t *TableClause) AddForeignKey(local string, target ColumnElement) error {
	return t.AddForeignKeyConstraint("", []string{local}, []ColumnElement{target})
}

// AddForeignKeyConstraint adds a composite foreign key constraint. locals
// are column keys of this table, matched positionally with targets.
func (t *TableClause) AddForeignKeyConstraint(name string, locals []string, targets []ColumnElement) error {
	if len(locals) != len(targets) || len(locals) == 0 {
		return &ArgumentError{Message: fmt.Sprintf(errConstraintArity, name, len(locals), len(targets))}
	}
	parents := make([]*ColumnClause, len(locals))
	for i, key := range locals {
		c, ok := t.columns.Get(key).(*ColumnClause)
		if !ok {
			return &ArgumentError{Message: fmt.Sprintf(errMissingColumn, t.name, key)}
		}
		parents[i] = c
	}
	constraint := &ForeignKeyConstraint{Name: name, id: newNodeID()}
	for i, parent := range parents {
		fk := &ForeignKey{Parent: parent, Column: targets[i], constraint: constraint}
		parent.foreignKeys = append(parent.foreignKeys, fk)
		t.foreignKeys = append(t.foreignKeys, fk)
	}
	return nil
}

// SetBind attaches an execution handle.
func (t *TableClause) SetBind(b Bind) {
	t.bind = b
}

// Name returns the table name.
func (t *TableClause) Name() string { return t.name }

// Schema returns the schema name, or "".
func (t *TableClause) Schema() string { return t.schema }

// FullName returns "schema.name" or "name".
func (t *TableClause) FullName() string {
	if t.schema == "" {
		return t.name
	}
	return t.schema + "." + t.name
}

func (t *TableClause) VisitName() string    { return "table" }
func (t *TableClause) Description() string  { return t.name }
func (t *TableClause) clone() ClauseElement { return t }

func (t *TableClause) Columns() *ColumnCollection { return t.columns }
func (t *TableClause) PrimaryKey() *ColumnSet     { return t.primaryKey }

func (t *TableClause) ForeignKeys() []*ForeignKey { return slices.Clone(t.foreignKeys) }

func (t *TableClause) namedWithColumn() bool { return true }
func (t *TableClause) populated() bool       { return true }

// SelectableName returns the schema and name a selectable is referenced
// by. Both are empty for unnamed selectables such as joins and selects.
func SelectableName(f FromClause) (schema, name string) {
	switch x := f.(type) {
	case *TableClause:
		return x.schema, x.name
	case *Alias:
		return "", x.name
	case *CTE:
		return "", x.name
	case *FromGrouping:
		return SelectableName(x.element)
	}
	return "", ""
}

func schemaPrefix(schema string) string {
	return strings.ReplaceAll(schema, ".", "_")
}
