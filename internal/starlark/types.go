// Package starlark lets query scripts build pkg/sql statement trees.
//
// A script sees every catalog table as a global, a set of builtins that
// mirror the pkg/sql constructors, and values whose methods mirror the Go
// API. It must bind the statement it builds to the global "query".
package starlark

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/relsql/pkg/sql"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Column is a column-valued expression.
type Column struct {
	elem sql.ColumnElement
}

// NewColumn wraps a column expression.
func NewColumn(elem sql.ColumnElement) *Column { return &Column{elem: elem} }

// Element returns the wrapped expression.
func (c *Column) Element() sql.ColumnElement { return c.elem }

func (c *Column) String() string {
	if name := c.elem.Name(); name != "" && !sql.IsAnonymous(name) {
		return fmt.Sprintf("<column %s>", name)
	}
	return fmt.Sprintf("<%s>", c.elem.VisitName())
}

func (c *Column) Type() string          { return "column" }
func (c *Column) Freeze()               {}
func (c *Column) Truth() starlark.Bool  { return starlark.True }
func (c *Column) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: column") }

// Attr returns the column's fields and methods.
func (c *Column) Attr(name string) (starlark.Value, error) {
	switch name {
	case "name":
		return starlark.String(c.elem.Name()), nil
	case "key":
		return starlark.String(c.elem.Key()), nil
	case "type":
		if t := c.elem.Type(); t != nil {
			return starlark.String(t.TypeName()), nil
		}
		return starlark.None, nil
	case "primary_key":
		return starlark.Bool(c.elem.IsPrimaryKey()), nil
	}
	if !c.hasMethod(name) {
		return nil, nil
	}
	return columnMethods[name].BindReceiver(c), nil
}

func (c *Column) hasMethod(name string) bool {
	if _, ok := columnMethods[name]; !ok {
		return false
	}
	switch name {
	case "where":
		switch c.elem.(type) {
		case *sql.ScalarSelect, *sql.ExistsClause:
			return true
		}
		return false
	case "correlate", "select_from":
		_, ok := c.elem.(*sql.ExistsClause)
		return ok
	}
	return true
}

func (c *Column) AttrNames() []string {
	names := []string{"key", "name", "primary_key", "type"}
	for name := range columnMethods {
		if c.hasMethod(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Binary implements arithmetic with + - * / and boolean composition with
// & and |.
func (c *Column) Binary(op syntax.Token, y starlark.Value, side starlark.Side) (starlark.Value, error) {
	other, err := toOperand(y)
	if err != nil {
		return nil, err
	}

	left, right := c.elem, other
	if side == starlark.Right {
		otherCol, ok := other.(sql.ColumnElement)
		if !ok {
			otherCol = sql.Literal(other)
		}
		left, right = otherCol, c.elem
	}

	switch op {
	case syntax.PLUS:
		return NewColumn(sql.Add(left, right)), nil
	case syntax.MINUS:
		return NewColumn(sql.Sub(left, right)), nil
	case syntax.STAR:
		return NewColumn(sql.Mul(left, right)), nil
	case syntax.SLASH:
		return NewColumn(sql.Div(left, right)), nil
	case syntax.AMP, syntax.PIPE:
		rc, ok := right.(sql.ColumnElement)
		if !ok {
			return nil, nil
		}
		if op == syntax.AMP {
			return NewColumn(sql.And(left, rc)), nil
		}
		return NewColumn(sql.Or(left, rc)), nil
	}
	return nil, nil
}

// Selectable is a FROM source: a table, alias, join, CTE or statement.
type Selectable struct {
	from sql.FromClause
}

// NewSelectable wraps a FROM source.
func NewSelectable(from sql.FromClause) *Selectable { return &Selectable{from: from} }

// From returns the wrapped source.
func (s *Selectable) From() sql.FromClause { return s.from }

func (s *Selectable) String() string {
	return fmt.Sprintf("<%s %s>", s.Type(), s.from.Description())
}

// Type names the kind of source.
func (s *Selectable) Type() string {
	switch s.from.(type) {
	case *sql.TableClause:
		return "table"
	case *sql.SelectStmt:
		return "select"
	case *sql.CompoundSelect:
		return "compound_select"
	case *sql.CTE:
		return "cte"
	case *sql.Join:
		return "join"
	}
	return s.from.VisitName()
}

func (s *Selectable) Freeze()               {}
func (s *Selectable) Truth() starlark.Bool  { return starlark.True }
func (s *Selectable) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: %s", s.Type()) }

// Attr returns the source's fields and the methods that apply to its kind.
func (s *Selectable) Attr(name string) (starlark.Value, error) {
	switch name {
	case "c":
		return &Columns{cols: s.from.Columns()}, nil
	case "columns":
		return columnList(s.from.Columns().All()), nil
	case "primary_key":
		return columnList(s.from.PrimaryKey().All()), nil
	case "name":
		return starlark.String(s.from.Description()), nil
	}
	for _, m := range s.methods() {
		if m == name {
			return selectableMethods[name].BindReceiver(s), nil
		}
	}
	return nil, nil
}

func (s *Selectable) AttrNames() []string {
	names := append([]string{"c", "columns", "name", "primary_key"}, s.methods()...)
	sort.Strings(names)
	return names
}

var fromMethods = []string{"alias", "count", "join", "outerjoin", "select"}

var statementMethods = []string{
	"apply_labels", "as_scalar", "cte", "except_", "except_all", "group_by",
	"intersect", "intersect_all", "label", "limit", "offset", "order_by",
	"union", "union_all",
}

var selectOnlyMethods = []string{
	"column", "correlate", "correlate_except", "distinct", "having",
	"prefix_with", "reduce_columns", "select_from", "where", "with_hint",
	"with_only_columns",
}

var cteMethods = []string{"union", "union_all"}

func (s *Selectable) methods() []string {
	switch s.from.(type) {
	case *sql.SelectStmt:
		return concat(fromMethods, statementMethods, selectOnlyMethods)
	case *sql.CompoundSelect:
		return concat(fromMethods, statementMethods)
	case *sql.CTE:
		return concat(fromMethods, cteMethods)
	}
	return fromMethods
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Columns is the ".c" collection of a source. Columns are reachable as
// attributes, by key with c["key"], and by position.
type Columns struct {
	cols *sql.ColumnCollection
}

func (c *Columns) String() string        { return fmt.Sprintf("<columns %v>", c.cols.Keys()) }
func (c *Columns) Type() string          { return "columns" }
func (c *Columns) Freeze()               {}
func (c *Columns) Truth() starlark.Bool  { return c.cols.Len() > 0 }
func (c *Columns) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: columns") }
func (c *Columns) Len() int              { return c.cols.Len() }
func (c *Columns) Index(i int) starlark.Value {
	return NewColumn(c.cols.At(i))
}

func (c *Columns) Attr(name string) (starlark.Value, error) {
	if col := c.cols.Get(name); col != nil {
		return NewColumn(col), nil
	}
	return nil, nil
}

func (c *Columns) AttrNames() []string { return c.cols.Keys() }

// Get implements c["key"] and c[i].
func (c *Columns) Get(k starlark.Value) (starlark.Value, bool, error) {
	if i, ok := k.(starlark.Int); ok {
		n, ok := i.Int64()
		if !ok || n < 0 || n >= int64(c.cols.Len()) {
			return nil, false, fmt.Errorf("column index %s out of range", i)
		}
		return c.Index(int(n)), true, nil
	}
	key, ok := k.(starlark.String)
	if !ok {
		return nil, false, fmt.Errorf("column key must be a string or int, got %s", k.Type())
	}
	col := c.cols.Get(string(key))
	if col == nil {
		return nil, false, nil
	}
	return NewColumn(col), true, nil
}

func (c *Columns) Iterate() starlark.Iterator {
	return columnList(c.cols.All()).Iterate()
}

func columnList(cols []sql.ColumnElement) *starlark.List {
	elems := make([]starlark.Value, len(cols))
	for i, col := range cols {
		elems[i] = NewColumn(col)
	}
	return starlark.NewList(elems)
}

var (
	_ starlark.HasAttrs  = (*Column)(nil)
	_ starlark.HasBinary = (*Column)(nil)
	_ starlark.HasAttrs  = (*Selectable)(nil)
	_ starlark.HasAttrs  = (*Columns)(nil)
	_ starlark.Mapping   = (*Columns)(nil)
	_ starlark.Indexable = (*Columns)(nil)
	_ starlark.Iterable  = (*Columns)(nil)
)

// toColumn converts a script value used where an expression is required.
// Statements become scalar subqueries.
func toColumn(v starlark.Value) (sql.ColumnElement, error) {
	switch x := v.(type) {
	case *Column:
		return x.elem, nil
	case *Selectable:
		if sel, ok := x.from.(sql.SelectBase); ok {
			return sel.AsScalar(), nil
		}
	}
	return nil, fmt.Errorf("expected a column expression, got %s", v.Type())
}

func toColumns(vs []starlark.Value) ([]sql.ColumnElement, error) {
	out := make([]sql.ColumnElement, len(vs))
	for i, v := range vs {
		col, err := toColumn(v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = col
	}
	return out, nil
}

// toOperand converts the right side of an operator. Plain values become
// bind parameters.
func toOperand(v starlark.Value) (any, error) {
	switch x := v.(type) {
	case *Column:
		return x.elem, nil
	case *Selectable:
		if sel, ok := x.from.(sql.SelectBase); ok {
			return sel, nil
		}
		return nil, fmt.Errorf("%s cannot be used as a value", x.Type())
	}
	return ToGo(v)
}

// toCoercible converts a select() argument. Strings are literal SQL.
func toCoercible(v starlark.Value) (sql.Coercible, error) {
	switch x := v.(type) {
	case *Column:
		return x.elem, nil
	case *Selectable:
		return x.from, nil
	case starlark.String:
		return sql.Raw(x), nil
	}
	return nil, fmt.Errorf("cannot select %s", v.Type())
}

func toCoercibles(vs []starlark.Value) ([]sql.Coercible, error) {
	out := make([]sql.Coercible, len(vs))
	for i, v := range vs {
		c, err := toCoercible(v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = c
	}
	return out, nil
}

// toFrom converts a FROM argument. Strings are literal SQL.
func toFrom(v starlark.Value) (sql.FromClause, error) {
	switch x := v.(type) {
	case *Selectable:
		return x.from, nil
	case starlark.String:
		return sql.NewTextFrom(string(x)), nil
	}
	return nil, fmt.Errorf("expected a table or statement, got %s", v.Type())
}

func toFroms(vs []starlark.Value) ([]sql.FromClause, error) {
	out := make([]sql.FromClause, len(vs))
	for i, v := range vs {
		f, err := toFrom(v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

func toSelect(v starlark.Value) (sql.SelectBase, error) {
	if x, ok := v.(*Selectable); ok {
		if sel, ok := x.from.(sql.SelectBase); ok {
			return sel, nil
		}
	}
	return nil, fmt.Errorf("expected a select statement, got %s", v.Type())
}

func toSelects(vs []starlark.Value) ([]sql.SelectBase, error) {
	out := make([]sql.SelectBase, len(vs))
	for i, v := range vs {
		s, err := toSelect(v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = s
	}
	return out, nil
}

// GoToStarlark converts a Go value to a Starlark value.
// Supported types: string, int, int64, float64, bool, []string, []any, map[string]any
func GoToStarlark(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case string:
		return starlark.String(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case bool:
		return starlark.Bool(val), nil

	case []string:
		list := make([]starlark.Value, len(val))
		for i, s := range val {
			list[i] = starlark.String(s)
		}
		return starlark.NewList(list), nil

	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := GoToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil

	case map[string]any:
		dict := starlark.NewDict(len(val))
		for k, v := range val {
			sv, err := GoToStarlark(v)
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, fmt.Errorf("dict setkey %q: %w", k, err)
			}
		}
		return dict, nil

	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToGo converts a scalar Starlark value to the Go value bound as a query
// parameter: nil, string, int64, float64 or bool.
func ToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.String:
		return string(val), nil
	case starlark.Int:
		i64, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s out of range", val.String())
		}
		return i64, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.Bool:
		return bool(val), nil
	}
	return nil, fmt.Errorf("cannot bind %s as a parameter", v.Type())
}
