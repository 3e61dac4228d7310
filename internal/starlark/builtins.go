package starlark

import (
	"fmt"

	"github.com/leapstack-labs/relsql/internal/schema"
	"github.com/leapstack-labs/relsql/pkg/sql"
	"go.starlark.net/starlark"
)

type builtinFunc = func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

type compareFunc func(left sql.ColumnElement, right any) *sql.BinaryExpression

type compoundFunc func(selects ...sql.SelectBase) (*sql.CompoundSelect, error)

var comparisons = map[string]compareFunc{
	"eq":   sql.Eq,
	"ne":   sql.Ne,
	"lt":   sql.Lt,
	"le":   sql.Le,
	"gt":   sql.Gt,
	"ge":   sql.Ge,
	"like": sql.Like,
}

var compounds = map[string]compoundFunc{
	"union":         sql.Union,
	"union_all":     sql.UnionAll,
	"except_":       sql.Except,
	"except_all":    sql.ExceptAll,
	"intersect":     sql.Intersect,
	"intersect_all": sql.IntersectAll,
}

// Builtins returns the predeclared query-building functions.
func Builtins() starlark.StringDict {
	d := starlark.StringDict{
		"table":          starlark.NewBuiltin("table", builtinTable),
		"column":         starlark.NewBuiltin("column", builtinColumn),
		"select":         starlark.NewBuiltin("select", builtinSelect),
		"exists":         starlark.NewBuiltin("exists", builtinExists),
		"and_":           starlark.NewBuiltin("and_", booleanList(sql.And)),
		"or_":            starlark.NewBuiltin("or_", booleanList(sql.Or)),
		"not_":           starlark.NewBuiltin("not_", unary(sql.Not)),
		"asc":            starlark.NewBuiltin("asc", unary(sql.Asc)),
		"desc":           starlark.NewBuiltin("desc", unary(sql.Desc)),
		"literal":        starlark.NewBuiltin("literal", builtinLiteral),
		"literal_column": starlark.NewBuiltin("literal_column", builtinLiteralColumn),
		"text":           starlark.NewBuiltin("text", builtinText),
		"null":           starlark.NewBuiltin("null", builtinNull),
		"func":           starlark.NewBuiltin("func", builtinFunction),
		"in_":            starlark.NewBuiltin("in_", builtinIn),
		"is_null":        starlark.NewBuiltin("is_null", builtinIsNull),
		"join":           starlark.NewBuiltin("join", joinBuiltin(false)),
		"outerjoin":      starlark.NewBuiltin("outerjoin", joinBuiltin(true)),
	}
	for name, op := range comparisons {
		d[name] = starlark.NewBuiltin(name, binaryBuiltin(op))
	}
	for name, fn := range compounds {
		d[name] = starlark.NewBuiltin(name, compoundBuiltin(fn))
	}
	return d
}

// table(name, *columns, schema="")
func builtinTable(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: missing table name", b.Name())
	}
	name, ok := starlark.AsString(args[0])
	if !ok {
		return nil, fmt.Errorf("%s: table name must be a string, got %s", b.Name(), args[0].Type())
	}
	var schemaName string
	if err := starlark.UnpackArgs(b.Name(), nil, kwargs, "schema?", &schemaName); err != nil {
		return nil, err
	}

	cols := make([]*sql.ColumnClause, 0, len(args)-1)
	for i, v := range args[1:] {
		switch x := v.(type) {
		case starlark.String:
			cols = append(cols, sql.Column(string(x)))
		case *Column:
			c, ok := x.elem.(*sql.ColumnClause)
			if !ok || c.Table() != nil {
				return nil, fmt.Errorf("%s: argument %d: expected a column(), got %s", b.Name(), i+2, x)
			}
			cols = append(cols, c)
		default:
			return nil, fmt.Errorf("%s: argument %d: expected a column name or column(), got %s", b.Name(), i+2, v.Type())
		}
	}
	return NewSelectable(sql.SchemaTable(schemaName, name, cols...)), nil
}

// column(name, type="", primary_key=False, not_null=False, key="")
func builtinColumn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		name, typ, key      string
		primaryKey, notNull bool
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &name, "type?", &typ, "primary_key?", &primaryKey, "not_null?", &notNull, "key?", &key); err != nil {
		return nil, err
	}

	var opts []sql.ColumnOption
	if typ != "" {
		opts = append(opts, sql.WithType(schema.TypeOf(typ)))
	}
	if key != "" {
		opts = append(opts, sql.WithKey(key))
	}
	if primaryKey {
		opts = append(opts, sql.PrimaryKey())
	}
	if notNull {
		opts = append(opts, sql.NotNull())
	}
	return NewColumn(sql.Column(name, opts...)), nil
}

// select(*columns)
func builtinSelect(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	cols, err := toCoercibles(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return NewSelectable(sql.Select(cols...)), nil
}

// exists(select) or exists(*columns)
func builtinExists(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if len(args) == 1 {
		if sel, err := toSelect(args[0]); err == nil {
			return NewColumn(sql.Exists(sel)), nil
		}
	}
	cols, err := toCoercibles(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return NewColumn(sql.ExistsOf(cols...)), nil
}

func booleanList(fn func(...sql.ColumnElement) sql.ColumnElement) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
		}
		clauses, err := toColumns(args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		if len(clauses) == 0 {
			return nil, fmt.Errorf("%s: at least one clause is required", b.Name())
		}
		return NewColumn(fn(clauses...)), nil
	}
}

func unary(fn func(sql.ColumnElement) *sql.UnaryExpression) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var v starlark.Value
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
			return nil, err
		}
		col, err := toColumn(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return NewColumn(fn(col)), nil
	}
}

func builtinLiteral(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var v starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
		return nil, err
	}
	val, err := ToGo(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return NewColumn(sql.Literal(val)), nil
}

func builtinLiteralColumn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var text, typ string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "text", &text, "type?", &typ); err != nil {
		return nil, err
	}
	var t sql.TypeDescriptor
	if typ != "" {
		t = schema.TypeOf(typ)
	}
	return NewColumn(sql.LiteralColumn(text, t)), nil
}

func builtinText(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var text string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &text); err != nil {
		return nil, err
	}
	return NewColumn(sql.Text(text)), nil
}

func builtinNull(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return NewColumn(sql.Null()), nil
}

// func(name, *args)
func builtinFunction(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: missing function name", b.Name())
	}
	name, ok := starlark.AsString(args[0])
	if !ok {
		return nil, fmt.Errorf("%s: function name must be a string, got %s", b.Name(), args[0].Type())
	}
	operands, err := toOperands(args[1:])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return NewColumn(sql.Func(name, operands...)), nil
}

func toOperands(vs []starlark.Value) ([]any, error) {
	out := make([]any, len(vs))
	for i, v := range vs {
		op, err := toOperand(v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = op
	}
	return out, nil
}

// inValues flattens in_(x, [1, 2]) and in_(x, 1, 2) to the same operands.
func inValues(args starlark.Tuple) ([]any, error) {
	if len(args) == 1 {
		if seq, ok := args[0].(starlark.Indexable); ok {
			if _, isColumns := args[0].(*Columns); !isColumns {
				vs := make([]starlark.Value, seq.Len())
				for i := range vs {
					vs[i] = seq.Index(i)
				}
				return toOperands(vs)
			}
		}
	}
	return toOperands(args)
}

func builtinIn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 || len(args) < 2 {
		return nil, fmt.Errorf("%s: expected a column and values", b.Name())
	}
	left, err := toColumn(args[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	values, err := inValues(args[1:])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return NewColumn(sql.In(left, values...)), nil
}

func builtinIsNull(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var v starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
		return nil, err
	}
	col, err := toColumn(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return NewColumn(sql.IsNull(col)), nil
}

func binaryBuiltin(op compareFunc) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var x, y starlark.Value
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &x, &y); err != nil {
			return nil, err
		}
		left, err := toColumn(x)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		right, err := toOperand(y)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return NewColumn(op(left, right)), nil
	}
}

func compoundBuiltin(fn compoundFunc) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
		}
		selects, err := toSelects(args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		cs, err := fn(selects...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return NewSelectable(cs), nil
	}
}

// join(left, right, on=None)
func joinBuiltin(outer bool) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var left, right starlark.Value
		var on starlark.Value = starlark.None
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "left", &left, "right", &right, "on?", &on); err != nil {
			return nil, err
		}
		l, err := toFrom(left)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return join(b.Name(), l, right, on, outer)
	}
}

func join(name string, left sql.FromClause, right, on starlark.Value, outer bool) (starlark.Value, error) {
	r, err := toFrom(right)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	var onclause sql.ColumnElement
	if on != starlark.None {
		if onclause, err = toColumn(on); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	j, err := sql.NewJoin(left, r, onclause, outer)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return NewSelectable(j), nil
}
