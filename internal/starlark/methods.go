package starlark

import (
	"fmt"

	"github.com/leapstack-labs/relsql/pkg/sql"
	"go.starlark.net/starlark"
)

var columnMethods = map[string]*starlark.Builtin{
	"label":       starlark.NewBuiltin("label", columnLabel),
	"asc":         starlark.NewBuiltin("asc", columnUnary(sql.Asc)),
	"desc":        starlark.NewBuiltin("desc", columnUnary(sql.Desc)),
	"distinct":    starlark.NewBuiltin("distinct", columnUnary(sql.Distinct)),
	"eq":          starlark.NewBuiltin("eq", columnCompare(sql.Eq)),
	"ne":          starlark.NewBuiltin("ne", columnCompare(sql.Ne)),
	"lt":          starlark.NewBuiltin("lt", columnCompare(sql.Lt)),
	"le":          starlark.NewBuiltin("le", columnCompare(sql.Le)),
	"gt":          starlark.NewBuiltin("gt", columnCompare(sql.Gt)),
	"ge":          starlark.NewBuiltin("ge", columnCompare(sql.Ge)),
	"like":        starlark.NewBuiltin("like", columnCompare(sql.Like)),
	"in_":         starlark.NewBuiltin("in_", columnIn(sql.In)),
	"not_in":      starlark.NewBuiltin("not_in", columnIn(sql.NotIn)),
	"is_null":     starlark.NewBuiltin("is_null", columnNullTest(sql.IsNull)),
	"is_not_null": starlark.NewBuiltin("is_not_null", columnNullTest(sql.IsNotNull)),
	"where":       starlark.NewBuiltin("where", columnWhere),
	"correlate":   starlark.NewBuiltin("correlate", existsFroms((*sql.ExistsClause).Correlate)),
	"select_from": starlark.NewBuiltin("select_from", existsFroms((*sql.ExistsClause).SelectFrom)),
}

func receiverColumn(b *starlark.Builtin) sql.ColumnElement {
	return b.Receiver().(*Column).elem
}

func columnLabel(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
		return nil, err
	}
	return NewColumn(sql.As(receiverColumn(b), name)), nil
}

func columnUnary(fn func(sql.ColumnElement) *sql.UnaryExpression) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
			return nil, err
		}
		return NewColumn(fn(receiverColumn(b))), nil
	}
}

func columnCompare(op compareFunc) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var other starlark.Value
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &other); err != nil {
			return nil, err
		}
		right, err := toOperand(other)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return NewColumn(op(receiverColumn(b), right)), nil
	}
}

func columnIn(op func(sql.ColumnElement, ...any) *sql.BinaryExpression) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 || len(args) == 0 {
			return nil, fmt.Errorf("%s: expected values", b.Name())
		}
		values, err := inValues(args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return NewColumn(op(receiverColumn(b), values...)), nil
	}
}

func columnNullTest(op func(sql.ColumnElement) *sql.BinaryExpression) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
			return nil, err
		}
		return NewColumn(op(receiverColumn(b))), nil
	}
}

func columnWhere(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	clauses, err := toColumns(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	switch x := receiverColumn(b).(type) {
	case *sql.ScalarSelect:
		return NewColumn(x.Where(clauses...)), nil
	case *sql.ExistsClause:
		return NewColumn(x.Where(clauses...)), nil
	}
	return nil, fmt.Errorf("%s: not supported on %s", b.Name(), b.Receiver().Type())
}

func existsFroms(fn func(*sql.ExistsClause, ...sql.FromClause) *sql.ExistsClause) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
		}
		froms, err := toFroms(args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return NewColumn(fn(receiverColumn(b).(*sql.ExistsClause), froms...)), nil
	}
}

var selectableMethods = map[string]*starlark.Builtin{
	// every source
	"alias":     starlark.NewBuiltin("alias", selectableAlias),
	"count":     starlark.NewBuiltin("count", selectableCount),
	"join":      starlark.NewBuiltin("join", selectableJoin(false)),
	"outerjoin": starlark.NewBuiltin("outerjoin", selectableJoin(true)),
	"select":    starlark.NewBuiltin("select", selectableSelect),

	// select and compound statements
	"apply_labels":  starlark.NewBuiltin("apply_labels", statementApplyLabels),
	"as_scalar":     starlark.NewBuiltin("as_scalar", statementAsScalar),
	"cte":           starlark.NewBuiltin("cte", statementCTE),
	"group_by":      starlark.NewBuiltin("group_by", statementGroupBy),
	"label":         starlark.NewBuiltin("label", statementLabel),
	"limit":         starlark.NewBuiltin("limit", statementLimit),
	"offset":        starlark.NewBuiltin("offset", statementOffset),
	"order_by":      starlark.NewBuiltin("order_by", statementOrderBy),
	"union":         starlark.NewBuiltin("union", statementCompound("union")),
	"union_all":     starlark.NewBuiltin("union_all", statementCompound("union_all")),
	"except_":       starlark.NewBuiltin("except_", statementCompound("except_")),
	"except_all":    starlark.NewBuiltin("except_all", statementCompound("except_all")),
	"intersect":     starlark.NewBuiltin("intersect", statementCompound("intersect")),
	"intersect_all": starlark.NewBuiltin("intersect_all", statementCompound("intersect_all")),

	// select only
	"column":            starlark.NewBuiltin("column", selectColumn),
	"correlate":         starlark.NewBuiltin("correlate", selectFroms((*sql.SelectStmt).Correlate)),
	"correlate_except":  starlark.NewBuiltin("correlate_except", selectFroms((*sql.SelectStmt).CorrelateExcept)),
	"distinct":          starlark.NewBuiltin("distinct", selectClauses((*sql.SelectStmt).Distinct)),
	"having":            starlark.NewBuiltin("having", selectClauses((*sql.SelectStmt).Having)),
	"prefix_with":       starlark.NewBuiltin("prefix_with", selectPrefixWith),
	"reduce_columns":    starlark.NewBuiltin("reduce_columns", selectReduceColumns),
	"select_from":       starlark.NewBuiltin("select_from", selectFroms((*sql.SelectStmt).SelectFrom)),
	"where":             starlark.NewBuiltin("where", selectClauses((*sql.SelectStmt).Where)),
	"with_hint":         starlark.NewBuiltin("with_hint", selectWithHint),
	"with_only_columns": starlark.NewBuiltin("with_only_columns", selectWithOnlyColumns),
}

func receiverFrom(b *starlark.Builtin) sql.FromClause {
	return b.Receiver().(*Selectable).from
}

func noKwargs(b *starlark.Builtin, kwargs []starlark.Tuple) error {
	if len(kwargs) > 0 {
		return fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	return nil
}

// alias(name="")
func selectableAlias(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name?", &name); err != nil {
		return nil, err
	}
	return NewSelectable(receiverFrom(b).Alias(name)), nil
}

func selectableCount(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noKwargs(b, kwargs); err != nil {
		return nil, err
	}
	where, err := toColumns(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return NewSelectable(receiverFrom(b).Count(where...)), nil
}

func selectableSelect(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noKwargs(b, kwargs); err != nil {
		return nil, err
	}
	where, err := toColumns(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return NewSelectable(receiverFrom(b).Select(where...)), nil
}

// join(right, on=None)
func selectableJoin(outer bool) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var right starlark.Value
		var on starlark.Value = starlark.None
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "right", &right, "on?", &on); err != nil {
			return nil, err
		}
		return join(b.Name(), receiverFrom(b), right, on, outer)
	}
}

func notSupported(b *starlark.Builtin) error {
	return fmt.Errorf("%s: not supported on %s", b.Name(), b.Receiver().Type())
}

func statementApplyLabels(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	switch x := receiverFrom(b).(type) {
	case *sql.SelectStmt:
		return NewSelectable(x.ApplyLabels()), nil
	case *sql.CompoundSelect:
		return NewSelectable(x.ApplyLabels()), nil
	}
	return nil, notSupported(b)
}

func receiverStatement(b *starlark.Builtin) (sql.SelectBase, error) {
	sel, ok := receiverFrom(b).(sql.SelectBase)
	if !ok {
		return nil, notSupported(b)
	}
	return sel, nil
}

func statementAsScalar(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	sel, err := receiverStatement(b)
	if err != nil {
		return nil, err
	}
	return NewColumn(sel.AsScalar()), nil
}

func statementLabel(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
		return nil, err
	}
	sel, err := receiverStatement(b)
	if err != nil {
		return nil, err
	}
	return NewColumn(sel.Label(name)), nil
}

// cte(name="", recursive=False)
func statementCTE(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var recursive bool
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name?", &name, "recursive?", &recursive); err != nil {
		return nil, err
	}
	sel, err := receiverStatement(b)
	if err != nil {
		return nil, err
	}
	return NewSelectable(sel.CTE(name, recursive)), nil
}

// toClauses converts ORDER BY and GROUP BY arguments. Strings name result
// columns and render as written.
func toClauses(vs []starlark.Value) ([]sql.ColumnElement, error) {
	out := make([]sql.ColumnElement, len(vs))
	for i, v := range vs {
		if s, ok := v.(starlark.String); ok {
			out[i] = sql.LiteralColumn(string(s), nil)
			continue
		}
		col, err := toColumn(v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = col
	}
	return out, nil
}

func statementOrderBy(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noKwargs(b, kwargs); err != nil {
		return nil, err
	}
	clauses, err := toClauses(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	switch x := receiverFrom(b).(type) {
	case *sql.SelectStmt:
		return NewSelectable(x.OrderBy(clauses...)), nil
	case *sql.CompoundSelect:
		return NewSelectable(x.OrderBy(clauses...)), nil
	}
	return nil, notSupported(b)
}

func statementGroupBy(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noKwargs(b, kwargs); err != nil {
		return nil, err
	}
	clauses, err := toClauses(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	switch x := receiverFrom(b).(type) {
	case *sql.SelectStmt:
		return NewSelectable(x.GroupBy(clauses...)), nil
	case *sql.CompoundSelect:
		return NewSelectable(x.GroupBy(clauses...)), nil
	}
	return nil, notSupported(b)
}

func statementLimit(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var n int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &n); err != nil {
		return nil, err
	}
	var (
		out sql.FromClause
		err error
	)
	switch x := receiverFrom(b).(type) {
	case *sql.SelectStmt:
		out, err = x.Limit(n)
	case *sql.CompoundSelect:
		out, err = x.Limit(n)
	default:
		return nil, notSupported(b)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return NewSelectable(out), nil
}

func statementOffset(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var n int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &n); err != nil {
		return nil, err
	}
	var (
		out sql.FromClause
		err error
	)
	switch x := receiverFrom(b).(type) {
	case *sql.SelectStmt:
		out, err = x.Offset(n)
	case *sql.CompoundSelect:
		out, err = x.Offset(n)
	default:
		return nil, notSupported(b)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return NewSelectable(out), nil
}

// statementCompound combines the receiver with other statements. On a CTE
// receiver, union and union_all build the recursive part.
func statementCompound(name string) builtinFunc {
	fn := compounds[name]
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := noKwargs(b, kwargs); err != nil {
			return nil, err
		}
		others, err := toSelects(args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}

		if cte, ok := receiverFrom(b).(*sql.CTE); ok {
			if len(others) != 1 {
				return nil, fmt.Errorf("%s: a CTE combines with exactly one statement", b.Name())
			}
			var out *sql.CTE
			if name == "union_all" {
				out, err = cte.UnionAll(others[0])
			} else {
				out, err = cte.Union(others[0])
			}
			if err != nil {
				return nil, fmt.Errorf("%s: %w", b.Name(), err)
			}
			return NewSelectable(out), nil
		}

		sel, err := receiverStatement(b)
		if err != nil {
			return nil, err
		}
		cs, err := fn(append([]sql.SelectBase{sel}, others...)...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return NewSelectable(cs), nil
	}
}

func receiverSelect(b *starlark.Builtin) (*sql.SelectStmt, error) {
	sel, ok := receiverFrom(b).(*sql.SelectStmt)
	if !ok {
		return nil, notSupported(b)
	}
	return sel, nil
}

func selectClauses(fn func(*sql.SelectStmt, ...sql.ColumnElement) *sql.SelectStmt) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := noKwargs(b, kwargs); err != nil {
			return nil, err
		}
		sel, err := receiverSelect(b)
		if err != nil {
			return nil, err
		}
		clauses, err := toColumns(args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return NewSelectable(fn(sel, clauses...)), nil
	}
}

func selectFroms(fn func(*sql.SelectStmt, ...sql.FromClause) *sql.SelectStmt) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := noKwargs(b, kwargs); err != nil {
			return nil, err
		}
		sel, err := receiverSelect(b)
		if err != nil {
			return nil, err
		}
		froms, err := toFroms(args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return NewSelectable(fn(sel, froms...)), nil
	}
}

func selectColumn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var v starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
		return nil, err
	}
	sel, err := receiverSelect(b)
	if err != nil {
		return nil, err
	}
	col, err := toCoercible(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return NewSelectable(sel.Column(col)), nil
}

func selectWithOnlyColumns(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noKwargs(b, kwargs); err != nil {
		return nil, err
	}
	sel, err := receiverSelect(b)
	if err != nil {
		return nil, err
	}
	cols, err := toCoercibles(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return NewSelectable(sel.WithOnlyColumns(cols...)), nil
}

func selectPrefixWith(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noKwargs(b, kwargs); err != nil {
		return nil, err
	}
	sel, err := receiverSelect(b)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(args))
	for i, v := range args {
		s, ok := starlark.AsString(v)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d: expected a string, got %s", b.Name(), i+1, v.Type())
		}
		texts[i] = s
	}
	return NewSelectable(sel.PrefixWith(texts...)), nil
}

// reduce_columns(only_synonyms=True)
func selectReduceColumns(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	onlySynonyms := true
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "only_synonyms?", &onlySynonyms); err != nil {
		return nil, err
	}
	sel, err := receiverSelect(b)
	if err != nil {
		return nil, err
	}
	return NewSelectable(sel.ReduceColumns(onlySynonyms)), nil
}

// with_hint(selectable, text, dialect="*")
func selectWithHint(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		target        starlark.Value
		text, dialect string
	)
	dialect = "*"
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "selectable", &target, "text", &text, "dialect?", &dialect); err != nil {
		return nil, err
	}
	sel, err := receiverSelect(b)
	if err != nil {
		return nil, err
	}
	from, err := toFrom(target)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return NewSelectable(sel.WithHint(from, text, dialect)), nil
}
