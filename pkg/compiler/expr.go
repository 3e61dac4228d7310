package compiler

import (
	"strings"

	"github.com/leapstack-labs/relsql/pkg/sql"
)

// precedence of operators; higher binds tighter.
var precedence = map[sql.Operator]int{
	sql.OpOr:    2,
	sql.OpAnd:   3,
	sql.OpNot:   4,
	sql.OpEq:    5,
	sql.OpNe:    5,
	sql.OpLt:    5,
	sql.OpLe:    5,
	sql.OpGt:    5,
	sql.OpGe:    5,
	sql.OpLike:  5,
	sql.OpIn:    5,
	sql.OpNotIn: 5,
	sql.OpIs:    5,
	sql.OpIsNot: 5,
	sql.OpAdd:   7,
	sql.OpSub:   7,
	sql.OpMul:   8,
	sql.OpDiv:   8,
}

// associative operators need no grouping for an equal-precedence right operand.
var associative = map[sql.Operator]bool{
	sql.OpAdd: true,
	sql.OpMul: true,
	sql.OpAnd: true,
	sql.OpOr:  true,
}

// niladic functions render without parentheses when called without arguments.
var niladic = map[string]bool{
	"current_date":      true,
	"current_time":      true,
	"current_timestamp": true,
	"current_user":      true,
	"localtime":         true,
	"localtimestamp":    true,
}

func operatorOf(e sql.ClauseElement) (sql.Operator, bool) {
	switch x := e.(type) {
	case *sql.BinaryExpression:
		return x.Operator(), true
	case *sql.BooleanClauseList:
		return x.Operator(), true
	}
	return "", false
}

// operand renders e as an operand of op, grouping it when its own operator
// binds less tightly.
func (c *compiler) operand(e sql.ColumnElement, op sql.Operator, right bool) (string, error) {
	text, err := c.process(e)
	if err != nil {
		return "", err
	}
	inner, ok := operatorOf(e)
	if !ok {
		return text, nil
	}
	p, q := precedence[inner], precedence[op]
	if p < q || (p == q && right && !(inner == op && associative[op])) {
		return "(" + text + ")", nil
	}
	return text, nil
}

func visitColumn(c *compiler, e sql.ClauseElement) (string, error) {
	col := e.(*sql.ColumnClause)
	name := c.anon(col.Name())
	if !col.IsLiteral() {
		name = c.dialect.QuoteIdentifierIfNeeded(name)
	}

	t := col.Table()
	if t == nil {
		return name, nil
	}
	schema, table := sql.SelectableName(t)
	if table == "" {
		return name, nil
	}
	prefix := c.quote(table)
	if schema != "" {
		prefix = c.quote(schema) + "." + prefix
	}
	return prefix + "." + name, nil
}

func visitLabel(c *compiler, e sql.ClauseElement) (string, error) {
	l := e.(*sql.Label)
	if c.labelRefs[l.ID()] {
		return c.quote(l.Name()), nil
	}
	return c.process(l.Element())
}

func visitBinary(c *compiler, e sql.ClauseElement) (string, error) {
	b := e.(*sql.BinaryExpression)
	left, err := c.operand(b.Left(), b.Operator(), false)
	if err != nil {
		return "", err
	}
	right, err := c.operand(b.Right(), b.Operator(), true)
	if err != nil {
		return "", err
	}
	return left + " " + string(b.Operator()) + " " + right, nil
}

func visitClauseList(c *compiler, e sql.ClauseElement) (string, error) {
	l := e.(*sql.BooleanClauseList)
	clauses := l.Clauses()
	parts := make([]string, 0, len(clauses))
	for i, cl := range clauses {
		text, err := c.operand(cl, l.Operator(), i > 0)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " "+string(l.Operator())+" "), nil
}

func visitUnary(c *compiler, e sql.ClauseElement) (string, error) {
	u := e.(*sql.UnaryExpression)
	if u.IsModifier() {
		text, err := c.process(u.Element())
		if err != nil {
			return "", err
		}
		return text + " " + string(u.Operator()), nil
	}
	text, err := c.operand(u.Element(), u.Operator(), true)
	if err != nil {
		return "", err
	}
	return string(u.Operator()) + " " + text, nil
}

func visitBindParam(c *compiler, e sql.ClauseElement) (string, error) {
	return c.bind(e.(*sql.BindParameter).Value()), nil
}

func visitNull(*compiler, sql.ClauseElement) (string, error) {
	return "NULL", nil
}

func visitFunction(c *compiler, e sql.ClauseElement) (string, error) {
	f := e.(*sql.FunctionCall)
	args := f.Args()
	name := f.FuncName()
	if len(args) == 0 {
		switch {
		case strings.EqualFold(name, "count"):
			return name + "(*)", nil
		case niladic[strings.ToLower(name)]:
			return name, nil
		}
	}
	parts, err := c.list(args)
	if err != nil {
		return "", err
	}
	return name + "(" + strings.Join(parts, ", ") + ")", nil
}

func visitTextClause(_ *compiler, e sql.ClauseElement) (string, error) {
	return e.(*sql.TextClause).SQL(), nil
}

func visitTuple(c *compiler, e sql.ClauseElement) (string, error) {
	parts, err := c.list(e.(*sql.Tuple).Elements())
	if err != nil {
		return "", err
	}
	return "(" + strings.Join(parts, ", ") + ")", nil
}

func visitScalarSelect(c *compiler, e sql.ClauseElement) (string, error) {
	return c.subquery(e.(*sql.ScalarSelect).Element())
}

func visitExists(c *compiler, e sql.ClauseElement) (string, error) {
	text, err := c.subquery(e.(*sql.ExistsClause).Element().Element())
	if err != nil {
		return "", err
	}
	return "EXISTS " + text, nil
}

// subquery renders a statement nested in an expression, in parentheses.
func (c *compiler) subquery(stmt sql.ClauseElement) (string, error) {
	saved := c.asfrom
	c.asfrom = false
	c.depth++
	text, err := c.process(stmt)
	c.depth--
	c.asfrom = saved
	if err != nil {
		return "", err
	}
	return "(" + text + ")", nil
}

func (c *compiler) list(elems []sql.ColumnElement) ([]string, error) {
	parts := make([]string, 0, len(elems))
	for _, el := range elems {
		text, err := c.process(el)
		if err != nil {
			return nil, err
		}
		parts = append(parts, text)
	}
	return parts, nil
}
