package sql

import "slices"

// Operator is a SQL operator or modifier keyword.
type Operator string

// Operators
const (
	OpEq       Operator = "="
	OpNe       Operator = "!="
	OpLt       Operator = "<"
	OpLe       Operator = "<="
	OpGt       Operator = ">"
	OpGe       Operator = ">="
	OpAdd      Operator = "+"
	OpSub      Operator = "-"
	OpMul      Operator = "*"
	OpDiv      Operator = "/"
	OpLike     Operator = "LIKE"
	OpIn       Operator = "IN"
	OpNotIn    Operator = "NOT IN"
	OpIs       Operator = "IS"
	OpIsNot    Operator = "IS NOT"
	OpAnd      Operator = "AND"
	OpOr       Operator = "OR"
	OpNot      Operator = "NOT"
	OpDistinct Operator = "DISTINCT"
	OpAsc      Operator = "ASC"
	OpDesc     Operator = "DESC"
)

// IsComparison reports whether op produces a boolean.
func (op Operator) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpLike, OpIn, OpNotIn, OpIs, OpIsNot:
		return true
	}
	return false
}

func fromsOf(elems ...ColumnElement) []FromClause {
	var out []FromClause
	for _, e := range elems {
		out = append(out, e.FromObjects()...)
	}
	return out
}

func cloneColumns(elems []ColumnElement, clone func(ClauseElement) ClauseElement) []ColumnElement {
	out := make([]ColumnElement, len(elems))
	for i, e := range elems {
		out[i] = clone(e).(ColumnElement)
	}
	return out
}

func asClauses[T ClauseElement](elems []T) []ClauseElement {
	out := make([]ClauseElement, len(elems))
	for i, e := range elems {
		out[i] = e
	}
	return out
}

// BinaryExpression is "left op right".
type BinaryExpression struct {
	columnBase
	left  ColumnElement
	right ColumnElement
	op    Operator
}

func newBinary(left, right ColumnElement, op Operator) *BinaryExpression {
	typ := left.Type()
	if op.IsComparison() {
		typ = Boolean
	}
	return &BinaryExpression{columnBase: newColumnBase(typ), left: left, right: right, op: op}
}

// Left returns the left operand.
func (b *BinaryExpression) Left() ColumnElement { return b.left }

// Right returns the right operand.
func (b *BinaryExpression) Right() ColumnElement { return b.right }

// Operator returns the operator.
func (b *BinaryExpression) Operator() Operator { return b.op }

func (b *BinaryExpression) VisitName() string { return "binary" }

func (b *BinaryExpression) Children() []ClauseElement {
	return []ClauseElement{b.left, b.right}
}

func (b *BinaryExpression) FromObjects() []FromClause { return fromsOf(b.left, b.right) }

func (b *BinaryExpression) clone() ClauseElement {
	c := *b
	c.columnBase = b.columnBase.derived()
	return &c
}

func (b *BinaryExpression) copyInternals(clone func(ClauseElement) ClauseElement) {
	b.left = clone(b.left).(ColumnElement)
	b.right = clone(b.right).(ColumnElement)
}

func (b *BinaryExpression) Key() string  { return "" }
func (b *BinaryExpression) Name() string { return "" }

func (b *BinaryExpression) ProxySet() *ProxySet { return b.proxySetFor(b) }

func (b *BinaryExpression) makeProxy(owner FromClause, name, key string) *ColumnClause {
	return proxyExpression(b, owner, name, key)
}

// Eq returns "left = right". A nil right renders "left IS NULL".
func Eq(left ColumnElement, right any) *BinaryExpression {
	if right == nil {
		return newBinary(left, Null(), OpIs)
	}
	return newBinary(left, coerceOperand(right, left), OpEq)
}

// Ne returns "left != right". A nil right renders "left IS NOT NULL".
func Ne(left ColumnElement, right any) *BinaryExpression {
	if right == nil {
		return newBinary(left, Null(), OpIsNot)
	}
	return newBinary(left, coerceOperand(right, left), OpNe)
}

// Lt returns "left < right".
func Lt(left ColumnElement, right any) *BinaryExpression {
	return newBinary(left, coerceOperand(right, left), OpLt)
}

// Le returns "left <= right".
func Le(left ColumnElement, right any) *BinaryExpression {
	return newBinary(left, coerceOperand(right, left), OpLe)
}

// Gt returns "left > right".
func Gt(left ColumnElement, right any) *BinaryExpression {
	return newBinary(left, coerceOperand(right, left), OpGt)
}

// Ge returns "left >= right".
func Ge(left ColumnElement, right any) *BinaryExpression {
	return newBinary(left, coerceOperand(right, left), OpGe)
}

// Add returns "left + right".
func Add(left ColumnElement, right any) *BinaryExpression {
	return newBinary(left, coerceOperand(right, left), OpAdd)
}

// Sub returns "left - right".
func Sub(left ColumnElement, right any) *BinaryExpression {
	return newBinary(left, coerceOperand(right, left), OpSub)
}

// Mul returns "left * right".
func Mul(left ColumnElement, right any) *BinaryExpression {
	return newBinary(left, coerceOperand(right, left), OpMul)
}

// Div returns "left / right".
func Div(left ColumnElement, right any) *BinaryExpression {
	return newBinary(left, coerceOperand(right, left), OpDiv)
}

// Like returns "left LIKE pattern".
func Like(left ColumnElement, pattern any) *BinaryExpression {
	return newBinary(left, coerceOperand(pattern, left), OpLike)
}

// IsNull returns "expr IS NULL".
func IsNull(expr ColumnElement) *BinaryExpression {
	return newBinary(expr, Null(), OpIs)
}

// IsNotNull returns "expr IS NOT NULL".
func IsNotNull(expr ColumnElement) *BinaryExpression {
	return newBinary(expr, Null(), OpIsNot)
}

// In returns "left IN (values...)". A single select renders as a subquery.
func In(left ColumnElement, values ...any) *BinaryExpression {
	return newBinary(left, inOperand(left, values), OpIn)
}

// NotIn returns "left NOT IN (values...)".
func NotIn(left ColumnElement, values ...any) *BinaryExpression {
	return newBinary(left, inOperand(left, values), OpNotIn)
}

func inOperand(left ColumnElement, values []any) ColumnElement {
	if len(values) == 1 {
		if s, ok := values[0].(SelectBase); ok {
			return s.AsScalar()
		}
	}
	elems := make([]ColumnElement, len(values))
	for i, v := range values {
		elems[i] = coerceOperand(v, left)
	}
	return NewTuple(elems...)
}

// BooleanClauseList joins clauses with AND or OR.
type BooleanClauseList struct {
	columnBase
	op      Operator
	clauses []ColumnElement
}

// And joins clauses with AND. Nil clauses are skipped, nested AND lists are
// flattened, and a single clause is returned as is.
func And(clauses ...ColumnElement) ColumnElement {
	return booleanList(OpAnd, clauses)
}

// Or joins clauses with OR.
func Or(clauses ...ColumnElement) ColumnElement {
	return booleanList(OpOr, clauses)
}

func booleanList(op Operator, clauses []ColumnElement) ColumnElement {
	var flat []ColumnElement
	for _, c := range clauses {
		if c == nil {
			continue
		}
		if l, ok := c.(*BooleanClauseList); ok && l.op == op {
			flat = append(flat, l.clauses...)
			continue
		}
		flat = append(flat, c)
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return &BooleanClauseList{columnBase: newColumnBase(Boolean), op: op, clauses: flat}
}

// Operator returns AND or OR.
func (l *BooleanClauseList) Operator() Operator { return l.op }

// Clauses returns the joined clauses.
func (l *BooleanClauseList) Clauses() []ColumnElement { return slices.Clone(l.clauses) }

func (l *BooleanClauseList) VisitName() string { return "clauselist" }

func (l *BooleanClauseList) Children() []ClauseElement { return asClauses(l.clauses) }

func (l *BooleanClauseList) FromObjects() []FromClause { return fromsOf(l.clauses...) }

func (l *BooleanClauseList) clone() ClauseElement {
	c := *l
	c.columnBase = l.columnBase.derived()
	return &c
}

func (l *BooleanClauseList) copyInternals(clone func(ClauseElement) ClauseElement) {
	l.clauses = cloneColumns(l.clauses, clone)
}

func (l *BooleanClauseList) Key() string  { return "" }
func (l *BooleanClauseList) Name() string { return "" }

func (l *BooleanClauseList) ProxySet() *ProxySet { return l.proxySetFor(l) }

func (l *BooleanClauseList) makeProxy(owner FromClause, name, key string) *ColumnClause {
	return proxyExpression(l, owner, name, key)
}

// UnaryExpression applies a prefix operator (NOT, DISTINCT) or a postfix
// modifier (ASC, DESC) to an expression.
type UnaryExpression struct {
	columnBase
	op      Operator
	element ColumnElement
}

func newUnary(op Operator, element ColumnElement, typ TypeDescriptor) *UnaryExpression {
	return &UnaryExpression{columnBase: newColumnBase(typ), op: op, element: element}
}

// Not negates a boolean expression.
func Not(element ColumnElement) *UnaryExpression {
	return newUnary(OpNot, element, Boolean)
}

// Asc orders ascending.
func Asc(element ColumnElement) *UnaryExpression {
	return newUnary(OpAsc, element, element.Type())
}

// Desc orders descending.
func Desc(element ColumnElement) *UnaryExpression {
	return newUnary(OpDesc, element, element.Type())
}

// Distinct applies DISTINCT to an expression, as in count(DISTINCT x).
func Distinct(element ColumnElement) *UnaryExpression {
	return newUnary(OpDistinct, element, element.Type())
}

// Operator returns the operator or modifier.
func (u *UnaryExpression) Operator() Operator { return u.op }

// Element returns the operand.
func (u *UnaryExpression) Element() ColumnElement { return u.element }

// IsModifier reports whether the operator renders after the operand.
func (u *UnaryExpression) IsModifier() bool { return u.op == OpAsc || u.op == OpDesc }

func (u *UnaryExpression) VisitName() string { return "unary" }

func (u *UnaryExpression) Children() []ClauseElement { return []ClauseElement{u.element} }

func (u *UnaryExpression) FromObjects() []FromClause { return u.element.FromObjects() }

func (u *UnaryExpression) clone() ClauseElement {
	c := *u
	c.columnBase = u.columnBase.derived()
	return &c
}

func (u *UnaryExpression) copyInternals(clone func(ClauseElement) ClauseElement) {
	u.element = clone(u.element).(ColumnElement)
}

func (u *UnaryExpression) Key() string  { return "" }
func (u *UnaryExpression) Name() string { return "" }

func (u *UnaryExpression) ProxySet() *ProxySet { return u.proxySetFor(u) }

func (u *UnaryExpression) makeProxy(owner FromClause, name, key string) *ColumnClause {
	return proxyExpression(u, owner, name, key)
}

// BindParameter is a value rendered as a dialect placeholder.
type BindParameter struct {
	columnBase
	key   string
	value any
}

// BindParam creates a bind parameter. An empty key gets an anonymous one.
func BindParam(key string, value any) *BindParameter {
	p := &BindParameter{columnBase: newColumnBase(TypeOf(value)), value: value}
	p.key = key
	if key == "" {
		p.key = anonymousLabel(p.ID(), "param")
	}
	return p
}

// Literal wraps a Go value as an anonymous bind parameter.
func Literal(value any) *BindParameter {
	return BindParam("", value)
}

// Value returns the bound value.
func (p *BindParameter) Value() any { return p.value }

func (p *BindParameter) VisitName() string { return "bindparam" }

func (p *BindParameter) Children() []ClauseElement { return nil }

func (p *BindParameter) FromObjects() []FromClause { return nil }

func (p *BindParameter) clone() ClauseElement {
	c := *p
	c.columnBase = p.columnBase.derived()
	return &c
}

func (p *BindParameter) Key() string  { return p.key }
func (p *BindParameter) Name() string { return p.key }

func (p *BindParameter) ProxySet() *ProxySet { return p.proxySetFor(p) }

func (p *BindParameter) makeProxy(owner FromClause, name, key string) *ColumnClause {
	return proxyExpression(p, owner, name, key)
}

// NullElement is the NULL keyword.
type NullElement struct {
	columnBase
}

// Null returns a NULL expression.
func Null() *NullElement {
	return &NullElement{columnBase: newColumnBase(NullType)}
}

func (n *NullElement) VisitName() string         { return "null" }
func (n *NullElement) Children() []ClauseElement { return nil }
func (n *NullElement) FromObjects() []FromClause { return nil }
func (n *NullElement) clone() ClauseElement      { return n }
func (n *NullElement) Key() string               { return "" }
func (n *NullElement) Name() string              { return "" }
func (n *NullElement) ProxySet() *ProxySet       { return n.proxySetFor(n) }

func (n *NullElement) makeProxy(owner FromClause, name, key string) *ColumnClause {
	return proxyExpression(n, owner, name, key)
}

// FunctionCall is "name(args...)". count() with no arguments renders as
// count(*).
type FunctionCall struct {
	columnBase
	name string
	args []ColumnElement
}

// Func creates a function call. Go values among args become bind
// parameters.
func Func(name string, args ...any) *FunctionCall {
	elems := make([]ColumnElement, len(args))
	for i, a := range args {
		elems[i] = coerceOperand(a, nil)
	}
	var typ TypeDescriptor
	switch {
	case name == "count":
		typ = BigInt
	case len(elems) > 0:
		typ = elems[0].Type()
	}
	return &FunctionCall{columnBase: newColumnBase(typ), name: name, args: elems}
}

// FuncName returns the function name.
func (f *FunctionCall) FuncName() string { return f.name }

// Args returns the arguments.
func (f *FunctionCall) Args() []ColumnElement { return slices.Clone(f.args) }

// WithType returns a copy of the call with an explicit return type.
func (f *FunctionCall) WithType(t TypeDescriptor) *FunctionCall {
	c := *f
	c.columnBase = newColumnBase(t)
	return &c
}

func (f *FunctionCall) VisitName() string { return "function" }

func (f *FunctionCall) Children() []ClauseElement { return asClauses(f.args) }

func (f *FunctionCall) FromObjects() []FromClause { return fromsOf(f.args...) }

func (f *FunctionCall) clone() ClauseElement {
	c := *f
	c.columnBase = f.columnBase.derived()
	return &c
}

func (f *FunctionCall) copyInternals(clone func(ClauseElement) ClauseElement) {
	f.args = cloneColumns(f.args, clone)
}

func (f *FunctionCall) Key() string  { return "" }
func (f *FunctionCall) Name() string { return "" }

// AnonLabel returns an anonymous label based on the function name.
func (f *FunctionCall) AnonLabel() string { return anonymousLabel(f.ID(), f.name) }

func (f *FunctionCall) ProxySet() *ProxySet { return f.proxySetFor(f) }

func (f *FunctionCall) makeProxy(owner FromClause, name, key string) *ColumnClause {
	return proxyExpression(f, owner, name, key)
}

// Label returns the call under a name.
func (f *FunctionCall) Label(name string) *Label { return As(f, name) }

// TextClause is raw SQL text used as an expression.
type TextClause struct {
	columnBase
	text string
}

// Text creates a raw SQL expression.
func Text(text string) *TextClause {
	return &TextClause{columnBase: newColumnBase(nil), text: text}
}

// SQL returns the text.
func (t *TextClause) SQL() string { return t.text }

func (t *TextClause) VisitName() string         { return "textclause" }
func (t *TextClause) Children() []ClauseElement { return nil }
func (t *TextClause) FromObjects() []FromClause { return nil }
func (t *TextClause) clone() ClauseElement      { return t }
func (t *TextClause) Key() string               { return "" }
func (t *TextClause) Name() string              { return "" }
func (t *TextClause) ProxySet() *ProxySet       { return t.proxySetFor(t) }

func (t *TextClause) makeProxy(owner FromClause, name, key string) *ColumnClause {
	return proxyExpression(t, owner, name, key)
}

// Tuple is a parenthesised expression list, as used by IN.
type Tuple struct {
	columnBase
	elems []ColumnElement
}

// NewTuple creates a tuple.
func NewTuple(elems ...ColumnElement) *Tuple {
	var typ TypeDescriptor
	if len(elems) > 0 {
		typ = elems[0].Type()
	}
	return &Tuple{columnBase: newColumnBase(typ), elems: elems}
}

// Elements returns the members.
func (t *Tuple) Elements() []ColumnElement { return slices.Clone(t.elems) }

func (t *Tuple) VisitName() string { return "tuple" }

func (t *Tuple) Children() []ClauseElement { return asClauses(t.elems) }

func (t *Tuple) FromObjects() []FromClause { return fromsOf(t.elems...) }

func (t *Tuple) clone() ClauseElement {
	c := *t
	c.columnBase = t.columnBase.derived()
	return &c
}

func (t *Tuple) copyInternals(clone func(ClauseElement) ClauseElement) {
	t.elems = cloneColumns(t.elems, clone)
}

func (t *Tuple) Key() string  { return "" }
func (t *Tuple) Name() string { return "" }

func (t *Tuple) ProxySet() *ProxySet { return t.proxySetFor(t) }

func (t *Tuple) makeProxy(owner FromClause, name, key string) *ColumnClause {
	return proxyExpression(t, owner, name, key)
}
