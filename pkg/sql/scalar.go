package sql

// ScalarSelect is a select used as a column expression. It renders
// parenthesised and takes the type of the select's first column.
type ScalarSelect struct {
	columnBase
	element SelectBase
}

func newScalarSelect(element SelectBase) *ScalarSelect {
	return &ScalarSelect{columnBase: newColumnBase(element.ScalarType()), element: element}
}

// Element returns the wrapped select.
func (s *ScalarSelect) Element() SelectBase { return s.element }

// Where ANDs criteria onto the wrapped select. Compound selects are
// returned unchanged.
func (s *ScalarSelect) Where(clauses ...ColumnElement) *ScalarSelect {
	sel, ok := s.element.(*SelectStmt)
	if !ok {
		return s
	}
	return newScalarSelect(sel.Where(clauses...))
}

func (s *ScalarSelect) VisitName() string         { return "scalar_select" }
func (s *ScalarSelect) Children() []ClauseElement { return []ClauseElement{s.element} }

// FromObjects returns nil: a scalar subquery contributes nothing to the
// enclosing FROM list.
func (s *ScalarSelect) FromObjects() []FromClause { return nil }

func (s *ScalarSelect) Key() string         { return "" }
func (s *ScalarSelect) Name() string        { return "" }
func (s *ScalarSelect) ProxySet() *ProxySet { return s.proxySetFor(s) }

func (s *ScalarSelect) clone() ClauseElement {
	c := *s
	c.columnBase = s.columnBase.derived()
	return &c
}

func (s *ScalarSelect) copyInternals(clone func(ClauseElement) ClauseElement) {
	s.element = clone(s.element).(SelectBase)
}

func (s *ScalarSelect) makeProxy(owner FromClause, name, key string) *ColumnClause {
	return proxyExpression(s, owner, name, key)
}

// Label returns the scalar subquery under name.
func (s *ScalarSelect) Label(name string) *Label { return As(s, name) }

// ExistsClause is "EXISTS (subquery)".
type ExistsClause struct {
	columnBase
	element *ScalarSelect
}

// Exists wraps sel. With no select, use ExistsOf.
func Exists(sel SelectBase) *ExistsClause {
	return &ExistsClause{columnBase: newColumnBase(Boolean), element: sel.AsScalar()}
}

// ExistsOf builds "EXISTS (SELECT columns ...)"; without columns it selects
// "*".
func ExistsOf(columns ...Coercible) *ExistsClause {
	if len(columns) == 0 {
		columns = []Coercible{Raw("*")}
	}
	return Exists(Select(columns...))
}

// Element returns the subquery.
func (e *ExistsClause) Element() *ScalarSelect { return e.element }

func (e *ExistsClause) selectStmt() (*SelectStmt, bool) {
	s, ok := e.element.element.(*SelectStmt)
	return s, ok
}

func (e *ExistsClause) rewrap(fn func(*SelectStmt) *SelectStmt) *ExistsClause {
	s, ok := e.selectStmt()
	if !ok {
		return e
	}
	return Exists(fn(s))
}

// Where ANDs criteria onto the subquery.
func (e *ExistsClause) Where(clauses ...ColumnElement) *ExistsClause {
	return e.rewrap(func(s *SelectStmt) *SelectStmt { return s.Where(clauses...) })
}

// SelectFrom adds explicit FROM sources to the subquery.
func (e *ExistsClause) SelectFrom(froms ...FromClause) *ExistsClause {
	return e.rewrap(func(s *SelectStmt) *SelectStmt { return s.SelectFrom(froms...) })
}

// Correlate sets explicit correlation on the subquery.
func (e *ExistsClause) Correlate(froms ...FromClause) *ExistsClause {
	return e.rewrap(func(s *SelectStmt) *SelectStmt { return s.Correlate(froms...) })
}

// CorrelateExcept sets correlation exclusions on the subquery.
func (e *ExistsClause) CorrelateExcept(froms ...FromClause) *ExistsClause {
	return e.rewrap(func(s *SelectStmt) *SelectStmt { return s.CorrelateExcept(froms...) })
}

// Select returns "SELECT EXISTS (...)".
func (e *ExistsClause) Select() *SelectStmt { return Select(e) }

func (e *ExistsClause) VisitName() string         { return "exists" }
func (e *ExistsClause) Children() []ClauseElement { return []ClauseElement{e.element} }
func (e *ExistsClause) FromObjects() []FromClause { return nil }
func (e *ExistsClause) Key() string               { return "" }
func (e *ExistsClause) Name() string              { return "" }
func (e *ExistsClause) ProxySet() *ProxySet       { return e.proxySetFor(e) }

func (e *ExistsClause) clone() ClauseElement {
	c := *e
	c.columnBase = e.columnBase.derived()
	return &c
}

func (e *ExistsClause) copyInternals(clone func(ClauseElement) ClauseElement) {
	e.element = clone(e.element).(*ScalarSelect)
}

func (e *ExistsClause) makeProxy(owner FromClause, name, key string) *ColumnClause {
	return proxyExpression(e, owner, name, key)
}

// Label returns the expression under name.
func (e *ExistsClause) Label(name string) *Label { return As(e, name) }
