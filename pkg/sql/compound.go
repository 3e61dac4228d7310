package sql

import (
	"fmt"
	"slices"
)

// CompoundKeyword is the set operator joining the branches of a
// CompoundSelect.
type CompoundKeyword string

// Set operators.
const (
	KeywordUnion        CompoundKeyword = "UNION"
	KeywordUnionAll     CompoundKeyword = "UNION ALL"
	KeywordExcept       CompoundKeyword = "EXCEPT"
	KeywordExceptAll    CompoundKeyword = "EXCEPT ALL"
	KeywordIntersect    CompoundKeyword = "INTERSECT"
	KeywordIntersectAll CompoundKeyword = "INTERSECT ALL"
)

// CompoundSelect combines selects with a set operator. Its exported columns
// are proxies of the first branch's columns that also proxy the matching
// column of every other branch, weighted by branch position.
type CompoundSelect struct {
	fromBase
	selectState
	keyword CompoundKeyword
	selects []FromClause
}

// NewCompoundSelect combines selects with keyword. Every branch must export
// the same number of columns. Nested compound selects are parenthesised.
func NewCompoundSelect(keyword CompoundKeyword, selects ...SelectBase) (*CompoundSelect, error) {
	cs := &CompoundSelect{keyword: keyword}
	cs.fromBase = newFromBase(cs)

	numcols := 0
	for n, s := range selects {
		cnt := s.Columns().Len()
		if n == 0 {
			numcols = cnt
		} else if cnt != numcols {
			return nil, &ArgumentError{Message: fmt.Sprintf(errColumnCountMismatch, numcols, n+1, cnt)}
		}
		if inner, ok := s.(*CompoundSelect); ok {
			cs.selects = append(cs.selects, NewFromGrouping(inner))
		} else {
			cs.selects = append(cs.selects, s)
		}
	}
	return cs, nil
}

// Union returns "selects[0] UNION selects[1] ...".
func Union(selects ...SelectBase) (*CompoundSelect, error) {
	return NewCompoundSelect(KeywordUnion, selects...)
}

// UnionAll returns "selects[0] UNION ALL selects[1] ...".
func UnionAll(selects ...SelectBase) (*CompoundSelect, error) {
	return NewCompoundSelect(KeywordUnionAll, selects...)
}

// Except returns "selects[0] EXCEPT selects[1] ...".
func Except(selects ...SelectBase) (*CompoundSelect, error) {
	return NewCompoundSelect(KeywordExcept, selects...)
}

// ExceptAll returns "selects[0] EXCEPT ALL selects[1] ...".
func ExceptAll(selects ...SelectBase) (*CompoundSelect, error) {
	return NewCompoundSelect(KeywordExceptAll, selects...)
}

// Intersect returns "selects[0] INTERSECT selects[1] ...".
func Intersect(selects ...SelectBase) (*CompoundSelect, error) {
	return NewCompoundSelect(KeywordIntersect, selects...)
}

// IntersectAll returns "selects[0] INTERSECT ALL selects[1] ...".
func IntersectAll(selects ...SelectBase) (*CompoundSelect, error) {
	return NewCompoundSelect(KeywordIntersectAll, selects...)
}

// Keyword returns the set operator.
func (cs *CompoundSelect) Keyword() CompoundKeyword { return cs.keyword }

// Selects returns the branches. Nested compound selects come wrapped in a
// FromGrouping.
func (cs *CompoundSelect) Selects() []FromClause { return slices.Clone(cs.selects) }

func (cs *CompoundSelect) VisitName() string   { return "compound_select" }
func (cs *CompoundSelect) Description() string { return "CompoundSelect object" }

func (cs *CompoundSelect) generate() *CompoundSelect {
	c := *cs
	c.fromBase = cs.fromBase.generative(&c)
	return &c
}

func (cs *CompoundSelect) populateColumns(e *exportCache) {
	branches := make([][]ColumnElement, len(cs.selects))
	for i, s := range cs.selects {
		branches[i] = s.Columns().All()
	}
	if len(branches) == 0 {
		return
	}
	for i, first := range branches[0] {
		var name, key string
		if cs.useLabels {
			name, key = first.DefaultLabel(), first.KeyLabel()
		}
		p := first.makeProxy(cs, name, key)
		p.proxies = make([]proxyRef, len(branches))
		for j, branch := range branches {
			p.proxies[j] = proxyRef{col: branch[i], weight: uint32(j + 1)}
		}
		e.add(p)
	}
}

func (cs *CompoundSelect) RefreshForNewColumn(col ColumnElement) (ColumnElement, error) {
	for _, s := range cs.selects {
		if _, err := s.RefreshForNewColumn(col); err != nil {
			return nil, err
		}
	}
	if !cs.populated() {
		return nil, nil
	}
	return nil, &NotImplementedError{Message: "CompoundSelect constructs don't support addition of columns to underlying selectables"}
}

func (cs *CompoundSelect) IsDerivedFrom(other FromClause) bool {
	if sameLineage(cs, other) {
		return true
	}
	for _, s := range cs.selects {
		if s.IsDerivedFrom(other) {
			return true
		}
	}
	return false
}

func (cs *CompoundSelect) selfGroup() FromClause { return NewFromGrouping(cs) }

func (cs *CompoundSelect) clone() ClauseElement {
	c := *cs
	c.fromBase = cs.fromBase.cloned(&c, cs)
	return &c
}

func (cs *CompoundSelect) copyInternals(clone func(ClauseElement) ClauseElement) {
	cs.resetExported()
	selects := make([]FromClause, len(cs.selects))
	for i, s := range cs.selects {
		selects[i] = clone(s).(FromClause)
	}
	cs.selects = selects
	cs.cloneClauses(clone)
}

func (cs *CompoundSelect) Children() []ClauseElement {
	out := asClauses(cs.selects)
	out = append(out, asClauses(cs.orderBy)...)
	return append(out, asClauses(cs.groupBy)...)
}

// Bind returns the explicit bind or the first bind found among the
// branches.
func (cs *CompoundSelect) Bind() Bind {
	if cs.bind != nil {
		return cs.bind
	}
	for _, s := range cs.selects {
		if b := s.Bind(); b != nil {
			return b
		}
	}
	return nil
}

// ScalarType returns the scalar type of the first branch.
func (cs *CompoundSelect) ScalarType() TypeDescriptor {
	if len(cs.selects) == 0 {
		return NullType
	}
	if s, ok := unwrapSelect(cs.selects[0]); ok {
		return s.ScalarType()
	}
	return NullType
}

// unwrapSelect returns the select inside a branch.
func unwrapSelect(f FromClause) (SelectBase, bool) {
	if g, ok := f.(*FromGrouping); ok {
		f = g.element
	}
	s, ok := f.(SelectBase)
	return s, ok
}

// AsScalar returns the compound select as a scalar subquery.
func (cs *CompoundSelect) AsScalar() *ScalarSelect { return newScalarSelect(cs) }

// Label returns the scalar subquery under name.
func (cs *CompoundSelect) Label(name string) *Label { return As(cs.AsScalar(), name) }

// CTE wraps the compound select in a common table expression.
func (cs *CompoundSelect) CTE(name string, recursive bool) *CTE {
	return newCTE(cs, name, recursive, nil, nil)
}

// OrderBy appends ORDER BY expressions. A single nil argument clears them.
func (cs *CompoundSelect) OrderBy(clauses ...ColumnElement) *CompoundSelect {
	c := cs.generate()
	c.orderBy = appendClauses(cs.orderBy, clauses)
	return c
}

// GroupBy appends GROUP BY expressions. A single nil argument clears them.
func (cs *CompoundSelect) GroupBy(clauses ...ColumnElement) *CompoundSelect {
	c := cs.generate()
	c.groupBy = appendClauses(cs.groupBy, clauses)
	return c
}

// Limit sets LIMIT.
func (cs *CompoundSelect) Limit(n int) (*CompoundSelect, error) {
	c := cs.generate()
	if err := c.setLimit(n); err != nil {
		return nil, err
	}
	return c, nil
}

// Offset sets OFFSET.
func (cs *CompoundSelect) Offset(n int) (*CompoundSelect, error) {
	c := cs.generate()
	if err := c.setOffset(n); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyLabels exports the first branch's columns under their
// table-qualified labels.
func (cs *CompoundSelect) ApplyLabels() *CompoundSelect {
	c := cs.generate()
	c.useLabels = true
	return c
}

// WithBind sets an explicit execution handle.
func (cs *CompoundSelect) WithBind(b Bind) *CompoundSelect {
	c := cs.generate()
	c.bind = b
	return c
}
