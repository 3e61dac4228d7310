package sql

import (
	"fmt"
	"slices"
	"strings"
)

// SelectBase is implemented by SelectStmt and CompoundSelect.
type SelectBase interface {
	FromClause

	// AsScalar returns the statement as a parenthesised scalar subquery.
	AsScalar() *ScalarSelect
	// Label returns the scalar form under name.
	Label(name string) *Label
	// CTE wraps the statement in a common table expression.
	CTE(name string, recursive bool) *CTE
	// ScalarType is the type of the first column.
	ScalarType() TypeDescriptor
	UseLabels() bool
	OrderByClauses() []ColumnElement
	GroupByClauses() []ColumnElement
	LimitValue() (int, bool)
	OffsetValue() (int, bool)
}

// selectState is the state shared by SelectStmt and CompoundSelect.
type selectState struct {
	useLabels bool
	limit     int
	offset    int
	hasLimit  bool
	hasOffset bool
	orderBy   []ColumnElement
	groupBy   []ColumnElement
}

// UseLabels reports whether exported columns are table-qualified.
func (s *selectState) UseLabels() bool { return s.useLabels }

// OrderByClauses returns the ORDER BY expressions.
func (s *selectState) OrderByClauses() []ColumnElement { return slices.Clone(s.orderBy) }

// GroupByClauses returns the GROUP BY expressions.
func (s *selectState) GroupByClauses() []ColumnElement { return slices.Clone(s.groupBy) }

// LimitValue returns the LIMIT and whether one is set.
func (s *selectState) LimitValue() (int, bool) { return s.limit, s.hasLimit }

// OffsetValue returns the OFFSET and whether one is set.
func (s *selectState) OffsetValue() (int, bool) { return s.offset, s.hasOffset }

// appendClauses extends list. A single nil clause resets it.
func appendClauses(list []ColumnElement, clauses []ColumnElement) []ColumnElement {
	if len(clauses) == 1 && clauses[0] == nil {
		return nil
	}
	out := slices.Clone(list)
	for _, c := range clauses {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (s *selectState) setLimit(n int) error {
	if n < 0 {
		return &ArgumentError{Message: fmt.Sprintf(errNegativeValue, "limit", n)}
	}
	s.limit, s.hasLimit = n, true
	return nil
}

func (s *selectState) setOffset(n int) error {
	if n < 0 {
		return &ArgumentError{Message: fmt.Sprintf(errNegativeValue, "offset", n)}
	}
	s.offset, s.hasOffset = n, true
	return nil
}

func (s *selectState) cloneClauses(clone func(ClauseElement) ClauseElement) {
	s.orderBy = cloneColumns(s.orderBy, clone)
	s.groupBy = cloneColumns(s.groupBy, clone)
}

// Hint is a dialect-specific table hint. "%(name)s" in Text is replaced by
// the rendered name of Selectable.
type Hint struct {
	Selectable FromClause
	Text       string
	Dialect    string
}

type clonedFrom struct {
	original FromClause
	clone    FromClause
}

// SelectStmt is a SELECT statement. All mutators are generative: they
// return a modified copy and leave the receiver untouched.
//
// The FROM list is not stored. It is derived on every request from the
// columns clause, the WHERE clause and the explicit FROM objects, in that
// order, and then filtered by correlation.
type SelectStmt struct {
	fromBase
	selectState
	rawColumns      []ColumnElement
	columnFroms     []FromClause
	where           ColumnElement
	having          ColumnElement
	distinct        bool
	distinctOn      []ColumnElement
	fromObj         []FromClause
	fromCloned      map[NodeID]clonedFrom
	correlate       []FromClause
	correlateExcept []FromClause
	exceptSet       bool
	autoCorrelate   bool
	prefixes        []*TextClause
	hints           []Hint
}

// Select creates a SELECT of columns. A FromClause among them contributes
// all of its columns and is itself a FROM source, so selecting a join
// renders the join.
func Select(columns ...Coercible) *SelectStmt {
	s := &SelectStmt{autoCorrelate: true}
	s.fromBase = newFromBase(s)
	s.rawColumns, s.columnFroms = coerceColumnList(columns)
	return s
}

func coerceColumnList(columns []Coercible) ([]ColumnElement, []FromClause) {
	var cols []ColumnElement
	var froms []FromClause
	for _, c := range columns {
		if c == nil {
			continue
		}
		cols = append(cols, CoerceColumns(c)...)
		froms = append(froms, columnSource(c)...)
	}
	return cols, froms
}

// columnSource returns the FROM objects of a selectable used in column
// position.
func columnSource(c Coercible) []FromClause {
	switch x := c.(type) {
	case ColumnElement:
		return nil
	case FromClause:
		return x.FromObjects()
	case Mapped:
		if x.Entity != nil {
			return x.Entity.Selectable().FromObjects()
		}
	}
	return nil
}

func (s *SelectStmt) generate() *SelectStmt {
	c := *s
	c.fromBase = s.fromBase.generative(&c)
	return &c
}

func (s *SelectStmt) VisitName() string   { return "select" }
func (s *SelectStmt) Description() string { return "Select object" }

// InnerColumns returns the expressions rendered in the columns clause.
func (s *SelectStmt) InnerColumns() []ColumnElement { return slices.Clone(s.rawColumns) }

// WhereClause returns the WHERE criterion, or nil.
func (s *SelectStmt) WhereClause() ColumnElement { return s.where }

// HavingClause returns the HAVING criterion, or nil.
func (s *SelectStmt) HavingClause() ColumnElement { return s.having }

// IsDistinct reports whether DISTINCT applies.
func (s *SelectStmt) IsDistinct() bool { return s.distinct }

// DistinctOn returns the DISTINCT ON expressions.
func (s *SelectStmt) DistinctOn() []ColumnElement { return slices.Clone(s.distinctOn) }

// Prefixes returns the text rendered between SELECT and the columns.
func (s *SelectStmt) Prefixes() []*TextClause { return slices.Clone(s.prefixes) }

// Hints returns the table hints.
func (s *SelectStmt) Hints() []Hint { return slices.Clone(s.hints) }

// ExplicitFroms returns the FROM objects added with SelectFrom.
func (s *SelectStmt) ExplicitFroms() []FromClause { return slices.Clone(s.fromObj) }

// froms collects the FROM sources referenced by the statement,
// de-duplicated by clone identity.
func (s *SelectStmt) froms() []FromClause {
	var out []FromClause
	seen := make(IDSet)
	add := func(items []FromClause) {
		for _, item := range items {
			if t, ok := s.fromCloned[item.ID()]; ok {
				item = t.clone
			}
			cs := item.ClonedSet()
			if !seen.Intersects(cs) {
				out = append(out, item)
			}
			seen.union(cs)
		}
	}
	add(s.columnFroms)
	add(fromsOf(s.rawColumns...))
	if s.where != nil {
		add(s.where.FromObjects())
	}
	add(s.fromObj)
	return out
}

// Froms returns the FROM list as rendered at the top level.
func (s *SelectStmt) Froms() []FromClause {
	froms, _ := s.DisplayFroms(nil, nil)
	return froms
}

// DisplayFroms returns the FROM list to render when the statement is nested
// in statements providing explicit (all enclosing) and implicit (the
// immediately enclosing) FROM sources. Auto-correlation that would remove
// every source is an InvalidRequestError.
func (s *SelectStmt) DisplayFroms(explicit, implicit []FromClause) ([]FromClause, error) {
	froms := s.froms()

	toRemove := make(IDSet)
	for _, f := range froms {
		toRemove.union(expandCloned(f.hideFroms()...))
	}
	if len(toRemove) > 0 {
		for _, cf := range s.fromCloned {
			if toRemove.Has(cf.original.ID()) && cf.clone.IsLexicalEquivalent(cf.original) {
				toRemove.add(cf.clone.ID())
			}
		}
		froms = slices.DeleteFunc(froms, func(f FromClause) bool {
			return toRemove.Has(f.ID())
		})
	}

	if len(s.correlate) > 0 {
		froms = withoutFroms(froms, clonedIntersection(clonedIntersection(froms, explicit), s.correlate))
	}
	if s.exceptSet {
		froms = withoutFroms(froms, clonedDifference(clonedIntersection(froms, explicit), s.correlateExcept))
	}
	if s.autoCorrelate && len(implicit) > 0 && len(froms) > 1 {
		all := froms
		froms = withoutFroms(froms, clonedIntersection(froms, implicit))
		if len(froms) == 0 {
			names := make([]string, len(all))
			for i, f := range all {
				names[i] = f.Description()
			}
			return nil, &InvalidRequestError{Message: fmt.Sprintf(errNoFromsCorrelated, strings.Join(names, ", "))}
		}
	}
	return froms, nil
}

func withoutFroms(froms, remove []FromClause) []FromClause {
	if len(remove) == 0 {
		return froms
	}
	ids := make(IDSet, len(remove))
	for _, r := range remove {
		ids.add(r.ID())
	}
	return slices.DeleteFunc(slices.Clone(froms), func(f FromClause) bool {
		return ids.Has(f.ID())
	})
}

// uniqueFroms appends items not already present by identity.
func uniqueFroms(list []FromClause, items ...FromClause) []FromClause {
	out := slices.Clone(list)
	for _, item := range items {
		if !slices.ContainsFunc(out, func(f FromClause) bool { return f.ID() == item.ID() }) {
			out = append(out, item)
		}
	}
	return out
}

// LocateAllFroms returns every FROM source referenced by the statement,
// including those rendered inside joins.
func (s *SelectStmt) LocateAllFroms() []FromClause {
	froms := s.froms()
	out := slices.Clone(froms)
	for _, f := range froms {
		out = append(out, f.FromObjects()...)
	}
	return out
}

func (s *SelectStmt) IsDerivedFrom(other FromClause) bool {
	if sameLineage(s, other) {
		return true
	}
	for _, f := range s.LocateAllFroms() {
		if f != FromClause(s) && f.IsDerivedFrom(other) {
			return true
		}
	}
	return false
}

// Type is not available on a full SELECT; use AsScalar.
func (s *SelectStmt) Type() (TypeDescriptor, error) {
	return nil, &InvalidRequestError{Message: errSelectHasNoType}
}

// ScalarType returns the type of the first column.
func (s *SelectStmt) ScalarType() TypeDescriptor {
	if len(s.rawColumns) == 0 {
		return NullType
	}
	return s.rawColumns[0].Type()
}

type columnName struct {
	name string
	col  ColumnElement
}

// ResultColumn is one entry of the rendered columns clause. Name is the
// label applied by ApplyLabels; it is empty when no label applies.
type ResultColumn struct {
	Name   string
	Column ColumnElement
}

// ResultColumns returns the columns clause with duplicates removed and
// labels resolved.
func (s *SelectStmt) ResultColumns() []ResultColumn {
	cns := s.columnsPlusNames()
	out := make([]ResultColumn, len(cns))
	for i, cn := range cns {
		out[i] = ResultColumn{Name: cn.name, Column: cn.col}
	}
	return out
}

func (s *SelectStmt) columnsPlusNames() []columnName {
	seen := make(IDSet)
	names := make(map[string]bool)
	var out []columnName
	for _, c := range s.rawColumns {
		if seen.Has(c.ID()) {
			continue
		}
		seen.add(c.ID())
		if !s.useLabels {
			out = append(out, columnName{col: c})
			continue
		}
		name := c.DefaultLabel()
		if name != "" {
			if names[name] {
				name = c.AnonLabel()
			} else {
				names[name] = true
			}
		}
		out = append(out, columnName{name: name, col: c})
	}
	return out
}

func (s *SelectStmt) populateColumns(e *exportCache) {
	for _, cn := range s.columnsPlusNames() {
		if _, ok := cn.col.(*TextClause); ok {
			continue
		}
		var key string
		if cn.name != "" && s.useLabels {
			key = cn.col.KeyLabel()
			if key != "" && e.columns.Has(key) {
				key = cn.col.AnonLabel()
			}
		}
		e.add(cn.col.makeProxy(s, cn.name, key))
	}
}

func (s *SelectStmt) RefreshForNewColumn(col ColumnElement) (ColumnElement, error) {
	for _, f := range s.froms() {
		c, err := f.RefreshForNewColumn(col)
		if err != nil {
			return nil, err
		}
		if c == nil {
			continue
		}
		if !s.populated() || !slices.ContainsFunc(s.rawColumns, func(r ColumnElement) bool { return r.ID() == c.ID() }) {
			return nil, nil
		}
		ours, name, key := c.Key(), "", ""
		if s.useLabels {
			ours, name, key = c.KeyLabel(), c.DefaultLabel(), c.KeyLabel()
		}
		if s.Columns().Has(ours) {
			return nil, nil
		}
		p := c.makeProxy(s, name, key)
		s.appendExported(p)
		return p, nil
	}
	return nil, nil
}

func (s *SelectStmt) clone() ClauseElement {
	c := *s
	c.fromBase = s.fromBase.cloned(&c, s)
	return &c
}

func (s *SelectStmt) copyInternals(clone func(ClauseElement) ClauseElement) {
	fromCloned := make(map[NodeID]clonedFrom)
	for _, f := range uniqueFroms(s.fromObj, s.froms()...) {
		fromCloned[f.ID()] = clonedFrom{original: f, clone: clone(f).(FromClause)}
	}
	// sources translated by an earlier clone map to the newest clone
	for id, prev := range s.fromCloned {
		if next, ok := fromCloned[prev.clone.ID()]; ok {
			fromCloned[id] = clonedFrom{original: prev.original, clone: next.clone}
		}
	}
	s.fromCloned = fromCloned

	fromObj := make([]FromClause, len(s.fromObj))
	for i, f := range s.fromObj {
		fromObj[i] = fromCloned[f.ID()].clone
	}
	s.fromObj = fromObj

	columnFroms := make([]FromClause, len(s.columnFroms))
	for i, f := range s.columnFroms {
		if t, ok := fromCloned[f.ID()]; ok {
			columnFroms[i] = t.clone
		} else {
			columnFroms[i] = clone(f).(FromClause)
		}
	}
	s.columnFroms = columnFroms

	correlate := make([]FromClause, 0, 2*len(s.correlate))
	for _, f := range s.correlate {
		correlate = append(correlate, clone(f).(FromClause))
	}
	s.correlate = uniqueFroms(correlate, s.correlate...)

	s.rawColumns = cloneColumns(s.rawColumns, clone)
	if s.where != nil {
		s.where = clone(s.where).(ColumnElement)
	}
	if s.having != nil {
		s.having = clone(s.having).(ColumnElement)
	}
	s.cloneClauses(clone)
	s.resetExported()
}

func (s *SelectStmt) Children() []ClauseElement {
	out := asClauses(s.rawColumns)
	out = append(out, asClauses(s.froms())...)
	if s.where != nil {
		out = append(out, s.where)
	}
	if s.having != nil {
		out = append(out, s.having)
	}
	out = append(out, asClauses(s.orderBy)...)
	return append(out, asClauses(s.groupBy)...)
}

func (s *SelectStmt) selfGroup() FromClause { return NewFromGrouping(s) }

// Bind returns the explicit bind, else the bind of the first FROM source,
// else that of a column's table.
func (s *SelectStmt) Bind() Bind {
	if s.bind != nil {
		return s.bind
	}
	froms := s.froms()
	if len(froms) > 0 {
		return froms[0].Bind()
	}
	for _, c := range s.rawColumns {
		if t := c.Table(); t != nil {
			if b := t.Bind(); b != nil {
				return b
			}
		}
	}
	return nil
}

// AsScalar returns the statement as a scalar subquery.
func (s *SelectStmt) AsScalar() *ScalarSelect { return newScalarSelect(s) }

// Label returns the scalar subquery under name.
func (s *SelectStmt) Label(name string) *Label { return As(s.AsScalar(), name) }

// CTE wraps the statement in a common table expression.
func (s *SelectStmt) CTE(name string, recursive bool) *CTE {
	return newCTE(s, name, recursive, nil, nil)
}

// Where ANDs clauses onto the WHERE criterion.
func (s *SelectStmt) Where(clauses ...ColumnElement) *SelectStmt {
	c := s.generate()
	c.where = And(slices.Concat([]ColumnElement{s.where}, clauses)...)
	return c
}

// Having ANDs clauses onto the HAVING criterion.
func (s *SelectStmt) Having(clauses ...ColumnElement) *SelectStmt {
	c := s.generate()
	c.having = And(slices.Concat([]ColumnElement{s.having}, clauses)...)
	return c
}

// OrderBy appends ORDER BY expressions. A single nil argument clears them.
func (s *SelectStmt) OrderBy(clauses ...ColumnElement) *SelectStmt {
	c := s.generate()
	c.orderBy = appendClauses(s.orderBy, clauses)
	return c
}

// GroupBy appends GROUP BY expressions. A single nil argument clears them.
func (s *SelectStmt) GroupBy(clauses ...ColumnElement) *SelectStmt {
	c := s.generate()
	c.groupBy = appendClauses(s.groupBy, clauses)
	return c
}

// Limit sets LIMIT.
func (s *SelectStmt) Limit(n int) (*SelectStmt, error) {
	c := s.generate()
	if err := c.setLimit(n); err != nil {
		return nil, err
	}
	return c, nil
}

// Offset sets OFFSET.
func (s *SelectStmt) Offset(n int) (*SelectStmt, error) {
	c := s.generate()
	if err := c.setOffset(n); err != nil {
		return nil, err
	}
	return c, nil
}

// Distinct applies DISTINCT, or DISTINCT ON (exprs) when exprs are given.
func (s *SelectStmt) Distinct(exprs ...ColumnElement) *SelectStmt {
	c := s.generate()
	c.distinct = true
	if len(exprs) == 0 {
		c.distinctOn = nil
	} else {
		c.distinctOn = slices.Concat(s.distinctOn, exprs)
	}
	return c
}

// SelectFrom adds explicit FROM sources. A join that contains an already
// present source hides it from the FROM list.
func (s *SelectStmt) SelectFrom(froms ...FromClause) *SelectStmt {
	c := s.generate()
	c.fromObj = uniqueFroms(s.fromObj, froms...)
	return c
}

// Correlate disables auto-correlation and adds froms to the sources that
// may be correlated to an enclosing statement. Correlate(nil) correlates
// nothing.
func (s *SelectStmt) Correlate(froms ...FromClause) *SelectStmt {
	c := s.generate()
	c.autoCorrelate = false
	if len(froms) > 0 && froms[0] == nil {
		c.correlate = nil
	} else {
		c.correlate = uniqueFroms(s.correlate, froms...)
	}
	return c
}

// CorrelateExcept disables auto-correlation for froms, which always render
// locally. CorrelateExcept(nil) correlates everything.
func (s *SelectStmt) CorrelateExcept(froms ...FromClause) *SelectStmt {
	c := s.generate()
	c.autoCorrelate = false
	c.exceptSet = true
	if len(froms) > 0 && froms[0] == nil {
		c.correlateExcept = nil
	} else {
		c.correlateExcept = uniqueFroms(s.correlateExcept, froms...)
	}
	return c
}

func (s *SelectStmt) withAutoCorrelate(on bool) *SelectStmt {
	c := s.generate()
	c.autoCorrelate = on
	return c
}

// WithOnlyColumns replaces the columns clause. FROM sources implied only by
// the previous columns disappear.
func (s *SelectStmt) WithOnlyColumns(columns ...Coercible) *SelectStmt {
	c := s.generate()
	c.rawColumns, c.columnFroms = coerceColumnList(columns)
	return c
}

// Column appends to the columns clause.
func (s *SelectStmt) Column(col Coercible) *SelectStmt {
	c := s.generate()
	c.rawColumns = slices.Concat(s.rawColumns, CoerceColumns(col))
	c.columnFroms = slices.Concat(s.columnFroms, columnSource(col))
	return c
}

// ApplyLabels exports columns as "<table>_<column>".
func (s *SelectStmt) ApplyLabels() *SelectStmt {
	c := s.generate()
	c.useLabels = true
	return c
}

// ReduceColumns removes columns that are equivalent to another through a
// foreign key or an equality in the WHERE clause or explicit joins.
func (s *SelectStmt) ReduceColumns(onlySynonyms bool) *SelectStmt {
	var clauses []ClauseElement
	if s.where != nil {
		clauses = append(clauses, s.where)
	}
	for _, f := range s.fromObj {
		clauses = append(clauses, f)
	}
	reduced := ReduceColumns(s.rawColumns, onlySynonyms, clauses...).All()
	cols := make([]Coercible, len(reduced))
	for i, r := range reduced {
		cols[i] = r
	}
	return s.WithOnlyColumns(cols...)
}

// PrefixWith adds text between SELECT and the columns clause.
func (s *SelectStmt) PrefixWith(texts ...string) *SelectStmt {
	c := s.generate()
	c.prefixes = slices.Clone(s.prefixes)
	for _, t := range texts {
		c.prefixes = append(c.prefixes, Text(t))
	}
	return c
}

// WithHint adds a table hint for one dialect, or all when dialect is "" or
// "*".
func (s *SelectStmt) WithHint(selectable FromClause, text, dialect string) *SelectStmt {
	if dialect == "" {
		dialect = "*"
	}
	c := s.generate()
	c.hints = append(slices.Clone(s.hints), Hint{Selectable: selectable, Text: text, Dialect: dialect})
	return c
}

// WithBind sets an explicit execution handle.
func (s *SelectStmt) WithBind(b Bind) *SelectStmt {
	c := s.generate()
	c.bind = b
	return c
}

// Union returns "s UNION others...".
func (s *SelectStmt) Union(others ...SelectBase) (*CompoundSelect, error) {
	return NewCompoundSelect(KeywordUnion, slices.Concat([]SelectBase{s}, others)...)
}

// UnionAll returns "s UNION ALL others...".
func (s *SelectStmt) UnionAll(others ...SelectBase) (*CompoundSelect, error) {
	return NewCompoundSelect(KeywordUnionAll, slices.Concat([]SelectBase{s}, others)...)
}

// Except returns "s EXCEPT others...".
func (s *SelectStmt) Except(others ...SelectBase) (*CompoundSelect, error) {
	return NewCompoundSelect(KeywordExcept, slices.Concat([]SelectBase{s}, others)...)
}

// ExceptAll returns "s EXCEPT ALL others...".
func (s *SelectStmt) ExceptAll(others ...SelectBase) (*CompoundSelect, error) {
	return NewCompoundSelect(KeywordExceptAll, slices.Concat([]SelectBase{s}, others)...)
}

// Intersect returns "s INTERSECT others...".
func (s *SelectStmt) Intersect(others ...SelectBase) (*CompoundSelect, error) {
	return NewCompoundSelect(KeywordIntersect, slices.Concat([]SelectBase{s}, others)...)
}

// IntersectAll returns "s INTERSECT ALL others...".
func (s *SelectStmt) IntersectAll(others ...SelectBase) (*CompoundSelect, error) {
	return NewCompoundSelect(KeywordIntersectAll, slices.Concat([]SelectBase{s}, others)...)
}
