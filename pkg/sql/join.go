package sql

import (
	"fmt"
	"slices"
)

// Join is "left [LEFT OUTER] JOIN right ON onclause".
type Join struct {
	fromBase
	left     FromClause
	right    FromClause
	onclause ColumnElement
	isOuter  bool
}

// NewJoin joins left and right. When onclause is nil it is inferred from
// the foreign keys between the two sides; no relationship or more than one
// is an ArgumentError wrapping ErrNoForeignKeys or ErrAmbiguousForeignKeys.
func NewJoin(left, right FromClause, onclause ColumnElement, isOuter bool) (*Join, error) {
	j := &Join{left: left, right: right.selfGroup(), onclause: onclause, isOuter: isOuter}
	j.fromBase = newFromBase(j)
	if onclause == nil {
		on, err := j.matchPrimaries(j.left, j.right)
		if err != nil {
			return nil, err
		}
		j.onclause = on
	}
	return j, nil
}

func (j *Join) matchPrimaries(left, right FromClause) (ColumnElement, error) {
	var leftRight FromClause
	if lj, ok := left.(*Join); ok {
		leftRight = lj.right
	}
	return JoinCondition(left, right, leftRight)
}

// Left returns the left side.
func (j *Join) Left() FromClause { return j.left }

// Right returns the right side, grouped if it is itself a join or a select.
func (j *Join) Right() FromClause { return j.right }

// Onclause returns the join condition.
func (j *Join) Onclause() ColumnElement { return j.onclause }

// IsOuter reports whether this is a LEFT OUTER JOIN.
func (j *Join) IsOuter() bool { return j.isOuter }

func (j *Join) VisitName() string { return "join" }

func (j *Join) Description() string {
	return fmt.Sprintf("Join object on %s(%d) and %s(%d)",
		j.left.Description(), j.left.ID(), j.right.Description(), j.right.ID())
}

func (j *Join) IsDerivedFrom(other FromClause) bool {
	return sameLineage(j, other) || j.left.IsDerivedFrom(other) || j.right.IsDerivedFrom(other)
}

func (j *Join) selfGroup() FromClause { return NewFromGrouping(j) }

func (j *Join) populateColumns(e *exportCache) {
	cols := slices.Concat(j.left.Columns().All(), j.right.Columns().All())

	var pks []ColumnElement
	for _, c := range cols {
		if c.IsPrimaryKey() {
			pks = append(pks, c)
		}
	}
	for _, c := range ReduceColumns(pks, false, j.onclause).All() {
		e.primaryKey.add(c)
	}
	for _, c := range cols {
		e.columns.set(joinKey(c), c)
		e.foreignKeys = append(e.foreignKeys, c.ForeignKeys()...)
	}
}

// joinKey is the key a column is exported under by a Join.
func joinKey(c ColumnElement) string {
	if l := c.DefaultLabel(); l != "" {
		return l
	}
	return c.Key()
}

func (j *Join) RefreshForNewColumn(col ColumnElement) (ColumnElement, error) {
	c, err := j.left.RefreshForNewColumn(col)
	if err != nil {
		return nil, err
	}
	if c == nil {
		if c, err = j.right.RefreshForNewColumn(col); err != nil {
			return nil, err
		}
	}
	if c == nil || !j.populated() {
		return nil, nil
	}
	e := j.exported()
	e.columns.frozen = false
	e.columns.set(joinKey(c), c)
	e.columns.freeze()
	e.foreignKeys = append(e.foreignKeys, c.ForeignKeys()...)
	if c.IsPrimaryKey() {
		e.primaryKey.add(c)
	}
	return c, nil
}

func (j *Join) clone() ClauseElement {
	c := *j
	c.fromBase = j.fromBase.cloned(&c, j)
	return &c
}

func (j *Join) copyInternals(clone func(ClauseElement) ClauseElement) {
	j.resetExported()
	j.left = clone(j.left).(FromClause)
	j.right = clone(j.right).(FromClause)
	j.onclause = clone(j.onclause).(ColumnElement)
}

func (j *Join) Children() []ClauseElement {
	return []ClauseElement{j.left, j.right, j.onclause}
}

// Select returns a SELECT of both sides with the join as its FROM.
func (j *Join) Select(where ...ColumnElement) *SelectStmt {
	return Select(j.left, j.right).Where(where...).SelectFrom(j)
}

func (j *Join) Bind() Bind {
	if b := j.left.Bind(); b != nil {
		return b
	}
	return j.right.Bind()
}

// Alias returns the join as a labeled subquery:
// (SELECT a.id AS a_id, b.id AS b_id ... FROM a JOIN b ON ...) AS name.
func (j *Join) Alias(name string) FromClause {
	return j.Select().ApplyLabels().withAutoCorrelate(false).Alias(name)
}

// FlatAlias aliases both sides individually and joins the aliases,
// rewriting the onclause against them.
func (j *Join) FlatAlias() (*Join, error) {
	f, err := j.aliasFlat("", true)
	if err != nil {
		return nil, err
	}
	return f.(*Join), nil
}

func (j *Join) aliasFlat(name string, flat bool) (FromClause, error) {
	if !flat {
		return j.Alias(name), nil
	}
	if name != "" {
		return nil, &ArgumentError{Message: errFlatAliasName}
	}
	left, err := j.left.aliasFlat("", true)
	if err != nil {
		return nil, err
	}
	right, err := j.right.aliasFlat("", true)
	if err != nil {
		return nil, err
	}
	adapter := NewClauseAdapter(left).Chain(NewClauseAdapter(right))
	on := adapter.Traverse(j.onclause).(ColumnElement)
	return NewJoin(left, right, on, j.isOuter)
}

func (j *Join) hideFroms() []FromClause {
	var out []FromClause
	for x := j; x != nil; {
		out = append(out, x.left.FromObjects()...)
		out = append(out, x.right.FromObjects()...)
		next, _ := x.origin.(*Join)
		x = next
	}
	return out
}

func (j *Join) FromObjects() []FromClause {
	out := []FromClause{j}
	out = append(out, j.onclause.FromObjects()...)
	out = append(out, j.left.FromObjects()...)
	return append(out, j.right.FromObjects()...)
}
