package sql

import (
	"slices"
	"sync"
	"sync/atomic"
)

// FromClause is anything that can appear in a FROM list: a table, an alias,
// a join, a grouping or a select used as a subquery.
//
// The exported collections (Columns, PrimaryKey, ForeignKeys) are derived
// lazily on first access, exactly once per instance, and are read-only
// afterwards. Clones start with an empty cache.
type FromClause interface {
	ClauseElement
	Coercible

	// Columns returns the exported columns.
	Columns() *ColumnCollection
	// C returns the exported column stored under key, or nil.
	C(key string) ColumnElement
	PrimaryKey() *ColumnSet
	ForeignKeys() []*ForeignKey
	// Description is a human readable name used in error messages.
	Description() string

	// IsDerivedFrom reports whether the receiver is, or was derived from,
	// other.
	IsDerivedFrom(other FromClause) bool
	// IsLexicalEquivalent reports whether the two share a cloned identity.
	IsLexicalEquivalent(other FromClause) bool
	// CorrespondingColumn returns the exported column whose lineage best
	// matches col, or nil.
	CorrespondingColumn(col ColumnElement, requireEmbedded bool) ColumnElement
	// CorrespondOnEquivalents is CorrespondingColumn with requireEmbedded
	// set, falling back to the columns equivalents lists for col.
	CorrespondOnEquivalents(col ColumnElement, equivalents map[NodeID][]ColumnElement) ColumnElement

	// Select returns a SELECT of all columns, filtered by where.
	Select(where ...ColumnElement) *SelectStmt
	// Count returns "SELECT count(col) AS tbl_row_count FROM self".
	Count(where ...ColumnElement) *SelectStmt
	// Join joins right with an inferred condition when onclause is nil.
	Join(right FromClause, onclause ColumnElement) (*Join, error)
	OuterJoin(right FromClause, onclause ColumnElement) (*Join, error)
	// Alias wraps the receiver under name; an empty name is anonymous.
	Alias(name string) FromClause
	// ReplaceSelectable returns a copy in which every reference to the
	// selectable alias was derived from is replaced by alias.
	ReplaceSelectable(old, alias FromClause) FromClause
	// RefreshForNewColumn propagates a column appended to an underlying
	// table into already populated exports. It returns the exported
	// counterpart, or nil when the receiver doesn't export it.
	RefreshForNewColumn(col ColumnElement) (ColumnElement, error)
	// Bind returns the execution handle, if any is set on the receiver or
	// the selectables it contains.
	Bind() Bind

	hideFroms() []FromClause
	selfGroup() FromClause
	cloneOf() FromClause
	namedWithColumn() bool
	populated() bool
	aliasFlat(name string, flat bool) (FromClause, error)
	populateColumns(e *exportCache)
}

// exportCache holds a FromClause's derived collections.
type exportCache struct {
	once        sync.Once
	done        atomic.Bool
	columns     *ColumnCollection
	primaryKey  *ColumnSet
	foreignKeys []*ForeignKey
}

// add stores a proxy together with its primary key and foreign key flags.
func (e *exportCache) add(c *ColumnClause) {
	e.columns.add(c)
	if c.primaryKey {
		e.primaryKey.add(c)
	}
	e.foreignKeys = append(e.foreignKeys, c.foreignKeys...)
}

// fromBase implements the FromClause behaviour shared by every variant.
// Generic algorithms dispatch through self so that variants can override
// the pieces they specialise.
type fromBase struct {
	identity
	self   FromClause
	origin FromClause
	exp    *exportCache
	bind   Bind
}

func newFromBase(self FromClause) fromBase {
	return fromBase{identity: newIdentity(), self: self, exp: &exportCache{}}
}

// cloned returns the base of a clone of the receiver. A populated export
// cache is shared until copyInternals resets it.
func (b fromBase) cloned(self, origin FromClause) fromBase {
	b.identity = b.identity.derive()
	b.self = self
	b.origin = origin
	if !b.exp.done.Load() {
		b.exp = &exportCache{}
	}
	return b
}

// generative returns the base of a modified copy: a fresh id, the same
// ancestry and an empty cache.
func (b fromBase) generative(self FromClause) fromBase {
	b.identity = b.identity.regenerate()
	b.self = self
	b.exp = &exportCache{}
	return b
}

func (b *fromBase) resetExported() {
	b.exp = &exportCache{}
}

func (b *fromBase) exported() *exportCache {
	e := b.exp
	e.once.Do(func() {
		e.columns = newColumnCollection()
		e.primaryKey = newColumnSet()
		b.self.populateColumns(e)
		e.columns.freeze()
		e.done.Store(true)
	})
	return e
}

func (b *fromBase) coercible() {}

func (b *fromBase) Columns() *ColumnCollection { return b.exported().columns }

func (b *fromBase) C(key string) ColumnElement { return b.self.Columns().Get(key) }

func (b *fromBase) PrimaryKey() *ColumnSet { return b.exported().primaryKey }

func (b *fromBase) ForeignKeys() []*ForeignKey {
	return slices.Clone(b.exported().foreignKeys)
}

func (b *fromBase) Description() string { return b.self.VisitName() }

func (b *fromBase) Children() []ClauseElement { return nil }

func (b *fromBase) FromObjects() []FromClause { return []FromClause{b.self} }

func (b *fromBase) copyInternals(func(ClauseElement) ClauseElement) { b.resetExported() }

func (b *fromBase) IsDerivedFrom(other FromClause) bool {
	return sameLineage(b.self, other)
}

func (b *fromBase) IsLexicalEquivalent(other FromClause) bool {
	return b.ClonedSet().Intersects(other.ClonedSet())
}

func (b *fromBase) CorrespondingColumn(col ColumnElement, requireEmbedded bool) ColumnElement {
	return correspondingColumn(b.self.Columns(), col, requireEmbedded)
}

func (b *fromBase) CorrespondOnEquivalents(col ColumnElement, equivalents map[NodeID][]ColumnElement) ColumnElement {
	return correspondOnEquivalents(b.self, col, equivalents)
}

func (b *fromBase) Select(where ...ColumnElement) *SelectStmt {
	return Select(b.self).Where(where...)
}

func (b *fromBase) Count(where ...ColumnElement) *SelectStmt {
	return countOf(b.self, where)
}

func (b *fromBase) Join(right FromClause, onclause ColumnElement) (*Join, error) {
	return NewJoin(b.self, right, onclause, false)
}

func (b *fromBase) OuterJoin(right FromClause, onclause ColumnElement) (*Join, error) {
	return NewJoin(b.self, right, onclause, true)
}

func (b *fromBase) Alias(name string) FromClause {
	return NewAlias(b.self, name)
}

func (b *fromBase) aliasFlat(name string, _ bool) (FromClause, error) {
	return b.self.Alias(name), nil
}

func (b *fromBase) ReplaceSelectable(_, alias FromClause) FromClause {
	return replaceSelectable(b.self, alias)
}

func (b *fromBase) RefreshForNewColumn(col ColumnElement) (ColumnElement, error) {
	if !b.self.populated() {
		return nil, nil
	}
	if c := b.self.Columns().Get(col.Key()); c != nil && c.ID() == col.ID() {
		return col, nil
	}
	return nil, nil
}

func (b *fromBase) Bind() Bind { return b.bind }

func (b *fromBase) hideFroms() []FromClause { return nil }

func (b *fromBase) selfGroup() FromClause { return b.self }

func (b *fromBase) cloneOf() FromClause { return b.origin }

func (b *fromBase) namedWithColumn() bool { return false }

func (b *fromBase) populated() bool { return b.exp.done.Load() }

func (b *fromBase) populateColumns(*exportCache) {}

// appendExported adds a proxy to an already populated cache.
func (b *fromBase) appendExported(c *ColumnClause) {
	e := b.exported()
	e.columns.frozen = false
	e.add(c)
	e.columns.freeze()
}

// AliasOf aliases from. With flat set a Join aliases its sides
// individually instead of becoming a subquery.
func AliasOf(from FromClause, name string, flat bool) (FromClause, error) {
	return from.aliasFlat(name, flat)
}

func replaceSelectable(from, alias FromClause) FromClause {
	return NewClauseAdapter(alias).Traverse(from).(FromClause)
}

func countOf(from FromClause, where []ColumnElement) *SelectStmt {
	var col ColumnElement
	if pk := from.PrimaryKey(); pk.Len() > 0 {
		col = pk.cols[0]
	} else if cols := from.Columns(); cols.Len() > 0 {
		col = cols.At(0)
	}
	var fn *FunctionCall
	if col != nil {
		fn = Func("count", col)
	} else {
		fn = Func("count")
	}
	return Select(fn.Label("tbl_row_count")).Where(where...).SelectFrom(from)
}

// correspondingColumn finds the member of cols whose lineage best matches
// target. The widest overlap wins; equal overlaps prefer the candidate
// whose shared lineage carries the smallest total weight.
func correspondingColumn(cols *ColumnCollection, target ColumnElement, requireEmbedded bool) ColumnElement {
	if target == nil {
		return nil
	}
	if cols.Contains(target) {
		return target
	}
	targetSet := target.ProxySet()
	targetIDs := targetSet.IDs()

	var (
		best      ColumnElement
		bestMatch IDSet
	)
	for _, c := range cols.All() {
		expanded := expandCloned(c.ProxySet().members...)
		match := make(IDSet)
		for id := range targetIDs {
			if expanded.Has(id) {
				match.add(id)
			}
		}
		if len(match) == 0 {
			continue
		}
		if requireEmbedded && !embedded(expanded, targetSet) {
			continue
		}
		switch {
		case best == nil, len(match) > len(bestMatch):
			best, bestMatch = c, match
		case match.Equal(bestMatch):
			if lineageWeight(c, target) < lineageWeight(best, target) {
				best, bestMatch = c, match
			}
		}
	}
	return best
}

// embedded reports whether every target member outside expanded is reachable
// from it through cloning.
func embedded(expanded IDSet, target *ProxySet) bool {
	for _, t := range target.members {
		if expanded.Has(t.ID()) {
			continue
		}
		if !t.ClonedSet().Intersects(expanded) {
			return false
		}
	}
	return true
}

func lineageWeight(c, target ColumnElement) uint32 {
	var sum uint32
	ps := c.ProxySet()
	for _, m := range ps.members {
		if SharesLineage(m, target) {
			sum += ps.weights[m.ID()]
		}
	}
	return sum
}

func correspondOnEquivalents(from FromClause, col ColumnElement, equivalents map[NodeID][]ColumnElement) ColumnElement {
	if c := from.CorrespondingColumn(col, true); c != nil {
		return c
	}
	for _, equiv := range equivalents[col.ID()] {
		if c := from.CorrespondingColumn(equiv, true); c != nil {
			return c
		}
	}
	return nil
}

// TextFrom is raw SQL text in FROM position.
type TextFrom struct {
	fromBase
	text string
}

// NewTextFrom creates a FROM source from raw text.
func NewTextFrom(text string) *TextFrom {
	t := &TextFrom{text: text}
	t.fromBase = newFromBase(t)
	return t
}

// SQL returns the text.
func (t *TextFrom) SQL() string { return t.text }

func (t *TextFrom) VisitName() string    { return "text_from" }
func (t *TextFrom) Description() string  { return t.text }
func (t *TextFrom) clone() ClauseElement { return t }
