package sql

import "slices"

// aliasBase is shared by Alias and CTE.
type aliasBase struct {
	fromBase
	name     string
	element  FromClause
	original FromClause
}

// Alias is "element AS name". Its columns are proxies of the element's
// columns.
type Alias struct {
	aliasBase
}

// NewAlias wraps element under name. An empty name produces an anonymous
// label derived from the alias identity, based on the element's name when
// it has one.
func NewAlias(element FromClause, name string) *Alias {
	a := &Alias{}
	a.fromBase = newFromBase(a)
	a.init(element, name)
	return a
}

func (a *aliasBase) init(element FromClause, name string) {
	a.element = element
	a.original = baseSelectable(element)
	if name == "" {
		var base string
		if a.original.namedWithColumn() {
			_, base = SelectableName(a.original)
		}
		name = anonymousLabel(a.ID(), base)
	}
	a.name = name
}

// baseSelectable unwraps nested aliases.
func baseSelectable(f FromClause) FromClause {
	for {
		switch x := f.(type) {
		case *Alias:
			f = x.element
		case *CTE:
			f = x.element
		default:
			return f
		}
	}
}

// Name returns the alias name, which may be an anonymous label.
func (a *aliasBase) Name() string { return a.name }

// Element returns the aliased selectable.
func (a *aliasBase) Element() FromClause { return a.element }

// Original returns the innermost non-alias selectable.
func (a *aliasBase) Original() FromClause { return a.original }

func (a *aliasBase) Description() string   { return a.name }
func (a *aliasBase) namedWithColumn() bool { return true }

func (a *Alias) VisitName() string { return "alias" }

// AsScalar returns the scalar form of the aliased select.
func (a *aliasBase) AsScalar() (*ScalarSelect, error) {
	switch x := a.element.(type) {
	case SelectBase:
		return x.AsScalar(), nil
	case *Alias:
		return x.AsScalar()
	case *CTE:
		return x.AsScalar()
	}
	return nil, &UnsupportedError{Op: "AsScalar", Element: a.element.Description()}
}

func (a *aliasBase) IsDerivedFrom(other FromClause) bool {
	return sameLineage(a.self, other) || a.element.IsDerivedFrom(other)
}

func (a *aliasBase) populateColumns(e *exportCache) {
	for _, c := range a.element.Columns().All() {
		e.add(c.makeProxy(a.self, "", ""))
	}
}

func (a *aliasBase) RefreshForNewColumn(col ColumnElement) (ColumnElement, error) {
	c, err := a.element.RefreshForNewColumn(col)
	if err != nil || c == nil || !a.populated() {
		return nil, err
	}
	p := c.makeProxy(a.self, "", "")
	a.appendExported(p)
	return p, nil
}

func (a *Alias) clone() ClauseElement {
	c := *a
	c.fromBase = a.fromBase.cloned(&c, a)
	return &c
}

func (a *aliasBase) copyInternals(clone func(ClauseElement) ClauseElement) {
	// aliased tables keep their exports
	if _, ok := a.element.(*TableClause); ok {
		return
	}
	a.resetExported()
	a.element = clone(a.element).(FromClause)
	a.original = baseSelectable(a.element)
}

func (a *aliasBase) Children() []ClauseElement { return []ClauseElement{a.element} }

func (a *aliasBase) Bind() Bind { return a.element.Bind() }

// CTE is a named auxiliary statement rendered in a WITH clause and
// referenced by name.
type CTE struct {
	aliasBase
	recursive bool
	cteAlias  *CTE
	restates  []*CTE
}

func newCTE(element FromClause, name string, recursive bool, cteAlias *CTE, restates []*CTE) *CTE {
	c := &CTE{recursive: recursive, cteAlias: cteAlias, restates: restates}
	c.fromBase = newFromBase(c)
	c.init(element, name)
	return c
}

// Recursive reports whether WITH RECURSIVE is required.
func (c *CTE) Recursive() bool { return c.recursive }

// AliasOf returns the CTE this one is an alias of, or nil.
func (c *CTE) AliasOf() *CTE { return c.cteAlias }

// Restates returns the earlier versions of a recursive CTE this one
// replaces.
func (c *CTE) Restates() []*CTE { return slices.Clone(c.restates) }

func (c *CTE) VisitName() string { return "cte" }

// Alias returns a reference to the CTE under another name.
func (c *CTE) Alias(name string) FromClause {
	return newCTE(c.original, name, c.recursive, c, nil)
}

func (c *CTE) aliasFlat(name string, _ bool) (FromClause, error) {
	return c.Alias(name), nil
}

// Union returns a CTE of the same name whose statement is the UNION of
// this one and other.
func (c *CTE) Union(other SelectBase) (*CTE, error) {
	return c.compound(other, KeywordUnion)
}

// UnionAll is Union with UNION ALL.
func (c *CTE) UnionAll(other SelectBase) (*CTE, error) {
	return c.compound(other, KeywordUnionAll)
}

func (c *CTE) compound(other SelectBase, keyword CompoundKeyword) (*CTE, error) {
	orig, ok := c.original.(SelectBase)
	if !ok {
		return nil, &UnsupportedError{Op: string(keyword), Element: c.original.Description()}
	}
	u, err := NewCompoundSelect(keyword, orig, other)
	if err != nil {
		return nil, err
	}
	return newCTE(u, c.name, c.recursive, nil, slices.Concat(c.restates, []*CTE{c})), nil
}

func (c *CTE) clone() ClauseElement {
	cp := *c
	cp.fromBase = c.fromBase.cloned(&cp, c)
	return &cp
}

// FromGrouping parenthesises a join or compound select in FROM position.
// Everything except rendering and cloning is delegated to the element.
type FromGrouping struct {
	fromBase
	element FromClause
}

// NewFromGrouping wraps element.
func NewFromGrouping(element FromClause) *FromGrouping {
	g := &FromGrouping{element: element}
	g.fromBase = newFromBase(g)
	return g
}

// Element returns the grouped selectable.
func (g *FromGrouping) Element() FromClause { return g.element }

func (g *FromGrouping) VisitName() string          { return "grouping" }
func (g *FromGrouping) Description() string        { return g.element.Description() }
func (g *FromGrouping) Columns() *ColumnCollection { return g.element.Columns() }
func (g *FromGrouping) C(key string) ColumnElement { return g.element.C(key) }
func (g *FromGrouping) PrimaryKey() *ColumnSet     { return g.element.PrimaryKey() }
func (g *FromGrouping) ForeignKeys() []*ForeignKey { return g.element.ForeignKeys() }
func (g *FromGrouping) Bind() Bind                 { return g.element.Bind() }
func (g *FromGrouping) hideFroms() []FromClause    { return g.element.hideFroms() }
func (g *FromGrouping) namedWithColumn() bool      { return g.element.namedWithColumn() }
func (g *FromGrouping) populated() bool            { return g.element.populated() }
func (g *FromGrouping) FromObjects() []FromClause  { return g.element.FromObjects() }
func (g *FromGrouping) Children() []ClauseElement  { return []ClauseElement{g.element} }

func (g *FromGrouping) IsDerivedFrom(other FromClause) bool {
	return sameLineage(g, other) || g.element.IsDerivedFrom(other)
}

func (g *FromGrouping) CorrespondingColumn(col ColumnElement, requireEmbedded bool) ColumnElement {
	return g.element.CorrespondingColumn(col, requireEmbedded)
}

func (g *FromGrouping) RefreshForNewColumn(col ColumnElement) (ColumnElement, error) {
	return g.element.RefreshForNewColumn(col)
}

func (g *FromGrouping) Alias(name string) FromClause {
	return NewFromGrouping(g.element.Alias(name))
}

func (g *FromGrouping) aliasFlat(name string, flat bool) (FromClause, error) {
	a, err := g.element.aliasFlat(name, flat)
	if err != nil {
		return nil, err
	}
	return NewFromGrouping(a), nil
}

func (g *FromGrouping) clone() ClauseElement {
	c := *g
	c.fromBase = g.fromBase.cloned(&c, g)
	return &c
}

func (g *FromGrouping) copyInternals(clone func(ClauseElement) ClauseElement) {
	g.element = clone(g.element).(FromClause)
}
