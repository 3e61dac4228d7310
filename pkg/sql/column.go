package sql

import "strconv"

// ColumnClause is a named column. It is either a table column, a proxy
// exported by a derived selectable, or an unbound column created with
// Column or LiteralColumn. Column clauses are immutable once attached:
// cloning returns the same instance.
type ColumnClause struct {
	columnBase
	name        string
	key         string
	table       FromClause
	isLiteral   bool
	primaryKey  bool
	nullable    bool
	foreignKeys []*ForeignKey
}

// ColumnOption configures a column created with Column.
type ColumnOption func(*ColumnClause)

// WithType sets the column's type.
func WithType(t TypeDescriptor) ColumnOption {
	return func(c *ColumnClause) {
		if t != nil {
			c.typ = t
		}
	}
}

// WithKey sets a collection key that differs from the column name.
func WithKey(key string) ColumnOption {
	return func(c *ColumnClause) {
		c.key = key
	}
}

// PrimaryKey marks the column as part of its table's primary key.
func PrimaryKey() ColumnOption {
	return func(c *ColumnClause) {
		c.primaryKey = true
		c.nullable = false
	}
}

// NotNull marks the column as not nullable.
func NotNull() ColumnOption {
	return func(c *ColumnClause) {
		c.nullable = false
	}
}

// References adds a single-column foreign key to target.
func References(target ColumnElement) ColumnOption {
	return func(c *ColumnClause) {
		c.foreignKeys = append(c.foreignKeys, &ForeignKey{
			Parent:     c,
			Column:     target,
			constraint: &ForeignKeyConstraint{id: newNodeID()},
		})
	}
}

func newColumnClause(name string, typ TypeDescriptor) *ColumnClause {
	return &ColumnClause{
		columnBase: newColumnBase(typ),
		name:       name,
		key:        name,
		nullable:   true,
	}
}

// Column creates an unattached column. Pass it to Table to attach it.
func Column(name string, opts ...ColumnOption) *ColumnClause {
	c := newColumnClause(name, nil)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LiteralColumn creates a column whose name is rendered verbatim, without
// quoting or table qualification.
func LiteralColumn(text string, typ TypeDescriptor) *ColumnClause {
	c := newColumnClause(text, typ)
	c.isLiteral = true
	return c
}

// VisitName returns "column".
func (c *ColumnClause) VisitName() string { return "column" }

// Children returns nil.
func (c *ColumnClause) Children() []ClauseElement { return nil }

// FromObjects returns the owning selectable, if any.
func (c *ColumnClause) FromObjects() []FromClause {
	if c.table == nil {
		return nil
	}
	return []FromClause{c.table}
}

func (c *ColumnClause) clone() ClauseElement { return c }

// Key returns the collection key.
func (c *ColumnClause) Key() string { return c.key }

// Name returns the column name.
func (c *ColumnClause) Name() string { return c.name }

// Table returns the owning selectable.
func (c *ColumnClause) Table() FromClause { return c.table }

// IsLiteral reports whether the name is rendered verbatim.
func (c *ColumnClause) IsLiteral() bool { return c.isLiteral }

// IsPrimaryKey reports whether the column is part of a primary key.
func (c *ColumnClause) IsPrimaryKey() bool { return c.primaryKey }

// Nullable reports whether the column accepts NULL.
func (c *ColumnClause) Nullable() bool { return c.nullable }

// ForeignKeys returns the column's foreign keys.
func (c *ColumnClause) ForeignKeys() []*ForeignKey { return c.foreignKeys }

// ProxySet returns the column's lineage.
func (c *ColumnClause) ProxySet() *ProxySet { return c.proxySetFor(c) }

// AnonLabel returns an anonymous label based on the column name.
func (c *ColumnClause) AnonLabel() string { return anonymousLabel(c.ID(), c.name) }

// DefaultLabel returns "<table>_<name>" for columns of named selectables,
// the plain name for unbound columns, and "" for literal columns.
func (c *ColumnClause) DefaultLabel() string { return c.genLabel(c.name) }

// KeyLabel is DefaultLabel computed from the key.
func (c *ColumnClause) KeyLabel() string {
	if c.key != c.name {
		return c.genLabel(c.key)
	}
	return c.DefaultLabel()
}

func (c *ColumnClause) genLabel(name string) string {
	if c.isLiteral {
		return ""
	}
	t := c.table
	if t == nil || !t.namedWithColumn() {
		return name
	}
	schema, tname := SelectableName(t)
	label := tname + "_" + name
	if schema != "" {
		label = schemaPrefix(schema) + "_" + label
	}
	// keep clear of keys already used by the owner
	cols := t.Columns()
	if cols.Has(label) {
		candidate := label
		for n := 1; cols.Has(candidate); n++ {
			candidate = label + "_" + strconv.Itoa(n)
		}
		label = candidate
	}
	return label
}

// Label returns the column under a new name.
func (c *ColumnClause) Label(name string) *Label {
	return As(c, name)
}

func (c *ColumnClause) makeProxy(owner FromClause, name, key string) *ColumnClause {
	n := name
	if n == "" {
		n = c.name
	}
	p := newColumnClause(n, c.typ)
	p.isLiteral = c.isLiteral && (name == "" || name == c.name)
	switch {
	case key != "":
		p.key = key
	case name != "":
		p.key = name
	default:
		p.key = c.key
	}
	p.table = owner
	p.primaryKey = c.primaryKey
	p.nullable = c.nullable
	p.proxies = []proxyRef{{col: c, weight: 1}}
	for _, fk := range c.foreignKeys {
		p.foreignKeys = append(p.foreignKeys, &ForeignKey{Parent: p, Column: fk.Column, constraint: fk.constraint})
	}
	p.linkToOrigin(owner)
	return p
}

// linkToOrigin ties a proxy of a cloned selectable to the same-keyed column
// of the selectable it was cloned from.
func (c *ColumnClause) linkToOrigin(owner FromClause) {
	origin := owner.cloneOf()
	if origin == nil {
		return
	}
	if oc := origin.Columns().Get(c.key); oc != nil {
		c.identity = c.identity.linkTo(oc)
	}
}

// copyAttached returns a copy of an attached column for reuse in another
// table.
func (c *ColumnClause) copyAttached() *ColumnClause {
	cp := *c
	cp.columnBase = newColumnBase(c.typ)
	cp.table = nil
	cp.foreignKeys = nil
	for _, fk := range c.foreignKeys {
		cp.foreignKeys = append(cp.foreignKeys, &ForeignKey{Parent: &cp, Column: fk.Column, constraint: fk.constraint})
	}
	return &cp
}

// ForeignKeyConstraint groups the foreign keys of a (possibly composite)
// constraint.
type ForeignKeyConstraint struct {
	Name string
	id   NodeID
}

// ForeignKey references a column of another selectable.
type ForeignKey struct {
	// Parent is the referencing column.
	Parent *ColumnClause
	// Column is the referenced column.
	Column     ColumnElement
	constraint *ForeignKeyConstraint
}

// Constraint returns the constraint the key belongs to.
func (fk *ForeignKey) Constraint() *ForeignKeyConstraint {
	return fk.constraint
}

// Referent returns the column of from that corresponds to the referenced
// column, or nil.
func (fk *ForeignKey) Referent(from FromClause) ColumnElement {
	return from.CorrespondingColumn(fk.Column, false)
}

// References reports whether the key points into from.
func (fk *ForeignKey) References(from FromClause) bool {
	return fk.Referent(from) != nil
}

// Label is a column expression under an explicit name.
type Label struct {
	columnBase
	name    string
	element ColumnElement
}

// As labels element with name.
func As(element ColumnElement, name string) *Label {
	l := &Label{
		columnBase: newColumnBase(element.Type()),
		name:       name,
		element:    element,
	}
	l.proxies = []proxyRef{{col: element, weight: 1}}
	return l
}

// Element returns the labeled expression.
func (l *Label) Element() ColumnElement { return l.element }

// VisitName returns "label".
func (l *Label) VisitName() string { return "label" }

// Children returns the labeled expression.
func (l *Label) Children() []ClauseElement { return []ClauseElement{l.element} }

// FromObjects returns the labeled expression's FROM sources.
func (l *Label) FromObjects() []FromClause { return l.element.FromObjects() }

func (l *Label) clone() ClauseElement {
	c := *l
	c.columnBase = l.columnBase.derived()
	return &c
}

func (l *Label) copyInternals(clone func(ClauseElement) ClauseElement) {
	l.element = clone(l.element).(ColumnElement)
	l.proxies = []proxyRef{{col: l.element, weight: 1}}
}

// Key returns the label name.
func (l *Label) Key() string { return l.name }

// Name returns the label name.
func (l *Label) Name() string { return l.name }

// DefaultLabel returns the label name.
func (l *Label) DefaultLabel() string { return l.name }

// KeyLabel returns the label name.
func (l *Label) KeyLabel() string { return l.name }

// AnonLabel returns an anonymous label based on the label name.
func (l *Label) AnonLabel() string { return anonymousLabel(l.ID(), l.name) }

// ProxySet returns the label followed by the lineage of its expression.
func (l *Label) ProxySet() *ProxySet { return l.proxySetFor(l) }

func (l *Label) makeProxy(owner FromClause, name, key string) *ColumnClause {
	if name == "" {
		name = l.name
	}
	p := l.element.makeProxy(owner, name, key)
	p.proxies = append(p.proxies, proxyRef{col: l, weight: 1})
	return p
}
