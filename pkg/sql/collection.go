package sql

// ColumnConflict records a key in a ColumnCollection whose column was
// replaced by an unrelated column carrying the same key.
type ColumnConflict struct {
	Key         string
	Replaced    ColumnElement
	Replacement ColumnElement
}

// ColumnCollection is an ordered, key-addressed collection of columns.
// Inserting an existing key replaces the column in place (last wins). The
// replaced column stays visible to Contains but not to correspondence
// matching. Collections returned by a FromClause are read-only.
type ColumnCollection struct {
	keys      []string
	data      map[string]ColumnElement
	allIDs    IDSet
	conflicts []ColumnConflict
	frozen    bool
}

func newColumnCollection() *ColumnCollection {
	return &ColumnCollection{
		data:   make(map[string]ColumnElement),
		allIDs: make(IDSet),
	}
}

// Len returns the number of distinct keys.
func (c *ColumnCollection) Len() int {
	return len(c.keys)
}

// Get returns the column stored under key, or nil.
func (c *ColumnCollection) Get(key string) ColumnElement {
	return c.data[key]
}

// Has reports whether key is present.
func (c *ColumnCollection) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// At returns the column at position i in key order.
func (c *ColumnCollection) At(i int) ColumnElement {
	return c.data[c.keys[i]]
}

// Keys returns the keys in insertion order.
func (c *ColumnCollection) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// All returns the columns in key order.
func (c *ColumnCollection) All() []ColumnElement {
	out := make([]ColumnElement, len(c.keys))
	for i, k := range c.keys {
		out[i] = c.data[k]
	}
	return out
}

// Contains reports whether col itself, by identity, was ever added.
func (c *ColumnCollection) Contains(col ColumnElement) bool {
	if col == nil {
		return false
	}
	return c.allIDs.Has(col.ID())
}

// Conflicts returns the key replacements between unrelated columns that
// occurred while the collection was built.
func (c *ColumnCollection) Conflicts() []ColumnConflict {
	return c.conflicts
}

// ReadOnly reports whether the collection has been frozen.
func (c *ColumnCollection) ReadOnly() bool {
	return c.frozen
}

func (c *ColumnCollection) add(col ColumnElement) {
	c.set(col.Key(), col)
}

func (c *ColumnCollection) set(key string, col ColumnElement) {
	if existing, ok := c.data[key]; ok {
		if existing == col {
			return
		}
		if !SharesLineage(existing, col) {
			c.conflicts = append(c.conflicts, ColumnConflict{Key: key, Replaced: existing, Replacement: col})
		}
	} else {
		c.keys = append(c.keys, key)
	}
	c.data[key] = col
	c.allIDs.add(col.ID())
}

func (c *ColumnCollection) freeze() {
	c.frozen = true
}

// ColumnSet is an ordered set of columns keyed by identity.
type ColumnSet struct {
	cols []ColumnElement
	ids  IDSet
}

func newColumnSet(cols ...ColumnElement) *ColumnSet {
	s := &ColumnSet{ids: make(IDSet)}
	for _, c := range cols {
		s.add(c)
	}
	return s
}

func (s *ColumnSet) add(c ColumnElement) {
	if s.ids.Has(c.ID()) {
		return
	}
	s.ids.add(c.ID())
	s.cols = append(s.cols, c)
}

// Len returns the number of columns.
func (s *ColumnSet) Len() int {
	return len(s.cols)
}

// Contains reports whether c is a member.
func (s *ColumnSet) Contains(c ColumnElement) bool {
	return c != nil && s.ids.Has(c.ID())
}

// All returns the members in insertion order.
func (s *ColumnSet) All() []ColumnElement {
	out := make([]ColumnElement, len(s.cols))
	copy(out, s.cols)
	return out
}

// ProxySet is the lineage of a column: the column itself followed by every
// column it proxies, directly or transitively. Each member carries a
// tie-break weight used by CorrespondingColumn; it is 1 except for the
// branch columns of a CompoundSelect, which are weighted by position.
type ProxySet struct {
	members []ColumnElement
	weights map[NodeID]uint32
}

func (p *ProxySet) add(c ColumnElement, weight uint32) {
	if _, ok := p.weights[c.ID()]; ok {
		return
	}
	p.weights[c.ID()] = weight
	p.members = append(p.members, c)
}

// Members returns the columns in the lineage, starting with the owner.
func (p *ProxySet) Members() []ColumnElement {
	out := make([]ColumnElement, len(p.members))
	copy(out, p.members)
	return out
}

// Contains reports whether c is part of the lineage.
func (p *ProxySet) Contains(c ColumnElement) bool {
	_, ok := p.weights[c.ID()]
	return ok
}

// Weight returns the tie-break weight of c, or 0 when c is not a member.
func (p *ProxySet) Weight(c ColumnElement) uint32 {
	return p.weights[c.ID()]
}

// IDs returns the identities of the members.
func (p *ProxySet) IDs() IDSet {
	s := make(IDSet, len(p.members))
	for _, m := range p.members {
		s.add(m.ID())
	}
	return s
}

// Intersects reports whether the two lineages share a column.
func (p *ProxySet) Intersects(other *ProxySet) bool {
	small, large := p, other
	if len(small.members) > len(large.members) {
		small, large = large, small
	}
	for _, m := range small.members {
		if _, ok := large.weights[m.ID()]; ok {
			return true
		}
	}
	return false
}

func buildProxySet(self ColumnElement, refs []proxyRef) *ProxySet {
	p := &ProxySet{weights: make(map[NodeID]uint32)}
	p.add(self, 1)
	for _, r := range refs {
		p.add(r.col, r.weight)
		inner := r.col.ProxySet()
		for _, m := range inner.members {
			p.add(m, inner.weights[m.ID()])
		}
	}
	return p
}

// SharesLineage reports whether two columns have a common ancestor.
func SharesLineage(a, b ColumnElement) bool {
	return a.ProxySet().Intersects(b.ProxySet())
}
