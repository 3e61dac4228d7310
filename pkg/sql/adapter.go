package sql

// ClauseAdapter rewrites expressions so that they reference a derived
// selectable, typically an alias, instead of the selectable it was derived
// from. Columns are matched through CorrespondingColumn, falling back to
// an equivalents map.
type ClauseAdapter struct {
	selectable  FromClause
	equivalents map[NodeID][]ColumnElement
	next        *ClauseAdapter
}

// AdapterOption configures a ClauseAdapter.
type AdapterOption func(*ClauseAdapter)

// WithEquivalents supplies columns to try when a column has no direct
// counterpart in the target selectable, keyed by the column's id.
func WithEquivalents(equivalents map[NodeID][]ColumnElement) AdapterOption {
	return func(a *ClauseAdapter) {
		a.equivalents = equivalents
	}
}

// NewClauseAdapter creates an adapter targeting selectable.
func NewClauseAdapter(selectable FromClause, opts ...AdapterOption) *ClauseAdapter {
	a := &ClauseAdapter{selectable: selectable}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Selectable returns the adapter's target.
func (a *ClauseAdapter) Selectable() FromClause { return a.selectable }

// Chain returns an adapter that applies a and then next.
func (a *ClauseAdapter) Chain(next *ClauseAdapter) *ClauseAdapter {
	c := *a
	if a.next != nil {
		c.next = a.next.Chain(next)
	} else {
		c.next = next
	}
	return &c
}

// Traverse returns an adapted copy of elem.
func (a *ClauseAdapter) Traverse(elem ClauseElement) ClauseElement {
	if elem == nil {
		return nil
	}
	out := ReplacementTraverse(elem, []ClauseElement{a.selectable}, a.Replace)
	if a.next != nil {
		return a.next.Traverse(out)
	}
	return out
}

// Replace returns the substitute for elem, or nil to keep descending.
func (a *ClauseAdapter) Replace(elem ClauseElement) ClauseElement {
	switch x := elem.(type) {
	case FromClause:
		if a.selectable.IsDerivedFrom(x) {
			return a.selectable
		}
		return nil
	case ColumnElement:
		if c := a.correspondingColumn(x, make(IDSet)); c != nil {
			return c
		}
	}
	return nil
}

func (a *ClauseAdapter) correspondingColumn(col ColumnElement, seen IDSet) ColumnElement {
	if c := a.selectable.CorrespondingColumn(col, true); c != nil {
		return c
	}
	seen.add(col.ID())
	for _, equiv := range a.equivalents[col.ID()] {
		if seen.Has(equiv.ID()) {
			continue
		}
		if c := a.correspondingColumn(equiv, seen); c != nil {
			return c
		}
	}
	return nil
}
