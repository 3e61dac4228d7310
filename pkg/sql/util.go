package sql

import (
	"cmp"
	"fmt"
	"slices"
)

// JoinCondition infers the ON clause between a and b from their foreign
// keys. When aSubset is given (the right side of a left-nested join) it is
// tried first. Finding no relationship, or relationships through more than
// one constraint, is an ArgumentError.
func JoinCondition(a, b, aSubset FromClause) (ColumnElement, error) {
	var (
		crit        []ColumnElement
		constraints = make(map[*ForeignKeyConstraint]bool)
	)
	for _, left := range []FromClause{aSubset, a} {
		if left == nil {
			continue
		}
		for _, fk := range sortedForeignKeys(b) {
			if col := fk.Referent(left); col != nil {
				crit = append(crit, Eq(col, fk.Parent))
				constraints[fk.constraint] = true
			}
		}
		if left != b {
			for _, fk := range sortedForeignKeys(left) {
				if col := fk.Referent(b); col != nil {
					crit = append(crit, Eq(col, fk.Parent))
					constraints[fk.constraint] = true
				}
			}
		}
		if len(crit) > 0 {
			break
		}
	}

	switch {
	case len(crit) == 0:
		hint := ""
		if _, ok := b.(*FromGrouping); ok {
			hint = errGroupingHint
		}
		return nil, &ArgumentError{
			Message: fmt.Sprintf(errNoReferentTable, a.Description(), b.Description(), hint),
			Err:     ErrNoForeignKeys,
		}
	case len(constraints) > 1:
		return nil, &ArgumentError{
			Message: fmt.Sprintf(errAmbiguousJoin, a.Description(), b.Description()),
			Err:     ErrAmbiguousForeignKeys,
		}
	case len(crit) == 1:
		return crit[0], nil
	}
	return And(crit...), nil
}

func sortedForeignKeys(f FromClause) []*ForeignKey {
	fks := f.ForeignKeys()
	slices.SortStableFunc(fks, func(x, y *ForeignKey) int {
		return cmp.Compare(x.Parent.ID(), y.Parent.ID())
	})
	return fks
}

// ReduceColumns removes columns that are redundant given the others: a
// column is dropped when it references another column in the list through
// a foreign key, or when an equality in clauses ties it to an earlier
// column. With onlySynonyms set, only columns of the same name are
// considered equivalent.
func ReduceColumns(cols []ColumnElement, onlySynonyms bool, clauses ...ClauseElement) *ColumnSet {
	omit := make(IDSet)

	for _, col := range cols {
		for _, fk := range proxyForeignKeys(col) {
			for _, c := range cols {
				if c.ID() == col.ID() {
					continue
				}
				if SharesLineage(fk.Column, c) && (!onlySynonyms || c.Name() == col.Name()) {
					omit.add(col.ID())
					break
				}
			}
			if omit.Has(col.ID()) {
				break
			}
		}
	}

	for _, clause := range clauses {
		if clause == nil {
			continue
		}
		Iterate(clause, func(e ClauseElement) bool {
			bin, ok := e.(*BinaryExpression)
			if !ok || bin.op != OpEq {
				return true
			}
			known := make(IDSet)
			for _, c := range cols {
				if !omit.Has(c.ID()) {
					known.union(c.ProxySet().IDs())
				}
			}
			if !known.Has(bin.left.ID()) || !known.Has(bin.right.ID()) {
				return true
			}
			for i := len(cols) - 1; i >= 0; i-- {
				c := cols[i]
				if SharesLineage(c, bin.right) && (!onlySynonyms || c.Name() == bin.left.Name()) {
					omit.add(c.ID())
					break
				}
			}
			return true
		})
	}

	out := newColumnSet()
	for _, c := range cols {
		if !omit.Has(c.ID()) {
			out.add(c)
		}
	}
	return out
}

// proxyForeignKeys returns the foreign keys of every column in col's
// lineage.
func proxyForeignKeys(col ColumnElement) []*ForeignKey {
	var out []*ForeignKey
	for _, m := range col.ProxySet().members {
		out = append(out, m.ForeignKeys()...)
	}
	return out
}
