package sql

import (
	"fmt"
	"regexp"
	"strconv"
	"sync/atomic"
)

// NodeID is the opaque identity of a tree node. IDs are assigned from a
// process-wide monotonic counter when a node is constructed or cloned and
// never reused.
type NodeID uint64

var lastNodeID atomic.Uint64

func newNodeID() NodeID {
	return NodeID(lastNodeID.Add(1))
}

// IDSet is a set of node identities.
type IDSet map[NodeID]struct{}

// Has reports whether id is a member of the set.
func (s IDSet) Has(id NodeID) bool {
	_, ok := s[id]
	return ok
}

// Intersects reports whether the two sets share any member.
func (s IDSet) Intersects(other IDSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for id := range small {
		if _, ok := large[id]; ok {
			return true
		}
	}
	return false
}

// Equal reports whether both sets hold exactly the same members.
func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}

func (s IDSet) add(ids ...NodeID) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

func (s IDSet) union(other IDSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// identity tracks a node's own id and the ids of every node it was cloned
// from. Cloning extends the chain; a generative copy starts a new one.
type identity struct {
	chain []NodeID
}

func newIdentity() identity {
	return identity{chain: []NodeID{newNodeID()}}
}

// derive returns the identity of a clone of the receiver.
func (i identity) derive() identity {
	chain := make([]NodeID, 0, len(i.chain)+1)
	chain = append(chain, newNodeID())
	chain = append(chain, i.chain...)
	return identity{chain: chain}
}

// regenerate returns a fresh id that keeps the receiver's ancestry, for
// generative copies.
func (i identity) regenerate() identity {
	chain := make([]NodeID, 0, len(i.chain))
	chain = append(chain, newNodeID())
	chain = append(chain, i.chain[1:]...)
	return identity{chain: chain}
}

// linkTo extends the receiver's chain with another node's clone chain.
func (i identity) linkTo(other ClauseElement) identity {
	set := other.ClonedSet()
	chain := make([]NodeID, 0, len(i.chain)+len(set))
	chain = append(chain, i.chain...)
	for id := range set {
		chain = append(chain, id)
	}
	return identity{chain: chain}
}

// ID returns the node's identity.
func (i identity) ID() NodeID {
	return i.chain[0]
}

// ClonedSet returns the node's own id plus the ids of all nodes it was
// cloned from.
func (i identity) ClonedSet() IDSet {
	s := make(IDSet, len(i.chain))
	s.add(i.chain...)
	return s
}

// expandCloned returns the union of the cloned sets of elems.
func expandCloned[T ClauseElement](elems ...T) IDSet {
	s := make(IDSet)
	for _, e := range elems {
		s.union(e.ClonedSet())
	}
	return s
}

// sameLineage reports whether one node was cloned, directly or
// transitively, from the other.
func sameLineage(a, b ClauseElement) bool {
	return a.ClonedSet().Has(b.ID()) || b.ClonedSet().Has(a.ID())
}

// clonedIntersection returns the members of a whose cloned set overlaps the
// expanded cloned sets of b, preserving a's order.
func clonedIntersection(a, b []FromClause) []FromClause {
	overlap := expandCloned(b...)
	var out []FromClause
	for _, f := range a {
		if f.ClonedSet().Intersects(overlap) {
			out = append(out, f)
		}
	}
	return out
}

// clonedDifference returns the members of a whose cloned set does not
// overlap the expanded cloned sets of b.
func clonedDifference(a, b []FromClause) []FromClause {
	overlap := expandCloned(b...)
	var out []FromClause
	for _, f := range a {
		if !f.ClonedSet().Intersects(overlap) {
			out = append(out, f)
		}
	}
	return out
}

// anonymousLabel produces a placeholder name that the compiler resolves to
// "<base>_<n>", numbering distinct ids in order of first appearance.
func anonymousLabel(id NodeID, base string) string {
	if base == "" {
		base = "anon"
	}
	return fmt.Sprintf("%%(%d %s)s", id, base)
}

var anonLabelPattern = regexp.MustCompile(`%\((\d+) (.*?)\)s`)

// IsAnonymous reports whether name contains an unresolved anonymous label.
func IsAnonymous(name string) bool {
	return anonLabelPattern.MatchString(name)
}

// ResolveAnonymous replaces every anonymous label token in name using fn,
// which receives the owning node's id and the label base.
func ResolveAnonymous(name string, fn func(id NodeID, base string) string) string {
	return anonLabelPattern.ReplaceAllStringFunc(name, func(tok string) string {
		m := anonLabelPattern.FindStringSubmatch(tok)
		n, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return tok
		}
		return fn(NodeID(n), m[2])
	})
}
