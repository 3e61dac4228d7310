package sql

// Iterate visits elem and its descendants in pre-order. Returning false from
// fn skips the node's children.
func Iterate(elem ClauseElement, fn func(ClauseElement) bool) {
	if elem == nil {
		return
	}
	stack := []ClauseElement{elem}
	for len(stack) > 0 {
		n := len(stack) - 1
		e := stack[n]
		stack = stack[:n]
		if !fn(e) {
			continue
		}
		children := e.Children()
		for i := len(children) - 1; i >= 0; i-- {
			if children[i] != nil {
				stack = append(stack, children[i])
			}
		}
	}
}

// CloneTree returns a deep copy of e. Each node is cloned once, so shared
// subtrees stay shared in the copy. Immutable nodes such as tables and
// table columns are kept as is.
func CloneTree[T ClauseElement](e T) T {
	memo := make(map[NodeID]ClauseElement)
	var clone func(ClauseElement) ClauseElement
	clone = func(elem ClauseElement) ClauseElement {
		if elem == nil {
			return nil
		}
		if c, ok := memo[elem.ID()]; ok {
			return c
		}
		c := elem.clone()
		memo[elem.ID()] = c
		if c != elem {
			c.copyInternals(clone)
		}
		return c
	}
	return clone(e).(T)
}

// ReplacementTraverse returns a copy of elem in which every node for which
// replace returns non-nil is substituted by that value. Replacements and
// stopOn nodes are not descended into.
func ReplacementTraverse(elem ClauseElement, stopOn []ClauseElement, replace func(ClauseElement) ClauseElement) ClauseElement {
	if elem == nil {
		return nil
	}
	stop := make(IDSet, len(stopOn))
	for _, s := range stopOn {
		stop.add(s.ID())
	}
	memo := make(map[NodeID]ClauseElement)
	var clone func(ClauseElement) ClauseElement
	clone = func(e ClauseElement) ClauseElement {
		if e == nil {
			return nil
		}
		if stop.Has(e.ID()) {
			return e
		}
		if r := replace(e); r != nil {
			stop.add(r.ID())
			return r
		}
		if c, ok := memo[e.ID()]; ok {
			return c
		}
		c := e.clone()
		memo[e.ID()] = c
		if c != e {
			c.copyInternals(clone)
		}
		return c
	}
	return clone(elem)
}
