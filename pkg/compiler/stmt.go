package compiler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/leapstack-labs/relsql/pkg/sql"
)

func visitSelect(c *compiler, e sql.ClauseElement) (string, error) {
	s := e.(*sql.SelectStmt)
	asfrom := c.asfrom
	c.asfrom = false

	froms, err := c.displayFroms(s, asfrom)
	if err != nil {
		return "", err
	}
	c.warnConflicts(s.Description(), s.Columns())

	var b strings.Builder
	b.WriteString("SELECT ")
	for _, p := range s.Prefixes() {
		b.WriteString(p.SQL())
		b.WriteString(" ")
	}
	if s.IsDistinct() {
		on := s.DistinctOn()
		if len(on) > 0 {
			if !c.dialect.SupportsDistinctOn {
				return "", &CompileError{
					Element: "select",
					Message: fmt.Sprintf("DISTINCT ON is not supported by the %s dialect", c.dialect.Name),
				}
			}
			parts, err := c.list(on)
			if err != nil {
				return "", err
			}
			b.WriteString("DISTINCT ON (" + strings.Join(parts, ", ") + ") ")
		} else {
			b.WriteString("DISTINCT ")
		}
	}

	results := s.ResultColumns()
	cols := make([]string, 0, len(results))
	for _, rc := range results {
		text, err := c.resultColumn(rc)
		if err != nil {
			return "", err
		}
		cols = append(cols, text)
	}
	b.WriteString(strings.Join(cols, ", "))

	if len(froms) > 0 {
		parts := make([]string, 0, len(froms))
		for _, f := range froms {
			text, err := c.from(f)
			if err != nil {
				return "", err
			}
			parts = append(parts, text+c.hintsFor(s, f))
		}
		b.WriteString(c.sep() + "FROM " + strings.Join(parts, ", "))
	}

	if where := s.WhereClause(); where != nil {
		text, err := c.process(where)
		if err != nil {
			return "", err
		}
		b.WriteString(c.sep() + "WHERE " + text)
	}

	saved := c.labelRefs
	c.labelRefs = labelsOf(results)
	tail, err := c.orderingClauses(s.GroupByClauses(), s.HavingClause(), s.OrderByClauses())
	c.labelRefs = saved
	if err != nil {
		return "", err
	}
	b.WriteString(tail)
	b.WriteString(c.limitClause(s))

	c.stack = c.stack[:len(c.stack)-1]
	return b.String(), nil
}

// displayFroms computes the FROM list of s against the enclosing statements
// and pushes the stack entry its nested statements correlate against.
func (c *compiler) displayFroms(s *sql.SelectStmt, asfrom bool) ([]sql.FromClause, error) {
	var top stackEntry
	if n := len(c.stack); n > 0 {
		top = c.stack[n-1]
	}

	var froms []sql.FromClause
	var err error
	if asfrom {
		froms, err = s.DisplayFroms(without(top.correlate, top.asfrom), nil)
	} else {
		froms, err = s.DisplayFroms(top.correlate, top.asfrom)
	}
	if err != nil {
		return nil, err
	}

	var visible []sql.FromClause
	for _, f := range froms {
		visible = append(visible, f.FromObjects()...)
	}
	c.stack = append(c.stack, stackEntry{
		asfrom:    visible,
		correlate: append(slices.Clone(visible), top.correlate...),
	})
	return froms, nil
}

func without(froms, remove []sql.FromClause) []sql.FromClause {
	return slices.DeleteFunc(slices.Clone(froms), func(f sql.FromClause) bool {
		return containsID(remove, f.ID())
	})
}

func labelsOf(results []sql.ResultColumn) map[sql.NodeID]bool {
	out := make(map[sql.NodeID]bool)
	for _, rc := range results {
		if l, ok := rc.Column.(*sql.Label); ok {
			out[l.ID()] = true
		}
	}
	return out
}

// resultColumn renders one item of a columns clause. Expressions without a
// name of their own get the anonymous label their exported column carries.
func (c *compiler) resultColumn(rc sql.ResultColumn) (string, error) {
	switch col := rc.Column.(type) {
	case *sql.Label:
		text, err := c.process(col.Element())
		if err != nil {
			return "", err
		}
		name := rc.Name
		if name == "" {
			name = col.Name()
		}
		return text + " AS " + c.quote(name), nil
	case *sql.ColumnClause:
		text, err := c.process(col)
		if err != nil || rc.Name == "" {
			return text, err
		}
		return text + " AS " + c.quote(rc.Name), nil
	case *sql.TextClause, *sql.UnaryExpression:
		return c.process(col)
	default:
		text, err := c.process(col)
		if err != nil {
			return "", err
		}
		name := rc.Name
		if name == "" {
			name = col.AnonLabel()
		}
		return text + " AS " + c.quote(name), nil
	}
}

func (c *compiler) hintsFor(s *sql.SelectStmt, f sql.FromClause) string {
	var out string
	for _, h := range s.Hints() {
		if h.Dialect != "*" && !strings.EqualFold(h.Dialect, c.dialect.Name) {
			continue
		}
		if !h.Selectable.ClonedSet().Intersects(f.ClonedSet()) {
			continue
		}
		_, name := sql.SelectableName(f)
		out += " " + strings.ReplaceAll(h.Text, "%(name)s", c.quote(name))
	}
	return out
}

func (c *compiler) orderingClauses(groupBy []sql.ColumnElement, having sql.ColumnElement, orderBy []sql.ColumnElement) (string, error) {
	var b strings.Builder
	if len(groupBy) > 0 {
		parts, err := c.list(groupBy)
		if err != nil {
			return "", err
		}
		b.WriteString(c.sep() + "GROUP BY " + strings.Join(parts, ", "))
	}
	if having != nil {
		text, err := c.process(having)
		if err != nil {
			return "", err
		}
		b.WriteString(c.sep() + "HAVING " + text)
	}
	if len(orderBy) > 0 {
		parts, err := c.list(orderBy)
		if err != nil {
			return "", err
		}
		b.WriteString(c.sep() + "ORDER BY " + strings.Join(parts, ", "))
	}
	return b.String(), nil
}

type limited interface {
	LimitValue() (int, bool)
	OffsetValue() (int, bool)
}

func (c *compiler) limitClause(s limited) string {
	limit, hasLimit := s.LimitValue()
	offset, hasOffset := s.OffsetValue()

	var b strings.Builder
	if hasLimit {
		b.WriteString(c.sep() + "LIMIT " + strconv.Itoa(limit))
	}
	if hasOffset {
		if !hasLimit && c.dialect.OffsetRequiresLimit {
			b.WriteString(c.sep() + "LIMIT -1")
		}
		b.WriteString(c.sep() + "OFFSET " + strconv.Itoa(offset))
	}
	return b.String()
}

func visitCompoundSelect(c *compiler, e sql.ClauseElement) (string, error) {
	cs := e.(*sql.CompoundSelect)
	asfrom := c.asfrom

	kw := cs.Keyword()
	if (kw == sql.KeywordExceptAll || kw == sql.KeywordIntersectAll) && !c.dialect.SupportsExceptAll {
		return "", &CompileError{
			Element: "compound_select",
			Message: fmt.Sprintf("%s is not supported by the %s dialect", kw, c.dialect.Name),
		}
	}
	c.warnConflicts(cs.Description(), cs.Columns())

	selects := cs.Selects()
	parts := make([]string, 0, len(selects))
	for _, sel := range selects {
		c.asfrom = asfrom
		text, err := c.process(sel)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	c.asfrom = false

	var b strings.Builder
	b.WriteString(strings.Join(parts, c.sep()+string(kw)+c.sep()))
	tail, err := c.orderingClauses(cs.GroupByClauses(), nil, cs.OrderByClauses())
	if err != nil {
		return "", err
	}
	b.WriteString(tail)
	b.WriteString(c.limitClause(cs))
	return b.String(), nil
}

// from renders f as an item of a FROM clause.
func (c *compiler) from(f sql.FromClause) (string, error) {
	c.asfrom = true
	text, err := c.process(f)
	c.asfrom = false
	return text, err
}

func visitTable(c *compiler, e sql.ClauseElement) (string, error) {
	t := e.(*sql.TableClause)
	if t.Schema() != "" {
		return c.quote(t.Schema()) + "." + c.quote(t.Name()), nil
	}
	return c.quote(t.Name()), nil
}

func visitTextFrom(_ *compiler, e sql.ClauseElement) (string, error) {
	return e.(*sql.TextFrom).SQL(), nil
}

func visitAlias(c *compiler, e sql.ClauseElement) (string, error) {
	a := e.(*sql.Alias)
	inner, err := c.nested(a.Element())
	if err != nil {
		return "", err
	}
	return inner + " AS " + c.quote(a.Name()), nil
}

// nested renders the element of an alias or CTE, parenthesising statements.
func (c *compiler) nested(el sql.FromClause) (string, error) {
	switch el.(type) {
	case *sql.SelectStmt, *sql.CompoundSelect:
		c.depth++
		text, err := c.from(el)
		c.depth--
		if err != nil {
			return "", err
		}
		return "(" + text + ")", nil
	}
	return c.from(el)
}

func visitJoin(c *compiler, e sql.ClauseElement) (string, error) {
	j := e.(*sql.Join)
	left, err := c.from(j.Left())
	if err != nil {
		return "", err
	}
	right, err := c.from(j.Right())
	if err != nil {
		return "", err
	}
	on, err := c.process(j.Onclause())
	if err != nil {
		return "", err
	}

	kw := " JOIN "
	if j.IsOuter() {
		kw = " LEFT OUTER JOIN "
	}
	return left + kw + right + " ON " + on, nil
}

func visitGrouping(c *compiler, e sql.ClauseElement) (string, error) {
	g := e.(*sql.FromGrouping)
	c.depth++
	text, err := c.process(g.Element())
	c.depth--
	if err != nil {
		return "", err
	}
	return "(" + text + ")", nil
}

// visitCTE renders a reference to a common table expression and records its
// definition for the WITH clause. A CTE that restates an already recorded
// one of the same name replaces it.
func visitCTE(c *compiler, e sql.ClauseElement) (string, error) {
	cte := e.(*sql.CTE)
	name := c.anon(cte.Name())

	isNew := true
	if existing, ok := c.ctesByName[name]; ok {
		switch {
		case existing.ID() == cte.ID() || containsID(existing.Restates(), cte.ID()):
			isNew = false
		case containsID(cte.Restates(), existing.ID()):
			c.ctes = slices.DeleteFunc(c.ctes, func(entry *cteEntry) bool {
				return entry.cte.ID() == existing.ID()
			})
		default:
			return "", &CompileError{
				Element: "cte",
				Message: fmt.Sprintf("multiple, unrelated CTEs found with the same name: %q", name),
			}
		}
	}
	if isNew {
		c.ctesByName[name] = cte
	}

	if orig := cte.AliasOf(); orig != nil {
		if _, err := visitCTE(c, orig); err != nil {
			return "", err
		}
		return c.quote(orig.Name()) + " AS " + c.quote(name), nil
	}
	if isNew {
		if err := c.defineCTE(cte, name); err != nil {
			return "", err
		}
	}
	return c.quote(name), nil
}

func (c *compiler) defineCTE(cte *sql.CTE, name string) error {
	savedArgs, savedDepth := c.args, c.depth
	c.args, c.depth = nil, 1
	body, err := c.from(cte.Element())
	args := c.args
	c.args, c.depth = savedArgs, savedDepth
	if err != nil {
		return err
	}

	text := c.quote(name)
	if cte.Recursive() {
		cols := c.recursiveColumns(cte.Element())
		if len(cols) > 0 {
			text += "(" + strings.Join(cols, ", ") + ")"
		}
	}
	c.ctes = append(c.ctes, &cteEntry{
		cte:  cte,
		text: text + " AS (" + body + ")",
		args: args,
	})
	return nil
}

// recursiveColumns names the columns of a recursive CTE from the columns
// clause of its first select.
func (c *compiler) recursiveColumns(el sql.FromClause) []string {
	for {
		switch x := el.(type) {
		case *sql.CompoundSelect:
			el = x.Selects()[0]
			continue
		case *sql.FromGrouping:
			el = x.Element()
			continue
		case *sql.SelectStmt:
			var out []string
			for _, rc := range x.ResultColumns() {
				name := rc.Name
				if name == "" {
					name = rc.Column.Name()
				}
				if name == "" {
					name = rc.Column.AnonLabel()
				}
				out = append(out, c.quote(name))
			}
			return out
		}
		return nil
	}
}
