// Package compiler renders pkg/sql expression trees as SQL text for a
// dialect.
//
// Rendering dispatches on each node's VisitName through a handler table.
// Bind parameters become dialect placeholders, numbered in the order they
// appear in the final text, with their values collected in Args.
package compiler

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/leapstack-labs/relsql/pkg/dialect"
	"github.com/leapstack-labs/relsql/pkg/sql"
)

const indentSize = 2

// placeholderMark stands in for a bind placeholder until the final text is
// assembled and placeholders can be numbered in text order.
const placeholderMark = "\x00"

// Compiled is a rendered statement.
type Compiled struct {
	SQL  string
	Args []any
}

// CompileError is returned when an element cannot be rendered for the
// target dialect.
type CompileError struct {
	Element string
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("cannot compile %s: %s", e.Element, e.Message)
}

// Option configures a compilation.
type Option func(*compiler)

// WithPretty breaks statements onto one line per clause, indenting nested
// subqueries.
func WithPretty() Option {
	return func(c *compiler) {
		c.pretty = true
	}
}

// WithLogger sets the logger that receives compilation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

type visitFunc func(c *compiler, e sql.ClauseElement) (string, error)

// handlers maps visit names to render functions. It is filled in init to
// break the initialization cycle through dispatch.
var handlers map[string]visitFunc

func init() {
	handlers = map[string]visitFunc{
		"column":          visitColumn,
		"label":           visitLabel,
		"binary":          visitBinary,
		"clauselist":      visitClauseList,
		"unary":           visitUnary,
		"bindparam":       visitBindParam,
		"null":            visitNull,
		"function":        visitFunction,
		"textclause":      visitTextClause,
		"tuple":           visitTuple,
		"scalar_select":   visitScalarSelect,
		"exists":          visitExists,
		"table":           visitTable,
		"text_from":       visitTextFrom,
		"alias":           visitAlias,
		"cte":             visitCTE,
		"join":            visitJoin,
		"grouping":        visitGrouping,
		"select":          visitSelect,
		"compound_select": visitCompoundSelect,
	}
}

// stackEntry records the FROM objects visible to statements nested inside
// the select being rendered.
type stackEntry struct {
	correlate []sql.FromClause // every enclosing FROM
	asfrom    []sql.FromClause // the immediately enclosing FROM
}

type cteEntry struct {
	cte  *sql.CTE
	text string
	args []any
}

type compiler struct {
	dialect *dialect.Dialect
	logger  *slog.Logger
	pretty  bool
	depth   int

	args  []any
	stack []stackEntry

	// asfrom is set while the element being visited sits in a FROM clause.
	asfrom bool
	// labelRefs holds labels that ORDER BY and GROUP BY render by name.
	labelRefs map[sql.NodeID]bool

	ctes       []*cteEntry
	ctesByName map[string]*sql.CTE

	anonNames  map[sql.NodeID]string
	anonCounts map[string]int
}

// Compile renders elem for dialect d.
func Compile(elem sql.ClauseElement, d *dialect.Dialect, opts ...Option) (*Compiled, error) {
	if d == nil {
		return nil, dialect.ErrDialectRequired
	}
	if elem == nil {
		return nil, &CompileError{Element: "<nil>", Message: "nothing to compile"}
	}

	c := &compiler{
		dialect:    d,
		logger:     slog.New(slog.DiscardHandler),
		ctesByName: make(map[string]*sql.CTE),
		anonNames:  make(map[sql.NodeID]string),
		anonCounts: make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}

	text, err := c.process(elem)
	if err != nil {
		return nil, err
	}

	args := c.args
	if len(c.ctes) > 0 {
		text, args = c.withClause(text)
	}

	out := &Compiled{SQL: c.numberPlaceholders(text), Args: args}
	c.logger.Debug("compiled statement",
		slog.String("dialect", d.Name),
		slog.String("element", elem.VisitName()),
		slog.Int("args", len(out.Args)))
	return out, nil
}

func (c *compiler) process(e sql.ClauseElement) (string, error) {
	h, ok := handlers[e.VisitName()]
	if !ok {
		return "", &CompileError{Element: e.VisitName(), Message: "no renderer for this element"}
	}
	return h(c, e)
}

// withClause prepends the collected CTE definitions to text. CTE bodies
// render first, so their arguments come first.
func (c *compiler) withClause(text string) (string, []any) {
	var b strings.Builder
	b.WriteString("WITH ")
	for _, e := range c.ctes {
		if e.cte.Recursive() {
			b.WriteString("RECURSIVE ")
			break
		}
	}

	var args []any
	for i, e := range c.ctes {
		if i > 0 {
			b.WriteString(", ")
			if c.pretty {
				b.WriteString("\n")
			}
		}
		b.WriteString(e.text)
		args = append(args, e.args...)
	}
	b.WriteString(c.sep())
	b.WriteString(text)
	return b.String(), append(args, c.args...)
}

func (c *compiler) numberPlaceholders(text string) string {
	if !strings.Contains(text, placeholderMark) {
		return text
	}
	parts := strings.Split(text, placeholderMark)
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteString(c.dialect.FormatPlaceholder(i))
		}
		b.WriteString(p)
	}
	return b.String()
}

// sep separates clauses: a space, or a newline at the current depth when
// pretty printing.
func (c *compiler) sep() string {
	if !c.pretty {
		return " "
	}
	return "\n" + strings.Repeat(" ", c.depth*indentSize)
}

// anon resolves anonymous label tokens to "<base>_<n>", numbering each base
// in order of first appearance.
func (c *compiler) anon(name string) string {
	if !sql.IsAnonymous(name) {
		return name
	}
	return sql.ResolveAnonymous(name, func(id sql.NodeID, base string) string {
		if resolved, ok := c.anonNames[id]; ok {
			return resolved
		}
		c.anonCounts[base]++
		resolved := base + "_" + strconv.Itoa(c.anonCounts[base])
		c.anonNames[id] = resolved
		return resolved
	})
}

// quote resolves and, where needed, quotes an identifier.
func (c *compiler) quote(name string) string {
	return c.dialect.QuoteIdentifierIfNeeded(c.anon(name))
}

func (c *compiler) bind(v any) string {
	c.args = append(c.args, v)
	return placeholderMark
}

func (c *compiler) warnConflicts(owner string, cols *sql.ColumnCollection) {
	for _, conflict := range cols.Conflicts() {
		c.logger.Warn("column key replaced by an unrelated column",
			slog.String("statement", owner),
			slog.String("key", c.anon(conflict.Key)))
	}
}

func containsID[T sql.ClauseElement](items []T, id sql.NodeID) bool {
	for _, item := range items {
		if item.ID() == id {
			return true
		}
	}
	return false
}
