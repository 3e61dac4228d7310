// Package sql provides a composable SQL expression and selectable tree.
//
// Trees are built from tables, columns and expressions, then composed into
// SELECT statements, joins, aliases, common table expressions and compound
// (UNION / EXCEPT / INTERSECT) statements. Every node is an immutable value:
// methods such as Where, Limit or Alias return a new node and leave the
// receiver untouched.
//
// # FROM derivation
//
// A SelectStmt does not store its FROM list. It is derived on every call from
// the columns clause, the WHERE clause and any explicit SelectFrom entries,
// then filtered by join containment and correlation against enclosing
// statements:
//
//	users := sql.Table("users", sql.Column("id", sql.PrimaryKey()), sql.Column("name"))
//	s := sql.Select(users.C("id"), users.C("name")).Where(sql.Eq(users.C("id"), 5))
//	s.Froms() // [users]
//
// # Column correspondence
//
// Columns exported by derived selectables (aliases, subqueries, joins,
// unions) are proxies that remember the columns they stand in for. The
// CorrespondingColumn method walks that lineage to translate a column of one
// selectable into the equivalent column of another:
//
//	u := users.Alias("u")
//	u.CorrespondingColumn(users.C("id"), false) // u.C("id")
//
// # Rendering
//
// Nodes carry a visit name (VisitName) that the pkg/compiler renderer
// dispatches on. Anonymous names (unnamed aliases, unlabeled expressions) are
// embedded as tokens derived from the node's NodeID and resolved to readable
// names like anon_1 at compile time.
//
// # Concurrency
//
// Exported column collections are populated lazily, once per node, behind a
// sync.Once, so a fully built tree may be read from multiple goroutines.
// TableClause.AppendColumn and RefreshForNewColumn mutate existing nodes and
// must not run concurrently with readers.
package sql
