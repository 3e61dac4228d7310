// Package postgres registers the PostgreSQL dialect. It has no driver
// dependency; the adapter lives in pkg/adapters/postgres.
package postgres

import (
	"github.com/leapstack-labs/relsql/pkg/core"
	"github.com/leapstack-labs/relsql/pkg/dialect"
)

func init() {
	dialect.Register(Postgres)
}

// reservedWords are quoted when used as identifiers. pg_get_keywords()
// has the full list; these are the ones that collide with table and
// column names in practice.
var reservedWords = []string{
	"user", "order", "group", "table", "select", "from", "where", "index",
	"all", "and", "any", "array", "as", "asc", "asymmetric", "authorization",
	"between", "binary", "both", "case", "cast", "check", "collate", "column",
	"constraint", "create", "cross", "current_catalog", "current_date",
	"current_role", "current_schema", "current_time", "current_timestamp",
	"current_user", "default", "deferrable", "desc", "distinct", "do", "else",
	"end", "except", "false", "fetch", "for", "foreign", "freeze", "full",
	"grant", "having", "ilike", "in", "initially", "inner", "intersect",
	"into", "is", "isnull", "join", "lateral", "leading", "left", "like",
	"limit", "localtime", "localtimestamp", "natural", "not", "notnull",
	"null", "offset", "on", "only", "or", "outer", "overlaps", "placing",
	"primary", "references", "returning", "right", "session_user", "similar",
	"some", "symmetric", "then", "to", "trailing", "true", "union", "unique",
	"using", "variadic", "verbose", "when", "window", "with",
}

// Config is the PostgreSQL dialect configuration.
var Config = &core.DialectConfig{
	Name:          "postgres",
	DefaultSchema: "public",
	Placeholder:   core.PlaceholderDollar,
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormLowercase, // Postgres normalizes unquoted to lowercase
	},
	ReservedWords:      reservedWords,
	SupportsDistinctOn: true,
	SupportsExceptAll:  true,
	SupportsNullsFirst: true,
	DataTypes: []string{
		"bigint", "boolean", "bytea", "date", "double precision", "integer",
		"jsonb", "numeric", "real", "smallint", "text", "timestamp",
		"timestamptz", "uuid", "varchar",
	},
}

// Postgres is the PostgreSQL dialect.
var Postgres = dialect.New(Config).Build()
