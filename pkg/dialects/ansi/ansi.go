// Package ansi provides the base ANSI SQL dialect.
//
// It is the dialect used when nothing more specific is configured, and the
// reserved word list other dialects start from.
package ansi

import (
	"github.com/leapstack-labs/relsql/pkg/core"
	"github.com/leapstack-labs/relsql/pkg/dialect"
)

func init() {
	dialect.Register(ANSI)
}

// ReservedWords are the SQL:2016 reserved words most likely to collide
// with column and table names.
var ReservedWords = []string{
	"all", "and", "any", "as", "asc", "between", "by", "case", "cast",
	"check", "column", "constraint", "create", "cross", "current_date",
	"current_time", "current_timestamp", "current_user", "default", "delete",
	"desc", "distinct", "drop", "else", "end", "except", "exists", "false",
	"fetch", "for", "foreign", "from", "full", "grant", "group", "having",
	"in", "inner", "insert", "intersect", "into", "is", "join", "lateral",
	"left", "like", "limit", "natural", "not", "null", "offset", "on", "or",
	"order", "outer", "primary", "references", "right", "select", "table",
	"then", "to", "true", "union", "unique", "update", "user", "using",
	"values", "when", "where", "window", "with",
}

// Config is the ANSI dialect configuration.
var Config = &core.DialectConfig{
	Name:        "ansi",
	Placeholder: core.PlaceholderQuestion,
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormLowercase,
	},
	ReservedWords:     ReservedWords,
	SupportsExceptAll: true,
	DataTypes: []string{
		"INTEGER", "BIGINT", "SMALLINT", "NUMERIC", "DECIMAL", "REAL",
		"DOUBLE PRECISION", "VARCHAR", "CHAR", "BOOLEAN", "DATE", "TIME",
		"TIMESTAMP",
	},
}

// ANSI is the base ANSI SQL dialect.
var ANSI = dialect.New(Config).Build()
