// Package duckdb provides the DuckDB SQL dialect definition.
// This package is pure Go with no database driver dependencies,
// making it suitable for compiling statements without a connection.
package duckdb

import (
	"github.com/leapstack-labs/relsql/pkg/core"
	"github.com/leapstack-labs/relsql/pkg/dialect"
	"github.com/leapstack-labs/relsql/pkg/dialects/ansi"
)

func init() {
	dialect.Register(DuckDB)
}

// Config is the DuckDB dialect configuration.
// This is pure data, shared by the adapter and the compiler.
var Config = &core.DialectConfig{
	Name:          "duckdb",
	DefaultSchema: "main",
	Placeholder:   core.PlaceholderQuestion,
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormCaseInsensitive,
	},
	ReservedWords:      append(append([]string{}, ansi.ReservedWords...), "pivot", "unpivot", "qualify", "asof", "positional", "semi", "anti"),
	SupportsDistinctOn: true,
	SupportsExceptAll:  true,
	SupportsNullsFirst: true,
	DataTypes: []string{
		"BIGINT", "BLOB", "BOOLEAN", "DATE", "DECIMAL", "DOUBLE", "FLOAT",
		"HUGEINT", "INTEGER", "INTERVAL", "JSON", "SMALLINT", "TIME",
		"TIMESTAMP", "TIMESTAMPTZ", "TINYINT", "UBIGINT", "UINTEGER", "UUID",
		"VARCHAR",
	},
}

// DuckDB is the DuckDB dialect.
var DuckDB = dialect.New(Config).Build()
