// Package databricks provides the Databricks SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package databricks

import (
	"github.com/leapstack-labs/relsql/pkg/core"
	"github.com/leapstack-labs/relsql/pkg/dialect"
	"github.com/leapstack-labs/relsql/pkg/dialects/ansi"
)

func init() {
	dialect.Register(Databricks)
}

// Config is the Databricks SQL dialect configuration.
var Config = &core.DialectConfig{
	Name:          "databricks",
	DefaultSchema: "default",
	Placeholder:   core.PlaceholderQuestion,
	Identifiers: core.IdentifierConfig{
		Quote:         "`",
		QuoteEnd:      "`",
		Escape:        "``",
		Normalization: core.NormCaseInsensitive,
	},
	ReservedWords:      append(append([]string{}, ansi.ReservedWords...), "qualify", "rlike", "regexp", "div", "tablesample"),
	SupportsExceptAll:  true,
	SupportsNullsFirst: true,
	DataTypes: []string{
		"BIGINT", "BINARY", "BOOLEAN", "DATE", "DECIMAL", "DOUBLE", "FLOAT",
		"INT", "SMALLINT", "STRING", "TIMESTAMP", "TINYINT", "ARRAY", "MAP",
		"STRUCT",
	},
}

// Databricks is the Databricks SQL dialect.
var Databricks = dialect.New(Config).Build()
