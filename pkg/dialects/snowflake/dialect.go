// Package snowflake provides the Snowflake SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package snowflake

import (
	"github.com/leapstack-labs/relsql/pkg/core"
	"github.com/leapstack-labs/relsql/pkg/dialect"
	"github.com/leapstack-labs/relsql/pkg/dialects/ansi"
)

func init() {
	dialect.Register(Snowflake)
}

// Config is the Snowflake SQL dialect configuration.
var Config = &core.DialectConfig{
	Name:          "snowflake",
	DefaultSchema: "PUBLIC",
	Placeholder:   core.PlaceholderColon,
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormUppercase, // Snowflake normalizes to uppercase
	},
	ReservedWords:      append(append([]string{}, ansi.ReservedWords...), "qualify", "sample", "tablesample", "regexp", "rlike", "ilike"),
	SupportsNullsFirst: true,
	DataTypes: []string{
		"NUMBER", "FLOAT", "VARCHAR", "BOOLEAN", "DATE", "TIMESTAMP_NTZ",
		"TIMESTAMP_TZ", "VARIANT", "ARRAY", "OBJECT",
	},
}

// Snowflake is the Snowflake SQL dialect.
var Snowflake = dialect.New(Config).Build()
