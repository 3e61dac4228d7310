// Package sqlite provides the SQLite SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package sqlite

import (
	"github.com/leapstack-labs/relsql/pkg/core"
	"github.com/leapstack-labs/relsql/pkg/dialect"
	"github.com/leapstack-labs/relsql/pkg/dialects/ansi"
)

func init() {
	dialect.Register(SQLite)
}

// Config is the SQLite dialect configuration.
// SQLite accepts OFFSET only after LIMIT, and has no EXCEPT ALL.
var Config = &core.DialectConfig{
	Name:          "sqlite",
	DefaultSchema: "main",
	Placeholder:   core.PlaceholderQuestion,
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormCaseInsensitive,
	},
	ReservedWords:       append(append([]string{}, ansi.ReservedWords...), "glob", "regexp", "indexed", "autoincrement"),
	SupportsNullsFirst:  true,
	OffsetRequiresLimit: true,
	DataTypes:           []string{"INTEGER", "REAL", "TEXT", "BLOB", "NUMERIC"},
}

// SQLite is the SQLite dialect.
var SQLite = dialect.New(Config).Build()
