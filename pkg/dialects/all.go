// Package dialects registers every built-in dialect with pkg/dialect.
//
// Import it for side effects:
//
//	import _ "github.com/leapstack-labs/relsql/pkg/dialects"
package dialects

import (
	_ "github.com/leapstack-labs/relsql/pkg/dialects/ansi"       // register ansi
	_ "github.com/leapstack-labs/relsql/pkg/dialects/databricks" // register databricks
	_ "github.com/leapstack-labs/relsql/pkg/dialects/duckdb"     // register duckdb
	_ "github.com/leapstack-labs/relsql/pkg/dialects/postgres"   // register postgres
	_ "github.com/leapstack-labs/relsql/pkg/dialects/snowflake"  // register snowflake
	_ "github.com/leapstack-labs/relsql/pkg/dialects/sqlite"     // register sqlite
)
