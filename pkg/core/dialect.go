package core

// DialectConfig holds the static configuration for a SQL dialect.
// This is pure data; the runtime behaviour (quoting, placeholder rendering,
// feature checks) lives in pkg/dialect.Dialect, which is built from it.
type DialectConfig struct {
	// Name is the dialect identifier (e.g., "duckdb", "postgres")
	Name string

	// Identifiers defines quoting and normalization rules
	Identifiers IdentifierConfig

	// DefaultSchema is the default schema name ("main" for DuckDB, "public" for Postgres)
	DefaultSchema string

	// Placeholder defines how query parameters are formatted
	Placeholder PlaceholderStyle

	// ReservedWords need quoting when used as identifiers.
	ReservedWords []string

	// Feature flags consulted by the compiler.
	SupportsDistinctOn  bool // SELECT DISTINCT ON (expr, ...)
	SupportsExceptAll   bool // EXCEPT ALL / INTERSECT ALL
	SupportsNullsFirst  bool // ORDER BY ... NULLS FIRST
	OffsetRequiresLimit bool // OFFSET is only valid after a LIMIT (SQLite)

	// DataTypes lists the type names the dialect understands.
	DataTypes []string
}

// NormalizationStrategy defines how unquoted identifiers are normalized.
type NormalizationStrategy int

const (
	// NormLowercase normalizes unquoted identifiers to lowercase (default SQL behavior).
	NormLowercase NormalizationStrategy = iota
	// NormUppercase normalizes unquoted identifiers to uppercase (Snowflake, Oracle).
	NormUppercase
	// NormCaseSensitive preserves identifier case exactly (MySQL, ClickHouse).
	NormCaseSensitive
	// NormCaseInsensitive normalizes to lowercase for comparison (BigQuery, Hive, DuckDB).
	NormCaseInsensitive
)

// String returns the strategy name.
func (n NormalizationStrategy) String() string {
	switch n {
	case NormLowercase:
		return "lowercase"
	case NormUppercase:
		return "uppercase"
	case NormCaseSensitive:
		return "case-sensitive"
	case NormCaseInsensitive:
		return "case-insensitive"
	default:
		return "unknown"
	}
}

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (DuckDB, MySQL, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. for parameters (PostgreSQL).
	PlaceholderDollar
	// PlaceholderColon uses :1, :2, etc. for parameters (Snowflake, Oracle).
	PlaceholderColon
)

// String returns the placeholder as it appears for the first parameter.
func (p PlaceholderStyle) String() string {
	switch p {
	case PlaceholderDollar:
		return "$1"
	case PlaceholderColon:
		return ":1"
	default:
		return "?"
	}
}

// IdentifierConfig defines how identifiers are quoted and normalized.
type IdentifierConfig struct {
	Quote         string                // Quote character: ", `, [
	QuoteEnd      string                // End quote character (usually same as Quote, ] for [)
	Escape        string                // Escape sequence: "", ``, ]]
	Normalization NormalizationStrategy // How to normalize unquoted identifiers
}
