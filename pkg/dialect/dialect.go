// Package dialect provides the runtime SQL dialect used by the compiler.
//
// A Dialect is built from a core.DialectConfig and answers the questions the
// compiler asks while rendering: how to quote an identifier, how to spell a
// bind placeholder, and which optional syntax is available. Concrete dialects
// are registered from pkg/dialects/*/ packages.
package dialect

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/relsql/pkg/core"
)

// Dialect represents a SQL dialect configuration.
type Dialect struct {
	Name        string
	Identifiers core.IdentifierConfig

	// Database-specific settings
	DefaultSchema string                // Default schema name ("main" for DuckDB, "public" for Postgres)
	Placeholder   core.PlaceholderStyle // How to format query parameters

	SupportsDistinctOn  bool
	SupportsExceptAll   bool
	SupportsNullsFirst  bool
	OffsetRequiresLimit bool

	reservedWords map[string]struct{} // All keywords that need quoting as identifiers
	dataTypes     []string
}

// Config returns the pure data configuration for this dialect.
func (d *Dialect) Config() *core.DialectConfig {
	words := make([]string, 0, len(d.reservedWords))
	for w := range d.reservedWords {
		words = append(words, w)
	}

	return &core.DialectConfig{
		Name:                d.Name,
		Identifiers:         d.Identifiers,
		DefaultSchema:       d.DefaultSchema,
		Placeholder:         d.Placeholder,
		ReservedWords:       words,
		SupportsDistinctOn:  d.SupportsDistinctOn,
		SupportsExceptAll:   d.SupportsExceptAll,
		SupportsNullsFirst:  d.SupportsNullsFirst,
		OffsetRequiresLimit: d.OffsetRequiresLimit,
		DataTypes:           d.dataTypes,
	}
}

// NormalizeName normalizes an identifier according to dialect rules.
func (d *Dialect) NormalizeName(name string) string {
	switch d.Identifiers.Normalization {
	case core.NormUppercase:
		return cases.Upper(language.Und).String(name)
	case core.NormLowercase, core.NormCaseInsensitive:
		return cases.Lower(language.Und).String(name)
	default: // NormCaseSensitive
		return name
	}
}

// DialectName returns the dialect name.
func (d *Dialect) DialectName() string {
	return d.Name
}

// DataTypes returns all supported data types.
func (d *Dialect) DataTypes() []string {
	return d.dataTypes
}

// ReservedWords returns the number of reserved words known to the dialect.
func (d *Dialect) ReservedWords() int {
	return len(d.reservedWords)
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
// Returns "?" for PlaceholderQuestion style, "$1", "$2" etc. for PlaceholderDollar style.
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case core.PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	case core.PlaceholderColon:
		return ":" + strconv.Itoa(index)
	default: // PlaceholderQuestion
		return "?"
	}
}

// IsReservedWord returns true if the word needs quoting when used as an identifier.
func (d *Dialect) IsReservedWord(word string) bool {
	_, ok := d.reservedWords[strings.ToLower(word)]
	return ok
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	// Escape any existing quote end characters in the name (e.g., ] -> ]])
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// QuoteIdentifierIfNeeded quotes an identifier when it is a reserved word,
// when it is not a plain identifier, or when its case would not survive the
// dialect's normalization.
func (d *Dialect) QuoteIdentifierIfNeeded(name string) string {
	if d.RequiresQuotes(name) {
		return d.QuoteIdentifier(name)
	}
	return name
}

// RequiresQuotes reports whether name must be quoted to be read back as written.
func (d *Dialect) RequiresQuotes(name string) bool {
	if name == "" || d.IsReservedWord(name) || !isPlainIdentifier(name) {
		return true
	}
	switch d.Identifiers.Normalization {
	case core.NormLowercase:
		return name != strings.ToLower(name)
	case core.NormUppercase:
		return name != strings.ToUpper(name)
	}
	return false
}

func isPlainIdentifier(name string) bool {
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '$'):
		default:
			return false
		}
	}
	return true
}

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// NewDialect creates a new dialect builder with the given name and ANSI
// identifier rules.
func NewDialect(name string) *Builder {
	return New(&core.DialectConfig{
		Name: name,
		Identifiers: core.IdentifierConfig{
			Quote:         `"`,
			QuoteEnd:      `"`,
			Escape:        `""`,
			Normalization: core.NormLowercase,
		},
	})
}

// New creates a dialect builder from a DialectConfig.
// This is the preferred constructor for dialects defined as config data.
func New(cfg *core.DialectConfig) *Builder {
	b := &Builder{
		dialect: &Dialect{
			Name:                cfg.Name,
			Identifiers:         cfg.Identifiers,
			DefaultSchema:       cfg.DefaultSchema,
			Placeholder:         cfg.Placeholder,
			SupportsDistinctOn:  cfg.SupportsDistinctOn,
			SupportsExceptAll:   cfg.SupportsExceptAll,
			SupportsNullsFirst:  cfg.SupportsNullsFirst,
			OffsetRequiresLimit: cfg.OffsetRequiresLimit,
			reservedWords:       make(map[string]struct{}),
		},
	}
	b.WithReservedWords(cfg.ReservedWords...)
	b.WithDataTypes(cfg.DataTypes...)
	return b
}

// Identifiers configures identifier quoting and normalization.
func (b *Builder) Identifiers(quote, quoteEnd, escape string, norm core.NormalizationStrategy) *Builder {
	b.dialect.Identifiers = core.IdentifierConfig{
		Quote:         quote,
		QuoteEnd:      quoteEnd,
		Escape:        escape,
		Normalization: norm,
	}
	return b
}

// WithDataTypes registers supported data types.
func (b *Builder) WithDataTypes(types ...string) *Builder {
	b.dialect.dataTypes = append(b.dialect.dataTypes, types...)
	return b
}

// DefaultSchema sets the default schema name.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.dialect.DefaultSchema = schema
	return b
}

// PlaceholderStyle sets how query parameters are formatted.
func (b *Builder) PlaceholderStyle(style core.PlaceholderStyle) *Builder {
	b.dialect.Placeholder = style
	return b
}

// WithReservedWords registers words that need quoting when used as identifiers.
func (b *Builder) WithReservedWords(words ...string) *Builder {
	for _, w := range words {
		b.dialect.reservedWords[strings.ToLower(w)] = struct{}{}
	}
	return b
}

// DistinctOn enables SELECT DISTINCT ON.
func (b *Builder) DistinctOn() *Builder {
	b.dialect.SupportsDistinctOn = true
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	return b.dialect
}
