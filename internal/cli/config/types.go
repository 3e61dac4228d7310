// Package config provides configuration management for the relsql CLI.
//
// Configuration is layered with koanf: defaults, then relsql.yaml (found by
// searching upward from the working directory), then RELSQL_ environment
// variables, then explicitly set flags.
package config

import (
	"github.com/leapstack-labs/relsql/pkg/core"
)

// TargetConfig is an alias for the shared target configuration.
// This allows CLI code to use config.TargetConfig without importing pkg/core.
type TargetConfig = core.TargetConfig

// Config holds all CLI configuration options.
type Config struct {
	// Dialect overrides the dialect implied by the target type.
	Dialect     string                   `koanf:"dialect"`
	SchemaFiles []string                 `koanf:"schema_files"`
	Output      string                   `koanf:"output"`
	Pretty      bool                     `koanf:"pretty"`
	Verbose     bool                     `koanf:"verbose"`
	LogLevel    string                   `koanf:"log_level"`
	Target      *TargetConfig            `koanf:"target"`
	Targets     map[string]*TargetConfig `koanf:"targets"` // named targets selected with --target
	Vars        map[string]any           `koanf:"vars"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// DialectName returns the dialect scripts are compiled with.
func (c *Config) DialectName() string {
	if c.Dialect != "" {
		return c.Dialect
	}
	if c.Target != nil {
		return c.Target.Type
	}
	return DefaultTargetType
}

// Output modes.
const (
	OutputAuto  = "auto"  // table on a terminal, text or json when piped
	OutputText  = "text"  // plain SQL
	OutputJSON  = "json"  // machine readable
	OutputTable = "table" // go-pretty tables
)

// OutputModes lists the accepted values of the output key.
var OutputModes = []string{OutputAuto, OutputText, OutputJSON, OutputTable}

// Default configuration values.
const (
	ConfigFileName    = "relsql.yaml"
	ConfigFileNameAlt = "relsql.yml"
	EnvPrefix         = "RELSQL_"
	DefaultOutput     = OutputAuto
	DefaultLogLevel   = "warn"
	DefaultTargetType = "sqlite"
	DefaultDatabase   = ":memory:"
)

// Default returns the configuration used when nothing is loaded.
func Default() *Config {
	return &Config{
		Output:   DefaultOutput,
		LogLevel: DefaultLogLevel,
		Target: &TargetConfig{
			Type:     DefaultTargetType,
			Database: DefaultDatabase,
			Schema:   DefaultSchemaForType(DefaultTargetType),
		},
	}
}
