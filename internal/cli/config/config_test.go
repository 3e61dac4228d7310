package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/relsql/pkg/adapter"
	"github.com/leapstack-labs/relsql/pkg/dialect"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter and dialect packages so they register via init()
	_ "github.com/leapstack-labs/relsql/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/relsql/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/relsql/pkg/adapters/sqlite"
	_ "github.com/leapstack-labs/relsql/pkg/dialects"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("relsql", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", "", nil)
	require.NoError(t, err)

	assert.Equal(t, OutputAuto, cfg.Output)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Empty(t, cfg.File)
	assert.Equal(t, "sqlite", cfg.Target.Type)
	assert.Equal(t, ":memory:", cfg.Target.Database)
	assert.Equal(t, "main", cfg.Target.Schema)
	assert.Equal(t, "sqlite", cfg.DialectName())
}

func TestLoad_FileSearchedUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
dialect: postgres
schema_files: [schema/tables.yml]
output: table
pretty: true
target:
  type: duckdb
  database: warehouse.db
vars:
  region: emea
`)
	sub := filepath.Join(root, "queries", "daily")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	t.Chdir(sub)

	cfg, err := Load("", "", nil)
	require.NoError(t, err)

	// macOS temp dirs are symlinked, compare resolved paths
	wantRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(cfg.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, wantRoot, gotRoot)

	assert.Equal(t, "postgres", cfg.DialectName())
	assert.Equal(t, OutputTable, cfg.Output)
	assert.True(t, cfg.Pretty)
	assert.Equal(t, []string{filepath.Join(cfg.ProjectRoot, "schema", "tables.yml")}, cfg.SchemaFiles)
	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, "main", cfg.Target.Schema)
	assert.Equal(t, "emea", cfg.Vars["region"])
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
dialect: postgres
output: table
schema_files: [a.yml]
`)
	t.Chdir(dir)

	flags := newFlags(t, "--dialect", "duckdb", "-o", "json", "--schema", "b.yml", "--schema", "c.yml", "--database", "x.db", "-v")
	cfg, err := Load("", "", flags)
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.DialectName())
	assert.Equal(t, OutputJSON, cfg.Output)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "x.db", cfg.Target.Database)
	assert.Len(t, cfg.SchemaFiles, 2)
	assert.Equal(t, "c.yml", filepath.Base(cfg.SchemaFiles[1]))
	assert.True(t, filepath.IsAbs(cfg.SchemaFiles[0]))
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RELSQL_OUTPUT", "json")
	t.Setenv("RELSQL_SCHEMA_FILES", "a.yml,b.yml")
	t.Setenv("RELSQL_TARGET__TYPE", "postgres")
	t.Setenv("RELSQL_TARGET__PASSWORD", "${TEST_RELSQL_PASSWORD}")
	t.Setenv("TEST_RELSQL_PASSWORD", "s3cret")

	cfg, err := Load("", "", nil)
	require.NoError(t, err)

	assert.Equal(t, OutputJSON, cfg.Output)
	assert.Len(t, cfg.SchemaFiles, 2)
	assert.Equal(t, "postgres", cfg.Target.Type)
	assert.Equal(t, "s3cret", cfg.Target.Password)
	assert.Equal(t, 5432, cfg.Target.Port)
	assert.Equal(t, "public", cfg.Target.Schema)
}

func TestLoad_NamedTarget(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
target:
  type: sqlite
  database: dev.db
  options:
    cache: shared
targets:
  prod:
    type: postgres
    host: db.internal
    database: app
`)

	cfg, err := Load(path, "prod", nil)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "postgres", cfg.Target.Type)
	assert.Equal(t, "db.internal", cfg.Target.Host)
	assert.Equal(t, "app", cfg.Target.Database)
	assert.Equal(t, 5432, cfg.Target.Port)
	assert.Equal(t, "shared", cfg.Target.Options["cache"])

	_, err = Load(path, "staging", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown target "staging" (defined: prod)`)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "output: [unterminated")

	_, err := Load(path, "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		check  func(t *testing.T, err error)
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
			check:  func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name:   "unknown dialect",
			mutate: func(c *Config) { c.Dialect = "oracle" },
			check: func(t *testing.T, err error) {
				var de *dialect.UnknownDialectError
				assert.ErrorAs(t, err, &de)
			},
		},
		{
			name:   "dialect without an adapter",
			mutate: func(c *Config) { c.Dialect = "snowflake" },
			check:  func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name:   "unknown output",
			mutate: func(c *Config) { c.Output = "markdown" },
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, `unknown output mode "markdown"`)
			},
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.LogLevel = "loud" },
			check:  func(t *testing.T, err error) { assert.ErrorContains(t, err, `invalid log_level "loud"`) },
		},
		{
			name:   "unknown target type",
			mutate: func(c *Config) { c.Target.Type = "mysql"; c.Dialect = "postgres" },
			check: func(t *testing.T, err error) {
				var ae *adapter.UnknownAdapterError
				require.ErrorAs(t, err, &ae)
				assert.Contains(t, ae.Available, "sqlite")
			},
		},
		{
			name:   "missing target",
			mutate: func(c *Config) { c.Target = nil; c.Dialect = "postgres" },
			check:  func(t *testing.T, err error) { assert.ErrorContains(t, err, "target type is required") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			tt.check(t, c.Validate())
		})
	}
}

func TestDefaultSchemaForType(t *testing.T) {
	tests := []struct {
		dbType   string
		expected string
	}{
		{"duckdb", "main"},
		{"DuckDB", "main"},
		{"postgres", "public"},
		{"sqlite", "main"},
		{"unknown", "main"},
	}
	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			assert.Equal(t, tt.expected, DefaultSchemaForType(tt.dbType))
		})
	}
}

func TestMergeTargetConfig(t *testing.T) {
	base := &TargetConfig{Type: "postgres", Host: "localhost", Port: 5432, User: "dev", Options: map[string]string{"sslmode": "disable"}}

	t.Run("same type keeps location", func(t *testing.T) {
		merged := MergeTargetConfig(base, &TargetConfig{User: "prod", Options: map[string]string{"sslmode": "require"}})
		assert.Equal(t, "localhost", merged.Host)
		assert.Equal(t, "prod", merged.User)
		assert.Equal(t, "require", merged.Options["sslmode"])
		assert.Equal(t, "disable", base.Options["sslmode"], "base is not modified")
	})

	t.Run("other type starts over", func(t *testing.T) {
		merged := MergeTargetConfig(base, &TargetConfig{Type: "duckdb", Database: "w.db"})
		assert.Equal(t, "duckdb", merged.Type)
		assert.Empty(t, merged.Host)
		assert.Zero(t, merged.Port)
		assert.Equal(t, "disable", merged.Options["sslmode"])
	})

	t.Run("nil sides", func(t *testing.T) {
		assert.Same(t, base, MergeTargetConfig(base, nil))
		assert.Same(t, base, MergeTargetConfig(nil, base))
	})
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_RELSQL_HOST", "db.example.com")

	assert.Equal(t, "db.example.com:5432", expandEnvVars("${TEST_RELSQL_HOST}:5432"))
	assert.Equal(t, "${TEST_RELSQL_UNSET}", expandEnvVars("${TEST_RELSQL_UNSET}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(&buf, &Config{LogLevel: "info"})
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	logger, err = NewLogger(&buf, &Config{LogLevel: "error", Verbose: true})
	require.NoError(t, err)
	logger.Debug("debugging")
	assert.Contains(t, buf.String(), "debugging")

	_, err = NewLogger(&buf, &Config{LogLevel: "nope"})
	assert.Error(t, err)
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.NotNil(t, GetLogger(ctx))
	assert.Equal(t, OutputAuto, GetConfig(ctx).Output)

	logger := slog.New(slog.DiscardHandler)
	cfg := &Config{Output: OutputJSON}
	ctx = WithConfig(WithLogger(ctx, logger), cfg)
	assert.Same(t, logger, GetLogger(ctx))
	assert.Same(t, cfg, GetConfig(ctx))
}
