package commands

import (
	"bytes"
	"context"
	dbsql "database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/relsql/internal/cli/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter and dialect packages so they register via init()
	_ "github.com/leapstack-labs/relsql/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/relsql/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/relsql/pkg/adapters/sqlite"
	_ "github.com/leapstack-labs/relsql/pkg/dialects"
)

const testSchema = `
tables:
  - name: users
    columns:
      - {name: id, type: integer, primary_key: true}
      - {name: name, type: varchar}
  - name: addresses
    columns:
      - {name: id, type: integer, primary_key: true}
      - {name: user_id, type: integer, references: users.id}
      - {name: email, type: varchar}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// testConfig returns a config with the test schema and the given dialect.
func testConfig(t *testing.T, dir, dialectName, output string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Dialect = dialectName
	cfg.Output = output
	cfg.SchemaFiles = []string{writeFile(t, dir, "schema.yml", testSchema)}
	return cfg
}

// execute runs cmd with cfg in its context and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{}, args...))
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.ExecuteContext(config.WithConfig(context.Background(), cfg))
	return out.String(), err
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewRenderCommand(), "render <script.star>...", []string{"watch"}},
		{NewDescribeCommand(), "describe <script.star>", nil},
		{NewExecCommand(), "exec <script.star>", nil},
		{NewDialectsCommand(), "dialects", nil},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Long, "Long should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestRender_JSON(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, "postgres", config.OutputJSON)
	a := writeFile(t, dir, "a.star", `query = select(users.c.id).where(users.c.id.gt(5))`)
	b := writeFile(t, dir, "b.star", `query = users.select()`)

	out, err := execute(t, NewRenderCommand(), cfg, a, b)
	require.NoError(t, err)

	var got []RenderOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].File)
	assert.Equal(t, "SELECT users.id FROM users WHERE users.id > $1", got[0].SQL)
	assert.Equal(t, []any{float64(5)}, got[0].Args)
	assert.Equal(t, b, got[1].File)
	assert.Equal(t, "SELECT users.id, users.name FROM users", got[1].SQL)
	assert.Empty(t, got[1].Args)
}

func TestRender_Text(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.star", `query = select(users.c.name).where(users.c.id.eq(vars["id"]))`)
	b := writeFile(t, dir, "b.star", `query = addresses.select()`)

	t.Run("single script", func(t *testing.T) {
		cfg := testConfig(t, dir, "", config.OutputText)
		cfg.Vars = map[string]any{"id": 7}

		out, err := execute(t, NewRenderCommand(), cfg, a)
		require.NoError(t, err)
		assert.Equal(t, "SELECT users.name FROM users WHERE users.id = ?\n-- args: 7\n", out)
	})

	t.Run("several scripts get headers", func(t *testing.T) {
		cfg := testConfig(t, dir, "postgres", config.OutputText)
		cfg.Vars = map[string]any{"id": 7}

		out, err := execute(t, NewRenderCommand(), cfg, a, b)
		require.NoError(t, err)
		assert.Contains(t, out, "-- "+a+"\n")
		assert.Contains(t, out, "-- "+b+"\n")
		assert.Contains(t, out, "SELECT addresses.id, addresses.user_id, addresses.email FROM addresses")
	})
}

func TestRender_Errors(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, "postgres", config.OutputText)

	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"no query", `x = 1`, "script does not define query"},
		{"unknown table", `query = orders.select()`, "orders"},
		{"syntax", `query = (`, "bad.star"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "bad.star", tt.script)
			_, err := execute(t, NewRenderCommand(), cfg, path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("missing schema file", func(t *testing.T) {
		cfg := testConfig(t, dir, "postgres", config.OutputText)
		cfg.SchemaFiles = append(cfg.SchemaFiles, filepath.Join(dir, "nope.yml"))
		path := writeFile(t, dir, "ok.star", `query = users.select()`)

		_, err := execute(t, NewRenderCommand(), cfg, path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load schema")
	})

	t.Run("requires a script", func(t *testing.T) {
		_, err := execute(t, NewRenderCommand(), cfg)
		assert.Error(t, err)
	})
}

func TestDescribe(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "q.star", `query = select(users.c.id, users.c.name)`)

	t.Run("json", func(t *testing.T) {
		cfg := testConfig(t, dir, "postgres", config.OutputJSON)
		out, err := execute(t, NewDescribeCommand(), cfg, script)
		require.NoError(t, err)

		var got Description
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, script, got.File)
		assert.Equal(t, []string{"users"}, got.Froms)
		assert.Equal(t, []ColumnInfo{
			{Key: "id", Name: "id", Type: "INTEGER", PrimaryKey: true, Lineage: []string{"users.id"}},
			{Key: "name", Name: "name", Type: "VARCHAR", Lineage: []string{"users.name"}},
		}, got.Columns)
	})

	t.Run("text", func(t *testing.T) {
		cfg := testConfig(t, dir, "postgres", config.OutputText)
		out, err := execute(t, NewDescribeCommand(), cfg, script)
		require.NoError(t, err)
		assert.Equal(t, "id INTEGER PRIMARY KEY <- users.id\nname VARCHAR <- users.name\nFROM users\n", out)
	})

	t.Run("table", func(t *testing.T) {
		cfg := testConfig(t, dir, "postgres", config.OutputTable)
		out, err := execute(t, NewDescribeCommand(), cfg, script)
		require.NoError(t, err)
		assert.Contains(t, out, "users.name")
		assert.Contains(t, out, "FROM users")
	})

	t.Run("not selectable", func(t *testing.T) {
		cfg := testConfig(t, dir, "postgres", config.OutputJSON)
		col := writeFile(t, dir, "col.star", `query = users.c.id.eq(1)`)
		_, err := execute(t, NewDescribeCommand(), cfg, col)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query is not selectable")
	})
}

func TestExec_SQLite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "app.db")

	db, err := dbsql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);
INSERT INTO users (id, name) VALUES (1, 'alice'), (2, 'bob'), (3, 'carol');`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	script := writeFile(t, dir, "q.star", `
query = select(users.c.name).where(users.c.id.gt(vars["min_id"])).order_by(desc(users.c.id))
`)

	cfg := testConfig(t, dir, "", config.OutputJSON)
	cfg.Target.Database = dbPath
	cfg.Vars = map[string]any{"min_id": 1}

	out, err := execute(t, NewExecCommand(), cfg, script)
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Equal(t, []map[string]any{{"name": "carol"}, {"name": "bob"}}, rows)

	t.Run("text", func(t *testing.T) {
		cfg.Output = config.OutputText
		out, err := execute(t, NewExecCommand(), cfg, script)
		require.NoError(t, err)
		assert.Contains(t, out, "name\n")
		assert.Contains(t, out, "carol\nbob\n")
	})

	t.Run("empty result", func(t *testing.T) {
		cfg.Output = config.OutputTable
		cfg.Vars = map[string]any{"min_id": 10}
		out, err := execute(t, NewExecCommand(), cfg, script)
		require.NoError(t, err)
		assert.Equal(t, "(0 rows)\n", out)
	})

	t.Run("query error", func(t *testing.T) {
		bad := writeFile(t, dir, "bad.star", `query = addresses.select()`)
		_, err := execute(t, NewExecCommand(), cfg, bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.star")
	})
}

func TestDialects(t *testing.T) {
	cfg := config.Default()

	t.Run("json", func(t *testing.T) {
		cfg.Output = config.OutputJSON
		out, err := execute(t, NewDialectsCommand(), cfg)
		require.NoError(t, err)

		var infos []DialectInfo
		require.NoError(t, json.Unmarshal([]byte(out), &infos))
		byName := make(map[string]DialectInfo)
		for _, d := range infos {
			byName[d.Name] = d
		}
		require.Contains(t, byName, "postgres")
		assert.Equal(t, "$1", byName["postgres"].Placeholder)
		assert.Equal(t, "public", byName["postgres"].DefaultSchema)
		assert.True(t, byName["postgres"].Adapter)
		assert.Equal(t, "?", byName["sqlite"].Placeholder)
		require.Contains(t, byName, "snowflake")
		assert.False(t, byName["snowflake"].Adapter)
	})

	t.Run("text", func(t *testing.T) {
		cfg.Output = config.OutputText
		out, err := execute(t, NewDialectsCommand(), cfg)
		require.NoError(t, err)
		assert.Contains(t, out, "duckdb\n")
		assert.Contains(t, out, "postgres\n")
	})
}
