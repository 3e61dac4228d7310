package compiler_test

import (
	"strings"
	"testing"

	"github.com/leapstack-labs/relsql/internal/testutil"
	"github.com/leapstack-labs/relsql/pkg/compiler"
	"github.com/leapstack-labs/relsql/pkg/dialect"
	"github.com/leapstack-labs/relsql/pkg/dialects/postgres"
	"github.com/leapstack-labs/relsql/pkg/dialects/snowflake"
	"github.com/leapstack-labs/relsql/pkg/dialects/sqlite"
	"github.com/leapstack-labs/relsql/pkg/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	users     *sql.TableClause
	addresses *sql.TableClause
}

func newFixture() fixture {
	users := sql.Table("users",
		sql.Column("id", sql.PrimaryKey(), sql.WithType(sql.Integer)),
		sql.Column("name", sql.WithType(sql.String)),
	)
	addresses := sql.Table("addresses",
		sql.Column("id", sql.PrimaryKey(), sql.WithType(sql.Integer)),
		sql.Column("user_id", sql.WithType(sql.Integer), sql.References(users.C("id"))),
		sql.Column("email", sql.WithType(sql.String)),
	)
	return fixture{users: users, addresses: addresses}
}

func compile(t *testing.T, elem sql.ClauseElement, d *dialect.Dialect, opts ...compiler.Option) *compiler.Compiled {
	t.Helper()
	out, err := compiler.Compile(elem, d, opts...)
	require.NoError(t, err)
	return out
}

func TestCompile_Select(t *testing.T) {
	f := newFixture()
	users, addresses := f.users, f.addresses
	id, name := users.C("id"), users.C("name")

	joined, err := users.Join(addresses, nil)
	require.NoError(t, err)
	outer, err := users.OuterJoin(addresses, nil)
	require.NoError(t, err)
	offset, err := sql.Select(id).Offset(5)
	require.NoError(t, err)
	limited, err := sql.Select(id).OrderBy(sql.Desc(id)).Limit(10)
	require.NoError(t, err)
	counted := sql.As(sql.Func("count", id), "n")

	tests := []struct {
		name string
		elem sql.ClauseElement
		want string
		args []any
	}{
		{
			name: "all columns",
			elem: sql.Select(users),
			want: "SELECT users.id, users.name FROM users",
		},
		{
			name: "where with bind",
			elem: sql.Select(id).Where(sql.Eq(name, "ed")),
			want: "SELECT users.id FROM users WHERE users.name = $1",
			args: []any{"ed"},
		},
		{
			name: "and groups or",
			elem: sql.Select(id).Where(sql.Eq(id, 1), sql.Or(sql.Eq(id, 2), sql.Eq(id, 3))),
			want: "SELECT users.id FROM users WHERE users.id = $1 AND (users.id = $2 OR users.id = $3)",
			args: []any{1, 2, 3},
		},
		{
			name: "or does not group and",
			elem: sql.Select(id).Where(sql.Or(sql.Eq(id, 1), sql.And(sql.Eq(id, 2), sql.Eq(name, "x")))),
			want: "SELECT users.id FROM users WHERE users.id = $1 OR users.id = $2 AND users.name = $3",
			args: []any{1, 2, "x"},
		},
		{
			name: "in list and null",
			elem: sql.Select(id).Where(sql.In(id, 1, 2), sql.Eq(name, nil)),
			want: "SELECT users.id FROM users WHERE users.id IN ($1, $2) AND users.name IS NULL",
			args: []any{1, 2},
		},
		{
			name: "label",
			elem: sql.Select(sql.As(name, "username")),
			want: "SELECT users.name AS username FROM users",
		},
		{
			name: "anonymous function label",
			elem: sql.Select(sql.Func("count", id)),
			want: "SELECT count(users.id) AS count_1 FROM users",
		},
		{
			name: "order by label name",
			elem: sql.Select(counted, name).GroupBy(name).OrderBy(sql.Desc(counted)),
			want: "SELECT count(users.id) AS n, users.name FROM users GROUP BY users.name ORDER BY n DESC",
		},
		{
			name: "apply labels",
			elem: sql.Select(users).ApplyLabels(),
			want: "SELECT users.id AS users_id, users.name AS users_name FROM users",
		},
		{
			name: "distinct",
			elem: sql.Select(name).Distinct(),
			want: "SELECT DISTINCT users.name FROM users",
		},
		{
			name: "distinct on",
			elem: sql.Select(id, name).Distinct(name),
			want: "SELECT DISTINCT ON (users.name) users.id, users.name FROM users",
		},
		{
			name: "join",
			elem: sql.Select(name, addresses.C("email")).SelectFrom(joined),
			want: "SELECT users.name, addresses.email FROM users JOIN addresses ON users.id = addresses.user_id",
		},
		{
			name: "outer join",
			elem: sql.Select(name).SelectFrom(outer),
			want: "SELECT users.name FROM users LEFT OUTER JOIN addresses ON users.id = addresses.user_id",
		},
		{
			name: "limit",
			elem: limited,
			want: "SELECT users.id FROM users ORDER BY users.id DESC LIMIT 10",
		},
		{
			name: "offset",
			elem: offset,
			want: "SELECT users.id FROM users OFFSET 5",
		},
		{
			name: "prefix",
			elem: sql.Select(id).PrefixWith("/*+ parallel */"),
			want: "SELECT /*+ parallel */ users.id FROM users",
		},
		{
			name: "hint for this dialect",
			elem: sql.Select(id).WithHint(users, "TABLESAMPLE SYSTEM (10)", "postgres").
				WithHint(users, "WITH (NOLOCK)", "mssql"),
			want: "SELECT users.id FROM users TABLESAMPLE SYSTEM (10)",
		},
		{
			name: "text from",
			elem: sql.Select(sql.Raw("x")).SelectFrom(sql.NewTextFrom("generate_series(1, 3) AS x")),
			want: "SELECT x FROM generate_series(1, 3) AS x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := compile(t, tt.elem, postgres.Postgres)
			assert.Equal(t, tt.want, out.SQL)
			assert.Equal(t, tt.args, out.Args)
		})
	}
}

func TestCompile_SelectableColumns(t *testing.T) {
	f := newFixture()
	joined, err := f.users.Join(f.addresses, nil)
	require.NoError(t, err)
	flat, err := sql.AliasOf(joined, "", true)
	require.NoError(t, err)

	const cols = "SELECT users.id, users.name, addresses.id, addresses.user_id, addresses.email"
	tests := []struct {
		name string
		elem sql.ClauseElement
		want string
	}{
		{
			name: "join",
			elem: sql.Select(joined),
			want: cols + " FROM users JOIN addresses ON users.id = addresses.user_id",
		},
		{
			name: "grouped join",
			elem: sql.Select(sql.NewFromGrouping(joined)),
			want: cols + " FROM users JOIN addresses ON users.id = addresses.user_id",
		},
		{
			name: "with only columns",
			elem: sql.Select(f.users.C("id")).WithOnlyColumns(joined),
			want: cols + " FROM users JOIN addresses ON users.id = addresses.user_id",
		},
		{
			name: "join plus a column",
			elem: sql.Select(f.users.C("name")).Column(joined),
			want: "SELECT users.name, users.id, addresses.id, addresses.user_id, addresses.email" +
				" FROM users JOIN addresses ON users.id = addresses.user_id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compile(t, tt.elem, postgres.Postgres).SQL)
		})
	}

	t.Run("flat alias", func(t *testing.T) {
		out := compile(t, sql.Select(flat), postgres.Postgres)
		_, from, ok := strings.Cut(out.SQL, " FROM ")
		require.True(t, ok)
		assert.Contains(t, from, " JOIN ")
		assert.NotContains(t, from, ",")
	})
}

func TestCompile_Placeholders(t *testing.T) {
	f := newFixture()
	stmt := sql.Select(f.users.C("id")).Where(sql.Eq(f.users.C("name"), "ed"), sql.Gt(f.users.C("id"), 5))

	tests := []struct {
		name    string
		dialect *dialect.Dialect
		want    string
	}{
		{"question", sqlite.SQLite, "SELECT users.id FROM users WHERE users.name = ? AND users.id > ?"},
		{"dollar", postgres.Postgres, "SELECT users.id FROM users WHERE users.name = $1 AND users.id > $2"},
		{"colon", snowflake.Snowflake, `SELECT "users"."id" FROM "users" WHERE "users"."name" = :1 AND "users"."id" > :2`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := compile(t, stmt, tt.dialect)
			assert.Equal(t, tt.want, out.SQL)
			assert.Equal(t, []any{"ed", 5}, out.Args)
		})
	}
}

func TestCompile_Quoting(t *testing.T) {
	order := sql.Table("order", sql.Column("user"), sql.Column("Total"))
	out := compile(t, sql.Select(order), postgres.Postgres)
	assert.Equal(t, `SELECT "order"."user", "order"."Total" FROM "order"`, out.SQL)

	tbl := sql.SchemaTable("analytics", "events", sql.Column("id"))
	out = compile(t, sql.Select(tbl), postgres.Postgres)
	assert.Equal(t, "SELECT analytics.events.id FROM analytics.events", out.SQL)
}

func TestCompile_Arithmetic(t *testing.T) {
	f := newFixture()
	id := f.users.C("id")

	out := compile(t, sql.Select(sql.As(sql.Mul(sql.Add(id, 1), 2), "x")), postgres.Postgres)
	assert.Equal(t, "SELECT (users.id + $1) * $2 AS x FROM users", out.SQL)
	assert.Equal(t, []any{1, 2}, out.Args)

	out = compile(t, sql.Select(sql.As(sql.Sub(id, sql.Sub(id, 1)), "y")), postgres.Postgres)
	assert.Equal(t, "SELECT users.id - (users.id - $1) AS y FROM users", out.SQL)
}

func TestCompile_Subqueries(t *testing.T) {
	f := newFixture()
	users, addresses := f.users, f.addresses

	t.Run("correlated scalar", func(t *testing.T) {
		count := sql.Select(sql.Func("count", addresses.C("id"))).
			Where(sql.Eq(addresses.C("user_id"), users.C("id")))
		stmt := sql.Select(users.C("name"), count.Label("address_count"))

		out := compile(t, stmt, postgres.Postgres)
		assert.Equal(t,
			"SELECT users.name, (SELECT count(addresses.id) AS count_1 FROM addresses WHERE addresses.user_id = users.id) AS address_count FROM users",
			out.SQL)
	})

	t.Run("exists", func(t *testing.T) {
		exists := sql.ExistsOf().Where(sql.Eq(addresses.C("user_id"), users.C("id")))
		stmt := sql.Select(users.C("name")).Where(exists)

		out := compile(t, stmt, postgres.Postgres)
		assert.Equal(t,
			"SELECT users.name FROM users WHERE EXISTS (SELECT * FROM addresses WHERE addresses.user_id = users.id)",
			out.SQL)
	})

	t.Run("in subquery", func(t *testing.T) {
		stmt := sql.Select(users.C("name")).Where(sql.In(users.C("id"), sql.Select(addresses.C("user_id"))))

		out := compile(t, stmt, postgres.Postgres)
		assert.Equal(t,
			"SELECT users.name FROM users WHERE users.id IN (SELECT addresses.user_id FROM addresses)",
			out.SQL)
	})

	t.Run("table alias", func(t *testing.T) {
		a := addresses.Alias("a")
		stmt := sql.Select(a.C("email")).Where(sql.Eq(a.C("user_id"), 7))

		out := compile(t, stmt, postgres.Postgres)
		assert.Equal(t, "SELECT a.email FROM addresses AS a WHERE a.user_id = $1", out.SQL)
		assert.Equal(t, []any{7}, out.Args)
	})

	t.Run("derived table", func(t *testing.T) {
		sub := sql.Select(users.C("id")).Where(sql.Gt(users.C("id"), 5)).Alias("sub")
		stmt := sql.Select(sub.C("id")).Where(sql.Lt(sub.C("id"), 10))

		out := compile(t, stmt, postgres.Postgres)
		assert.Equal(t,
			"SELECT sub.id FROM (SELECT users.id FROM users WHERE users.id > $1) AS sub WHERE sub.id < $2",
			out.SQL)
		assert.Equal(t, []any{5, 10}, out.Args)
	})
}

func TestCompile_Compound(t *testing.T) {
	f := newFixture()
	users, addresses := f.users, f.addresses

	u, err := sql.Union(
		sql.Select(users.C("id")).Where(sql.Eq(users.C("name"), "a")),
		sql.Select(addresses.C("user_id")),
	)
	require.NoError(t, err)
	ordered, err := u.OrderBy(u.C("id")).Limit(3)
	require.NoError(t, err)

	out := compile(t, ordered, postgres.Postgres)
	assert.Equal(t,
		"SELECT users.id FROM users WHERE users.name = $1 UNION SELECT addresses.user_id FROM addresses ORDER BY id LIMIT 3",
		out.SQL)
	assert.Equal(t, []any{"a"}, out.Args)

	t.Run("except all unsupported", func(t *testing.T) {
		ea, err := sql.ExceptAll(sql.Select(users.C("id")), sql.Select(addresses.C("user_id")))
		require.NoError(t, err)

		_, err = compiler.Compile(ea, sqlite.SQLite)
		var ce *compiler.CompileError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "compound_select", ce.Element)

		out := compile(t, ea, postgres.Postgres)
		assert.Equal(t, "SELECT users.id FROM users EXCEPT ALL SELECT addresses.user_id FROM addresses", out.SQL)
	})
}

func TestCompile_CTE(t *testing.T) {
	f := newFixture()
	users, addresses := f.users, f.addresses

	t.Run("arguments of the body come first", func(t *testing.T) {
		big := sql.Select(users.C("id")).Where(sql.Gt(users.C("id"), 1)).CTE("big", false)
		stmt := sql.Select(big.C("id")).Where(sql.Eq(big.C("id"), 3))

		out := compile(t, stmt, postgres.Postgres)
		assert.Equal(t,
			"WITH big AS (SELECT users.id FROM users WHERE users.id > $1) SELECT big.id FROM big WHERE big.id = $2",
			out.SQL)
		assert.Equal(t, []any{1, 3}, out.Args)
	})

	t.Run("recursive", func(t *testing.T) {
		parts := sql.Table("parts", sql.Column("part"), sql.Column("sub_part"))
		included := sql.Select(parts.C("sub_part"), parts.C("part")).
			Where(sql.Eq(parts.C("part"), "our part")).
			CTE("included_parts", true)
		incl := included.Alias("incl")
		p := parts.Alias("p")

		rec, err := included.UnionAll(
			sql.Select(p.C("sub_part"), p.C("part")).Where(sql.Eq(p.C("part"), incl.C("sub_part"))),
		)
		require.NoError(t, err)

		out := compile(t, sql.Select(rec.C("sub_part")), postgres.Postgres)
		assert.Equal(t,
			"WITH RECURSIVE included_parts(sub_part, part) AS ("+
				"SELECT parts.sub_part, parts.part FROM parts WHERE parts.part = $1 "+
				"UNION ALL "+
				"SELECT p.sub_part, p.part FROM parts AS p, included_parts AS incl WHERE p.part = incl.sub_part) "+
				"SELECT included_parts.sub_part FROM included_parts",
			out.SQL)
		assert.Equal(t, []any{"our part"}, out.Args)
	})

	t.Run("unrelated ctes with one name", func(t *testing.T) {
		a := sql.Select(users.C("id")).CTE("x", false)
		b := sql.Select(addresses.C("id")).CTE("x", false)

		_, err := compiler.Compile(sql.Select(a.C("id"), b.C("id")), postgres.Postgres)
		var ce *compiler.CompileError
		require.ErrorAs(t, err, &ce)
		assert.Contains(t, ce.Message, `"x"`)
	})
}

func TestCompile_DialectRules(t *testing.T) {
	f := newFixture()
	id := f.users.C("id")

	t.Run("distinct on unsupported", func(t *testing.T) {
		_, err := compiler.Compile(sql.Select(id).Distinct(id), sqlite.SQLite)
		var ce *compiler.CompileError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "select", ce.Element)
	})

	t.Run("offset needs limit", func(t *testing.T) {
		stmt, err := sql.Select(id).Offset(5)
		require.NoError(t, err)
		out := compile(t, stmt, sqlite.SQLite)
		assert.Equal(t, "SELECT users.id FROM users LIMIT -1 OFFSET 5", out.SQL)
	})

	t.Run("dialect required", func(t *testing.T) {
		_, err := compiler.Compile(sql.Select(id), nil)
		assert.ErrorIs(t, err, dialect.ErrDialectRequired)
	})

	t.Run("nothing to compile", func(t *testing.T) {
		_, err := compiler.Compile(nil, postgres.Postgres)
		assert.Error(t, err)
	})
}

func TestCompile_Pretty(t *testing.T) {
	f := newFixture()
	users, addresses := f.users, f.addresses

	sub := sql.Select(addresses.C("user_id")).Where(sql.Like(addresses.C("email"), "%@x.io")).Alias("s")
	stmt := sql.Select(users.C("name")).Where(sql.Eq(users.C("id"), sub.C("user_id")))

	out := compile(t, stmt, postgres.Postgres, compiler.WithPretty(), compiler.WithLogger(testutil.NewTestLogger(t)))
	assert.Equal(t,
		"SELECT users.name\n"+
			"FROM users, (SELECT addresses.user_id\n"+
			"  FROM addresses\n"+
			"  WHERE addresses.email LIKE $1) AS s\n"+
			"WHERE users.id = s.user_id",
		out.SQL)
}

func TestCompile_WarnsOnKeyConflicts(t *testing.T) {
	f := newFixture()
	logger, logs := testutil.NewCaptureLogger()

	stmt := sql.Select(f.users.C("id"), f.addresses.C("id"))
	compile(t, stmt, postgres.Postgres, compiler.WithLogger(logger))

	assert.Contains(t, logs.String(), "column key replaced by an unrelated column")
	assert.Contains(t, logs.String(), "key=id")
}
