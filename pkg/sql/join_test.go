package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin_Columns(t *testing.T) {
	s := newSchema()
	j := mustJoin(t, s.users, s.addresses, nil)

	assert.Equal(t, s.users.Columns().Len()+s.addresses.Columns().Len(), j.Columns().Len())
	assert.Equal(t,
		[]string{"users_id", "users_name", "addresses_id", "addresses_user_id", "addresses_email"},
		j.Columns().Keys())
	// join columns are the underlying columns, not proxies
	assert.Same(t, s.addresses.C("email"), j.C("addresses_email"))
	assert.Len(t, j.ForeignKeys(), 1)
}

func TestJoin_InferredOnclause(t *testing.T) {
	s := newSchema()

	t.Run("single foreign key", func(t *testing.T) {
		j := mustJoin(t, s.users, s.addresses, nil)
		bin, ok := j.Onclause().(*BinaryExpression)
		require.True(t, ok)
		assert.Equal(t, OpEq, bin.Operator())
		assert.Same(t, s.users.C("id"), bin.Left())
		assert.Same(t, s.addresses.C("user_id"), bin.Right())
	})

	t.Run("reverse direction", func(t *testing.T) {
		j := mustJoin(t, s.addresses, s.users, nil)
		bin := j.Onclause().(*BinaryExpression)
		assert.Same(t, s.users.C("id"), bin.Left())
		assert.Same(t, s.addresses.C("user_id"), bin.Right())
	})

	t.Run("left nested join prefers its right side", func(t *testing.T) {
		j := mustJoin(t, mustJoin(t, s.users, s.addresses, nil), s.orders, nil)
		bin := j.Onclause().(*BinaryExpression)
		assert.Same(t, s.addresses.C("id"), bin.Left())
		assert.Same(t, s.orders.C("address_id"), bin.Right())
	})

	t.Run("through an alias", func(t *testing.T) {
		a := s.users.Alias("u")
		j := mustJoin(t, a, s.addresses, nil)
		bin := j.Onclause().(*BinaryExpression)
		assert.Same(t, a.C("id"), bin.Left())
	})

	t.Run("composite constraint", func(t *testing.T) {
		parent := Table("parent", Column("a", PrimaryKey()), Column("b", PrimaryKey()))
		child := Table("child", Column("pa"), Column("pb"))
		require.NoError(t, child.AddForeignKeyConstraint("", []string{"pa", "pb"},
			[]ColumnElement{parent.C("a"), parent.C("b")}))

		j := mustJoin(t, parent, child, nil)
		list, ok := j.Onclause().(*BooleanClauseList)
		require.True(t, ok)
		assert.Equal(t, OpAnd, list.Operator())
		assert.Len(t, list.Clauses(), 2)
	})
}

func TestJoin_InferenceErrors(t *testing.T) {
	s := newSchema()
	transfers := Table("transfers",
		Column("id", PrimaryKey()),
		Column("from_id", References(s.users.C("id"))),
		Column("to_id", References(s.users.C("id"))),
	)

	tests := []struct {
		name     string
		left     FromClause
		right    FromClause
		sentinel error
		contains string
	}{
		{"no relationship", s.addresses, Table("other", Column("x")), ErrNoForeignKeys, `"addresses" and "other"`},
		{"ambiguous", s.users, transfers, ErrAmbiguousForeignKeys, "more than one foreign key"},
		{"grouping hint", s.addresses, NewFromGrouping(Table("other", Column("y")).Alias("o")), ErrNoForeignKeys, "Alias()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJoin(tt.left, tt.right, nil, false)
			require.ErrorIs(t, err, tt.sentinel)
			var argErr *ArgumentError
			require.ErrorAs(t, err, &argErr)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestJoin_PrimaryKeyReduction(t *testing.T) {
	s := newSchema()

	j := mustJoin(t, s.users, s.addresses, nil)
	assert.Equal(t, []NodeID{s.users.C("id").ID(), s.addresses.C("id").ID()}, ids(j.PrimaryKey().All()))

	// joined on primary keys, the right key is redundant
	j = mustJoin(t, s.users, s.addresses, Eq(s.users.C("id"), s.addresses.C("id")))
	assert.Equal(t, []NodeID{s.users.C("id").ID()}, ids(j.PrimaryKey().All()))
}

func TestJoin_RightSideGrouped(t *testing.T) {
	s := newSchema()
	inner := mustJoin(t, s.addresses, s.orders, nil)
	j := mustJoin(t, s.users, inner, Eq(s.users.C("id"), s.addresses.C("user_id")))

	g, ok := j.Right().(*FromGrouping)
	require.True(t, ok)
	assert.Same(t, inner, g.Element())
	assert.Same(t, s.users, j.Left())
}

func TestJoin_HidesItsSides(t *testing.T) {
	s := newSchema()
	j := mustJoin(t, s.users, s.addresses, nil)

	sel := Select(s.users.C("id"), s.addresses.C("email")).SelectFrom(j)
	assert.Equal(t, []NodeID{j.ID()}, ids(sel.Froms()))

	froms := j.FromObjects()
	assert.Equal(t, []NodeID{j.ID(), s.users.ID(), s.addresses.ID()}, ids(froms[:1+2]))
}

func TestJoin_Alias(t *testing.T) {
	s := newSchema()
	j := mustJoin(t, s.users, s.addresses, Eq(s.users.C("id"), s.addresses.C("user_id")))

	t.Run("subquery", func(t *testing.T) {
		a, ok := j.Alias("").(*Alias)
		require.True(t, ok)
		sel, ok := a.Element().(*SelectStmt)
		require.True(t, ok)
		assert.True(t, sel.UseLabels())
		assert.Equal(t, []string{"users_id", "users_name", "addresses_id", "addresses_user_id", "addresses_email"},
			sel.Columns().Keys())
		assert.Same(t, a.C("users_id"), a.CorrespondingColumn(s.users.C("id"), false))
	})

	t.Run("flat", func(t *testing.T) {
		flat, err := j.FlatAlias()
		require.NoError(t, err)
		left, ok := flat.Left().(*Alias)
		require.True(t, ok)
		right, ok := flat.Right().(*Alias)
		require.True(t, ok)
		assert.Same(t, s.users, left.Original())
		assert.Same(t, s.addresses, right.Original())

		bin := flat.Onclause().(*BinaryExpression)
		assert.Same(t, left.C("id"), bin.Left())
		assert.Same(t, right.C("user_id"), bin.Right())
		// the original onclause is untouched
		orig := j.Onclause().(*BinaryExpression)
		assert.Same(t, s.users.C("id"), orig.Left())
	})

	t.Run("flat through AliasOf", func(t *testing.T) {
		f, err := AliasOf(j, "", true)
		require.NoError(t, err)
		assert.IsType(t, &Join{}, f)

		f, err = AliasOf(j, "x", false)
		require.NoError(t, err)
		assert.IsType(t, &Alias{}, f)

		_, err = AliasOf(j, "x", true)
		var argErr *ArgumentError
		require.ErrorAs(t, err, &argErr)
	})

	t.Run("flat nested", func(t *testing.T) {
		j2 := mustJoin(t, j, s.orders, nil)
		flat, err := j2.FlatAlias()
		require.NoError(t, err)
		inner, ok := flat.Left().(*Join)
		require.True(t, ok)
		assert.IsType(t, &Alias{}, inner.Left())
		assert.IsType(t, &Alias{}, flat.Right())
	})
}

func TestJoin_Select(t *testing.T) {
	s := newSchema()
	j := mustJoin(t, s.users, s.addresses, nil)
	sel := j.Select(Eq(s.users.C("name"), "ed"))

	assert.Len(t, sel.InnerColumns(), 5)
	assert.Equal(t, []NodeID{j.ID()}, ids(sel.Froms()))
	assert.NotNil(t, sel.WhereClause())
}

func TestJoin_Outer(t *testing.T) {
	s := newSchema()
	j, err := s.users.OuterJoin(s.addresses, nil)
	require.NoError(t, err)
	assert.True(t, j.IsOuter())
	assert.Contains(t, j.Description(), "Join object on users")
}
