package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumn_Labels(t *testing.T) {
	s := newSchema()

	tests := []struct {
		name     string
		col      ColumnElement
		label    string
		keyLabel string
	}{
		{"table column", s.users.C("id"), "users_id", "users_id"},
		{"unbound column", Column("x"), "x", "x"},
		{"keyed column", Table("t", Column("full name", WithKey("full_name"))).C("full_name"), "t_full name", "t_full_name"},
		{"literal", LiteralColumn("count(*)", nil), "", ""},
		{"label", As(s.users.C("id"), "uid"), "uid", "uid"},
		{"expression", Eq(s.users.C("id"), 1), "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.label, tt.col.DefaultLabel())
			assert.Equal(t, tt.keyLabel, tt.col.KeyLabel())
		})
	}

	t.Run("label avoids existing keys", func(t *testing.T) {
		tbl := Table("a", Column("b"), Column("a_b"))
		assert.Equal(t, "a_b_1", tbl.C("b").DefaultLabel())
	})
}

func TestColumn_Attach(t *testing.T) {
	id := Column("id", PrimaryKey(), WithType(Integer))
	t1 := Table("t1", id)
	t2 := Table("t2", id)

	assert.Same(t, id, t1.C("id"))
	assert.NotSame(t, id, t2.C("id"))
	assert.Same(t, t2, t2.C("id").Table())
	assert.True(t, t2.C("id").IsPrimaryKey())
	assert.Equal(t, Integer, t2.C("id").Type())
	assert.False(t, t2.C("id").(*ColumnClause).Nullable())
	assert.False(t, SharesLineage(t1.C("id"), t2.C("id")))
}

func TestColumn_Proxy(t *testing.T) {
	s := newSchema()
	a := s.addresses.Alias("a")

	p, ok := a.C("user_id").(*ColumnClause)
	require.True(t, ok)
	assert.Equal(t, "user_id", p.Name())
	assert.Same(t, a, p.Table())
	assert.True(t, p.ProxySet().Contains(s.addresses.C("user_id")))
	assert.Equal(t, "a_user_id", p.DefaultLabel())
	assert.True(t, SharesLineage(p, s.addresses.C("user_id")))
	assert.False(t, SharesLineage(p, s.users.C("id")))
}

func TestOperators(t *testing.T) {
	s := newSchema()
	id := s.users.C("id")

	t.Run("nil comparisons", func(t *testing.T) {
		assert.Equal(t, OpIs, Eq(id, nil).Operator())
		assert.Equal(t, OpIsNot, Ne(id, nil).Operator())
		assert.IsType(t, &NullElement{}, Eq(id, nil).Right())
	})

	t.Run("bind parameters take the column type", func(t *testing.T) {
		p, ok := Eq(s.users.C("name"), userName("ed")).Right().(*BindParameter)
		require.True(t, ok)
		assert.Equal(t, String, p.Type())

		b, ok := Gt(id, 5).Right().(*BindParameter)
		require.True(t, ok)
		assert.Equal(t, 5, b.Value())
		assert.True(t, IsAnonymous(b.Key()))
	})

	t.Run("in", func(t *testing.T) {
		tuple, ok := In(id, 1, 2, 3).Right().(*Tuple)
		require.True(t, ok)
		assert.Len(t, tuple.Elements(), 3)

		sub, ok := In(id, Select(s.orders.C("user_id"))).Right().(*ScalarSelect)
		require.True(t, ok)
		assert.Equal(t, "select", sub.Element().VisitName())
	})

	t.Run("boolean lists flatten", func(t *testing.T) {
		a, b, c := Eq(id, 1), Eq(id, 2), Eq(id, 3)
		list := And(And(a, b), nil, c).(*BooleanClauseList)
		assert.Len(t, list.Clauses(), 3)
		assert.Same(t, a, And(a))
		assert.Nil(t, And())
		assert.Equal(t, OpOr, Or(a, b).(*BooleanClauseList).Operator())
	})

	t.Run("comparison types", func(t *testing.T) {
		assert.Equal(t, Boolean, Eq(id, 1).Type())
		assert.Equal(t, Integer, Add(id, 1).Type())
		assert.Equal(t, BigInt, Func("count").Type())
		assert.True(t, Desc(id).IsModifier())
		assert.False(t, Not(Eq(id, 1)).IsModifier())
	})
}

type userName string
