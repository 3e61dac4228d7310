package sql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type schema struct {
	users     *TableClause
	addresses *TableClause
	orders    *TableClause
}

// newSchema builds fresh tables for each test so that AppendColumn in one
// test can't leak into another.
func newSchema() schema {
	users := Table("users",
		Column("id", PrimaryKey(), WithType(Integer)),
		Column("name", WithType(String)),
	)
	addresses := Table("addresses",
		Column("id", PrimaryKey(), WithType(Integer)),
		Column("user_id", WithType(Integer), References(users.C("id"))),
		Column("email", WithType(String)),
	)
	orders := Table("orders",
		Column("id", PrimaryKey(), WithType(Integer)),
		Column("user_id", WithType(Integer), References(users.C("id"))),
		Column("address_id", WithType(Integer), References(addresses.C("id"))),
	)
	return schema{users: users, addresses: addresses, orders: orders}
}

func ids[T ClauseElement](elems []T) []NodeID {
	out := make([]NodeID, len(elems))
	for i, e := range elems {
		out[i] = e.ID()
	}
	return out
}

func mustJoin(t *testing.T, left, right FromClause, on ColumnElement) *Join {
	t.Helper()
	j, err := left.Join(right, on)
	require.NoError(t, err)
	return j
}

type testBind string

func (b testBind) DialectName() string { return string(b) }
