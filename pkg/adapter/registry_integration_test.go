package adapter_test

import (
	"context"
	"testing"

	"github.com/leapstack-labs/relsql/pkg/adapter"
	"github.com/leapstack-labs/relsql/pkg/core"
	"github.com/leapstack-labs/relsql/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Adapters register themselves from init
	_ "github.com/leapstack-labs/relsql/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/relsql/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/relsql/pkg/adapters/sqlite"
)

func TestRegisteredAdapters(t *testing.T) {
	tests := []struct {
		typ         string
		dialect     string
		placeholder string
	}{
		{"duckdb", "duckdb", "?"},
		{"postgres", "postgres", "$1"},
		{"sqlite", "sqlite", "?"},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			require.True(t, adapter.IsRegistered(tt.typ))

			adp, err := adapter.NewAdapter(core.AdapterConfig{Type: tt.typ}, nil)
			require.NoError(t, err)

			// compiled statements must find the adapter's dialect by name
			d := adp.Dialect()
			assert.Equal(t, tt.dialect, d.Name)
			assert.Equal(t, tt.placeholder, d.FormatPlaceholder(1))
			registered, err := dialect.Lookup(d.Name)
			require.NoError(t, err)
			assert.Same(t, d, registered)
		})
	}

	assert.IsIncreasing(t, adapter.ListAdapters())
}

func TestNewAdapter_UnknownType(t *testing.T) {
	_, err := adapter.NewAdapter(core.AdapterConfig{Type: "unknown_adapter"}, nil)

	var unknownErr *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "unknown_adapter", unknownErr.Type)
	assert.Subset(t, unknownErr.Available, []string{"duckdb", "postgres", "sqlite"})
}

func TestOpen_SQLiteMemory(t *testing.T) {
	ctx := context.Background()
	adp, err := adapter.Open(ctx, core.AdapterConfig{Type: "sqlite", Path: ":memory:"}, nil)
	require.NoError(t, err)
	defer func() { _ = adp.Close() }()

	require.NoError(t, adp.Exec(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, label TEXT)"))
	meta, err := adp.GetTableMetadata(ctx, "t")
	require.NoError(t, err)
	require.Len(t, meta.Columns, 2)
	assert.Equal(t, "label", meta.Columns[1].Name)
}
