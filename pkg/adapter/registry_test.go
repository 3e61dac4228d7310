package adapter

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connectErrAdapter fails every Connect call.
type connectErrAdapter struct {
	Adapter
	err error
}

func (a *connectErrAdapter) Connect(context.Context, Config) error { return a.err }

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{
		Type:      "fake_db",
		Available: []string{"duckdb", "postgres"},
	}

	msg := err.Error()
	assert.Contains(t, msg, `"fake_db"`)
	assert.Contains(t, msg, "Available adapters: [duckdb postgres]")
	assert.Contains(t, msg, "target.type in relsql.yaml")
}

func TestRegister(t *testing.T) {
	Register("test_adapter_internal", func(_ *slog.Logger) Adapter { return nil })

	assert.True(t, IsRegistered("test_adapter_internal"))
	factory, ok := Get("test_adapter_internal")
	assert.True(t, ok)
	assert.NotNil(t, factory)

	names := ListAdapters()
	assert.Contains(t, names, "test_adapter_internal")
	assert.True(t, slices.IsSorted(names), "ListAdapters should be sorted")
}

func TestNewAdapter_Errors(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		check func(t *testing.T, err error)
	}{
		{
			name: "empty type",
			cfg:  Config{},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrTypeRequired)
			},
		},
		{
			name: "unknown type",
			cfg:  Config{Type: "oracle"},
			check: func(t *testing.T, err error) {
				var unknown *UnknownAdapterError
				require.ErrorAs(t, err, &unknown)
				assert.Equal(t, "oracle", unknown.Type)
				assert.Equal(t, ListAdapters(), unknown.Available)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAdapter(tt.cfg, nil)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestOpen_ConnectError(t *testing.T) {
	boom := errors.New("connection refused")
	Register("test_connect_err", func(_ *slog.Logger) Adapter {
		return &connectErrAdapter{err: boom}
	})

	_, err := Open(context.Background(), Config{Type: "test_connect_err"}, nil)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "connect test_connect_err")
}
