package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr string
	}{
		{name: "nil", input: nil, want: &Params{}},
		{name: "empty", input: map[string]any{}, want: &Params{}},
		{
			name:  "extensions",
			input: map[string]any{"extensions": []any{"httpfs", "json"}},
			want:  &Params{Extensions: []string{"httpfs", "json"}},
		},
		{
			name: "settings coerce to strings",
			input: map[string]any{
				"settings": map[string]any{"memory_limit": "4GB", "threads": 4},
			},
			want: &Params{Settings: map[string]string{"memory_limit": "4GB", "threads": "4"}},
		},
		{
			name: "secrets keep scope shape",
			input: map[string]any{
				"secrets": []any{
					map[string]any{"type": "s3", "provider": "credential_chain", "scope": "s3://a"},
					map[string]any{"type": "gcs", "key_id": "k", "scope": []any{"gs://a", "gs://b"}, "use_ssl": "false"},
				},
			},
			want: &Params{Secrets: []SecretConfig{
				{Type: "s3", Provider: "credential_chain", Scope: "s3://a"},
				{Type: "gcs", KeyID: "k", Scope: []any{"gs://a", "gs://b"}, UseSSL: boolPtr(false)},
			}},
		},
		{
			name:    "unknown key",
			input:   map[string]any{"extenshuns": []any{"json"}},
			wantErr: "invalid duckdb params",
		},
		{
			name:    "wrong shape",
			input:   map[string]any{"secrets": "s3"},
			wantErr: "invalid duckdb params",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScopeList(t *testing.T) {
	assert.Nil(t, scopeList(nil))
	assert.Equal(t, []string{"'s3://it''s'"}, scopeList("s3://it's"))
	assert.Equal(t, []string{"'a'", "'b'"}, scopeList([]string{"a", "b"}))
	assert.Equal(t, []string{"'a'", "'1'"}, scopeList([]any{"a", 1}))
}

func boolPtr(b bool) *bool {
	return &b
}
