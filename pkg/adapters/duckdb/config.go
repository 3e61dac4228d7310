package duckdb

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific configuration, decoded from
// adapter.Config.Params.
type Params struct {
	// Extensions to install and load (e.g., "httpfs", "spatial", "json")
	Extensions []string `mapstructure:"extensions"`

	// Secrets for cloud storage authentication
	Secrets []SecretConfig `mapstructure:"secrets"`

	// Settings to apply at session level (e.g., memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`
}

// SecretConfig defines a DuckDB secret for cloud storage.
type SecretConfig struct {
	Type     string `mapstructure:"type"`     // s3, gcs, azure, r2
	Provider string `mapstructure:"provider"` // config, credential_chain, ...
	Region   string `mapstructure:"region,omitempty"`

	// Scope limits the secret to specific paths (string or list)
	Scope any `mapstructure:"scope,omitempty"`

	KeyID    string `mapstructure:"key_id,omitempty"`
	Secret   string `mapstructure:"secret,omitempty"`
	Endpoint string `mapstructure:"endpoint,omitempty"`
	URLStyle string `mapstructure:"url_style,omitempty"`
	UseSSL   *bool  `mapstructure:"use_ssl,omitempty"`
}

func parseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}
	return p, nil
}

// buildCreateSecretSQL renders a CREATE SECRET statement, one option per line.
func buildCreateSecretSQL(s SecretConfig) string {
	opts := []string{"TYPE " + s.Type}
	if s.Provider != "" {
		opts = append(opts, "PROVIDER "+s.Provider)
	}
	if s.Region != "" {
		opts = append(opts, "REGION "+quoteString(s.Region))
	}
	if s.KeyID != "" {
		opts = append(opts, "KEY_ID "+quoteString(s.KeyID))
	}
	if s.Secret != "" {
		opts = append(opts, "SECRET "+quoteString(s.Secret))
	}
	if s.Endpoint != "" {
		opts = append(opts, "ENDPOINT "+quoteString(s.Endpoint))
	}
	if s.URLStyle != "" {
		opts = append(opts, "URL_STYLE "+quoteString(s.URLStyle))
	}
	if s.UseSSL != nil {
		opts = append(opts, fmt.Sprintf("USE_SSL %t", *s.UseSSL))
	}
	if scope := scopeList(s.Scope); len(scope) == 1 {
		opts = append(opts, "SCOPE "+scope[0])
	} else if len(scope) > 1 {
		opts = append(opts, "SCOPE ("+strings.Join(scope, ", ")+")")
	}
	return "CREATE SECRET (\n    " + strings.Join(opts, ",\n    ") + "\n)"
}

func scopeList(scope any) []string {
	var out []string
	switch v := scope.(type) {
	case string:
		out = append(out, quoteString(v))
	case []string:
		for _, s := range v {
			out = append(out, quoteString(s))
		}
	case []any:
		for _, s := range v {
			out = append(out, quoteString(fmt.Sprint(s)))
		}
	}
	return out
}

func quoteString(s string) string {
	return "'" + escapeString(s) + "'"
}

func escapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
