package commands

import (
	"fmt"

	"github.com/leapstack-labs/relsql/internal/cli/config"
	"github.com/leapstack-labs/relsql/pkg/adapter"
	"github.com/leapstack-labs/relsql/pkg/dialect"
	"github.com/spf13/cobra"
)

// DialectInfo is the JSON form of a registered dialect.
type DialectInfo struct {
	Name          string `json:"name"`
	Placeholder   string `json:"placeholder"`
	Quote         string `json:"quote"`
	DefaultSchema string `json:"default_schema"`
	Adapter       bool   `json:"adapter"`
}

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the SQL dialects scripts can be compiled for",
		Long: `List the registered SQL dialects with their parameter style,
identifier quoting and default schema. Dialects marked with an adapter
can also run queries with exec.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDialects(cmd)
		},
	}
}

func listDialects() []DialectInfo {
	names := dialect.List()
	infos := make([]DialectInfo, 0, len(names))
	for _, name := range names {
		d, ok := dialect.Get(name)
		if !ok {
			continue
		}
		infos = append(infos, DialectInfo{
			Name:          d.Name,
			Placeholder:   d.Placeholder.String(),
			Quote:         d.Identifiers.Quote + d.Identifiers.QuoteEnd,
			DefaultSchema: d.DefaultSchema,
			Adapter:       adapter.IsRegistered(d.Name),
		})
	}
	return infos
}

func runDialects(cmd *cobra.Command) error {
	cfg := config.GetConfig(cmd.Context())
	infos := listDialects()

	w := cmd.OutOrStdout()
	switch resolveMode(cfg.Output, w, config.OutputTable, config.OutputText) {
	case config.OutputJSON:
		return renderJSON(w, infos)
	case config.OutputText:
		for _, d := range infos {
			_, _ = fmt.Fprintln(w, d.Name)
		}
	default:
		t := newTable(w, "Name", "Placeholder", "Quote", "Default Schema", "Adapter")
		for _, d := range infos {
			mark := ""
			if d.Adapter {
				mark = "yes"
			}
			t.AppendRow([]any{d.Name, d.Placeholder, d.Quote, d.DefaultSchema, mark})
		}
		t.Render()
	}
	return nil
}
