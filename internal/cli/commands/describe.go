package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/relsql/internal/cli/config"
	"github.com/leapstack-labs/relsql/pkg/sql"
	"github.com/spf13/cobra"
)

// ColumnInfo describes one exported column of a query.
type ColumnInfo struct {
	Key        string   `json:"key"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	PrimaryKey bool     `json:"primary_key"`
	Lineage    []string `json:"lineage"`
}

// Description is the JSON form of a described query.
type Description struct {
	File    string       `json:"file"`
	Columns []ColumnInfo `json:"columns"`
	Froms   []string     `json:"froms"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <script.star>",
		Short: "Show the columns a query script exports",
		Long: `Evaluate a query script and list the columns its query exports,
with their types and the base columns each one derives from.`,
		Example: `  # Describe the result of a query
  relsql describe reports/daily.star

  # As JSON
  relsql describe reports/daily.star -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd, args[0])
		},
	}
}

func runDescribe(cmd *cobra.Command, file string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	elem, err := cmdCtx.Scripts.EvalFileContext(cmd.Context(), file)
	if err != nil {
		return err
	}
	from, ok := elem.(sql.FromClause)
	if !ok {
		return fmt.Errorf("%s: query is not selectable (got %T)", file, elem)
	}

	desc := describeFrom(file, from)
	w := cmd.OutOrStdout()
	switch resolveMode(cmdCtx.Cfg.Output, w, config.OutputTable, config.OutputText) {
	case config.OutputJSON:
		return renderJSON(w, desc)
	case config.OutputText:
		writeDescriptionText(w, desc)
	default:
		writeDescriptionTable(w, desc)
	}
	return nil
}

// describeFrom collects the exported columns of from and, for a SELECT,
// the FROM list it renders.
func describeFrom(file string, from sql.FromClause) *Description {
	desc := &Description{File: file, Columns: []ColumnInfo{}, Froms: []string{}}

	for _, col := range from.Columns().All() {
		info := ColumnInfo{
			Key:        col.Key(),
			Name:       col.Name(),
			PrimaryKey: col.IsPrimaryKey(),
			Lineage:    []string{},
		}
		if typ := col.Type(); typ != nil {
			info.Type = typ.TypeName()
		}
		// the first member is col itself
		for _, m := range col.ProxySet().Members()[1:] {
			info.Lineage = append(info.Lineage, qualifiedName(m))
		}
		desc.Columns = append(desc.Columns, info)
	}

	if sel, ok := from.(*sql.SelectStmt); ok {
		for _, f := range sel.Froms() {
			desc.Froms = append(desc.Froms, f.Description())
		}
	}
	return desc
}

func qualifiedName(c sql.ColumnElement) string {
	if t := c.Table(); t != nil {
		return t.Description() + "." + c.Name()
	}
	return c.Name()
}

func writeDescriptionTable(w io.Writer, desc *Description) {
	t := newTable(w, "Key", "Name", "Type", "PK", "Lineage")
	for _, c := range desc.Columns {
		pk := ""
		if c.PrimaryKey {
			pk = "yes"
		}
		t.AppendRow([]any{c.Key, c.Name, c.Type, pk, strings.Join(c.Lineage, ", ")})
	}
	t.Render()
	if len(desc.Froms) > 0 {
		_, _ = fmt.Fprintf(w, "FROM %s\n", strings.Join(desc.Froms, ", "))
	}
}

func writeDescriptionText(w io.Writer, desc *Description) {
	for _, c := range desc.Columns {
		line := c.Key
		if c.Type != "" {
			line += " " + c.Type
		}
		if c.PrimaryKey {
			line += " PRIMARY KEY"
		}
		if len(c.Lineage) > 0 {
			line += " <- " + strings.Join(c.Lineage, ", ")
		}
		_, _ = fmt.Fprintln(w, line)
	}
	if len(desc.Froms) > 0 {
		_, _ = fmt.Fprintf(w, "FROM %s\n", strings.Join(desc.Froms, ", "))
	}
}
