package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/relsql/internal/cli/config"
	"github.com/leapstack-labs/relsql/pkg/core"
	"golang.org/x/term"
)

// resolveMode turns the configured output mode into a concrete one. Auto
// picks tty when w is a terminal and piped otherwise.
func resolveMode(mode string, w io.Writer, tty, piped string) string {
	if mode != "" && mode != config.OutputAuto {
		return mode
	}
	if isTerminal(w) {
		return tty
	}
	return piped
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	//nolint:gosec // G115: file descriptors fit in int
	return ok && term.IsTerminal(int(f.Fd()))
}

// readRows drains rows into maps keyed by column name.
func readRows(rows *core.Rows) ([]string, []map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, nil, err
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			val := values[i]
			// Convert []byte to string for readability
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			row[col] = val
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return cols, results, nil
}

// renderResults writes query results in the given mode.
func renderResults(w io.Writer, rows *core.Rows, mode string) error {
	cols, results, err := readRows(rows)
	if err != nil {
		return err
	}

	switch mode {
	case config.OutputJSON:
		if results == nil {
			results = []map[string]any{}
		}
		return renderJSON(w, results)
	case config.OutputText:
		return renderCSV(w, cols, results)
	default:
		return renderTable(w, cols, results)
	}
}

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

func renderTable(w io.Writer, cols []string, results []map[string]any) error {
	if len(results) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	header := make([]any, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t := newTable(w, header...)
	for _, result := range results {
		row := make(table.Row, len(cols))
		for i, col := range cols {
			row[i] = formatValue(result[col])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(results))
	return nil
}

// renderCSV writes a header line and one line per row, quoting as needed.
func renderCSV(w io.Writer, cols []string, results []map[string]any) error {
	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(header)
	for _, result := range results {
		row := make(table.Row, len(cols))
		for i, col := range cols {
			row[i] = formatValue(result[col])
		}
		t.AppendRow(row)
	}
	t.RenderCSV()
	return nil
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
