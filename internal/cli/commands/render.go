package commands

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/leapstack-labs/relsql/internal/cli/config"
	"github.com/leapstack-labs/relsql/pkg/compiler"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// RenderOutput is the JSON form of one rendered script.
type RenderOutput struct {
	File string `json:"file"`
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "render <script.star>...",
		Short: "Compile query scripts to SQL",
		Long: `Evaluate Starlark query scripts against the schema and print the SQL
they compile to for the target dialect.

Each script must assign the statement to build to a global named query.
Tables from the schema files are available as globals.

Output adapts to environment:
  - Terminal: Plain SQL
  - Piped/Scripted: Plain SQL, or JSON with --output json`,
		Example: `  # Render a script for the configured target
  relsql render reports/daily.star

  # Render for another dialect with readable formatting
  relsql render reports/daily.star --dialect postgres --pretty

  # Render several scripts as JSON
  relsql render reports/*.star -o json

  # Re-render whenever a script or schema file changes
  relsql render reports/daily.star --watch`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args, watch)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-render when a script or schema file changes")

	return cmd
}

func runRender(cmd *cobra.Command, files []string, watch bool) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	mode := resolveMode(cmdCtx.Cfg.Output, w, config.OutputText, config.OutputText)

	err = renderFiles(cmd.Context(), cmdCtx, w, mode, files)
	if !watch {
		return err
	}
	if err != nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}

	watched := append(append([]string{}, files...), cmdCtx.Cfg.SchemaFiles...)
	watcher, err := newWatcher(watched)
	if err != nil {
		return fmt.Errorf("failed to watch files: %w", err)
	}
	cmdCtx.Logger.Info("watching for changes", "files", len(watched))

	return watchLoop(cmd.Context(), watcher, cmdCtx.Logger, func(string) {
		// schema files may have changed, start from a fresh catalog
		fresh, err := NewCommandContext(cmd)
		if err == nil {
			err = renderFiles(cmd.Context(), fresh, w, mode, files)
		}
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	})
}

// renderFiles compiles files and writes them in argument order.
func renderFiles(ctx context.Context, cmdCtx *CommandContext, w io.Writer, mode string, files []string) error {
	outputs, err := compileFiles(ctx, cmdCtx, files)
	if err != nil {
		return err
	}

	if mode == config.OutputJSON {
		return renderJSON(w, outputs)
	}
	if mode == config.OutputTable {
		t := newTable(w, "File", "SQL", "Args")
		for _, out := range outputs {
			t.AppendRow([]any{out.File, out.SQL, formatArgs(out.Args)})
		}
		t.Render()
		return nil
	}

	for i, out := range outputs {
		if len(outputs) > 1 {
			if i > 0 {
				_, _ = fmt.Fprintln(w)
			}
			_, _ = fmt.Fprintf(w, "-- %s\n", out.File)
		}
		_, _ = fmt.Fprintln(w, out.SQL)
		if len(out.Args) > 0 {
			_, _ = fmt.Fprintf(w, "-- args: %s\n", formatArgs(out.Args))
		}
	}
	return nil
}

// compileFiles evaluates and compiles the scripts concurrently. Results are
// in argument order; the first failure cancels the rest.
func compileFiles(ctx context.Context, cmdCtx *CommandContext, files []string) ([]RenderOutput, error) {
	outputs := make([]RenderOutput, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, file := range files {
		g.Go(func() error {
			elem, err := cmdCtx.Scripts.EvalFileContext(gctx, file)
			if err != nil {
				return err
			}
			compiled, err := compiler.Compile(elem, cmdCtx.Dialect, cmdCtx.CompileOptions()...)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			args := compiled.Args
			if args == nil {
				args = []any{}
			}
			outputs[i] = RenderOutput{File: file, SQL: compiled.SQL, Args: args}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatValue(a)
	}
	return strings.Join(parts, ", ")
}
