package commands

import (
	"fmt"

	"github.com/leapstack-labs/relsql/internal/cli/config"
	"github.com/spf13/cobra"
)

// NewExecCommand creates the exec command.
func NewExecCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <script.star>",
		Short: "Run a query script against the target database",
		Long: `Evaluate a query script, compile it for the target and run it,
printing the rows it returns.

Output adapts to environment:
  - Terminal: Formatted table
  - Piped/Scripted: JSON`,
		Example: `  # Run against the configured target
  relsql exec reports/daily.star

  # Run against a named target
  relsql exec reports/daily.star --target prod

  # Run against a SQLite file
  relsql exec reports/daily.star --database app.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, args[0])
		},
	}
}

func runExec(cmd *cobra.Command, file string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	elem, err := cmdCtx.Scripts.EvalFileContext(cmd.Context(), file)
	if err != nil {
		return err
	}

	eng, err := cmdCtx.NewEngine()
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	rows, err := eng.Execute(cmd.Context(), elem)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	defer func() { _ = rows.Close() }()

	w := cmd.OutOrStdout()
	return renderResults(w, rows, resolveMode(cmdCtx.Cfg.Output, w, config.OutputTable, config.OutputJSON))
}
