// Package cli provides the command-line interface for relsql.
package cli

import (
	"context"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"

	"github.com/leapstack-labs/relsql/internal/cli/commands"
	"github.com/leapstack-labs/relsql/internal/cli/config"
	"github.com/leapstack-labs/relsql/pkg/dialect"
	"github.com/spf13/cobra"

	// Register adapters and dialects
	_ "github.com/leapstack-labs/relsql/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/relsql/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/relsql/pkg/adapters/sqlite"
	_ "github.com/leapstack-labs/relsql/pkg/dialects"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "relsql",
		Short: "relsql - composable SQL queries",
		Long: `relsql builds SQL statements from Starlark query scripts.

Scripts compose tables described in schema files into SELECTs, joins,
subqueries, set operations and CTEs. relsql compiles them for a target
dialect and can run them against PostgreSQL, DuckDB or SQLite.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			flags := cmd.Root().PersistentFlags()
			cfgFile, _ := flags.GetString("config")
			targetName, _ := flags.GetString("target")

			cfg, err := config.Load(cfgFile, targetName, flags)
			if err != nil {
				return err
			}
			logger, err := config.NewLogger(cmd.ErrOrStderr(), cfg)
			if err != nil {
				return err
			}
			if cfg.File != "" {
				logger.Debug("using config file", "path", cfg.File)
			}
			if targetName != "" {
				logger.Debug("using target", "target", targetName, "type", cfg.Target.Type)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(config.WithConfig(config.WithLogger(ctx, logger), cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Composable SQL query builder built with Go and Starlark
`)

	// Global persistent flags
	config.AddFlags(rootCmd.PersistentFlags())

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.OutputModes, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("dialect", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return dialect.List(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("target", func(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		cfgFile, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgFile, "", nil)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return slices.Sorted(maps.Keys(cfg.Targets)), cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewRenderCommand())
	rootCmd.AddCommand(commands.NewDescribeCommand())
	rootCmd.AddCommand(commands.NewExecCommand())
	rootCmd.AddCommand(commands.NewDialectsCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command. An interrupt cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for relsql.

To load completions:

Bash:
  $ source <(relsql completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ relsql completion bash > /etc/bash_completion.d/relsql
  # macOS:
  $ relsql completion bash > $(brew --prefix)/etc/bash_completion.d/relsql

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ relsql completion zsh > "${fpath[1]}/_relsql"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ relsql completion fish | source

  # To load completions for each session, execute once:
  $ relsql completion fish > ~/.config/fish/completions/relsql.fish

PowerShell:
  PS> relsql completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> relsql completion powershell > relsql.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(w)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}
			return nil
		},
	}
	return cmd
}
