package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/relsql/internal/cli/config"
	"github.com/leapstack-labs/relsql/internal/engine"
	"github.com/leapstack-labs/relsql/internal/schema"
	starctx "github.com/leapstack-labs/relsql/internal/starlark"
	"github.com/leapstack-labs/relsql/pkg/compiler"
	"github.com/leapstack-labs/relsql/pkg/dialect"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Dialect *dialect.Dialect
	Catalog *schema.Catalog
	Scripts *starctx.Context
}

// NewCommandContext loads the schema files and prepares a script context
// for the configured target. No database connection is made.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	d, err := dialect.Lookup(cfg.DialectName())
	if err != nil {
		return nil, err
	}

	catalog, err := schema.LoadFiles(cfg.SchemaFiles...)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	logger.Debug("schema loaded", "files", len(cfg.SchemaFiles), "tables", len(catalog.Tables()))

	scripts := starctx.NewContext(catalog,
		starctx.WithTarget(starctx.TargetInfoFromConfig(cfg.Target, d.Name)),
		starctx.WithVars(cfg.Vars),
		starctx.WithLogger(logger),
	)

	return &CommandContext{
		Cfg:     cfg,
		Logger:  logger,
		Dialect: d,
		Catalog: catalog,
		Scripts: scripts,
	}, nil
}

// CompileOptions returns the compiler options implied by the configuration.
func (c *CommandContext) CompileOptions() []compiler.Option {
	opts := []compiler.Option{compiler.WithLogger(c.Logger)}
	if c.Cfg.Pretty {
		opts = append(opts, compiler.WithPretty())
	}
	return opts
}

// NewEngine creates an engine for the configured target. The caller must
// close it.
func (c *CommandContext) NewEngine() (*engine.Engine, error) {
	eng, err := engine.New(engine.Config{
		AdapterConfig: c.Cfg.Target.AdapterConfig(),
		Dialect:       c.Dialect.Name,
		Catalog:       c.Catalog,
		Logger:        c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return eng, nil
}
