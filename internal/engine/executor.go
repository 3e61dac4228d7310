package engine

import (
	"context"

	"github.com/leapstack-labs/relsql/pkg/core"
	"github.com/leapstack-labs/relsql/pkg/sql"
)

// Bound is a statement that can name the engine it should run on.
type Bound interface {
	sql.ClauseElement
	Bind() sql.Bind
}

// Executor runs statements on the engine they are bound to, falling back
// to Default for unbound statements.
type Executor struct {
	Default *Engine
}

// EngineFor returns the engine stmt would run on.
func (x *Executor) EngineFor(stmt Bound) (*Engine, error) {
	if e, ok := stmt.Bind().(*Engine); ok && e != nil {
		return e, nil
	}
	if x.Default == nil {
		return nil, ErrNoEngine
	}
	return x.Default, nil
}

// Run executes stmt and returns its rows.
func (x *Executor) Run(ctx context.Context, stmt Bound) (*core.Rows, error) {
	e, err := x.EngineFor(stmt)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, stmt)
}

// Exec executes stmt without reading rows.
func (x *Executor) Exec(ctx context.Context, stmt Bound) error {
	e, err := x.EngineFor(stmt)
	if err != nil {
		return err
	}
	return e.Exec(ctx, stmt)
}
