package starlark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/leapstack-labs/relsql/internal/schema"
	"github.com/leapstack-labs/relsql/pkg/core"
	"github.com/leapstack-labs/relsql/pkg/sql"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// QueryGlobal is the global a script binds its statement to.
const QueryGlobal = "query"

// ErrNoQuery is returned when a script does not bind QueryGlobal.
var ErrNoQuery = errors.New("script does not define " + QueryGlobal)

// fileOptions allows if/for/while at the top level of a script.
var fileOptions = &syntax.FileOptions{TopLevelControl: true}

// TargetInfo describes the database a script is rendered for.
// Exposed as the "target" global.
type TargetInfo struct {
	Type    string // adapter type: "duckdb", "postgres", "sqlite"
	Dialect string // dialect the query is compiled with
	Schema  string // default schema
}

// ToStarlark converts TargetInfo to a Starlark struct value.
func (t *TargetInfo) ToStarlark() starlark.Value {
	return starlarkstruct.FromStringDict(starlark.String("target"), starlark.StringDict{
		"type":    starlark.String(t.Type),
		"dialect": starlark.String(t.Dialect),
		"schema":  starlark.String(t.Schema),
	})
}

// TargetInfoFromConfig exposes the non-credential parts of a target.
func TargetInfoFromConfig(t *core.TargetConfig, dialect string) *TargetInfo {
	info := &TargetInfo{Dialect: dialect}
	if t != nil {
		info.Type = t.Type
		info.Schema = t.Schema
	}
	return info
}

// ScriptError is a failure evaluating a script. When the failure happened
// while the script ran, Backtrace holds the Starlark call stack.
type ScriptError struct {
	File      string
	Backtrace string
	Err       error
}

func (e *ScriptError) Error() string {
	if e.Backtrace != "" {
		// the backtrace ends with the error message
		return e.Backtrace
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }

func scriptError(file string, err error) error {
	se := &ScriptError{File: file, Err: err}
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		se.Err = errors.New(evalErr.Msg)
		se.Backtrace = evalErr.Backtrace()
	}
	return se
}

// Context holds what every script sees: catalog tables, builtins, the
// target and user variables.
type Context struct {
	catalog *schema.Catalog
	target  *TargetInfo
	vars    map[string]any
	logger  *slog.Logger
	pool    *ThreadPool
}

// ContextOption is a functional option for configuring Context.
type ContextOption func(*Context)

// WithTarget sets the "target" global.
func WithTarget(t *TargetInfo) ContextOption {
	return func(ctx *Context) { ctx.target = t }
}

// WithVars sets the "vars" global.
func WithVars(vars map[string]any) ContextOption {
	return func(ctx *Context) { ctx.vars = vars }
}

// WithLogger receives script print() output at debug level.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(ctx *Context) { ctx.logger = logger }
}

// WithThreadPool shares a thread pool between contexts.
func WithThreadPool(pool *ThreadPool) ContextOption {
	return func(ctx *Context) { ctx.pool = pool }
}

// NewContext creates an evaluation context over catalog, which may be nil.
func NewContext(catalog *schema.Catalog, opts ...ContextOption) *Context {
	ctx := &Context{catalog: catalog}
	for _, opt := range opts {
		opt(ctx)
	}
	if ctx.logger == nil {
		ctx.logger = slog.New(slog.DiscardHandler)
	}
	if ctx.pool == nil {
		ctx.pool = NewThreadPool(0)
	}
	if ctx.target == nil {
		ctx.target = &TargetInfo{}
	}
	return ctx
}

// Globals returns the predeclared names for a script.
func (ctx *Context) Globals() (starlark.StringDict, error) {
	globals := Builtins()
	globals["target"] = ctx.target.ToStarlark()

	vars, err := GoToStarlark(ctx.vars)
	if err != nil {
		return nil, fmt.Errorf("vars: %w", err)
	}
	if vars == starlark.None {
		vars = starlark.NewDict(0)
	}
	vars.Freeze()
	globals["vars"] = vars

	tables := starlark.NewDict(0)
	if ctx.catalog != nil {
		for _, t := range ctx.catalog.Tables() {
			v := NewSelectable(t)
			if err := tables.SetKey(starlark.String(t.FullName()), v); err != nil {
				return nil, err
			}
			if _, taken := globals[t.Name()]; taken {
				ctx.logger.Debug("table not exposed as a global", "table", t.FullName())
				continue
			}
			globals[t.Name()] = v
		}
	}
	tables.Freeze()
	globals["tables"] = tables
	return globals, nil
}

// EvalFile reads and evaluates the script at path.
func (ctx *Context) EvalFile(path string) (sql.ClauseElement, error) {
	return ctx.EvalFileContext(context.Background(), path)
}

// EvalFileContext is EvalFile with cancellation.
func (ctx *Context) EvalFileContext(c context.Context, path string) (sql.ClauseElement, error) {
	src, err := os.ReadFile(path) //nolint:gosec // G304: scripts are named by the user
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ctx.EvalContext(c, path, src)
}

// Eval runs a script and returns the statement bound to "query". Scripts
// may load() other scripts by path relative to filename.
func (ctx *Context) Eval(filename string, src any) (sql.ClauseElement, error) {
	return ctx.EvalContext(context.Background(), filename, src)
}

// EvalContext is Eval with cancellation: when c is done the script stops at
// its next step and the context's error is returned.
func (ctx *Context) EvalContext(c context.Context, filename string, src any) (sql.ClauseElement, error) {
	predeclared, err := ctx.Globals()
	if err != nil {
		return nil, &ScriptError{File: filename, Err: err}
	}

	var globals starlark.StringDict
	err = ctx.pool.Run(c, filename, func(thread *starlark.Thread) error {
		thread.Print = ctx.print
		thread.Load = newLoader(c, filepath.Dir(filename), predeclared, ctx.print).load

		var err error
		globals, err = starlark.ExecFileOptions(fileOptions, thread, filename, src, predeclared)
		return err
	})
	if err != nil {
		if c.Err() != nil {
			return nil, fmt.Errorf("%s: %w", filename, context.Cause(c))
		}
		return nil, scriptError(filename, err)
	}

	v, ok := globals[QueryGlobal]
	if !ok {
		return nil, &ScriptError{File: filename, Err: ErrNoQuery}
	}
	elem, err := toElement(v)
	if err != nil {
		return nil, &ScriptError{File: filename, Err: err}
	}
	return elem, nil
}

func (ctx *Context) print(thread *starlark.Thread, msg string) {
	ctx.logger.Debug(msg, "script", thread.Name)
}

func toElement(v starlark.Value) (sql.ClauseElement, error) {
	switch x := v.(type) {
	case *Selectable:
		return x.from, nil
	case *Column:
		return x.elem, nil
	}
	return nil, fmt.Errorf("%s must be a statement or expression, got %s", QueryGlobal, v.Type())
}

// Eval evaluates a script against catalog with default options.
func Eval(filename string, src any, catalog *schema.Catalog) (sql.ClauseElement, error) {
	return NewContext(catalog).Eval(filename, src)
}

type loadEntry struct {
	globals starlark.StringDict
	err     error
}

// loader resolves load() statements for one evaluation. Modules are run
// once and see the same predeclared names as the script.
type loader struct {
	ctx         context.Context
	dir         string
	predeclared starlark.StringDict
	print       func(*starlark.Thread, string)

	mu    sync.Mutex
	cache map[string]*loadEntry
}

func newLoader(ctx context.Context, dir string, predeclared starlark.StringDict, print func(*starlark.Thread, string)) *loader {
	return &loader{ctx: ctx, dir: dir, predeclared: predeclared, print: print, cache: make(map[string]*loadEntry)}
}

func (l *loader) load(_ *starlark.Thread, module string) (starlark.StringDict, error) {
	path := module
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.dir, module)
	}

	l.mu.Lock()
	e, ok := l.cache[path]
	if ok {
		l.mu.Unlock()
		if e == nil {
			return nil, fmt.Errorf("cycle in load graph at %s", module)
		}
		return e.globals, e.err
	}
	// nil marks a module being loaded
	l.cache[path] = nil
	l.mu.Unlock()

	e = &loadEntry{}
	src, err := os.ReadFile(path) //nolint:gosec // G304: path is relative to the user's script
	if err != nil {
		e.err = fmt.Errorf("failed to read module: %w", err)
	} else {
		thread := &starlark.Thread{Name: "load:" + module, Print: l.print, Load: l.load}
		stop := context.AfterFunc(l.ctx, func() { thread.Cancel(context.Cause(l.ctx).Error()) })
		e.globals, e.err = starlark.ExecFileOptions(fileOptions, thread, path, src, l.predeclared)
		stop()
	}

	l.mu.Lock()
	l.cache[path] = e
	l.mu.Unlock()
	return e.globals, e.err
}
