package filter

import (
	"maps"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/usgs/sbgo/sciencebase"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	extra      map[string]any
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache keeps up to size compiled programs
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache[CompiledFilter](size)
		}
	}
}

// WithCustomFunctions adds helper functions visible to every expression
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.custom, funcs)
	}
}

// NewExprCompiler creates an expr-based filter compiler. Expressions see the
// item as variables (Title, Tags, Files, Created...) and helper functions
// (hasTag, hasFile, hasFacet, daysAgo...), and must produce a bool.
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		custom: make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.compileEnv = createRuntimeEnvironment(sciencebase.Item{})
	maps.Copy(c.compileEnv, c.custom)
	return c
}

type exprCompiler struct {
	custom     map[string]any
	compileEnv map[string]any
	cache      *lruCache[CompiledFilter]
}

// Compile compiles an expression into a filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	// Compiling against a blank item checks names and types
	program, err := expr.Compile(expression,
		expr.Env(c.compileEnv),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		extra:      c.custom,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}
	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Match runs the program against item
func (f *exprFilter) Match(item sciencebase.Item) (bool, error) {
	env := createRuntimeEnvironment(item)
	maps.Copy(env, f.extra)

	result, err := expr.Run(f.program, env)
	if err != nil {
		return false, &EvaluationError{Expression: f.expression, ItemID: item.ID(), Err: err}
	}
	// AsBool guarantees the type
	return result.(bool), nil
}

// Expression returns the source expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// CompileFilter compiles expression without caching
func CompileFilter(expression string) (CompiledFilter, error) {
	return NewExprCompiler().Compile(expression)
}
