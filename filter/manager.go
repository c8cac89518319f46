package filter

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/usgs/sbgo/sciencebase"
)

// Manager holds named filters, typically the presets from the config file
type Manager struct {
	compiler  Compiler
	evaluator *ConcurrentEvaluator
	filters   map[string]CompiledFilter
	mu        sync.RWMutex
}

// ManagerOption configures a filter manager
type ManagerOption func(*Manager)

// WithCompiler sets a custom compiler
func WithCompiler(compiler Compiler) ManagerOption {
	return func(m *Manager) {
		m.compiler = compiler
	}
}

// WithEvaluator sets a custom evaluator
func WithEvaluator(evaluator *ConcurrentEvaluator) ManagerOption {
	return func(m *Manager) {
		m.evaluator = evaluator
	}
}

// NewManager creates a filter manager
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		filters: make(map[string]CompiledFilter),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.compiler == nil {
		m.compiler = NewExprCompiler(WithCache(100))
	}
	if m.evaluator == nil {
		m.evaluator = NewConcurrentEvaluator()
	}
	return m
}

// Compile compiles an ad hoc expression with the manager's compiler.
// Shorthand expressions are converted first.
func (m *Manager) Compile(expression string) (CompiledFilter, error) {
	if IsShorthand(expression) {
		expression = ConvertShorthand(expression)
	}
	return m.compiler.Compile(expression)
}

// RegisterFilters compiles and registers every filter. Nothing is
// registered unless all of them compile.
func (m *Manager) RegisterFilters(filters map[string]string) error {
	compiled := make(map[string]CompiledFilter, len(filters))
	for name, expression := range filters {
		filter, err := m.Compile(expression)
		if err != nil {
			return fmt.Errorf("failed to compile filter '%s': %w", name, err)
		}
		compiled[name] = filter
	}

	m.mu.Lock()
	maps.Copy(m.filters, compiled)
	m.mu.Unlock()
	return nil
}

// GetFilter returns a registered filter
func (m *Manager) GetFilter(name string) (CompiledFilter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	filter, ok := m.filters[name]
	return filter, ok
}

// ListFilters returns the registered names, sorted
func (m *Manager) ListFilters() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.filters))
}

// Evaluate applies filter to items
func (m *Manager) Evaluate(ctx context.Context, filter CompiledFilter, items []sciencebase.Item) ([]sciencebase.Item, error) {
	return m.evaluator.Evaluate(ctx, filter, items)
}

// EvaluateFilter applies a registered filter to items
func (m *Manager) EvaluateFilter(ctx context.Context, name string, items []sciencebase.Item) ([]sciencebase.Item, error) {
	filter, ok := m.GetFilter(name)
	if !ok {
		return nil, fmt.Errorf("filter '%s' not found", name)
	}
	return m.evaluator.Evaluate(ctx, filter, items)
}

// Close stops the evaluator
func (m *Manager) Close(ctx context.Context) error {
	return m.evaluator.Stop(ctx)
}
