package filter

import (
	"context"

	"github.com/usgs/sbgo/sciencebase"
)

// Filter decides whether an item is kept
type Filter interface {
	// Match reports whether item satisfies the filter
	Match(item sciencebase.Item) (bool, error)
}

// CompiledFilter is a filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Expression returns the source expression
	Expression() string
}

// Compiler compiles filter expressions
type Compiler interface {
	Compile(expression string) (CompiledFilter, error)
}

// Evaluator applies a filter to a list of items
type Evaluator interface {
	Evaluate(ctx context.Context, filter CompiledFilter, items []sciencebase.Item) ([]sciencebase.Item, error)
}

// CachingCompiler is a Compiler that keeps compiled programs around
type CachingCompiler interface {
	Compiler

	// Clear removes all cached filters
	Clear()

	// Size returns the number of cached filters
	Size() int
}

// WorkerPool runs submitted work on a fixed set of goroutines
type WorkerPool interface {
	// Submit queues work, blocking while the queue is full
	Submit(ctx context.Context, work func()) error

	// Stop waits for queued work to finish
	Stop(ctx context.Context) error
}
