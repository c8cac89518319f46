package filter

import (
	"context"
	"runtime"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/usgs/sbgo/sciencebase"
)

var _ Evaluator = (*ConcurrentEvaluator)(nil)

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*ConcurrentEvaluator)

// WithWorkers sets the number of worker goroutines
func WithWorkers(workers int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		e.workerCount = workers
	}
}

// WithBatchSize sets the smallest list evaluated concurrently, and the
// smallest chunk handed to a worker
func WithBatchSize(size int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		e.batchSize = size
	}
}

// ConcurrentEvaluator splits large item lists into chunks evaluated on a
// worker pool. Matches keep the order of the input.
type ConcurrentEvaluator struct {
	workerCount int
	batchSize   int
	pool        WorkerPool
}

// NewConcurrentEvaluator creates an evaluator with its own worker pool.
// Call Stop when done with it.
func NewConcurrentEvaluator(opts ...EvaluatorOption) *ConcurrentEvaluator {
	e := &ConcurrentEvaluator{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   100,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.batchSize <= 0 {
		e.batchSize = 1
	}

	e.pool = NewWorkerPool(e.workerCount)
	return e
}

// Evaluate returns the items matching filter. Items the filter fails on are
// left out and their errors returned together with the matches.
func (e *ConcurrentEvaluator) Evaluate(ctx context.Context, filter CompiledFilter, items []sciencebase.Item) ([]sciencebase.Item, error) {
	if len(items) == 0 {
		return []sciencebase.Item{}, nil
	}
	if len(items) < e.batchSize {
		matches, errs := evaluateChunk(filter, items)
		return matches, errs.ErrorOrNil()
	}
	return e.evaluateConcurrent(ctx, filter, items)
}

func evaluateChunk(filter CompiledFilter, items []sciencebase.Item) ([]sciencebase.Item, *multierror.Error) {
	matches := make([]sciencebase.Item, 0, len(items)/10)
	var errs *multierror.Error
	for _, item := range items {
		ok, err := filter.Match(item)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if ok {
			matches = append(matches, item)
		}
	}
	return matches, errs
}

func (e *ConcurrentEvaluator) evaluateConcurrent(ctx context.Context, filter CompiledFilter, items []sciencebase.Item) ([]sciencebase.Item, error) {
	chunkSize := max(len(items)/max(e.workerCount, 1), e.batchSize)
	chunks := (len(items) + chunkSize - 1) / chunkSize

	type chunkResult struct {
		matches []sciencebase.Item
		errs    *multierror.Error
	}
	results := make([]chunkResult, chunks)

	var wg sync.WaitGroup
	for i := range chunks {
		chunk := items[i*chunkSize : min((i+1)*chunkSize, len(items))]

		wg.Add(1)
		err := e.pool.Submit(ctx, func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			matches, errs := evaluateChunk(filter, chunk)
			results[i] = chunkResult{matches: matches, errs: errs}
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		all  []sciencebase.Item
		errs *multierror.Error
	)
	for _, r := range results {
		all = append(all, r.matches...)
		if r.errs != nil {
			errs = multierror.Append(errs, r.errs.Errors...)
		}
	}
	if all == nil {
		all = []sciencebase.Item{}
	}
	return all, errs.ErrorOrNil()
}

// Stop stops the evaluator's worker pool
func (e *ConcurrentEvaluator) Stop(ctx context.Context) error {
	return e.pool.Stop(ctx)
}
