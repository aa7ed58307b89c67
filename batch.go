package imtool

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BatchResult holds the result for a single request in a batch.
type BatchResult struct {
	// Request is the original request.
	Request Request
	// Result is the operation result (nil if Err is non-nil).
	Result *Result
	// Err is any error that occurred.
	Err error
	// Index is the position in the original input slice.
	Index int
}

// BatchOptions configures batch processing.
type BatchOptions struct {
	// Workers is the number of concurrent workers. 0 = runtime.NumCPU().
	Workers int
	// Options apply to every request.
	Options Options
	// OnItem is called once per request after it finishes, including requests
	// skipped because the context was cancelled, so completed reaches total.
	OnItem func(completed, total int)
}

// ProcessBatch runs independent requests concurrently and returns their
// results in input order. Each request still runs its single operation
// sequentially. A failed request does not stop the others; once ctx is
// cancelled, requests that have not started are marked with ctx.Err().
//
// Requests must not share an output path.
func ProcessBatch(ctx context.Context, reqs []Request, batchOpts BatchOptions) []BatchResult {
	if len(reqs) == 0 {
		return nil
	}

	workers := batchOpts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]BatchResult, len(reqs))
	var completed int
	var completedMu sync.Mutex

	report := func() {
		if batchOpts.OnItem == nil {
			return
		}
		completedMu.Lock()
		completed++
		c := completed
		completedMu.Unlock()
		batchOpts.OnItem(c, len(reqs))
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, req := range reqs {
		g.Go(func() error {
			defer report()
			if err := ctx.Err(); err != nil {
				results[i] = BatchResult{Request: req, Err: err, Index: i}
				return nil
			}

			opts := batchOpts.Options
			if opts.Logger != nil {
				opts.Logger = opts.Logger.With("item", i)
			}
			result, err := Process(ctx, req, opts)
			results[i] = BatchResult{Request: req, Result: result, Err: err, Index: i}
			return nil
		})
	}
	// Workers record failures per item and never return an error.
	_ = g.Wait()
	return results
}

// BatchSummary provides aggregate statistics for a batch.
type BatchSummary struct {
	Total      int
	Succeeded  int
	Failed     int
	BytesIn    int64
	BytesOut   int64
	FirstError error
}

// Summarize computes aggregate statistics from batch results.
func Summarize(results []BatchResult) BatchSummary {
	s := BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
			if s.FirstError == nil {
				s.FirstError = fmt.Errorf("item %d (%s): %w", r.Index, r.Request, r.Err)
			}
			continue
		}
		s.Succeeded++
		if r.Result != nil {
			s.BytesIn += r.Result.InputSize
			s.BytesOut += r.Result.OutputSize
		}
	}
	return s
}

// String returns a human-readable batch summary.
func (s BatchSummary) String() string {
	return fmt.Sprintf("Batch: %d/%d succeeded | %s read | %s written",
		s.Succeeded, s.Total, humanBytes(s.BytesIn), humanBytes(s.BytesOut))
}
