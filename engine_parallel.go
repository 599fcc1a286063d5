package sool

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/SooL/sool-builder/internal/diag"
	"github.com/SooL/sool-builder/internal/svd"
)

// parseResult carries one parsed document back to the fold phase, tagged
// with its input position.
type parseResult struct {
	index int
	path  string
	doc   *svd.Document
	err   error
}

// ingestParallel ingests files with a three-phase pipeline:
//
//	Phase A (serial):   order the inputs.
//	Phase B (parallel): parse documents on a bounded worker pool.
//	Phase C (serial):   fold documents into the accumulator in input order.
//
// Only parsing runs concurrently. The fold order is the input order, so a
// run produces the same tree as the serial path.
func (e *Engine) ingestParallel(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	// ---- Phase A: input order ----
	items := make([]parseResult, len(paths))
	for i, path := range paths {
		items[i] = parseResult{index: i, path: path}
	}

	// ---- Phase B: parallel parse ----
	jobs := e.jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if jobs > len(items) {
		jobs = len(items)
	}

	workCh := make(chan parseResult, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	resultCh := make(chan parseResult, len(items))
	var wg sync.WaitGroup
	for range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				item.doc, item.err = svd.ParseFile(item.path, e.sink)
				resultCh <- item
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]parseResult, 0, len(items))
	for res := range resultCh {
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })

	// ---- Phase C: serial fold in input order ----
	for _, res := range results {
		if res.err != nil {
			if e.failFast {
				return fmt.Errorf("ingest %s: %w", res.path, res.err)
			}
			e.failed = append(e.failed, res.path)
			e.sink.Errorf(diag.KindIngest, "", "", "excluding chip: %v", res.err)
			continue
		}
		if err := e.AddChip(ctx, res.doc); err != nil {
			return err
		}
	}
	return nil
}
