package spiral

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/lucyelle/SpiralCompiler-sub000/internal/store"
)

// IndexFilesParallel indexes files using a three-phase parallel pipeline:
//
//	Phase A (serial):   Hash check, delete old data, prepare file records.
//	Phase B (parallel): Parse, analyse and run rules on a worker pool, each
//	                    file filling its own BatchedStore.
//	Phase C (serial):   Commit batches to SQLite, diff signatures.
func (e *Engine) IndexFilesParallel(ctx context.Context, paths []string) error {
	var errs []error

	// ---- Phase A: Serial file preparation ----
	var items []fileItem
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, skip, err := e.prepareFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		items = append(items, item)
	}

	if len(items) > 0 {
		errs = append(errs, e.analyzeParallel(ctx, items)...)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(errs) > 0 {
		return fmt.Errorf("parallel indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

func (e *Engine) analyzeParallel(ctx context.Context, items []fileItem) []error {
	// ---- Phase B: Parallel analysis ----
	numWorkers := min(runtime.NumCPU(), len(items))
	if numWorkers < 1 {
		numWorkers = 1
	}

	workCh := make(chan fileItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item  fileItem
		batch *store.BatchedStore
		err   error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				if err := ctx.Err(); err != nil {
					resultCh <- result{item: item, err: err}
					continue
				}
				batch := store.NewBatchedStore(item.fileID)
				_, err := e.analyze(ctx, item.path, item.source, batch, item.fileID)
				resultCh <- result{item: item, batch: batch, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	var errs []error
	for res := range resultCh {
		if res.err != nil {
			// Drop the bare file record so the next run retries the file.
			_ = e.store.DeleteFileData(res.item.fileID)
			errs = append(errs, fmt.Errorf("analyse %s: %w", res.item.path, res.err))
			continue
		}

		if err := e.store.CommitBatch(res.batch); err != nil {
			_ = e.store.DeleteFileData(res.item.fileID)
			errs = append(errs, fmt.Errorf("commit %s: %w", res.item.path, err))
			continue
		}

		after, err := e.store.SignatureHashes(res.item.fileID)
		if err != nil {
			errs = append(errs, fmt.Errorf("capture new signatures %s: %w", res.item.path, err))
			continue
		}
		e.recordChange(res.item.path, res.item.oldHashes, after)
	}
	return errs
}
