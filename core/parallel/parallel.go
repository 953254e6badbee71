// Package parallel provides the chunked worker fan-out used by the batch driver.
package parallel

import (
	"runtime"
	"sync"

	"github.com/YuminosukeSato/ftrl/pkg/errors"
)

// Workers resolves a requested worker count. n <= 0 means one worker per CPU.
func Workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// Chunks splits [0, items) into at most workers contiguous ranges of nearly equal
// size (ceiling division). Empty ranges are omitted.
func Chunks(items, workers int) [][2]int {
	if items <= 0 {
		return nil
	}
	workers = Workers(workers)
	if workers > items {
		workers = items
	}
	chunkSize := (items + workers - 1) / workers

	out := make([][2]int, 0, workers)
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// Parallelize runs fn once per chunk of [0, items), each in its own goroutine,
// and waits for all of them. worker is the chunk ordinal, stable for a given
// (items, workers) pair. A panic inside fn is recovered and returned as a
// *errors.PanicError; when several workers fail, the error of the lowest
// worker ordinal is returned.
func Parallelize(items, workers int, fn func(worker, start, end int) error) error {
	chunks := Chunks(items, workers)
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) == 1 {
		return errors.SafeExecute("parallel worker 0", func() error {
			return fn(0, chunks[0][0], chunks[0][1])
		})
	}

	errs := make([]error, len(chunks))
	var wg sync.WaitGroup
	for w, c := range chunks {
		wg.Add(1)
		go func(w, s, e int) {
			defer wg.Done()
			errs[w] = errors.SafeExecute("parallel worker", func() error {
				return fn(w, s, e)
			})
		}(w, c[0], c[1])
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// ParallelizeWithThreshold runs fn sequentially as a single chunk when items is
// at most threshold, and in parallel otherwise.
func ParallelizeWithThreshold(items, threshold, workers int, fn func(worker, start, end int) error) error {
	if items <= threshold {
		return Parallelize(items, 1, fn)
	}
	return Parallelize(items, workers, fn)
}
