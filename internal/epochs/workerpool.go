package epochs

import (
	"runtime"
	"sync"

	"github.com/neurokit/neurokit-go/internal/errors"
)

// runParallel executes fn(0..n-1) on a bounded worker pool. Work items
// are data-parallel: fn must only write state owned by its own index, so
// results are identical to sequential execution regardless of worker
// count. Errors are joined in index order.
func runParallel(n, workers int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	if workers == 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	errs := make([]error, n)
	indices := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				errs[i] = fn(i)
			}
		}()
	}

	for i := 0; i < n; i++ {
		indices <- i
	}
	close(indices)
	wg.Wait()

	return errors.Join(errs...)
}
