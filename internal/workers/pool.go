// Package workers runs independent, index-addressed jobs on a bounded set of
// goroutines and collects their results in input order.
package workers

import (
	"fmt"
	"sync"

	"github.com/aristath/koforecast/internal/progress"
)

// Job computes the value for one index. Jobs must not share mutable state.
type Job func(index int) (float64, error)

// Pool manages a fixed number of worker goroutines.
type Pool struct {
	numWorkers int
}

// NewPool creates a pool with the specified number of workers.
// A non-positive count falls back to a single worker (sequential execution).
func NewPool(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &Pool{numWorkers: numWorkers}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int { return p.numWorkers }

// Evaluate runs job for every index in [0, n) and returns the results in index
// order. Every job runs even if an earlier one fails; the error of the lowest
// failing index is returned so the outcome does not depend on scheduling.
//
// The callback is invoked once per completed job from the collecting goroutine,
// never concurrently.
func (p *Pool) Evaluate(n int, job Job, cb progress.Callback, message string) ([]float64, error) {
	if n == 0 {
		return []float64{}, nil
	}

	results := make([]float64, n)
	errs := make([]error, n)

	if p.numWorkers == 1 || n == 1 {
		for i := 0; i < n; i++ {
			results[i], errs[i] = runJob(job, i)
			progress.Call(cb, i+1, n, message)
		}
		return results, firstError(errs)
	}

	jobs := make(chan int, n)
	done := make(chan resultItem, n)

	var wg sync.WaitGroup
	numActualWorkers := p.numWorkers
	if n < numActualWorkers {
		numActualWorkers = n // Don't spawn more workers than jobs
	}

	for w := 0; w < numActualWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(jobs, done, job)
		}()
	}

	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(done)
	}()

	completed := 0
	for r := range done {
		results[r.index] = r.value
		errs[r.index] = r.err
		completed++
		progress.Call(cb, completed, n, message)
	}

	return results, firstError(errs)
}

// resultItem is one finished job.
type resultItem struct {
	index int
	value float64
	err   error
}

func worker(jobs <-chan int, done chan<- resultItem, job Job) {
	for i := range jobs {
		value, err := runJob(job, i)
		done <- resultItem{index: i, value: value, err: err}
	}
}

// runJob converts a panic inside job into an error.
func runJob(job Job, i int) (value float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %d panicked: %v", i, r)
		}
	}()
	return job(i)
}

func firstError(errs []error) error {
	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("job %d: %w", i, err)
		}
	}
	return nil
}
