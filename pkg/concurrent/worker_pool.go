package concurrent

import (
	"sync"
)

// WorkerPool runs jobs with bounded parallelism. Usage: AddJob every job,
// Close, Start, Wait, then drain CollectResults.
type WorkerPool[T JobI, G any] struct {
	numWorkers int
	jobs       chan T
	results    chan G
	wg         sync.WaitGroup
}

func NewWorkerPool[T JobI, G any](numWorkers, jobCount int) *WorkerPool[T, G] {
	return &WorkerPool[T, G]{
		numWorkers: numWorkers,
		jobs:       make(chan T, jobCount),
		results:    make(chan G, jobCount),
	}
}

func (wp *WorkerPool[T, G]) AddJob(job T) {
	wp.jobs <- job
}

// Close marks the job queue complete. Must be called before Wait.
func (wp *WorkerPool[T, G]) Close() {
	close(wp.jobs)
}

func (wp *WorkerPool[T, G]) Start(f JobFunc[T, G]) {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go func() {
			defer wp.wg.Done()
			for job := range wp.jobs {
				wp.results <- f(job)
			}
		}()
	}
}

// Wait blocks until every job finished and closes the results channel.
func (wp *WorkerPool[T, G]) Wait() {
	wp.wg.Wait()
	close(wp.results)
}

func (wp *WorkerPool[T, G]) CollectResults() chan G {
	return wp.results
}
