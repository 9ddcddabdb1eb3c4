package batch

import (
	"context"
	"runtime"
	"sync"
)

// workerPool runs a fixed number of workers over submitted jobs and collects
// their results.
type workerPool[Job any, Result any] struct {
	numWorkers int
	jobs       chan Job
	results    chan Result
	wg         sync.WaitGroup
}

// newWorkerPool creates a pool for numJobs jobs. If numWorkers is 0 or
// negative, it defaults to the number of CPUs. The pool never runs more
// workers than jobs.
func newWorkerPool[Job any, Result any](numWorkers, numJobs int) *workerPool[Job, Result] {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numJobs > 0 {
		numWorkers = min(numWorkers, numJobs)
	}

	return &workerPool[Job, Result]{
		numWorkers: numWorkers,
		jobs:       make(chan Job),
		results:    make(chan Result, max(numJobs, 1)),
	}
}

// start launches the workers. workerFn is called once per job.
func (p *workerPool[Job, Result]) start(workerFn func(Job) Result) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.results <- workerFn(job)
			}
		}()
	}
}

// submit hands job to the next free worker. It returns ctx.Err() without
// dispatching once ctx is done.
func (p *workerPool[Job, Result]) submit(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting jobs. The results channel is closed once every
// dispatched job has finished.
func (p *workerPool[Job, Result]) close() {
	close(p.jobs)
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

func (p *workerPool[Job, Result]) resultsChan() <-chan Result {
	return p.results
}
