package apiclient

import (
	"context"
	"log/slog"
	"sync"
)

// Job is one request of a batch. Key identifies its Result.
type Job struct {
	Key     string
	Request Request
}

type Result struct {
	Key      string
	Response *Response
	Err      error
}

type worker struct {
	id         int
	workerPool chan chan Job
	jobChannel chan Job
	logger     *slog.Logger
}

func newWorker(id int, workerPool chan chan Job, logger *slog.Logger) *worker {
	return &worker{
		id:         id,
		workerPool: workerPool,
		jobChannel: make(chan Job),
		logger:     logger,
	}
}

func (w *worker) start(ctx context.Context, wg *sync.WaitGroup, process func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.workerPool <- w.jobChannel:
			case <-ctx.Done():
				return
			}

			select {
			case job := <-w.jobChannel:
				w.logger.Debug("worker processing job", "worker_id", w.id, "key", job.Key)
				process(job)
			case <-ctx.Done():
				w.logger.Debug("worker shutting down", "worker_id", w.id)
				return
			}
		}
	}()
}

// Batch runs jobs on at most maxWorkers concurrent requests and returns the
// results keyed by Job.Key. Each job fails or succeeds on its own.
func (c *Client) Batch(ctx context.Context, maxWorkers int, jobs ...Job) map[string]Result {
	results := make(map[string]Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}
	if maxWorkers <= 0 || maxWorkers > len(jobs) {
		maxWorkers = len(jobs)
	}

	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		pending sync.WaitGroup
	)
	workerPool := make(chan chan Job, maxWorkers)

	process := func(job Job) {
		defer pending.Done()
		resp, err := c.Do(ctx, job.Request)
		mu.Lock()
		results[job.Key] = Result{Key: job.Key, Response: resp, Err: err}
		mu.Unlock()
	}

	for i := 0; i < maxWorkers; i++ {
		newWorker(i, workerPool, c.logger).start(poolCtx, &wg, process)
	}

	pending.Add(len(jobs))
	for _, job := range jobs {
		select {
		case jobChannel := <-workerPool:
			jobChannel <- job
		case <-ctx.Done():
			pending.Done()
			mu.Lock()
			results[job.Key] = Result{Key: job.Key, Err: ctx.Err()}
			mu.Unlock()
		}
	}

	pending.Wait()
	cancel()
	wg.Wait()

	return results
}
