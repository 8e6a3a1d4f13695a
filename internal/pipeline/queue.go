package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const jobBuffer = 256

type job struct {
	itemID string
	step   Step
}

// Queue is a bounded-concurrency worker pool over pipeline step jobs.
// Steps for one item run strictly sequentially because the next step is
// only enqueued after the previous one persisted its results; the pool
// bound applies across items. A shared ticker throttles job starts.
type Queue struct {
	machine     *Machine
	jobs        chan job
	concurrency int
	perMinute   int
	maxRetries  int
	wg          sync.WaitGroup
}

func NewQueue(machine *Machine, concurrency, jobsPerMinute, stepRetries int) *Queue {
	if concurrency <= 0 {
		concurrency = 2
	}
	if jobsPerMinute <= 0 {
		jobsPerMinute = 10
	}
	if stepRetries <= 0 {
		stepRetries = 3
	}

	q := &Queue{
		machine:     machine,
		jobs:        make(chan job, jobBuffer),
		concurrency: concurrency,
		perMinute:   jobsPerMinute,
		maxRetries:  stepRetries,
	}
	machine.SetEnqueuer(q)
	return q
}

func (q *Queue) Enqueue(ctx context.Context, itemID string, step Step) error {
	select {
	case q.jobs <- job{itemID: itemID, step: step}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("job queue full")
	}
}

// Start launches the workers. They run until the context is cancelled.
func (q *Queue) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Minute / time.Duration(q.perMinute))

	for i := 0; i < q.concurrency; i++ {
		q.wg.Add(1)
		go func(worker int) {
			defer q.wg.Done()
			q.run(ctx, ticker.C, worker)
		}(i)
	}

	go func() {
		<-ctx.Done()
		ticker.Stop()
	}()
}

// Wait blocks until all workers have exited.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) run(ctx context.Context, ticks <-chan time.Time, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-q.jobs:
			select {
			case <-ctx.Done():
				return
			case <-ticks:
			}
			slog.Debug("Worker picked up job", "worker", worker, "item", j.itemID, "step", j.step)
			q.process(ctx, j)
		}
	}
}

// process runs a job with bounded retries and exponential backoff. The
// same policy applies to every step; only after the last attempt is the
// item marked failed.
func (q *Queue) process(ctx context.Context, j job) {
	backoff := time.Second

	var err error
	for attempt := 1; attempt <= q.maxRetries; attempt++ {
		err = q.machine.RunStep(ctx, j.itemID, j.step)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if attempt < q.maxRetries {
			slog.Warn("Step attempt failed, backing off",
				"item", j.itemID, "step", j.step, "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	q.machine.MarkStepFailed(ctx, j.itemID, j.step, err)
}

// SyncRunner executes every enqueued step inline on the caller's
// goroutine, used by one-shot commands that run a pipeline to completion
// without a worker pool.
type SyncRunner struct {
	machine *Machine
}

func NewSyncRunner(machine *Machine) *SyncRunner {
	r := &SyncRunner{machine: machine}
	machine.SetEnqueuer(r)
	return r
}

func (r *SyncRunner) Enqueue(ctx context.Context, itemID string, step Step) error {
	if err := r.machine.RunStep(ctx, itemID, step); err != nil {
		r.machine.MarkStepFailed(ctx, itemID, step, err)
		return err
	}
	return nil
}
