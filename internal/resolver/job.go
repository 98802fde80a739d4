package resolver

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"pulse-currency/internal/rates"
)

// Progress is one bulk-job increment, emitted as each date completes.
type Progress struct {
	Index int
	Total int
	Date  time.Time
	Err   error
}

// Result pairs a requested date with its resolution outcome.
type Result struct {
	Date     time.Time
	Snapshot *rates.Snapshot
	Err      error
}

// Job is a running multi-date resolution. Snapshots persisted before a
// cancellation remain cached and usable.
type Job struct {
	progress chan Progress
	done     chan struct{}

	mu      sync.Mutex
	results []Result
	err     error
}

// Progress streams per-date completion events. The channel closes when the
// job finishes.
func (j *Job) Progress() <-chan Progress {
	return j.progress
}

// Wait blocks until the job completes and returns results in request order.
func (j *Job) Wait() ([]Result, error) {
	<-j.done
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.results, j.err
}

// ResolveMany resolves a list of dates concurrently. workers bounds
// parallelism (minimum 1). Cancellation is checked before each date begins;
// dates already resolved keep their results.
func (r *Resolver) ResolveMany(ctx context.Context, dates []time.Time, workers int) *Job {
	if workers < 1 {
		workers = 1
	}

	job := &Job{
		progress: make(chan Progress, len(dates)),
		done:     make(chan struct{}),
		results:  make([]Result, len(dates)),
	}

	go func() {
		defer close(job.done)
		defer close(job.progress)

		group, gctx := errgroup.WithContext(ctx)
		group.SetLimit(workers)

		completed := 0
		var progressMu sync.Mutex

		for i, date := range dates {
			if err := gctx.Err(); err != nil {
				job.mu.Lock()
				job.err = err
				job.mu.Unlock()
				break
			}

			i, date := i, date
			group.Go(func() error {
				snap, err := r.GetRates(gctx, date)

				job.mu.Lock()
				job.results[i] = Result{Date: date, Snapshot: snap, Err: err}
				job.mu.Unlock()

				progressMu.Lock()
				completed++
				job.progress <- Progress{Index: completed, Total: len(dates), Date: date, Err: err}
				progressMu.Unlock()

				// Per-date failures are reported through results, not
				// allowed to cancel sibling dates.
				return nil
			})
		}

		if err := group.Wait(); err != nil {
			job.mu.Lock()
			if job.err == nil {
				job.err = err
			}
			job.mu.Unlock()
		}
	}()

	return job
}

// DateRange enumerates calendar dates from from to to, inclusive.
func DateRange(from, to time.Time) []time.Time {
	from = rates.Midnight(from)
	to = rates.Midnight(to)
	if to.Before(from) {
		return nil
	}
	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}
