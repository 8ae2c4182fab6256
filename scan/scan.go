// Package scan solves several independent covering problems concurrently.
package scan

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/crillab/covsat/covering"
	"github.com/crillab/covsat/internal/logging"
)

// A Job is a named problem.
type Job struct {
	Name    string
	Builder covering.Builder
}

// A Result is the outcome of a job.
// If Err is not nil, Outcome is irrelevant.
type Result struct {
	Job     Job
	Outcome covering.Outcome
	Err     error
	Elapsed time.Duration
}

// A Scanner runs jobs with a given solver.
// A job keeps its worker slot until the searches its solver left running
// (see covering.Detach) have stopped, so that at most Workers searches run at once,
// even with solvers that cannot be interrupted when Timeout expires.
type Scanner struct {
	Solver  covering.Solver
	Workers int           // Max number of jobs solved at the same time; runtime.NumCPU() if 0
	Timeout time.Duration // Time limit for each job, or 0 for no limit
}

// Run solves all jobs and returns their results, in the same order as jobs.
// Errors due to a single job are stored in its result and do not stop the scan.
// If ctx is done, jobs that were not started are not run and
// Run returns the results obtained so far along with ctx's error.
func (s *Scanner) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	log := logr.FromContextOrDiscard(ctx).WithName("scan")
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make([]Result, len(jobs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		results[i].Job = job
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			var bg sync.WaitGroup
			jobCtx := covering.WithBackground(logr.NewContext(gCtx, log.WithValues("job", job.Name)), &bg)
			if s.Timeout > 0 {
				var cancel context.CancelFunc
				jobCtx, cancel = context.WithTimeout(jobCtx, s.Timeout)
				defer cancel()
			}
			start := time.Now()
			out, err := covering.Solve(jobCtx, job.Builder, s.Solver)
			results[i].Outcome = out
			results[i].Err = err
			results[i].Elapsed = time.Since(start)
			log.V(logging.DEBUG).Info("job done", "job", job.Name, "verdict", out.Verdict.String(), "elapsed", results[i].Elapsed, "error", err)
			wait(gCtx, &bg)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return results, fmt.Errorf("scan interrupted: %w", err)
	}
	return results, nil
}

// wait blocks until every search recorded in bg has stopped, or ctx is done.
func wait(ctx context.Context, bg *sync.WaitGroup) {
	stopped := make(chan struct{})
	go func() {
		bg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
	}
}

// MinModulusRange returns one divisor-sweep job per minimum modulus in [from, to].
// Minimum moduli that are not divisors of lcm give the same candidates as the next divisor and are skipped.
func MinModulusRange(lcm int, presets []covering.Progression, from, to int, usage covering.Usage, obj covering.Objective) []Job {
	var jobs []Job
	for _, d := range covering.Divisors(lcm) {
		if d < from || d > to {
			continue
		}
		jobs = append(jobs, Job{
			Name: fmt.Sprintf("lcm=%d,min=%d", lcm, d),
			Builder: covering.DivisorSweep{
				LCM:        lcm,
				MinModulus: d,
				Presets:    presets,
				Usage:      usage,
				Objective:  obj,
			},
		})
	}
	return jobs
}

// LCMRange returns one divisor-sweep job per lcm in lcms, all with the same minimum modulus and no preset.
func LCMRange(lcms []int, minModulus int, usage covering.Usage, obj covering.Objective) []Job {
	jobs := make([]Job, len(lcms))
	for i, lcm := range lcms {
		jobs[i] = Job{
			Name: fmt.Sprintf("lcm=%d,min=%d", lcm, minModulus),
			Builder: covering.DivisorSweep{
				LCM:        lcm,
				MinModulus: minModulus,
				Usage:      usage,
				Objective:  obj,
			},
		}
	}
	return jobs
}
